// Package web exposes the chat server over HTTP.
package web

import (
	"context"
	"iter"
	"net/http"

	"github.com/dmitrijs2005/gophchat/internal/llm"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Authenticator signs users in.
type Authenticator interface {
	Login(ctx context.Context, form services.LoginForm) services.LoginResult
}

// Chats is the chat backend used by the handlers.
type Chats interface {
	Reply(ctx context.Context, req services.ReplyRequest) (iter.Seq2[llm.Delta, error], error)
	GenerateTitleFromUserMessage(ctx context.Context, text string) (string, error)
	DeleteTrailingMessages(ctx context.Context, userID, messageID string) (int64, error)
	UpdateChatVisibility(ctx context.Context, userID, chatID string, visibility models.Visibility) error
}

// Files hands out attachment URLs.
type Files interface {
	PresignUpload(ctx context.Context, userID, contentType string, size int64) (*services.Upload, error)
	PresignDownload(ctx context.Context, userID, key string) (string, error)
}

// API holds the dependencies needed by the HTTP handlers.
type API struct {
	cfg     *config.Config
	auth    Authenticator
	issuer  *auth.Issuer
	chats   Chats
	files   Files
	log     logging.Logger
	limiter *ipLimiter
}

func New(cfg *config.Config, a Authenticator, issuer *auth.Issuer, chats Chats, files Files, log logging.Logger) *API {
	return &API{
		cfg:     cfg,
		auth:    a,
		issuer:  issuer,
		chats:   chats,
		files:   files,
		log:     log.With("module", "web"),
		limiter: newIPLimiter(cfg.LoginRatePerMinute),
	}
}

// Router returns the HTTP handler with all routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	if a.cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestID, a.AccessLog, SecurityHeaders, a.Session)

	r.Route("/api", func(r chi.Router) {
		r.With(a.RateLimitLogin).Post("/auth/login", a.Login)
		r.Get("/auth/session", a.GetSession)
		r.Post("/auth/logout", a.Logout)
		r.Get("/auth/guest", a.Guest)

		r.Group(func(r chi.Router) {
			r.Use(a.RequireSession)

			r.Get("/models", a.ListModels)

			r.Post("/chat", a.Chat)
			r.Post("/chat/title", a.GenerateTitle)
			r.Post("/chat/model", a.SaveChatModel)
			r.Patch("/chat/{chatID}/visibility", a.UpdateVisibility)
			r.Delete("/messages/{messageID}/trailing", a.DeleteTrailing)

			r.Post("/files/upload", a.PresignUpload)
			r.Get("/files/url", a.PresignDownload)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	return r
}
