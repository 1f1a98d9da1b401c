package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const maxChatBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body", common.ErrorValidation)
	}
	return nil
}

func (a *API) ListModels(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	writeJSON(w, http.StatusOK, services.ModelsFor(a.cfg, claims.Type))
}

type chatRequest struct {
	ID                     string `json:"id"`
	SelectedChatModel      string `json:"selectedChatModel"`
	SelectedVisibilityType string `json:"selectedVisibilityType"`
	Message                struct {
		ID    string        `json:"id"`
		Parts []models.Part `json:"parts"`
	} `json:"message"`
}

type sseEvent struct {
	Type      string `json:"type"`
	Delta     string `json:"delta,omitempty"`
	ErrorText string `json:"errorText,omitempty"`
}

// Chat runs one chat turn and streams the answer as server-sent events.
func (a *API) Chat(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		mapError(w, err)
		return
	}

	model := req.SelectedChatModel
	if model == "" {
		if c, err := r.Cookie(common.ChatModelCookieName); err == nil {
			model = c.Value
		}
	}

	var visibility models.Visibility
	if req.SelectedVisibilityType != "" {
		v, err := models.ParseVisibility(req.SelectedVisibilityType)
		if err != nil {
			mapError(w, err)
			return
		}
		visibility = v
	}

	deltas, err := a.chats.Reply(r.Context(), services.ReplyRequest{
		ChatID:     req.ID,
		UserID:     claims.UserID,
		UserType:   claims.Type,
		ModelID:    model,
		Visibility: visibility,
		Message:    models.Message{ID: req.Message.ID, Parts: req.Message.Parts},
	})
	if err != nil {
		a.log.Warn(r.Context(), "chat turn rejected", "error", err)
		mapError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)

	send := func(ev sseEvent) error {
		b, _ := json.Marshal(ev)
		if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
			return err
		}
		return rc.Flush()
	}

	for d, err := range deltas {
		if err != nil {
			a.log.Error(r.Context(), "chat stream failed", "chat_id", req.ID, "error", err)
			_ = send(sseEvent{Type: "error", ErrorText: "the model failed to answer"})
			break
		}
		if err := send(sseEvent{Type: string(d.Type), Delta: d.Text}); err != nil {
			return
		}
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	_ = rc.Flush()
}

func (a *API) GenerateTitle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		mapError(w, err)
		return
	}

	title, err := a.chats.GenerateTitleFromUserMessage(r.Context(), req.Text)
	if err != nil {
		a.log.Error(r.Context(), "title generation failed", "error", err)
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"title": title})
}

// SaveChatModel remembers the selected model in a cookie.
func (a *API) SaveChatModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		mapError(w, err)
		return
	}
	allowed := services.EntitlementsFor(claimsFromContext(r.Context()).Type).AvailableChatModelIDs
	if !slices.Contains(allowed, req.Model) {
		writeError(w, http.StatusBadRequest, "unknown model")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.ChatModelCookieName,
		Value:    req.Model,
		Path:     "/",
		Secure:   a.secureCookies(r),
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) UpdateVisibility(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req struct {
		Visibility string `json:"visibility"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		mapError(w, err)
		return
	}
	v, err := models.ParseVisibility(req.Visibility)
	if err != nil {
		mapError(w, err)
		return
	}

	if err := a.chats.UpdateChatVisibility(r.Context(), claims.UserID, chi.URLParam(r, "chatID"), v); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) DeleteTrailing(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	n, err := a.chats.DeleteTrailingMessages(r.Context(), claims.UserID, chi.URLParam(r, "messageID"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
