// Package server wires the chat server together: storage, the database
// warm-up guard, the model registry and the HTTP and gRPC listeners, and
// handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/llm"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"github.com/dmitrijs2005/gophchat/internal/server/warmup"
	"github.com/dmitrijs2005/gophchat/internal/server/web"

	gs "github.com/dmitrijs2005/gophchat/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	rm     repomanager.RepositoryManager
	guard  *warmup.Guard
	api    *web.API
	grpc   *gs.GRPCServer
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	if err := c.Validate(); err != nil {
		logger.Error(context.Background(), "refusing to start", "error", err)
		return nil, fmt.Errorf("config error: %w", err)
	}

	db, err := repomanager.Open(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	issuer, err := auth.NewIssuer(c.SecretKey, c.SessionTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("session key: %w", err)
	}

	us := services.NewUserService(db, rm, c, logger)

	guard := warmup.New(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.WarmupTimeout)
		defer cancel()
		return us.WarmUp(ctx)
	}, logger)

	registry := llm.NewRegistry(llm.NewClient(c.OpenAIBaseURL, c.OpenAIAPIKey), llm.ModelNames{
		Chat:      c.ChatModel,
		Reasoning: c.ReasoningModel,
		Title:     c.TitleModel,
		Artifact:  c.ArtifactModel,
	})

	as := services.NewAuthService(us, issuer, guard, logger)
	cs := services.NewChatService(db, rm, registry, logger)
	fs := services.NewFileService(c)

	gsrv := gs.NewGRPCServer(c.GRPCAddr, logger)
	guard.OnSettled(gsrv.MarkServing)

	return &App{
		config: c,
		logger: logger,
		db:     db,
		rm:     rm,
		guard:  guard,
		api:    web.New(c, as, issuer, cs, fs, logger),
		grpc:   gsrv,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.rm.RunMigrations(ctx, app.db); err != nil {
		app.db.Close()
		return fmt.Errorf("migrations: %w", err)
	}

	// The first attempt starts in the background; sign-ins trigger it again
	// until it settles.
	app.guard.Trigger()

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(ctx, "Stopped")
	return app.db.Close()
}
