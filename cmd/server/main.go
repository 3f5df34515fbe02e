package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/ytakahashi/todo-app/internal/auth"
	"github.com/ytakahashi/todo-app/internal/config"
	"github.com/ytakahashi/todo-app/internal/handlers"
	"github.com/ytakahashi/todo-app/internal/logging"
	"github.com/ytakahashi/todo-app/internal/storage"
	"github.com/ytakahashi/todo-app/internal/todos"
)

const (
	bcryptCost      = 10
	connectTimeout  = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	os.Exit(run())
}

// run wires the service and blocks until it stops. It returns the process exit
// code so deferred cleanup runs before main exits.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}

	logger := logging.New(os.Stdout, cfg.IsDevelopment())
	ctx := context.Background()

	if cfg.UsingDevSecret {
		logger.Warn(ctx, "JWT_SECRET is not set, using the development secret")
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	store, err := storage.Open(connectCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		logger.Error(ctx, "failed to open database", "error", err)
		return 1
	}
	defer store.Close()

	authService := auth.NewService(store, auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL), auth.NewBcryptHasher(bcryptCost), logger)
	todoService := todos.NewService(store, logger)

	var webhookHandler *handlers.WebhookHandler
	if cfg.LineEnabled() {
		bot, err := messaging_api.NewMessagingApiAPI(cfg.LineChannelToken)
		if err != nil {
			logger.Error(ctx, "failed to create LINE bot client", "error", err)
			return 1
		}
		webhookHandler = handlers.NewWebhookHandler(bot, cfg.LineChannelSecret, authService, todoService, store, logger)
		logger.Info(ctx, "LINE webhook enabled")
	}

	e := handlers.NewServer(handlers.ServerConfig{
		Development:       cfg.IsDevelopment(),
		AllowedOrigins:    cfg.AllowedOrigins,
		RegisterRateLimit: cfg.RegisterRateLimit,
	}, logger, authService, todoService, webhookHandler)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	logger.Info(ctx, "server starting", "port", cfg.Port, "env", cfg.Env)
	if err := serve(ctx, e, ":"+cfg.Port, quit, logger); err != nil {
		logger.Error(ctx, "server failed", "error", err)
		return 1
	}
	return 0
}

// serve runs e on addr until a signal arrives on quit or the listener fails.
// A signal triggers a graceful shutdown bounded by shutdownTimeout.
func serve(ctx context.Context, e *echo.Echo, addr string, quit <-chan os.Signal, logger logging.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-quit:
		logger.Info(ctx, "shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
