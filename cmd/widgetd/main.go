// widgetd - Embedded comment widget session runtime
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/commentlab/widgetd/internal/app"
	"github.com/commentlab/widgetd/internal/config"
	"github.com/commentlab/widgetd/internal/frame"
	"github.com/commentlab/widgetd/internal/gateway"
	"github.com/commentlab/widgetd/internal/middleware"
	"github.com/commentlab/widgetd/internal/notify"
	"github.com/commentlab/widgetd/internal/oauth"
	"github.com/commentlab/widgetd/internal/provider"
	"github.com/commentlab/widgetd/internal/session"
	"github.com/commentlab/widgetd/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting widget runtime", "port", cfg.Port, "api", cfg.APIBaseURL, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	tokens, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize token store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := tokens.Close(); closeErr != nil {
			slog.Error("Failed to close token store", "error", closeErr)
		}
	}()

	if err := tokens.Ping(context.Background()); err != nil {
		slog.Error("Token store health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Token store ready")

	gw, err := gateway.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout)
	if err != nil {
		slog.Error("Failed to initialize auth gateway", "error", err)
		os.Exit(1)
	}

	// Initialize the session/messaging substrate.
	channel := frame.NewChannel()
	sessions := session.NewController(gw, tokens, channel)
	alarms := notify.NewChannel(&notify.WSDialer{StreamURL: cfg.StreamURL})
	defer alarms.Close()

	providers := provider.NewRegistry(cfg.Providers)

	// Initialize handlers.
	appHandler := app.NewHandler(tokens, sessions, channel, alarms, providers)
	frameHandler := frame.NewHandler(channel, cfg.AllowedOrigin, cfg.IsDevelopment())
	oauthHandler := oauth.NewHandler(gw, sessions, oauth.DefaultWatchdogTimeout)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS([]string{cfg.AllowedOrigin}))

	// Frame port endpoint.
	r.Get("/ws/frame", frameHandler.ServeHTTP)

	// OAuth callback view.
	r.Get("/oauth/{provider}", oauthHandler.ServeHTTP)

	// Widget view and API.
	appHandler.RegisterRoutes(r)

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // frame port connections stay open indefinitely
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Restore the persisted session and hook the realtime channel to
	// identity changes before accepting traffic.
	appHandler.RunStartup(ctx)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
