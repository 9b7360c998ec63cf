package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tailfin-ai/tailfin/internal/adapters/events/direct"
	"github.com/tailfin-ai/tailfin/internal/adapters/storage/sqlite"
	"github.com/tailfin-ai/tailfin/internal/config"
	"github.com/tailfin-ai/tailfin/internal/core/ports"
	"github.com/tailfin-ai/tailfin/internal/server"
	"github.com/tailfin-ai/tailfin/internal/sse"
	"github.com/tailfin-ai/tailfin/internal/telemetry"
	"github.com/tailfin-ai/tailfin/internal/tokens"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Initialize OpenTelemetry
	shutdown, err := telemetry.InitTracer("tailfin", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load(os.Getenv("TAILFIN_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var journal ports.EventJournal
	var sink ports.Sink
	if cfg.Storage.JournalEnabled {
		if dir := filepath.Dir(cfg.Storage.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Fatalf("Failed to create storage directory: %v", err)
			}
		}
		store, err := sqlite.New(cfg.Storage.Path)
		if err != nil {
			log.Fatalf("Failed to open event journal: %v", err)
		}
		defer store.Close()
		journal = store

		sink, err = direct.NewSink(store)
		if err != nil {
			log.Fatalf("Failed to create sink: %v", err)
		}
	}

	estimator := tokens.NewEstimator()

	srv := server.New(cfg.Server.Port, time.Duration(cfg.Server.RequestTimeoutSeconds)*time.Second, logger)

	handler := sse.NewHandler(sink, journal, estimator, cfg.Projector.MaxChunkChars)
	handler.RegisterRoutes(srv.Router)

	srv.Router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	logger.Info("tailfin started",
		slog.Int("port", cfg.Server.Port),
		slog.Bool("journal_enabled", cfg.Storage.JournalEnabled),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	case <-sigChan:
	}

	logger.Info("shutdown signal received, stopping...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
