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

	"github.com/joho/godotenv"

	"pro-prompt-builder/internal/config"
	"pro-prompt-builder/internal/gemini"
	"pro-prompt-builder/internal/httpclient"
	"pro-prompt-builder/internal/session"
	"pro-prompt-builder/internal/webui"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	gem := gemini.New(gemini.Options{
		APIKey:       cfg.GeminiAPIKey,
		BaseURL:      cfg.GeminiBaseURL,
		APIVersion:   cfg.GeminiAPIVersion,
		Model:        cfg.GeminiModel,
		HTTPClient:   httpClient,
		Logger:       logger,
		RateInterval: cfg.GeminiRateInterval,
	})

	ws := session.NewWorkspace(session.Options{
		Backend:        gem,
		Logger:         logger,
		Duration:       cfg.GenerationDuration,
		Tick:           cfg.ProgressTick,
		BackendTimeout: cfg.BackendTimeout,
		SessionTTL:     cfg.NotifyTTL,
		ToastTTL:       cfg.ToastTTL,
	})

	ui := webui.New(webui.Options{
		Workspace: ws,
		Logger:    logger,
		Metrics:   true,
	})

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           ui.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("web started", "addr", cfg.WebAddr, "model", gem.Model())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
