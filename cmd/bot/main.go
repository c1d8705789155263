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
	"golang.org/x/sync/errgroup"

	"pro-prompt-builder/internal/config"
	"pro-prompt-builder/internal/gemini"
	"pro-prompt-builder/internal/handlers"
	"pro-prompt-builder/internal/httpclient"
	"pro-prompt-builder/internal/metrics"
	"pro-prompt-builder/internal/session"
	"pro-prompt-builder/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		panic(err)
	}

	logger := newLogger(cfg)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: httpClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	gem := gemini.New(gemini.Options{
		APIKey:       cfg.GeminiAPIKey,
		BaseURL:      cfg.GeminiBaseURL,
		APIVersion:   cfg.GeminiAPIVersion,
		Model:        cfg.GeminiModel,
		HTTPClient:   httpClient,
		Logger:       logger,
		RateInterval: cfg.GeminiRateInterval,
	})

	handler := handlers.New(handlers.Options{
		Telegram: tg,
		Workspace: session.Options{
			Backend:        gem,
			Logger:         logger,
			Duration:       cfg.GenerationDuration,
			Tick:           cfg.ProgressTick,
			BackendTimeout: cfg.BackendTimeout,
			SessionTTL:     cfg.NotifyTTL,
			ToastTTL:       cfg.ToastTTL,
		},
		Logger:               logger,
		ProgressEditInterval: cfg.ProgressEditInterval,
	})
	defer handler.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metrics.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics started", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := handler.Workspaces().Prune(cfg.WorkspaceIdle); n > 0 {
					logger.Debug("pruned idle workspaces", "count", n)
				}
			}
		}
	})

	g.Go(func() error {
		defer stop()
		return pollUpdates(gctx, cfg, tg, handler, logger)
	})

	if err := g.Wait(); err != nil {
		logger.Error("bot stopped", "err", err)
		os.Exit(1)
	}
}

func pollUpdates(ctx context.Context, cfg config.Config, tg *telegram.Client, handler *handlers.Handler, logger *slog.Logger) error {
	logger.Info("bot started", "username", tg.Username())

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	sem := make(chan struct{}, cfg.MaxConcurrent)
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return nil
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return nil
			}

			go func(update telegram.Update) {
				defer func() { <-sem }()

				reqCtx, cancel := context.WithTimeout(ctx, cfg.HTTPTimeout)
				defer cancel()

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
			}(update)
		}
	}
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
