package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/clausedesk/internal/analysis"
	"github.com/dukerupert/clausedesk/internal/config"
	"github.com/dukerupert/clausedesk/internal/database"
	"github.com/dukerupert/clausedesk/internal/logging"
	"github.com/dukerupert/clausedesk/internal/server"
)

func main() {
	configFile := flag.String("config", "", "path to config file (default: clausedesk.yaml if present)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = randomSecret()
		logger.Warn("auth.jwt_secret not set, using an ephemeral secret; bearer tokens will not survive restarts")
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen := newGenerator(ctx, cfg.LLM, logger)

	srv, err := server.New(cfg, db, gen, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	if cfg.Auth.DemoAccount {
		if err := srv.Accounts().EnsureDemo(ctx); err != nil {
			logger.Error("failed to seed demo account", "error", err)
		}
	}

	scheduler := srv.ReminderScheduler()
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go cleanup(ctx, srv, cfg, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("clausedesk starting", "addr", cfg.Server.Addr, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func newGenerator(ctx context.Context, c config.LLMConfig, logger *slog.Logger) analysis.Generator {
	ark := analysis.ArkConfig{
		APIKey:      c.APIKey,
		Model:       c.Model,
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	}
	if !ark.Enabled() {
		logger.Warn("language model not configured, analysis will return fallback results")
		return analysis.Unavailable{}
	}
	cm, err := analysis.NewArkChatModel(ctx, ark)
	if err != nil {
		logger.Error("failed to create chat model", "error", err)
		return analysis.Unavailable{}
	}
	gen, err := analysis.NewChainGenerator(ctx, cm)
	if err != nil {
		logger.Error("failed to compile prompt chain", "error", err)
		return analysis.Unavailable{}
	}
	logger.Info("language model ready", "model", c.Model)
	return gen
}

// cleanup evicts idle sessions and prunes expired rows until ctx is done.
func cleanup(ctx context.Context, srv *server.Server, cfg *config.Config, logger *slog.Logger) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := srv.Registry().Sweep(cfg.Usage.IdleTimeout); n > 0 {
				logger.Info("evicted idle sessions", "count", n)
			}
			if n, err := srv.SessionStore().DeleteExpired(); err != nil {
				logger.Error("cleanup expired sessions", "error", err)
			} else if n > 0 {
				logger.Info("cleaned up expired sessions", "count", n)
			}
			srv.RateLimiter().Cleanup(time.Hour)

			if cfg.Usage.Retention > 0 {
				today, err := time.Parse("2006-01-02", srv.Tracker().Today())
				if err != nil {
					continue
				}
				cutoff := today.AddDate(0, 0, -cfg.Usage.Retention).Format("2006-01-02")
				if n, err := srv.UsageStore().DeleteBefore(cutoff); err != nil {
					logger.Error("prune usage history", "error", err)
				} else if n > 0 {
					logger.Info("pruned usage history", "rows", n, "before", cutoff)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
