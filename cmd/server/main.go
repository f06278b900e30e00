package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/prepdesk/prepdesk/internal/ai"
	"github.com/prepdesk/prepdesk/internal/generator"
	"github.com/prepdesk/prepdesk/internal/httpapi"
	"github.com/prepdesk/prepdesk/internal/learnpath"
	"github.com/prepdesk/prepdesk/internal/platform/cache"
	"github.com/prepdesk/prepdesk/internal/platform/config"
	"github.com/prepdesk/prepdesk/internal/platform/database"
	"github.com/prepdesk/prepdesk/internal/roster"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg.Log))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	seeds, err := roster.Load(cfg.RosterPath)
	if err != nil {
		slog.Error("failed to load roster", "error", err)
		os.Exit(1)
	}

	var (
		store  learnpath.Store
		checks []httpapi.HealthCheck
	)
	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		store, err = learnpath.NewPostgresStore(ctx, db.Pool, seeds.Students, seeds.Paths)
		if err != nil {
			slog.Error("failed to initialize store", "error", err)
			os.Exit(1)
		}
		checks = append(checks, httpapi.HealthCheck{Name: "database", Check: db.HealthCheck})
		slog.Info("using postgres store")
	} else {
		store = learnpath.NewMemoryStore(seeds.Students, seeds.Paths)
		slog.Info("using in-memory store", "students", len(seeds.Students), "paths", len(seeds.Paths))
	}

	genOpts := []generator.Option{generator.WithModel(cfg.AI.Google.Model)}
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Error("failed to connect to cache", "error", err)
			os.Exit(1)
		}
		defer c.Close()

		genOpts = append(genOpts, generator.WithCache(generator.NewRedisResultCache(c.Client)))
		checks = append(checks, httpapi.HealthCheck{Name: "cache", Check: c.HealthCheck})
		slog.Info("generation result cache enabled")
	}

	var completer generator.Completer
	if cfg.HasAIProvider() {
		router := ai.NewRouter()
		router.Register("google", ai.NewGoogleProvider(cfg.AI.Google.APIKey))
		completer = router
		slog.Info("ai provider configured", "provider", "google", "model", cfg.AI.Google.Model)
	} else {
		slog.Warn("no ai provider configured, generation serves the canned fallback")
	}

	srv := httpapi.NewServer(httpapi.Config{
		Store:     store,
		Generator: generator.New(completer, genOpts...),
		Checks:    checks,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newLogger builds the process logger from config. Unknown levels fall
// back to info.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
