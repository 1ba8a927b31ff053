package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"livedoc/internal/config"
	"livedoc/internal/driver"
	"livedoc/internal/driver/builtin"
	"livedoc/internal/fswatch"
	"livedoc/internal/handler"
	"livedoc/internal/store"
	"livedoc/internal/validator"
)

func main() {
	configPath := flag.String("config", "", "config file path (default: search standard locations)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	cfg, loadedFrom, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level := new(slog.LevelVar)
	setLevel(level, cfg.LogLevel)
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if loadedFrom != "" {
		log.Info("config loaded", "path", loadedFrom)
	} else {
		log.Info("no config file found, using defaults")
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bring up the engine: registry, validator, store.
	registry := driver.NewRegistry(builtin.Table(), log)
	status := registry.Init(ctx, cfg.Props())
	for name, ok := range status {
		if !ok {
			log.Warn("driver unavailable", "driver", name)
		}
	}

	s := store.New(registry, validator.NewRegistry(log), log)
	defer s.Close(context.Background())

	mux := http.NewServeMux()
	handler.New(s, log).Routes(mux)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Hot-reload the log level when the config file changes. Driver changes
	// need a restart.
	if loadedFrom != "" {
		watcher := fswatch.New(loadedFrom, func() {
			reloaded, _, err := config.LoadFromPath(loadedFrom)
			if err != nil {
				log.Warn("config reload failed", "error", err)
				return
			}
			setLevel(level, reloaded.LogLevel)
			log.Info("config reloaded", "log_level", reloaded.LogLevel)
		}, log)
		go func() {
			if err := watcher.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	go func() {
		log.Info("server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", "error", err)
	}
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func setLevel(v *slog.LevelVar, name string) {
	switch name {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
