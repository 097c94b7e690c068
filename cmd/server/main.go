package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/tqp/internal/backup"
	"github.com/JonMunkholm/tqp/internal/config"
	"github.com/JonMunkholm/tqp/internal/interchange"
	"github.com/JonMunkholm/tqp/internal/logging"
	"github.com/JonMunkholm/tqp/internal/store"
	"github.com/JonMunkholm/tqp/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	backend, err := store.Open(ctx, cfg.Store)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	st := store.New(backend,
		store.WithKeyPrefix(cfg.Store.KeyPrefix),
		store.WithTimeout(cfg.Store.Timeout),
	)
	defer st.Close()
	slog.Info("store opened", "driver", cfg.Store.Driver)

	svc := interchange.NewService(st, interchange.WithMaxFileSize(cfg.Import.MaxFileSize))
	if counts, err := svc.Count(ctx); err != nil {
		slog.Warn("could not read collections", "error", err)
	} else {
		slog.Info("collections loaded", "testcases", counts.TestCases, "connections", counts.Connections)
	}

	server := web.NewServer(svc, cfg)

	// Background jobs stop when jobCtx is cancelled.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	if cfg.Backup.Enabled {
		sched := backup.New(svc, cfg.Backup)
		if err := sched.Start(jobCtx); err != nil {
			slog.Error("failed to start backups", "error", err)
			os.Exit(1)
		}
		defer sched.Stop()
	}

	watchDone := make(chan struct{})
	if dir := cfg.Import.WatchDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("failed to create watch directory", "dir", dir, "error", err)
			os.Exit(1)
		}
		w, err := interchange.NewWatcher(svc, dir, cfg.Import.WatchDebounce)
		if err != nil {
			slog.Error("failed to watch directory", "dir", dir, "error", err)
			os.Exit(1)
		}
		w.OnImport = func(r interchange.FileResult) {
			if r.Err == nil && r.Result != nil {
				slog.Info("dropped file imported", "file", r.Path, "kind", r.Result.Kind, "imported", r.Result.Imported)
			}
		}
		go func() {
			defer close(watchDone)
			if err := w.Run(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("watcher stopped", "error", err)
			}
		}()
	} else {
		close(watchDone)
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		<-watchDone
		st.Close()
		os.Exit(1)
	}
	<-watchDone
	slog.Info("server stopped")
}
