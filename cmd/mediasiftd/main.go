package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"mediasift/internal/config"
	"mediasift/internal/daemon"
	"mediasift/internal/jobs"
	"mediasift/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewForDir(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return
	}

	pipelines := daemon.BuildPipelines(cfg, logger)
	registry := jobs.NewRegistry(store, pipelines.Videos, pipelines.Images, jobs.RegistryOptions{
		MaxConcurrent: cfg.Jobs.MaxConcurrent,
		Logger:        logger,
	})

	d, err := daemon.New(cfg, daemon.Dependencies{
		Store:    store,
		Registry: registry,
		Videos:   pipelines.Videos,
		Images:   pipelines.Images,
		Health:   pipelines.LLM,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("mediasiftd shutting down")
}

// openStore selects the durable SQLite store when a database path is
// configured, otherwise the in-memory store.
func openStore(cfg *config.Config) (jobs.Store, error) {
	if cfg.Jobs.DatabasePath != "" {
		return jobs.OpenSQLite(cfg.Jobs.DatabasePath)
	}
	return jobs.NewMemoryStore(), nil
}
