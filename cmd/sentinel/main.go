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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loopback-labs/sentinel-loop/internal/actions"
	"github.com/loopback-labs/sentinel-loop/internal/api"
	"github.com/loopback-labs/sentinel-loop/internal/collector"
	"github.com/loopback-labs/sentinel-loop/internal/config"
	"github.com/loopback-labs/sentinel-loop/internal/detector"
	"github.com/loopback-labs/sentinel-loop/internal/executor"
	"github.com/loopback-labs/sentinel-loop/internal/governor"
	"github.com/loopback-labs/sentinel-loop/internal/loop"
	"github.com/loopback-labs/sentinel-loop/internal/metrics"
	"github.com/loopback-labs/sentinel-loop/internal/store"
	"github.com/loopback-labs/sentinel-loop/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting sentinel-loop", slog.String("address", cfg.Server.Address), slog.String("store", cfg.Store.Backend))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var st store.Store
	switch cfg.Store.Backend {
	case "redis":
		redisStore, err := store.NewRedisStore(cfg.Store)
		if err != nil {
			logger.Error("failed to connect to redis store", slog.Any("error", err))
			os.Exit(1)
		}
		st = redisStore
	default:
		st = store.NewMemoryStore()
	}
	defer st.Close()

	registry := actions.NewRegistry()
	actions.RegisterDefaults(registry, actions.LogEffector{Logger: logger})

	det := detector.New(logger, st, cfg.Loop.Thresholds, cfg.Loop.StddevMultiplier)
	gov := governor.New(logger, registry, cfg.Loop.ActionCooldown, cfg.Loop.MaxConcurrent)
	exec := executor.New(logger, st, cfg.Loop.ActionTimeout)

	var collectors []collector.Collector
	if cfg.Loop.SelfMetrics {
		collectors = append(collectors,
			collector.NewCPUCollector("sentinel-host"),
			collector.NewMemoryCollector("sentinel-host"),
		)
	}

	orchestrator := loop.New(logger, cfg.Loop, st, det, gov, exec, collectors)
	server := api.NewServer(cfg.Server, logger, st)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go orchestrator.Run(ctx)

	go func() {
		if serveErr := server.Start(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("ingestion server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("ingestion server shutdown", slog.Any("error", err))
	}

	logger.Info("sentinel-loop stopped")
}
