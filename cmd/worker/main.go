package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/chefcloud/chefcloud-erp/internal/alerts"
	"github.com/chefcloud/chefcloud-erp/internal/app"
	jobmetrics "github.com/chefcloud/chefcloud-erp/internal/jobs"
	"github.com/chefcloud/chefcloud-erp/internal/periods"
	"github.com/chefcloud/chefcloud-erp/internal/platform/cache"
	"github.com/chefcloud/chefcloud-erp/internal/platform/db"
	"github.com/chefcloud/chefcloud-erp/internal/shared"
	"github.com/chefcloud/chefcloud-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	metrics := jobmetrics.NewMetrics(nil)

	periodsRepo := periods.NewRepository(pool)
	periodNotifier := periods.NewRedisNotifier(redisClient, logger)
	periodsService := periods.NewService(periodsRepo, periodNotifier, auditLogger)

	alertsRepo := alerts.NewRepository(pool)
	alertsService := alerts.NewService(alertsRepo, auditLogger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Alerts:    jobs.NewAlertsEvaluateHandler(logger, alertsService, metrics),
		ClosePack: jobs.NewClosePackHandler(logger, periodsService, metrics),
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
