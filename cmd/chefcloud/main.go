package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/chefcloud/chefcloud-erp/internal/alerts"
	"github.com/chefcloud/chefcloud-erp/internal/app"
	"github.com/chefcloud/chefcloud-erp/internal/catalog"
	"github.com/chefcloud/chefcloud-erp/internal/costing"
	"github.com/chefcloud/chefcloud-erp/internal/inventory"
	"github.com/chefcloud/chefcloud-erp/internal/ledger"
	"github.com/chefcloud/chefcloud-erp/internal/lots"
	"github.com/chefcloud/chefcloud-erp/internal/observability"
	"github.com/chefcloud/chefcloud-erp/internal/periods"
	"github.com/chefcloud/chefcloud-erp/internal/platform/cache"
	"github.com/chefcloud/chefcloud-erp/internal/platform/db"
	"github.com/chefcloud/chefcloud-erp/internal/production"
	"github.com/chefcloud/chefcloud-erp/internal/shared"
	"github.com/chefcloud/chefcloud-erp/internal/uom"
	"github.com/chefcloud/chefcloud-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)

	periodsRepo := periods.NewRepository(pool)
	periodNotifier := periods.NewRedisNotifier(redisClient, logger)
	periodsService := periods.NewService(periodsRepo, periodNotifier, auditLogger)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, periodsService, auditLogger)
	ledgerService.WithMetrics(metrics)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo)

	uomRepo := uom.NewRepository(pool)
	uomCache := uom.NewCache(redisClient, 10*time.Minute, logger)
	uomService := uom.NewService(uomRepo, uomCache)

	lotsRepo := lots.NewRepository(pool)
	lotsService := lots.NewService(lotsRepo)

	costingRepo := costing.NewRepository(pool)
	costingService := costing.NewService(costingRepo)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, periodsService, auditLogger)

	productionRepo := production.NewRepository(pool)
	productionService := production.NewService(productionRepo, periodsService, auditLogger)

	alertsRepo := alerts.NewRepository(pool)
	alertsService := alerts.NewService(alertsRepo, auditLogger)
	alertsService.WithMetrics(metrics)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Pool:              pool,
		CatalogHandler:    catalog.NewHandler(logger, catalogService),
		UOMHandler:        uom.NewHandler(logger, uomService),
		LedgerHandler:     ledger.NewHandler(logger, ledgerService),
		LotsHandler:       lots.NewHandler(logger, lotsService),
		CostingHandler:    costing.NewHandler(logger, costingService),
		InventoryHandler:  inventory.NewHandler(logger, inventoryService),
		ProductionHandler: production.NewHandler(logger, productionService),
		PeriodsHandler:    periods.NewHandler(logger, periodsService),
		AlertsHandler:     alerts.NewHandler(logger, alertsService),
		JobsHandler:       jobsHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
