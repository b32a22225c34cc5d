package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chefcloud/chefcloud-erp/internal/alerts"
	"github.com/chefcloud/chefcloud-erp/internal/catalog"
	"github.com/chefcloud/chefcloud-erp/internal/costing"
	"github.com/chefcloud/chefcloud-erp/internal/inventory"
	"github.com/chefcloud/chefcloud-erp/internal/ledger"
	"github.com/chefcloud/chefcloud-erp/internal/lots"
	"github.com/chefcloud/chefcloud-erp/internal/observability"
	"github.com/chefcloud/chefcloud-erp/internal/periods"
	"github.com/chefcloud/chefcloud-erp/internal/production"
	"github.com/chefcloud/chefcloud-erp/internal/uom"
	"github.com/chefcloud/chefcloud-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Pool              *pgxpool.Pool
	CatalogHandler    *catalog.Handler
	UOMHandler        *uom.Handler
	LedgerHandler     *ledger.Handler
	LotsHandler       *lots.Handler
	CostingHandler    *costing.Handler
	InventoryHandler  *inventory.Handler
	ProductionHandler *production.Handler
	PeriodsHandler    *periods.Handler
	AlertsHandler     *alerts.Handler
	JobsHandler       *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router for the engine API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				params.Logger.Error("readiness ping failed", slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ActorMiddleware(params.Logger))

		if params.CatalogHandler != nil {
			params.CatalogHandler.MountRoutes(r)
		}
		if params.UOMHandler != nil {
			params.UOMHandler.MountRoutes(r)
		}
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(r)
		}
		if params.LotsHandler != nil {
			params.LotsHandler.MountRoutes(r)
		}
		if params.CostingHandler != nil {
			params.CostingHandler.MountRoutes(r)
		}
		if params.InventoryHandler != nil {
			params.InventoryHandler.MountRoutes(r)
		}
		if params.ProductionHandler != nil {
			params.ProductionHandler.MountRoutes(r)
		}
		if params.PeriodsHandler != nil {
			params.PeriodsHandler.MountRoutes(r)
		}
		if params.AlertsHandler != nil {
			params.AlertsHandler.MountRoutes(r)
		}
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
