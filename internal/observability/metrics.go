package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application: the HTTP request
// counters plus the engine counters the ledger reports.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	ledgerAppends          *prometheus.CounterVec
	immutabilityRejections prometheus.Counter
	alertsCreated          *prometheus.CounterVec
}

// NewMetrics initialises the registry and the base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chefcloud_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chefcloud_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	appends := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chefcloud_ledger_appends_total",
		Help: "Ledger entries appended, by movement reason.",
	}, []string{"reason"})
	rejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chefcloud_ledger_immutability_rejections_total",
		Help: "Statements rejected by the immutability guard.",
	})
	alerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chefcloud_alerts_created_total",
		Help: "Alerts created by evaluation runs, by type.",
	}, []string{"type"})
	registry.MustRegister(requests, duration, appends, rejections, alerts)
	return &Metrics{
		registry:               registry,
		handler:                promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:          requests,
		requestDuration:        duration,
		ledgerAppends:          appends,
		immutabilityRejections: rejections,
		alertsCreated:          alerts,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// LedgerAppend counts one appended entry.
func (m *Metrics) LedgerAppend(reason string) {
	if m == nil {
		return
	}
	m.ledgerAppends.WithLabelValues(reason).Inc()
}

// ImmutabilityRejection counts one statement the guard refused.
func (m *Metrics) ImmutabilityRejection() {
	if m == nil {
		return
	}
	m.immutabilityRejections.Inc()
}

// AlertCreated counts one alert created by an evaluation run.
func (m *Metrics) AlertCreated(alertType string) {
	if m == nil {
		return
	}
	m.alertsCreated.WithLabelValues(alertType).Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
