package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/observability"
	"github.com/boddenberg/cfo-assistant-go/internal/service"
)

var tracer = otel.Tracer("handler")

// Services groups the application services the routes call.
type Services struct {
	CashFlow       *service.CashFlowService
	Anomaly        *service.AnomalyService
	KPI            *service.KPIService
	Categorization *service.CategorizationService
	Reconciliation *service.ReconciliationService
	Sync           *service.SyncService
	Tenants        *service.TenantService
}

// Check probes one dependency for /healthz and /readyz.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// checkTimeout bounds each dependency probe.
const checkTimeout = 2 * time.Second

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, auth *Authenticator, checks []Check, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(checks))
	r.Get("/readyz", readyzHandler(checks, logger))
	r.Handle("/metrics", metrics.Handler())

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Get("/metrics/engine", engineMetricsHandler(metrics))

		// Tenant connections
		r.Get("/tenants", listTenantsHandler(svc.Tenants, logger))
		r.Post("/tenants", connectTenantHandler(svc.Tenants, logger))

		r.Route("/tenants/{tenantId}", func(r chi.Router) {
			r.Delete("/", disconnectTenantHandler(svc.Tenants, logger))

			// Cash flow
			r.Get("/cashflow/forecast", forecastHandler(svc.CashFlow, logger))
			r.Get("/cashflow/issues", cashFlowIssuesHandler(svc.CashFlow, logger))

			// Anomalies
			r.Get("/anomalies", anomaliesHandler(svc.Anomaly, logger))
			r.Get("/anomalies/report", anomalyReportHandler(svc.Anomaly, logger))

			// KPIs
			r.Get("/kpi", kpiHandler(svc.KPI, logger))
			r.Get("/kpi/ratios", ratiosHandler(svc.KPI, logger))
			r.Get("/kpi/health", healthScoreHandler(svc.KPI, logger))

			// Categorization
			r.Get("/categories", listCategoriesHandler(svc.Categorization, logger))
			r.Post("/categories", createCategoryHandler(svc.Categorization, logger))
			r.Get("/rules", listRulesHandler(svc.Categorization, logger))
			r.Post("/rules", createRuleHandler(svc.Categorization, logger))
			r.Post("/categorization/apply", applyRulesHandler(svc.Categorization, logger))
			r.Get("/categorization/stats", categorizationStatsHandler(svc.Categorization, logger))
			r.Put("/transactions/{transactionId}/category", categorizeHandler(svc.Categorization, logger))

			// Sync and reconciliation
			r.Post("/transactions/sync", syncHandler(svc.Sync, logger))
			r.Get("/transactions/{transactionId}/matches", matchesHandler(svc.Reconciliation, logger))
			r.Post("/transactions/{transactionId}/reconcile", reconcileHandler(svc.Reconciliation, logger))
			r.Post("/reconciliation/batch", reconcileBatchHandler(svc.Reconciliation, logger))
			r.Get("/reconciliation/stats", reconciliationStatsHandler(svc.Reconciliation, logger))
		})
	})

	return r
}

// runChecks probes every dependency and reports an overall status.
func runChecks(ctx context.Context, checks []Check) domain.HealthStatus {
	now := time.Now().UTC().Format(time.RFC3339)
	services := []domain.ServiceHealth{
		{Name: "cfo-api", Status: "healthy", LastChecked: now},
	}
	overall := "healthy"

	for _, c := range checks {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		start := time.Now()
		err := c.Ping(cctx)
		cancel()

		status := "healthy"
		if err != nil {
			status = "unhealthy"
			overall = "degraded"
		}
		services = append(services, domain.ServiceHealth{
			Name:        c.Name,
			Status:      status,
			LatencyMs:   time.Since(start).Milliseconds(),
			LastChecked: now,
		})
	}
	return domain.HealthStatus{Status: overall, Services: services}
}

func healthzHandler(checks []Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, runChecks(r.Context(), checks))
	}
}

// readyzHandler answers 503 until every dependency responds.
func readyzHandler(checks []Check, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := runChecks(r.Context(), checks)
		if health.Status != "healthy" {
			logger.Warn("readiness check failed", zap.Any("services", health.Services))
			writeJSON(w, http.StatusServiceUnavailable, health)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func engineMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetEngineSnapshot())
	}
}
