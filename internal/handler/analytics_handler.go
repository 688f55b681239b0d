package handler

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/cfo-assistant-go/internal/service"
)

// ============================================================
// Cash flow
// ============================================================

func forecastRequest(r *http.Request) (service.ForecastRequest, error) {
	var req service.ForecastRequest
	var err error
	if req.Days, err = queryInt(r, "days"); err != nil {
		return req, err
	}
	if req.StartDate, err = queryDate(r, "startDate"); err != nil {
		return req, err
	}
	if req.CurrentBalance, err = queryFloat(r, "currentBalance"); err != nil {
		return req, err
	}
	return req, nil
}

func forecastHandler(svc *service.CashFlowService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/tenants/{tenantId}/cashflow/forecast")
		defer span.End()
		tenant := tenantID(r)
		span.SetAttributes(attribute.String("tenant.id", tenant))

		req, err := forecastRequest(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		tl, err := svc.Forecast(ctx, UserIDFromContext(ctx), tenant, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tl)
	}
}

func cashFlowIssuesHandler(svc *service.CashFlowService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/tenants/{tenantId}/cashflow/issues")
		defer span.End()
		tenant := tenantID(r)
		span.SetAttributes(attribute.String("tenant.id", tenant))

		base, err := forecastRequest(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		req := service.IssueRequest{ForecastRequest: base}
		if req.LowBalanceThreshold, err = queryFloat(r, "lowBalanceThreshold"); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if req.SignificantOutflowThreshold, err = queryFloat(r, "significantOutflowThreshold"); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		report, err := svc.DetectIssues(ctx, UserIDFromContext(ctx), tenant, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// ============================================================
// Anomalies
// ============================================================

func anomaliesHandler(svc *service.AnomalyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/tenants/{tenantId}/anomalies")
		defer span.End()

		months, err := queryInt(r, "months")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		scan, err := svc.Detect(ctx, UserIDFromContext(ctx), tenantID(r), months)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, scan)
	}
}

func anomalyReportHandler(svc *service.AnomalyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/tenants/{tenantId}/anomalies/report")
		defer span.End()

		months, err := queryInt(r, "months")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		report, err := svc.Report(ctx, UserIDFromContext(ctx), tenantID(r), months)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// ============================================================
// KPIs
// ============================================================

func ratiosHandler(svc *service.KPIService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		months, err := queryInt(r, "months")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		analysis, err := svc.Ratios(r.Context(), UserIDFromContext(r.Context()), tenantID(r), months)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, analysis)
	}
}

func healthScoreHandler(svc *service.KPIService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		months, err := queryInt(r, "months")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		health, err := svc.HealthScore(r.Context(), UserIDFromContext(r.Context()), tenantID(r), months)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, health)
	}
}

func kpiHandler(svc *service.KPIService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/tenants/{tenantId}/kpi")
		defer span.End()

		months, err := queryInt(r, "months")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		report, err := svc.KPIs(ctx, UserIDFromContext(ctx), tenantID(r), months)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}
