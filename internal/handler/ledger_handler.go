package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/service"
)

// ============================================================
// Categories and rules
// ============================================================

func listCategoriesHandler(svc *service.CategorizationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListCategories(r.Context(), UserIDFromContext(r.Context()), tenantID(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createCategoryHandler(svc *service.CategorizationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.CreateCategoryRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		c, err := svc.CreateCategory(r.Context(), UserIDFromContext(r.Context()), tenantID(r), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func listRulesHandler(svc *service.CategorizationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListRules(r.Context(), UserIDFromContext(r.Context()), tenantID(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createRuleHandler(svc *service.CategorizationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.CreateRuleRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		rule, err := svc.CreateRule(r.Context(), UserIDFromContext(r.Context()), tenantID(r), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, rule)
	}
}

func applyRulesHandler(svc *service.CategorizationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/tenants/{tenantId}/categorization/apply")
		defer span.End()

		res, err := svc.ApplyRules(ctx, UserIDFromContext(ctx), tenantID(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("batch.total", res.Total))
		writeJSON(w, http.StatusOK, res)
	}
}

func categorizeHandler(svc *service.CategorizationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.CategorizeRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		rec, err := svc.CategorizeTransaction(r.Context(), UserIDFromContext(r.Context()), tenantID(r), chi.URLParam(r, "transactionId"), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func categorizationStatsHandler(svc *service.CategorizationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days, err := queryInt(r, "days")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		stats, err := svc.Stats(r.Context(), UserIDFromContext(r.Context()), tenantID(r), days)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// ============================================================
// Sync and reconciliation
// ============================================================

func syncHandler(svc *service.SyncService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/tenants/{tenantId}/transactions/sync")
		defer span.End()

		days, err := queryInt(r, "days")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		res, err := svc.SyncBankTransactions(ctx, UserIDFromContext(ctx), tenantID(r), days)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("batch.total", res.Total))
		writeJSON(w, http.StatusOK, res)
	}
}

func matchesHandler(svc *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.FindPotentialMatches(r.Context(), UserIDFromContext(r.Context()), tenantID(r), chi.URLParam(r, "transactionId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type reconcileBody struct {
	DocumentID   string              `json:"documentId"`
	DocumentType domain.DocumentType `json:"documentType"`
}

func reconcileHandler(svc *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body reconcileBody
		if err := decodeJSON(r, &body); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		rec, err := svc.Reconcile(r.Context(), UserIDFromContext(r.Context()), tenantID(r), domain.ReconcileRequest{
			TransactionID: chi.URLParam(r, "transactionId"),
			DocumentID:    body.DocumentID,
			DocumentType:  body.DocumentType,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

type reconcileBatchBody struct {
	Items []domain.ReconcileRequest `json:"items"`
}

func reconcileBatchHandler(svc *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body reconcileBatchBody
		if err := decodeJSON(r, &body); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		res, err := svc.ReconcileBatch(r.Context(), UserIDFromContext(r.Context()), tenantID(r), body.Items)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func reconciliationStatsHandler(svc *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days, err := queryInt(r, "days")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		stats, err := svc.Stats(r.Context(), UserIDFromContext(r.Context()), tenantID(r), days)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
