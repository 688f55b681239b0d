package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/cfo-assistant-go/internal/config"
	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/observability"
	"github.com/boddenberg/cfo-assistant-go/internal/matching"
	"github.com/boddenberg/cfo-assistant-go/internal/port"
)

// MaxReconcileBatch bounds ReconcileBatch.
const MaxReconcileBatch = 100

// ReconciliationService links stored bank records to provider documents.
type ReconciliationService struct {
	fetcher      port.DocumentFetcher
	transactions port.TransactionStore
	defaults     config.Analytics
	metrics      *observability.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

func NewReconciliationService(
	fetcher port.DocumentFetcher,
	transactions port.TransactionStore,
	defaults config.Analytics,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *ReconciliationService {
	o := applyOptions(opts)
	return &ReconciliationService{
		fetcher:      fetcher,
		transactions: transactions,
		defaults:     defaults,
		metrics:      metrics,
		logger:       logger,
		now:          o.now,
	}
}

// FindPotentialMatches ranks authorised documents whose amount due is
// within a cent of the record's amount. Outflows are matched against bills
// and everything else against invoices. A reconciled record has no
// candidates.
func (s *ReconciliationService) FindPotentialMatches(ctx context.Context, userID, tenantID, transactionID string) (*domain.MatchResult, error) {
	ctx, span := tracer.Start(ctx, "Reconciliation.FindPotentialMatches")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("transaction.id", transactionID),
	)

	if err := requireOwner(userID, tenantID); err != nil {
		return nil, err
	}
	rec, err := s.transactions.FindOne(ctx, domain.TransactionFilter{ID: transactionID, UserID: userID, TenantID: tenantID})
	if err != nil {
		return nil, err
	}

	result := &domain.MatchResult{
		TransactionID: rec.ID,
		Invoices:      []domain.MatchCandidate{},
		Bills:         []domain.MatchCandidate{},
	}
	if rec.IsReconciled {
		return result, nil
	}

	lo, hi := matching.AmountWindow(rec.Amount)
	filter := domain.DocumentFilter{
		Statuses:     []string{domain.DocumentStatusAuthorised},
		MinAmountDue: &lo,
		MaxAmountDue: &hi,
		Page:         1,
		PageSize:     s.defaults.MatchPageSize,
	}

	side := matching.SearchSide(rec.Amount)
	var docs []domain.Invoice
	if side == domain.DocumentTypeBill {
		docs, err = s.fetcher.FetchBills(ctx, userID, tenantID, filter)
	} else {
		docs, err = s.fetcher.FetchInvoices(ctx, userID, tenantID, filter)
	}
	if err != nil {
		source := "invoices"
		if side == domain.DocumentTypeBill {
			source = "bills"
		}
		return nil, upstream(s.metrics, s.logger, source, tenantID, err)
	}

	start := time.Now()
	ranked := matching.Rank(rec, docs)
	s.metrics.RecordEngineDuration("match", time.Since(start))

	if side == domain.DocumentTypeBill {
		result.Bills = ranked
	} else {
		result.Invoices = ranked
	}
	span.SetAttributes(attribute.Int("candidates", len(ranked)))
	return result, nil
}

// Reconcile links one record to one document. Reconciling a record twice
// fails with ErrAlreadyReconciled and changes nothing. Creating the
// matching payment in the ledger is left to the provider.
func (s *ReconciliationService) Reconcile(ctx context.Context, userID, tenantID string, req domain.ReconcileRequest) (*domain.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "Reconciliation.Reconcile")
	defer span.End()

	if err := requireOwner(userID, tenantID); err != nil {
		return nil, err
	}
	if err := validateReconcile(req); err != nil {
		return nil, err
	}

	rec, err := s.transactions.FindOne(ctx, domain.TransactionFilter{ID: req.TransactionID, UserID: userID, TenantID: tenantID})
	if err != nil {
		return nil, err
	}
	if rec.IsReconciled {
		return nil, &domain.ErrAlreadyReconciled{TransactionID: rec.ID}
	}
	if rec.Status == domain.TransactionStatusVoided {
		return nil, &domain.ErrValidation{Field: "transactionId", Message: "transaction is voided"}
	}

	rec.MarkReconciled(req.DocumentID, req.DocumentType, s.now())
	if err := s.transactions.Update(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info("transaction reconciled",
		zap.String("transaction_id", rec.ID),
		zap.String("document_id", req.DocumentID),
		zap.String("document_type", string(req.DocumentType)),
	)
	return rec, nil
}

// ReconcileBatch reconciles each request independently and reports a
// per-item outcome. If ctx is cancelled mid-batch it stops and returns the
// outcomes recorded so far together with the context error.
func (s *ReconciliationService) ReconcileBatch(ctx context.Context, userID, tenantID string, reqs []domain.ReconcileRequest) (*domain.BatchResult, error) {
	ctx, span := tracer.Start(ctx, "Reconciliation.ReconcileBatch")
	defer span.End()

	if err := requireOwner(userID, tenantID); err != nil {
		return nil, err
	}
	if len(reqs) == 0 || len(reqs) > MaxReconcileBatch {
		return nil, &domain.ErrValidation{Field: "items", Message: "must contain between 1 and 100 entries"}
	}

	res := &domain.BatchResult{Items: []domain.BatchItem{}}
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			s.metrics.RecordBatch("reconcile", res)
			return res, err
		}
		_, err := s.Reconcile(ctx, userID, tenantID, req)
		res.Record(req.TransactionID, req.DocumentID, err)
	}
	s.metrics.RecordBatch("reconcile", res)
	return res, nil
}

// Stats counts reconciled and unreconciled bank records dated in the last
// days.
func (s *ReconciliationService) Stats(ctx context.Context, userID, tenantID string, days int) (*domain.ReconciliationStats, error) {
	if err := requireOwner(userID, tenantID); err != nil {
		return nil, err
	}
	days, err := checkRange("days", days, DefaultStatsDays, MaxStatsDays)
	if err != nil {
		return nil, err
	}
	from, to := dayWindow(s.now, days)
	to = to.Add(24*time.Hour - time.Nanosecond)

	base := domain.TransactionFilter{
		UserID:   userID,
		TenantID: tenantID,
		Type:     domain.TransactionTypeBank,
		From:     &from,
		To:       &to,
	}
	total, err := s.transactions.Count(ctx, base)
	if err != nil {
		return nil, err
	}
	yes := true
	reconciled := base
	reconciled.IsReconciled = &yes
	done, err := s.transactions.Count(ctx, reconciled)
	if err != nil {
		return nil, err
	}

	return &domain.ReconciliationStats{
		Total:              total,
		Reconciled:         done,
		Unreconciled:       total - done,
		ReconciliationRate: rate(done, total),
	}, nil
}

func validateReconcile(req domain.ReconcileRequest) error {
	if req.TransactionID == "" {
		return &domain.ErrValidation{Field: "transactionId", Message: "is required"}
	}
	if req.DocumentID == "" {
		return &domain.ErrValidation{Field: "documentId", Message: "is required"}
	}
	if req.DocumentType != domain.DocumentTypeInvoice && req.DocumentType != domain.DocumentTypeBill {
		return &domain.ErrValidation{Field: "documentType", Message: "must be INVOICE or BILL"}
	}
	return nil
}
