package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/cfo-assistant-go/internal/config"
	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/observability"
	"github.com/boddenberg/cfo-assistant-go/internal/port"
)

// MaxSyncDays bounds the look-back of a sync.
const MaxSyncDays = 366

// Outcomes reported per synced record.
const (
	SyncCreated = "created"
	SyncUpdated = "updated"
)

// SyncService copies provider bank transactions into the local store.
type SyncService struct {
	fetcher      port.DocumentFetcher
	transactions port.TransactionStore
	defaults     config.Analytics
	metrics      *observability.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

func NewSyncService(
	fetcher port.DocumentFetcher,
	transactions port.TransactionStore,
	defaults config.Analytics,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *SyncService {
	o := applyOptions(opts)
	return &SyncService{
		fetcher:      fetcher,
		transactions: transactions,
		defaults:     defaults,
		metrics:      metrics,
		logger:       logger,
		now:          o.now,
	}
}

// SyncBankTransactions upserts the bank transactions dated in the last
// days, keyed by (user, tenant, external id, BANK). Records are never
// deleted: provider deletions and voids become VOIDED. Local
// categorization and reconciliation survive a re-sync. A cancelled ctx
// stops the loop; the records upserted so far are returned with the
// context error.
func (s *SyncService) SyncBankTransactions(ctx context.Context, userID, tenantID string, days int) (*domain.BatchResult, error) {
	ctx, span := tracer.Start(ctx, "Sync.BankTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID))

	if err := requireOwner(userID, tenantID); err != nil {
		return nil, err
	}
	days, err := checkRange("days", days, s.defaults.SyncDays, MaxSyncDays)
	if err != nil {
		return nil, err
	}
	from, to := dayWindow(s.now, days)

	txs, err := s.fetcher.FetchBankTransactions(ctx, userID, tenantID, domain.DocumentFilter{From: &from, To: &to})
	if err != nil {
		return nil, upstream(s.metrics, s.logger, "bank_transactions", tenantID, err)
	}

	res := &domain.BatchResult{Items: []domain.BatchItem{}}
	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			s.metrics.RecordBatch("sync", res)
			s.logger.Warn("bank transaction sync interrupted",
				zap.String("tenant_id", tenantID),
				zap.Int("synced", res.Total),
				zap.Int("remaining", len(txs)-res.Total),
			)
			return res, err
		}
		outcome, err := s.upsert(ctx, userID, tenantID, tx)
		if err != nil {
			s.logger.Error("failed to sync bank transaction",
				zap.String("tenant_id", tenantID),
				zap.String("external_id", tx.ID),
				zap.Error(err),
			)
		}
		res.Record(tx.ID, outcome, err)
	}
	s.metrics.RecordBatch("sync", res)

	s.logger.Info("bank transactions synced",
		zap.String("tenant_id", tenantID),
		zap.Int("total", res.Total),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (s *SyncService) upsert(ctx context.Context, userID, tenantID string, tx domain.BankTransaction) (string, error) {
	existing, err := s.transactions.FindOne(ctx, domain.TransactionFilter{
		UserID:     userID,
		TenantID:   tenantID,
		ExternalID: tx.ID,
		Type:       domain.TransactionTypeBank,
	})
	var nf *domain.ErrNotFound
	switch {
	case errors.As(err, &nf):
		rec := &domain.TransactionRecord{
			UserID:     userID,
			TenantID:   tenantID,
			ExternalID: tx.ID,
			Type:       domain.TransactionTypeBank,
			Status:     domain.TransactionStatusPending,
		}
		s.apply(rec, tx)
		return SyncCreated, s.transactions.Create(ctx, rec)
	case err != nil:
		return "", err
	}

	s.apply(existing, tx)
	return SyncUpdated, s.transactions.Update(ctx, existing)
}

// apply copies provider fields onto rec. Reconciliation only moves forward
// unless the provider voids the transaction; the reconciliation metadata
// is kept either way.
func (s *SyncService) apply(rec *domain.TransactionRecord, tx domain.BankTransaction) {
	now := s.now().UTC()

	rec.Date = tx.Date
	rec.Amount = tx.SignedAmount()
	rec.Description = tx.Description
	if rec.Description == "" {
		rec.Description = tx.Reference
	}
	rec.Reference = tx.Reference
	rec.ContactID = tx.Contact.ID
	rec.ContactName = tx.Contact.Name
	rec.AccountID = tx.BankAccount.ID
	rec.AccountCode = tx.BankAccount.Code
	rec.AccountName = tx.BankAccount.Name
	rec.LastSyncedAt = &now
	rec.SetMeta("provider", domain.MapValue(map[string]domain.Value{
		"type":   domain.StringValue(tx.Type),
		"status": domain.StringValue(tx.Status),
	}))

	switch {
	case tx.Status == domain.DocumentStatusDeleted || tx.Status == domain.DocumentStatusVoided:
		rec.Status = domain.TransactionStatusVoided
		rec.IsReconciled = false
		rec.ReconciliationDate = nil
	case tx.IsReconciled && !rec.IsReconciled:
		rec.IsReconciled = true
		rec.Status = domain.TransactionStatusReconciled
		rec.ReconciliationDate = &now
	}
}
