package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/persistence"
	"github.com/boddenberg/cfo-assistant-go/internal/service"
)

func newReconciliation(t *testing.T, fetcher *mockFetcher) (*service.ReconciliationService, *persistence.TransactionRepository) {
	repo := persistence.NewTransactionRepository(newTestDB(t))
	svc := service.NewReconciliationService(fetcher, repo, analyticsDefaults(), newMetrics(), newLogger(), clock())
	return svc, repo
}

func TestReconciliationService_FindPotentialMatchesOutflowSearchesBills(t *testing.T) {
	fetcher := new(mockFetcher)
	svc, repo := newReconciliation(t, fetcher)
	rec := storedRecord(t, repo, "bt-1", "-250.00", "Office Supplies Ltd")
	rec.Reference = "PO-77"
	require.NoError(t, repo.Update(context.Background(), rec))

	fetcher.On("FetchBills", mock.Anything, testUser, testTenant, mock.MatchedBy(func(f domain.DocumentFilter) bool {
		return authorisedOnly(f) &&
			f.MinAmountDue != nil && f.MinAmountDue.Equal(dec("249.99")) &&
			f.MaxAmountDue != nil && f.MaxAmountDue.Equal(dec("250.01")) &&
			f.PageSize == 20
	})).Return([]domain.Invoice{
		{ID: "bill-far", Type: domain.InvoiceTypePayable, Number: "B-2", Date: date(2024, 11, 1), Total: dec("250"), AmountDue: dec("250")},
		{ID: "bill-exact", Type: domain.InvoiceTypePayable, Number: "B-1", Reference: "PO-77", Date: date(2025, 3, 9), Total: dec("250"), AmountDue: dec("250")},
	}, nil)

	res, err := svc.FindPotentialMatches(context.Background(), testUser, testTenant, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, rec.ID, res.TransactionID)
	assert.Empty(t, res.Invoices)
	require.Len(t, res.Bills, 2)
	assert.Equal(t, "bill-exact", res.Bills[0].DocumentID)
	assert.Greater(t, res.Bills[0].Confidence, res.Bills[1].Confidence)
	fetcher.AssertNotCalled(t, "FetchInvoices", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciliationService_FindPotentialMatchesInflowSearchesInvoices(t *testing.T) {
	fetcher := new(mockFetcher)
	svc, repo := newReconciliation(t, fetcher)
	rec := storedRecord(t, repo, "bt-1", "1200.00", "Acme payment")

	fetcher.On("FetchInvoices", mock.Anything, testUser, testTenant, mock.Anything).Return([]domain.Invoice{
		{ID: "inv-1", Type: domain.InvoiceTypeReceivable, Date: date(2025, 3, 1), Total: dec("1200"), AmountDue: dec("1200")},
	}, nil)

	res, err := svc.FindPotentialMatches(context.Background(), testUser, testTenant, rec.ID)
	require.NoError(t, err)
	assert.Len(t, res.Invoices, 1)
	assert.Empty(t, res.Bills)
}

func TestReconciliationService_FindPotentialMatchesReconciledRecord(t *testing.T) {
	fetcher := new(mockFetcher)
	svc, repo := newReconciliation(t, fetcher)
	rec := storedRecord(t, repo, "bt-1", "-40", "Lunch")
	rec.MarkReconciled("bill-1", domain.DocumentTypeBill, fixedNow)
	require.NoError(t, repo.Update(context.Background(), rec))

	res, err := svc.FindPotentialMatches(context.Background(), testUser, testTenant, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Invoices)
	assert.Empty(t, res.Bills)
	fetcher.AssertExpectations(t)
}

func TestReconciliationService_Reconcile(t *testing.T) {
	ctx := context.Background()
	svc, repo := newReconciliation(t, new(mockFetcher))
	rec := storedRecord(t, repo, "bt-1", "-250", "Supplies")
	req := domain.ReconcileRequest{TransactionID: rec.ID, DocumentID: "bill-1", DocumentType: domain.DocumentTypeBill}

	got, err := svc.Reconcile(ctx, testUser, testTenant, req)
	require.NoError(t, err)
	assert.True(t, got.IsReconciled)
	assert.Equal(t, domain.TransactionStatusReconciled, got.Status)
	require.NotNil(t, got.ReconciliationDate)
	assert.True(t, got.ReconciliationDate.Equal(fixedNow))

	stored, err := repo.FindOne(ctx, domain.TransactionFilter{ID: rec.ID})
	require.NoError(t, err)
	docID, ok := stored.Metadata.Get(domain.MetaReconciliation, "documentId")
	require.True(t, ok)
	assert.True(t, docID.Equal(domain.StringValue("bill-1")))

	_, err = svc.Reconcile(ctx, testUser, testTenant, req)
	var already *domain.ErrAlreadyReconciled
	require.ErrorAs(t, err, &already)
	assert.Equal(t, rec.ID, already.TransactionID)
}

func TestReconciliationService_ReconcileValidation(t *testing.T) {
	ctx := context.Background()
	svc, repo := newReconciliation(t, new(mockFetcher))
	voided := storedRecord(t, repo, "bt-v", "-10", "void")
	voided.Status = domain.TransactionStatusVoided
	require.NoError(t, repo.Update(ctx, voided))

	tests := []struct {
		name string
		req  domain.ReconcileRequest
	}{
		{"missing transaction", domain.ReconcileRequest{DocumentID: "d", DocumentType: domain.DocumentTypeBill}},
		{"missing document", domain.ReconcileRequest{TransactionID: "t", DocumentType: domain.DocumentTypeBill}},
		{"bad document type", domain.ReconcileRequest{TransactionID: "t", DocumentID: "d", DocumentType: "RECEIPT"}},
		{"voided record", domain.ReconcileRequest{TransactionID: voided.ID, DocumentID: "d", DocumentType: domain.DocumentTypeBill}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Reconcile(ctx, testUser, testTenant, tt.req)
			var ve *domain.ErrValidation
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestReconciliationService_ReconcileBatch(t *testing.T) {
	ctx := context.Background()
	svc, repo := newReconciliation(t, new(mockFetcher))
	a := storedRecord(t, repo, "bt-a", "-10", "a")
	b := storedRecord(t, repo, "bt-b", "-20", "b")

	res, err := svc.ReconcileBatch(ctx, testUser, testTenant, []domain.ReconcileRequest{
		{TransactionID: a.ID, DocumentID: "bill-a", DocumentType: domain.DocumentTypeBill},
		{TransactionID: "missing", DocumentID: "bill-x", DocumentType: domain.DocumentTypeBill},
		{TransactionID: b.ID, DocumentID: "bill-b", DocumentType: domain.DocumentTypeBill},
		{TransactionID: a.ID, DocumentID: "bill-a", DocumentType: domain.DocumentTypeBill},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Items, 4)
	assert.True(t, res.Items[0].Success)
	assert.False(t, res.Items[1].Success)
	assert.Contains(t, res.Items[1].Error, "not found")
	assert.True(t, res.Items[2].Success)
	assert.Contains(t, res.Items[3].Error, "already reconciled")

	_, err = svc.ReconcileBatch(ctx, testUser, testTenant, nil)
	var ve *domain.ErrValidation
	assert.ErrorAs(t, err, &ve)
}

func TestReconciliationService_ReconcileBatchCancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := persistence.NewTransactionRepository(newTestDB(t))
	store := &cancelAfterWrite{TransactionStore: repo, cancel: cancel}
	svc := service.NewReconciliationService(new(mockFetcher), store, analyticsDefaults(), newMetrics(), newLogger(), clock())
	a := storedRecord(t, repo, "bt-a", "-10", "a")
	b := storedRecord(t, repo, "bt-b", "-20", "b")

	res, err := svc.ReconcileBatch(ctx, testUser, testTenant, []domain.ReconcileRequest{
		{TransactionID: a.ID, DocumentID: "bill-a", DocumentType: domain.DocumentTypeBill},
		{TransactionID: b.ID, DocumentID: "bill-b", DocumentType: domain.DocumentTypeBill},
	})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 1, res.Succeeded)
	require.Len(t, res.Items, 1)
	assert.Equal(t, a.ID, res.Items[0].ID)

	got, err := repo.FindOne(context.Background(), domain.TransactionFilter{ID: a.ID})
	require.NoError(t, err)
	assert.True(t, got.IsReconciled)
	got, err = repo.FindOne(context.Background(), domain.TransactionFilter{ID: b.ID})
	require.NoError(t, err)
	assert.False(t, got.IsReconciled)
}

func TestReconciliationService_Stats(t *testing.T) {
	ctx := context.Background()
	svc, repo := newReconciliation(t, new(mockFetcher))
	for _, id := range []string{"a", "b", "c"} {
		rec := storedRecord(t, repo, "bt-"+id, "-10", id)
		if id == "a" {
			_, err := svc.Reconcile(ctx, testUser, testTenant, domain.ReconcileRequest{
				TransactionID: rec.ID, DocumentID: "bill-a", DocumentType: domain.DocumentTypeBill,
			})
			require.NoError(t, err)
		}
	}

	stats, err := svc.Stats(ctx, testUser, testTenant, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Reconciled)
	assert.Equal(t, int64(2), stats.Unreconciled)
	assert.Equal(t, 33.0, stats.ReconciliationRate)
}
