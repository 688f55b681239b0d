package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/boddenberg/cfo-assistant-go/internal/config"
	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/observability"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/persistence"
	"github.com/boddenberg/cfo-assistant-go/internal/port"
	"github.com/boddenberg/cfo-assistant-go/internal/service"
)

const (
	testUser   = "user-1"
	testTenant = "tenant-1"
)

// fixedNow is 2025-03-15 10:30 UTC; every date window is derived from it.
var fixedNow = time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)

// --- Mock fetcher ---

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchInvoices(ctx context.Context, userID, tenantID string, filter domain.DocumentFilter) ([]domain.Invoice, error) {
	args := m.Called(ctx, userID, tenantID, filter)
	v, _ := args.Get(0).([]domain.Invoice)
	return v, args.Error(1)
}

func (m *mockFetcher) FetchBills(ctx context.Context, userID, tenantID string, filter domain.DocumentFilter) ([]domain.Invoice, error) {
	args := m.Called(ctx, userID, tenantID, filter)
	v, _ := args.Get(0).([]domain.Invoice)
	return v, args.Error(1)
}

func (m *mockFetcher) FetchBankTransactions(ctx context.Context, userID, tenantID string, filter domain.DocumentFilter) ([]domain.BankTransaction, error) {
	args := m.Called(ctx, userID, tenantID, filter)
	v, _ := args.Get(0).([]domain.BankTransaction)
	return v, args.Error(1)
}

func (m *mockFetcher) FetchRepeatingInvoices(ctx context.Context, userID, tenantID string) ([]domain.RepeatingDocument, error) {
	args := m.Called(ctx, userID, tenantID)
	v, _ := args.Get(0).([]domain.RepeatingDocument)
	return v, args.Error(1)
}

func (m *mockFetcher) FetchRepeatingBills(ctx context.Context, userID, tenantID string) ([]domain.RepeatingDocument, error) {
	args := m.Called(ctx, userID, tenantID)
	v, _ := args.Get(0).([]domain.RepeatingDocument)
	return v, args.Error(1)
}

func (m *mockFetcher) FetchReport(ctx context.Context, userID, tenantID, name string, opts domain.ReportOptions) (*domain.Report, error) {
	args := m.Called(ctx, userID, tenantID, name, opts)
	v, _ := args.Get(0).(*domain.Report)
	return v, args.Error(1)
}

// --- Interrupting store ---

// cancelAfterWrite cancels the caller's context as soon as the first record
// has been written, as a client disconnecting mid-batch would.
type cancelAfterWrite struct {
	port.TransactionStore
	cancel context.CancelFunc
}

func (s *cancelAfterWrite) Create(ctx context.Context, rec *domain.TransactionRecord) error {
	err := s.TransactionStore.Create(ctx, rec)
	s.cancel()
	return err
}

func (s *cancelAfterWrite) Update(ctx context.Context, rec *domain.TransactionRecord) error {
	err := s.TransactionStore.Update(ctx, rec)
	s.cancel()
	return err
}

// --- Tenant connections ---

// tenantSet is a port.TenantStore holding active connections keyed
// "user/tenant".
type tenantSet map[string]bool

func (s tenantSet) Find(_ context.Context, userID, tenantID string) (*domain.TenantConnection, error) {
	if !s[userID+"/"+tenantID] {
		return nil, &domain.ErrNotFound{Resource: "tenant", ID: tenantID}
	}
	return &domain.TenantConnection{UserID: userID, TenantID: tenantID, IsActive: true}, nil
}

func (s tenantSet) ListActive(_ context.Context, userID string) ([]domain.TenantConnection, error) {
	var out []domain.TenantConnection
	for key := range s {
		if user, tenant, _ := strings.Cut(key, "/"); user == userID {
			out = append(out, domain.TenantConnection{UserID: user, TenantID: tenant, IsActive: true})
		}
	}
	return out, nil
}

func (s tenantSet) Save(_ context.Context, c *domain.TenantConnection) error {
	s[c.UserID+"/"+c.TenantID] = c.IsActive
	return nil
}

func (s tenantSet) Deactivate(_ context.Context, userID, tenantID string) error {
	delete(s, userID+"/"+tenantID)
	return nil
}

// owned connects testUser to testTenant.
func owned() tenantSet {
	return tenantSet{testUser + "/" + testTenant: true}
}

// --- Helpers ---

func clock() service.Option {
	return service.WithClock(func() time.Time { return fixedNow })
}

func analyticsDefaults() config.Analytics {
	return config.Analytics{
		ForecastDays:                30,
		LowBalanceThreshold:         5000,
		SignificantOutflowThreshold: 10000,
		AnomalyMonths:               3,
		KPIMonths:                   3,
		RuleBatchSize:               100,
		MatchPageSize:               20,
		SyncDays:                    30,
	}
}

func newMetrics() *observability.Metrics {
	return observability.NewMetrics()
}

func newLogger() *zap.Logger {
	return zap.NewNop()
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := persistence.Open(sqlite.Open("file::memory:"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, persistence.Migrate(db))
	return db
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func storedRecord(t *testing.T, repo *persistence.TransactionRepository, externalID, amount, description string) *domain.TransactionRecord {
	t.Helper()
	rec := &domain.TransactionRecord{
		UserID:      testUser,
		TenantID:    testTenant,
		ExternalID:  externalID,
		Type:        domain.TransactionTypeBank,
		Date:        date(2025, 3, 10),
		Amount:      dec(amount),
		Description: description,
		Status:      domain.TransactionStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), rec))
	return rec
}
