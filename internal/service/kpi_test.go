package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/cache"
	"github.com/boddenberg/cfo-assistant-go/internal/kpi"
	"github.com/boddenberg/cfo-assistant-go/internal/service"
)

func row(label, value string) domain.ReportRow {
	return domain.ReportRow{Type: "Row", Cells: []domain.ReportCell{{Value: label}, {Value: value}}}
}

func profitAndLoss() *domain.Report {
	return &domain.Report{
		Name: domain.ReportProfitAndLoss,
		Rows: []domain.ReportRow{
			{Type: "Section", Title: "Income", Rows: []domain.ReportRow{row(kpi.LabelRevenue, "10000")}},
			row(kpi.LabelGrossProfit, "4000"),
			row(kpi.LabelNetProfit, "1000"),
		},
	}
}

func balanceSheet() *domain.Report {
	return &domain.Report{
		Name: domain.ReportBalanceSheet,
		Rows: []domain.ReportRow{
			row(kpi.LabelCurrentAssets, "5000"),
			row(kpi.LabelCurrentLiabilities, "2500"),
		},
	}
}

func newReportCache(t *testing.T) *cache.InMemory[*domain.Report] {
	c := cache.New[*domain.Report](time.Minute)
	t.Cleanup(c.Close)
	return c
}

func TestKPIService_RatiosUsesReportCache(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchReport", mock.Anything, testUser, testTenant, domain.ReportProfitAndLoss, mock.Anything).Return(profitAndLoss(), nil).Once()
	fetcher.On("FetchReport", mock.Anything, testUser, testTenant, domain.ReportBalanceSheet, mock.MatchedBy(func(o domain.ReportOptions) bool {
		return o.Date != nil && o.Date.Equal(date(2025, 3, 15))
	})).Return(balanceSheet(), nil).Once()
	svc := service.NewKPIService(fetcher, owned(), newReportCache(t), analyticsDefaults(), newMetrics(), newLogger(), clock())

	for i := 0; i < 2; i++ {
		analysis, err := svc.Ratios(context.Background(), testUser, testTenant, 3)
		require.NoError(t, err)
		assert.InDelta(t, 40, analysis.Ratios.GrossProfitMargin, 0.001)
		assert.InDelta(t, 10, analysis.Ratios.NetProfitMargin, 0.001)
		assert.InDelta(t, 2, analysis.Ratios.CurrentRatio, 0.001)
		assert.Equal(t, domain.Period{From: "2024-12-15", To: "2025-03-15"}, analysis.Period)
	}
	fetcher.AssertNumberOfCalls(t, "FetchReport", 2)
}

func TestKPIService_RatiosUpstreamFailure(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchReport", mock.Anything, testUser, testTenant, domain.ReportProfitAndLoss, mock.Anything).Return(nil, &domain.ErrCircuitOpen{Service: "xero"})
	fetcher.On("FetchReport", mock.Anything, testUser, testTenant, domain.ReportBalanceSheet, mock.Anything).Return(balanceSheet(), nil).Maybe()
	svc := service.NewKPIService(fetcher, owned(), newReportCache(t), analyticsDefaults(), newMetrics(), newLogger(), clock())

	_, err := svc.Ratios(context.Background(), testUser, testTenant, 3)

	var open *domain.ErrCircuitOpen
	assert.True(t, errors.As(err, &open))
}

func TestKPIService_HealthScore(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchReport", mock.Anything, testUser, testTenant, domain.ReportProfitAndLoss, mock.Anything).Return(profitAndLoss(), nil)
	fetcher.On("FetchReport", mock.Anything, testUser, testTenant, domain.ReportBalanceSheet, mock.Anything).Return(balanceSheet(), nil)
	svc := service.NewKPIService(fetcher, owned(), newReportCache(t), analyticsDefaults(), newMetrics(), newLogger(), clock())

	health, err := svc.HealthScore(context.Background(), testUser, testTenant, 0)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, health.OverallScore, 0.0)
	assert.LessOrEqual(t, health.OverallScore, 100.0)
	assert.NotEmpty(t, health.Status)
	assert.Equal(t, "2025-03-15", health.Period.To)
}

func TestKPIService_KPIs(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchReport", mock.Anything, testUser, testTenant, domain.ReportProfitAndLoss, mock.Anything).Return(profitAndLoss(), nil)
	fetcher.On("FetchReport", mock.Anything, testUser, testTenant, domain.ReportBalanceSheet, mock.Anything).Return(balanceSheet(), nil)
	fetcher.On("FetchInvoices", mock.Anything, testUser, testTenant, mock.Anything).Return([]domain.Invoice{
		{ID: "inv-1", Type: domain.InvoiceTypeReceivable, Status: domain.DocumentStatusPaid, Total: dec("1000")},
		{ID: "inv-2", Type: domain.InvoiceTypeReceivable, Status: domain.DocumentStatusAuthorised, Total: dec("500")},
	}, nil)
	fetcher.On("FetchBills", mock.Anything, testUser, testTenant, mock.Anything).Return([]domain.Invoice{
		{ID: "bill-1", Type: domain.InvoiceTypePayable, Status: domain.DocumentStatusAuthorised, Total: dec("300")},
	}, nil)
	svc := service.NewKPIService(fetcher, owned(), newReportCache(t), analyticsDefaults(), newMetrics(), newLogger(), clock())

	report, err := svc.KPIs(context.Background(), testUser, testTenant, 3)
	require.NoError(t, err)

	assert.InDelta(t, 1500, report.Revenue.TotalRevenue, 0.001)
	assert.InDelta(t, 1000, report.Revenue.PaidRevenue, 0.001)
	assert.InDelta(t, 66.667, report.Revenue.CollectionRate, 0.01)
	assert.Equal(t, 2, report.Revenue.InvoiceCount)
	assert.InDelta(t, 300, report.Expenses.TotalExpenses, 0.001)
	assert.InDelta(t, 20, report.Expenses.ExpenseToRevenueRatio, 0.001)
	assert.InDelta(t, 40, report.Financial.GrossProfitMargin, 0.001)
}

func TestKPIService_ReportCacheIsPerUser(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchReport", mock.Anything, mock.Anything, testTenant, domain.ReportProfitAndLoss, mock.Anything).Return(profitAndLoss(), nil)
	fetcher.On("FetchReport", mock.Anything, mock.Anything, testTenant, domain.ReportBalanceSheet, mock.Anything).Return(balanceSheet(), nil)
	tenants := owned()
	tenants["user-2/"+testTenant] = true
	svc := service.NewKPIService(fetcher, tenants, newReportCache(t), analyticsDefaults(), newMetrics(), newLogger(), clock())

	_, err := svc.Ratios(context.Background(), testUser, testTenant, 3)
	require.NoError(t, err)
	_, err = svc.Ratios(context.Background(), "user-2", testTenant, 3)
	require.NoError(t, err)
	fetcher.AssertNumberOfCalls(t, "FetchReport", 4)

	_, err = svc.Ratios(context.Background(), "user-2", testTenant, 3)
	require.NoError(t, err)
	fetcher.AssertNumberOfCalls(t, "FetchReport", 4)

	// A disconnected user is refused even while the report is cached.
	delete(tenants, "user-2/"+testTenant)
	_, err = svc.Ratios(context.Background(), "user-2", testTenant, 3)
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
}
