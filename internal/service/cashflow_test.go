package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/service"
)

func authorisedOnly(f domain.DocumentFilter) bool {
	return len(f.Statuses) == 1 && f.Statuses[0] == domain.DocumentStatusAuthorised
}

func stubForecastSources(f *mockFetcher) {
	f.On("FetchInvoices", mock.Anything, testUser, testTenant, mock.MatchedBy(authorisedOnly)).Return([]domain.Invoice{
		{ID: "inv-1", Type: domain.InvoiceTypeReceivable, Status: domain.DocumentStatusAuthorised, DueDate: datePtr(2025, 3, 20), Total: dec("1000"), AmountDue: dec("1000")},
		{ID: "inv-2", Type: domain.InvoiceTypeReceivable, Status: domain.DocumentStatusAuthorised, DueDate: datePtr(2025, 8, 1), Total: dec("5000"), AmountDue: dec("5000")},
	}, nil)
	f.On("FetchBills", mock.Anything, testUser, testTenant, mock.MatchedBy(authorisedOnly)).Return([]domain.Invoice{
		{ID: "bill-1", Type: domain.InvoiceTypePayable, Status: domain.DocumentStatusAuthorised, DueDate: datePtr(2025, 3, 25), Total: dec("400"), AmountDue: dec("400")},
	}, nil)
	f.On("FetchRepeatingInvoices", mock.Anything, testUser, testTenant).Return([]domain.RepeatingDocument{}, nil)
	f.On("FetchRepeatingBills", mock.Anything, testUser, testTenant).Return([]domain.RepeatingDocument{
		{
			ID:     "rep-1",
			Type:   domain.InvoiceTypePayable,
			Status: domain.DocumentStatusActive,
			Total:  dec("100"),
			Schedule: domain.Schedule{
				Unit:              domain.ScheduleMonthly,
				Interval:          1,
				NextScheduledDate: datePtr(2025, 4, 1),
			},
		},
	}, nil)
}

func TestCashFlowService_Forecast(t *testing.T) {
	fetcher := new(mockFetcher)
	stubForecastSources(fetcher)
	svc := service.NewCashFlowService(fetcher, owned(), analyticsDefaults(), newMetrics(), newLogger(), clock())

	tl, err := svc.Forecast(context.Background(), testUser, testTenant, service.ForecastRequest{CurrentBalance: 500})
	require.NoError(t, err)

	assert.Equal(t, "2025-03-15", tl.StartDate)
	assert.Len(t, tl.Daily, 30)
	assert.InDelta(t, 800, tl.Summary.TotalInflow, 0.001)
	assert.InDelta(t, 500, tl.Summary.TotalOutflow, 0.001)
	assert.InDelta(t, 800, tl.Summary.EndingBalance, 0.001)
	assert.InDelta(t, 500, tl.Summary.LowestBalance, 0.001)
	fetcher.AssertExpectations(t)
}

func TestCashFlowService_ForecastUpstreamFailure(t *testing.T) {
	fetcher := new(mockFetcher)
	boom := &domain.ErrExternalService{Service: "xero", Err: errors.New("502")}
	fetcher.On("FetchInvoices", mock.Anything, testUser, testTenant, mock.Anything).Return([]domain.Invoice{}, nil).Maybe()
	fetcher.On("FetchBills", mock.Anything, testUser, testTenant, mock.Anything).Return(nil, boom)
	fetcher.On("FetchRepeatingInvoices", mock.Anything, testUser, testTenant).Return([]domain.RepeatingDocument{}, nil).Maybe()
	fetcher.On("FetchRepeatingBills", mock.Anything, testUser, testTenant).Return([]domain.RepeatingDocument{}, nil).Maybe()
	svc := service.NewCashFlowService(fetcher, owned(), analyticsDefaults(), newMetrics(), newLogger(), clock())

	_, err := svc.Forecast(context.Background(), testUser, testTenant, service.ForecastRequest{Days: 10})
	require.Error(t, err)

	var ext *domain.ErrExternalService
	assert.ErrorAs(t, err, &ext)
	assert.Contains(t, err.Error(), "fetch bills")
}

func TestCashFlowService_ForecastValidation(t *testing.T) {
	tests := []struct {
		name     string
		tenantID string
		days     int
	}{
		{"missing tenant", "", 10},
		{"negative days", testTenant, -1},
		{"too many days", testTenant, service.MaxForecastDays + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := new(mockFetcher)
			svc := service.NewCashFlowService(fetcher, owned(), analyticsDefaults(), newMetrics(), newLogger(), clock())

			_, err := svc.Forecast(context.Background(), testUser, tt.tenantID, service.ForecastRequest{Days: tt.days})

			var ve *domain.ErrValidation
			require.ErrorAs(t, err, &ve)
			fetcher.AssertNotCalled(t, "FetchInvoices", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCashFlowService_DetectIssues(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("FetchInvoices", mock.Anything, testUser, testTenant, mock.Anything).Return([]domain.Invoice{}, nil)
	fetcher.On("FetchBills", mock.Anything, testUser, testTenant, mock.Anything).Return([]domain.Invoice{
		{ID: "bill-big", Type: domain.InvoiceTypePayable, Status: domain.DocumentStatusAuthorised, DueDate: datePtr(2025, 3, 20), Total: dec("12000"), AmountDue: dec("12000")},
	}, nil)
	fetcher.On("FetchRepeatingInvoices", mock.Anything, testUser, testTenant).Return([]domain.RepeatingDocument{}, nil)
	fetcher.On("FetchRepeatingBills", mock.Anything, testUser, testTenant).Return([]domain.RepeatingDocument{}, nil)
	svc := service.NewCashFlowService(fetcher, owned(), analyticsDefaults(), newMetrics(), newLogger(), clock())

	report, err := svc.DetectIssues(context.Background(), testUser, testTenant, service.IssueRequest{
		ForecastRequest: service.ForecastRequest{CurrentBalance: 100},
	})
	require.NoError(t, err)

	var types []domain.CashFlowIssueType
	for _, issue := range report.Issues {
		types = append(types, issue.Type)
	}
	assert.Contains(t, types, domain.IssueNegativeBalance)
	assert.Contains(t, types, domain.IssueSignificantOutflow)
	assert.NotContains(t, types, domain.IssueLowBalance)
}

func TestCashFlowService_DetectIssuesRejectsNegativeThreshold(t *testing.T) {
	svc := service.NewCashFlowService(new(mockFetcher), owned(), analyticsDefaults(), newMetrics(), newLogger(), clock())

	_, err := svc.DetectIssues(context.Background(), testUser, testTenant, service.IssueRequest{LowBalanceThreshold: -1})

	var ve *domain.ErrValidation
	assert.ErrorAs(t, err, &ve)
}

func TestCashFlowService_ForecastRejectsUnconnectedTenant(t *testing.T) {
	fetcher := new(mockFetcher)
	svc := service.NewCashFlowService(fetcher, owned(), analyticsDefaults(), newMetrics(), newLogger(), clock())

	_, err := svc.Forecast(context.Background(), "user-2", testTenant, service.ForecastRequest{})

	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "tenant", nf.Resource)
	fetcher.AssertNotCalled(t, "FetchInvoices", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
