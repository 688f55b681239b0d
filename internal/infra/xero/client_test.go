package xero

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/resilience"
)

// memTenants is an in-memory port.TenantStore keyed by user and tenant.
type memTenants map[string]domain.TenantConnection

func (m memTenants) Find(_ context.Context, userID, tenantID string) (*domain.TenantConnection, error) {
	c, ok := m[userID+"/"+tenantID]
	if !ok || !c.IsActive {
		return nil, &domain.ErrNotFound{Resource: "tenant", ID: tenantID}
	}
	return &c, nil
}

func (m memTenants) ListActive(context.Context, string) ([]domain.TenantConnection, error) {
	return nil, nil
}

func (m memTenants) Save(_ context.Context, c *domain.TenantConnection) error {
	m[c.UserID+"/"+c.TenantID] = *c
	return nil
}

func (m memTenants) Deactivate(context.Context, string, string) error { return nil }

// connected returns a token source where user-1 holds tenants "t" and
// "tenant-1" with token-123.
func connected() ConnectionTokenSource {
	tenants := memTenants{}
	for _, id := range []string{"t", "tenant-1"} {
		_ = tenants.Save(context.Background(), &domain.TenantConnection{
			UserID: "user-1", TenantID: id, TenantName: id, AccessToken: "token-123", IsActive: true,
		})
	}
	return ConnectionTokenSource{Tenants: tenants}
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxConcurrency: 4}
	return NewClient(
		srv.Client(),
		srv.URL,
		connected(),
		resilience.NewCircuitBreaker("xero-test", zap.NewNop()),
		cfg,
		2,
		zap.NewNop(),
	)
}

const invoicePage = `{"Invoices":[
 {"InvoiceID":"inv-1","InvoiceNumber":"INV-001","Reference":"PO-9","Type":"ACCREC",
  "Contact":{"ContactID":"c-1","Name":"Acme"},
  "Date":"/Date(1735689600000+0000)/","DueDate":"2025-01-31T00:00:00",
  "Status":"AUTHORISED","Total":1200.50,"AmountDue":1200.50,"AmountPaid":0,
  "LineItems":[{"Description":"Consulting","Quantity":1,"UnitAmount":1200.50,"LineAmount":1200.50,"AccountCode":"200"}]},
 {"InvoiceID":"inv-2","InvoiceNumber":"INV-002","Type":"ACCREC","Contact":{"Name":"Beta"},
  "Date":"2025-01-05","DueDate":null,"Status":"AUTHORISED","Total":80,"AmountDue":80}
]}`

func TestFetchInvoices_RequestAndDecoding(t *testing.T) {
	var gotQuery url.Values
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/Invoices", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		assert.Equal(t, "tenant-1", r.Header.Get("xero-tenant-id"))
		gotQuery = r.URL.Query()
		fmt.Fprint(w, invoicePage)
	})

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	min := decimal.RequireFromString("99.99")
	invoices, err := c.FetchInvoices(context.Background(), "user-1", "tenant-1", domain.DocumentFilter{
		Statuses:     []string{domain.DocumentStatusAuthorised},
		From:         &from,
		MinAmountDue: &min,
		Page:         1,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls)

	assert.Equal(t, `Type=="ACCREC" && Status=="AUTHORISED" && AmountDue>=99.99 && Date>=DateTime(2025,01,01)`, gotQuery.Get("where"))
	assert.Equal(t, "1", gotQuery.Get("page"))

	require.Len(t, invoices, 2)
	inv := invoices[0]
	assert.Equal(t, "inv-1", inv.ID)
	assert.Equal(t, "INV-001", inv.Number)
	assert.Equal(t, "Acme", inv.Contact.Name)
	assert.Equal(t, from, inv.Date)
	require.NotNil(t, inv.DueDate)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), *inv.DueDate)
	assert.True(t, decimal.RequireFromString("1200.50").Equal(inv.AmountDue))
	require.Len(t, inv.LineItems, 1)
	assert.Equal(t, "200", inv.LineItems[0].AccountCode)
	assert.Nil(t, invoices[1].DueDate)
}

func TestFetchBills_PaginatesUntilShortPage(t *testing.T) {
	var pages []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		assert.Contains(t, r.URL.Query().Get("where"), `Type=="ACCPAY"`)
		switch page {
		case "1", "2":
			fmt.Fprintf(w, `{"Invoices":[{"InvoiceID":"b-%s-a","Type":"ACCPAY"},{"InvoiceID":"b-%s-b","Type":"ACCPAY"}]}`, page, page)
		default:
			fmt.Fprint(w, `{"Invoices":[{"InvoiceID":"b-3-a","Type":"ACCPAY"}]}`)
		}
	})

	bills, err := c.FetchBills(context.Background(), "user-1", "t", domain.DocumentFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, pages)
	assert.Len(t, bills, 5)
	assert.Equal(t, domain.DocumentTypeBill, bills[0].DocumentType())
}

func TestFetchBankTransactions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/BankTransactions", r.URL.Path)
		assert.Equal(t, `Date>=DateTime(2025,03,01) && Date<=DateTime(2025,03,31)`, r.URL.Query().Get("where"))
		fmt.Fprint(w, `{"BankTransactions":[{"BankTransactionID":"bt-1","Type":"SPEND","Reference":"RENT",
			"Date":"/Date(1740787200000+0000)/","Status":"AUTHORISED","Total":950,"IsReconciled":true,
			"BankAccount":{"AccountID":"acc-1","Code":"090","Name":"Business Account"},
			"LineItems":[{"Description":"March rent","LineAmount":950,"AccountCode":"469"}]}]}`)
	})

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	min := decimal.NewFromInt(1)
	txs, err := c.FetchBankTransactions(context.Background(), "user-1", "t", domain.DocumentFilter{From: &from, To: &to, MinAmountDue: &min})
	require.NoError(t, err)
	require.Len(t, txs, 1)

	tx := txs[0]
	assert.Equal(t, "March rent", tx.Description)
	assert.Equal(t, "acc-1", tx.BankAccount.ID)
	assert.True(t, tx.IsReconciled)
	assert.True(t, decimal.NewFromInt(-950).Equal(tx.SignedAmount()))
	assert.Equal(t, from, tx.Date)
}

func TestFetchRepeatingBills(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/RepeatingInvoices", r.URL.Path)
		assert.Equal(t, `Type=="ACCPAY"`, r.URL.Query().Get("where"))
		fmt.Fprint(w, `{"RepeatingInvoices":[{"RepeatingInvoiceID":"r-1","Type":"ACCPAY","Status":"ACTIVE","Total":300,
			"Schedule":{"Period":2,"Unit":"WEEKLY","StartDate":"2025-01-06T00:00:00","NextScheduledDate":"/Date(1737331200000+0000)/"}}]}`)
	})

	docs, err := c.FetchRepeatingBills(context.Background(), "user-1", "t")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	s := docs[0].Schedule
	assert.Equal(t, domain.ScheduleWeekly, s.Unit)
	assert.Equal(t, 2, s.Interval)
	require.NotNil(t, s.NextScheduledDate)
	assert.Equal(t, time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), *s.NextScheduledDate)
	assert.Nil(t, s.EndDate)
}

func TestFetchReport_ConvertsTree(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Reports/ProfitAndLoss", r.URL.Path)
		assert.Equal(t, "2025-01-01", r.URL.Query().Get("fromDate"))
		assert.Equal(t, "3", r.URL.Query().Get("periods"))
		assert.Equal(t, "MONTH", r.URL.Query().Get("timeframe"))
		fmt.Fprint(w, `{"Reports":[{"ReportName":"Profit and Loss","ReportTitles":["Profit & Loss","Demo Co"],"Rows":[
			{"RowType":"Header","Cells":[{"Value":""},{"Value":"Mar 2025"},{"Value":"Feb 2025"}]},
			{"RowType":"Section","Title":"Income","Rows":[
				{"RowType":"Row","Cells":[{"Value":"Sales"},{"Value":"1000.00"},{"Value":"900.00"}]},
				{"RowType":"SummaryRow","Cells":[{"Value":"Revenue"},{"Value":"1000.00"},{"Value":"900.00"}]}]},
			{"RowType":"Section","Rows":[{"RowType":"Row","Cells":[{"Value":"Net Profit"},{"Value":"150.00"},{"Value":"90.00"}]}]}
		]}]}`)
	})

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	report, err := c.FetchReport(context.Background(), "user-1", "t", domain.ReportProfitAndLoss, domain.ReportOptions{
		From: &from, Periods: 3, Timeframe: "MONTH",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ReportProfitAndLoss, report.Name)
	assert.Equal(t, "Profit & Loss", report.Title)
	assert.Equal(t, []domain.ReportCell{{Value: ""}, {Value: "Feb 2025"}, {Value: "Mar 2025"}}, report.Columns)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, "Income", report.Rows[0].Title)

	row, ok := report.FindRow("Revenue")
	require.True(t, ok)
	assert.Equal(t, "SummaryRow", row.Type)
	assert.Equal(t, []domain.ReportCell{{Value: "Revenue"}, {Value: "900.00"}, {Value: "1000.00"}}, row.Cells)
}

func TestFetchReport_EmptyEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Reports":[]}`)
	})

	_, err := c.FetchReport(context.Background(), "user-1", "t", domain.ReportBalanceSheet, domain.ReportOptions{})
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestClient_NotFoundIsNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.FetchReport(context.Background(), "user-1", "t", "Missing", domain.ReportOptions{})
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Missing", nf.ID)
	assert.EqualValues(t, 1, calls)
}

func TestClient_BadRequestIsPermanent(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"Message":"bad where"}`)
	})

	_, err := c.FetchInvoices(context.Background(), "user-1", "t", domain.DocumentFilter{Page: 1})
	var ext *domain.ErrExternalService
	require.ErrorAs(t, err, &ext)
	assert.Contains(t, err.Error(), "bad where")
	assert.EqualValues(t, 1, calls)
}

func TestClient_RateLimitedThenSucceeds(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"Invoices":[]}`)
	})

	invoices, err := c.FetchInvoices(context.Background(), "user-1", "t", domain.DocumentFilter{Page: 1})
	require.NoError(t, err)
	assert.Empty(t, invoices)
	assert.EqualValues(t, 2, calls)
}

func TestClient_ServerErrorsExhaustRetries(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.FetchInvoices(context.Background(), "user-1", "t", domain.DocumentFilter{Page: 1})
	var ext *domain.ErrExternalService
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, "xero", ext.Service)
	assert.EqualValues(t, 3, calls)
}

func TestClient_CircuitOpens(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c.cfg.MaxRetries = 0

	var err error
	for i := 0; i < 6; i++ {
		_, err = c.FetchInvoices(context.Background(), "user-1", "t", domain.DocumentFilter{Page: 1})
	}
	var open *domain.ErrCircuitOpen
	assert.ErrorAs(t, err, &open)
}

func TestClient_UnconnectedTenant(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be sent for a tenant the user is not connected to")
	})

	_, err := c.FetchInvoices(context.Background(), "user-2", "t", domain.DocumentFilter{Page: 1})
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "tenant", nf.Resource)

	var ext *domain.ErrExternalService
	assert.False(t, errors.As(err, &ext))
}

func TestClient_MissingToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be sent without a token")
	})
	tenants := memTenants{}
	_ = tenants.Save(context.Background(), &domain.TenantConnection{UserID: "user-1", TenantID: "t", IsActive: true})
	c.tokens = ConnectionTokenSource{Tenants: tenants}

	_, err := c.FetchInvoices(context.Background(), "user-1", "t", domain.DocumentFilter{Page: 1})
	var unauth *domain.ErrUnauthorized
	assert.ErrorAs(t, err, &unauth)
}

func TestConnectionTokenSource(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Minute), now.Add(time.Hour)

	tenants := memTenants{}
	_ = tenants.Save(ctx, &domain.TenantConnection{UserID: "u", TenantID: "own", AccessToken: "own-token", TokenExpiresAt: &future, IsActive: true})
	_ = tenants.Save(ctx, &domain.TenantConnection{UserID: "u", TenantID: "shared", IsActive: true})
	_ = tenants.Save(ctx, &domain.TenantConnection{UserID: "u", TenantID: "stale", AccessToken: "old", TokenExpiresAt: &past, IsActive: true})
	ts := ConnectionTokenSource{Tenants: tenants, Fallback: "dev-token", Now: func() time.Time { return now }}

	tok, err := ts.Token(ctx, "u", "own")
	require.NoError(t, err)
	assert.Equal(t, "own-token", tok)

	tok, err = ts.Token(ctx, "u", "shared")
	require.NoError(t, err)
	assert.Equal(t, "dev-token", tok)

	_, err = ts.Token(ctx, "u", "stale")
	var unauth *domain.ErrUnauthorized
	assert.ErrorAs(t, err, &unauth)

	_, err = ts.Token(ctx, "other", "own")
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestFetchInvoices_PageSizeFromFilter(t *testing.T) {
	var sizes []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		sizes = append(sizes, r.URL.Query().Get("pageSize"))
		page := r.URL.Query().Get("page")
		if page == "1" {
			fmt.Fprint(w, `{"Invoices":[{"InvoiceID":"a"},{"InvoiceID":"b"},{"InvoiceID":"c"}]}`)
			return
		}
		fmt.Fprint(w, `{"Invoices":[]}`)
	})

	_, err := c.FetchInvoices(context.Background(), "user-1", "t", domain.DocumentFilter{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, []string{"20"}, sizes)

	// Three invoices fill neither a page of 20 nor continue the walk.
	sizes = nil
	invoices, err := c.FetchInvoices(context.Background(), "user-1", "t", domain.DocumentFilter{PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, []string{"20"}, sizes)
	assert.Len(t, invoices, 3)

	// Without a filter size the client default of 2 applies.
	sizes = nil
	_, err = c.FetchInvoices(context.Background(), "user-1", "t", domain.DocumentFilter{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, sizes)
}

func TestOrderPeriods(t *testing.T) {
	r := &domain.Report{
		Columns: []domain.ReportCell{{Value: ""}, {Value: "31 Mar 2025"}, {Value: "28 Feb 2025"}, {Value: "31 Jan 2025"}, {Value: "Total"}},
		Rows: []domain.ReportRow{
			{Type: "Section", Title: "Income", Rows: []domain.ReportRow{
				{Type: "Row", Cells: []domain.ReportCell{{Value: "Revenue"}, {Value: "3"}, {Value: "2"}, {Value: "1"}, {Value: "6"}}},
			}},
			{Type: "Row", Cells: []domain.ReportCell{{Value: "Note"}, {Value: "x"}}},
		},
	}
	orderPeriods(r)

	assert.Equal(t, []domain.ReportCell{{Value: ""}, {Value: "31 Jan 2025"}, {Value: "28 Feb 2025"}, {Value: "31 Mar 2025"}, {Value: "Total"}}, r.Columns)
	assert.Equal(t, []domain.ReportCell{{Value: "Revenue"}, {Value: "1"}, {Value: "2"}, {Value: "3"}, {Value: "6"}}, r.Rows[0].Rows[0].Cells)
	assert.Equal(t, []domain.ReportCell{{Value: "Note"}, {Value: "x"}}, r.Rows[1].Cells)

	undated := &domain.Report{Columns: []domain.ReportCell{{Value: ""}, {Value: "Current"}, {Value: "Prior"}}}
	orderPeriods(undated)
	assert.Equal(t, "Current", undated.Columns[1].Value)
}

func TestWhereClause(t *testing.T) {
	from := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	min := decimal.RequireFromString("10")
	max := decimal.RequireFromString("10.02")

	tests := []struct {
		name   string
		typ    string
		filter domain.DocumentFilter
		want   string
	}{
		{"empty", "", domain.DocumentFilter{}, ""},
		{"type only", "ACCREC", domain.DocumentFilter{}, `Type=="ACCREC"`},
		{
			"statuses and amounts",
			"ACCPAY",
			domain.DocumentFilter{Statuses: []string{"AUTHORISED", "SUBMITTED"}, MinAmountDue: &min, MaxAmountDue: &max},
			`Type=="ACCPAY" && (Status=="AUTHORISED" OR Status=="SUBMITTED") && AmountDue>=10.00 && AmountDue<=10.02`,
		},
		{"date range", "", domain.DocumentFilter{From: &from, To: &to}, `Date>=DateTime(2025,02,03) && Date<=DateTime(2025,12,31)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, whereClause(tt.typ, tt.filter))
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"/Date(1735689600000+0000)/", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"/Date(1735689600000)/", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2025-01-01T00:00:00", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2025-01-01T10:30:00Z", time.Date(2025, 1, 1, 10, 30, 0, 0, time.UTC)},
		{"2025-01-01", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"", time.Time{}},
	}
	for _, tt := range tests {
		got, err := parseDate(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %s", tt.in, got)
	}

	_, err := parseDate("yesterday")
	assert.Error(t, err)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, retryAfter("3"))
	assert.Zero(t, retryAfter(""))
	assert.Zero(t, retryAfter("soon"))
	assert.Greater(t, retryAfter(time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)), 30*time.Second)
}

