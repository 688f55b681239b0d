package xero

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

// FetchInvoices returns receivable invoices matching filter.
func (c *Client) FetchInvoices(ctx context.Context, userID, tenantID string, filter domain.DocumentFilter) ([]domain.Invoice, error) {
	return c.fetchInvoices(ctx, userID, tenantID, domain.InvoiceTypeReceivable, filter)
}

// FetchBills returns payable invoices matching filter.
func (c *Client) FetchBills(ctx context.Context, userID, tenantID string, filter domain.DocumentFilter) ([]domain.Invoice, error) {
	return c.fetchInvoices(ctx, userID, tenantID, domain.InvoiceTypePayable, filter)
}

func (c *Client) fetchInvoices(ctx context.Context, userID, tenantID, invoiceType string, filter domain.DocumentFilter) ([]domain.Invoice, error) {
	query := c.listQuery(whereClause(invoiceType, filter), filter)

	var out []domain.Invoice
	err := c.paginate(ctx, filter, query, func(q url.Values) (int, error) {
		var env invoicesEnvelope
		if err := c.get(ctx, userID, tenantID, "/Invoices", q, &env, "invoices", tenantID); err != nil {
			return 0, err
		}
		for _, w := range env.Invoices {
			out = append(out, w.toDomain())
		}
		return len(env.Invoices), nil
	})
	return out, err
}

// FetchBankTransactions returns bank-feed lines matching filter. Amount
// bounds do not apply to bank transactions and are ignored.
func (c *Client) FetchBankTransactions(ctx context.Context, userID, tenantID string, filter domain.DocumentFilter) ([]domain.BankTransaction, error) {
	query := c.listQuery(whereClause("", domain.DocumentFilter{
		Statuses: filter.Statuses,
		From:     filter.From,
		To:       filter.To,
	}), filter)

	var out []domain.BankTransaction
	err := c.paginate(ctx, filter, query, func(q url.Values) (int, error) {
		var env bankTransactionsEnvelope
		if err := c.get(ctx, userID, tenantID, "/BankTransactions", q, &env, "bank transactions", tenantID); err != nil {
			return 0, err
		}
		for _, w := range env.BankTransactions {
			out = append(out, w.toDomain())
		}
		return len(env.BankTransactions), nil
	})
	return out, err
}

// FetchRepeatingInvoices returns receivable templates.
func (c *Client) FetchRepeatingInvoices(ctx context.Context, userID, tenantID string) ([]domain.RepeatingDocument, error) {
	return c.fetchRepeating(ctx, userID, tenantID, domain.InvoiceTypeReceivable)
}

// FetchRepeatingBills returns payable templates.
func (c *Client) FetchRepeatingBills(ctx context.Context, userID, tenantID string) ([]domain.RepeatingDocument, error) {
	return c.fetchRepeating(ctx, userID, tenantID, domain.InvoiceTypePayable)
}

func (c *Client) fetchRepeating(ctx context.Context, userID, tenantID, invoiceType string) ([]domain.RepeatingDocument, error) {
	q := url.Values{}
	q.Set("where", whereClause(invoiceType, domain.DocumentFilter{}))

	var env repeatingEnvelope
	if err := c.get(ctx, userID, tenantID, "/RepeatingInvoices", q, &env, "repeating invoices", tenantID); err != nil {
		return nil, err
	}
	out := make([]domain.RepeatingDocument, 0, len(env.RepeatingInvoices))
	for _, w := range env.RepeatingInvoices {
		out = append(out, w.toDomain())
	}
	return out, nil
}

func (c *Client) listQuery(where string, filter domain.DocumentFilter) url.Values {
	q := url.Values{}
	if where != "" {
		q.Set("where", where)
	}
	if filter.Order != "" {
		q.Set("order", filter.Order)
	}
	q.Set("pageSize", strconv.Itoa(c.pageLen(filter)))
	return q
}

// pageLen is filter.PageSize when set and the client default otherwise.
func (c *Client) pageLen(filter domain.DocumentFilter) int {
	if filter.PageSize > 0 {
		return filter.PageSize
	}
	return c.pageSize
}

// paginate fetches the page named by filter.Page, or every page in turn
// when it is zero, stopping at the first short page.
func (c *Client) paginate(ctx context.Context, filter domain.DocumentFilter, base url.Values, fetch func(url.Values) (int, error)) error {
	if filter.Page > 0 {
		q := cloneValues(base)
		q.Set("page", strconv.Itoa(filter.Page))
		_, err := fetch(q)
		return err
	}

	for page := 1; page <= c.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		q := cloneValues(base)
		q.Set("page", strconv.Itoa(page))
		n, err := fetch(q)
		if err != nil {
			return err
		}
		if n < c.pageLen(filter) {
			return nil
		}
	}
	return nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// whereClause renders the provider's filter expression, for example
// Type=="ACCREC" && Status=="AUTHORISED" && AmountDue>=99.99 && Date>=DateTime(2025,01,01).
func whereClause(invoiceType string, f domain.DocumentFilter) string {
	var parts []string
	if invoiceType != "" {
		parts = append(parts, fmt.Sprintf("Type==%q", invoiceType))
	}
	switch len(f.Statuses) {
	case 0:
	case 1:
		parts = append(parts, fmt.Sprintf("Status==%q", f.Statuses[0]))
	default:
		ors := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			ors[i] = fmt.Sprintf("Status==%q", s)
		}
		parts = append(parts, "("+strings.Join(ors, " OR ")+")")
	}
	if f.MinAmountDue != nil {
		parts = append(parts, "AmountDue>="+f.MinAmountDue.StringFixed(2))
	}
	if f.MaxAmountDue != nil {
		parts = append(parts, "AmountDue<="+f.MaxAmountDue.StringFixed(2))
	}
	if f.From != nil {
		parts = append(parts, "Date>="+dateTime(*f.From))
	}
	if f.To != nil {
		parts = append(parts, "Date<="+dateTime(*f.To))
	}
	return strings.Join(parts, " && ")
}

func dateTime(t time.Time) string {
	return fmt.Sprintf("DateTime(%04d,%02d,%02d)", t.Year(), int(t.Month()), t.Day())
}
