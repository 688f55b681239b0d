package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType distinguishes receivables from payables in match results.
type DocumentType string

const (
	DocumentTypeInvoice DocumentType = "INVOICE"
	DocumentTypeBill    DocumentType = "BILL"
)

// Provider document statuses.
const (
	DocumentStatusDraft      = "DRAFT"
	DocumentStatusSubmitted  = "SUBMITTED"
	DocumentStatusAuthorised = "AUTHORISED"
	DocumentStatusPaid       = "PAID"
	DocumentStatusVoided     = "VOIDED"
	DocumentStatusDeleted    = "DELETED"
	DocumentStatusActive     = "ACTIVE"
)

// Provider invoice types.
const (
	InvoiceTypeReceivable = "ACCREC"
	InvoiceTypePayable    = "ACCPAY"
)

type Contact struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type LineItem struct {
	Description string          `json:"description,omitempty"`
	AccountCode string          `json:"accountCode,omitempty"`
	AccountName string          `json:"accountName,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitAmount  decimal.Decimal `json:"unitAmount"`
	LineAmount  decimal.Decimal `json:"lineAmount"`
}

// Invoice is a provider invoice. Bills share the shape with Type ACCPAY.
type Invoice struct {
	ID         string          `json:"id"`
	Number     string          `json:"number"`
	Reference  string          `json:"reference,omitempty"`
	Type       string          `json:"type"`
	Contact    Contact         `json:"contact"`
	Date       time.Time       `json:"date"`
	DueDate    *time.Time      `json:"dueDate,omitempty"`
	Status     string          `json:"status"`
	Total      decimal.Decimal `json:"total"`
	AmountDue  decimal.Decimal `json:"amountDue"`
	AmountPaid decimal.Decimal `json:"amountPaid"`
	LineItems  []LineItem      `json:"lineItems,omitempty"`
}

// DocumentType maps the provider invoice type to INVOICE or BILL.
func (i Invoice) DocumentType() DocumentType {
	if i.Type == InvoiceTypePayable {
		return DocumentTypeBill
	}
	return DocumentTypeInvoice
}

// OutstandingAmount is AmountDue, falling back to Total when the provider
// reports no amount due.
func (i Invoice) OutstandingAmount() decimal.Decimal {
	if !i.AmountDue.IsZero() {
		return i.AmountDue
	}
	return i.Total
}

// BankAccount identifies the ledger account a bank transaction belongs to.
type BankAccount struct {
	ID   string `json:"id"`
	Code string `json:"code,omitempty"`
	Name string `json:"name,omitempty"`
}

// BankTransaction is a provider bank-feed line. Total is always
// non-negative on the wire; SignedAmount applies the direction.
type BankTransaction struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Contact      Contact         `json:"contact"`
	Date         time.Time       `json:"date"`
	Reference    string          `json:"reference,omitempty"`
	Description  string          `json:"description,omitempty"`
	Status       string          `json:"status"`
	Total        decimal.Decimal `json:"total"`
	IsReconciled bool            `json:"isReconciled"`
	BankAccount  BankAccount     `json:"bankAccount"`
	LineItems    []LineItem      `json:"lineItems,omitempty"`
}

// SignedAmount is negative for money leaving the account.
func (b BankTransaction) SignedAmount() decimal.Decimal {
	if strings.HasPrefix(b.Type, "SPEND") {
		return b.Total.Abs().Neg()
	}
	return b.Total.Abs()
}

type ScheduleUnit string

const (
	ScheduleDaily   ScheduleUnit = "DAILY"
	ScheduleWeekly  ScheduleUnit = "WEEKLY"
	ScheduleMonthly ScheduleUnit = "MONTHLY"
	ScheduleYearly  ScheduleUnit = "YEARLY"
)

// Schedule describes how a repeating document recurs. Unit defaults to
// MONTHLY and Interval to 1.
type Schedule struct {
	Unit              ScheduleUnit `json:"unit"`
	Interval          int          `json:"interval"`
	StartDate         *time.Time   `json:"startDate,omitempty"`
	NextScheduledDate *time.Time   `json:"nextScheduledDate,omitempty"`
	EndDate           *time.Time   `json:"endDate,omitempty"`
}

// RepeatingDocument is a template invoice or bill.
type RepeatingDocument struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Reference string          `json:"reference,omitempty"`
	Contact   Contact         `json:"contact"`
	Status    string          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	Schedule  Schedule        `json:"schedule"`
}

// DocumentFilter narrows a provider document fetch.
type DocumentFilter struct {
	Statuses     []string
	From         *time.Time
	To           *time.Time
	MinAmountDue *decimal.Decimal
	MaxAmountDue *decimal.Decimal
	Page         int
	PageSize     int
	Order        string
}

// Provider report names.
const (
	ReportProfitAndLoss = "ProfitAndLoss"
	ReportBalanceSheet  = "BalanceSheet"
)

// ReportOptions parameterise a report fetch.
type ReportOptions struct {
	From      *time.Time
	To        *time.Time
	Date      *time.Time
	Periods   int
	Timeframe string
}

type ReportCell struct {
	Value string `json:"value"`
}

// ReportRow is one node of a report tree. Sections carry a Title and
// nested Rows; data rows carry Cells whose first cell is the label.
type ReportRow struct {
	Type  string       `json:"type,omitempty"`
	Title string       `json:"title,omitempty"`
	Cells []ReportCell `json:"cells,omitempty"`
	Rows  []ReportRow  `json:"rows,omitempty"`
}

// Report is a provider report converted to a generic tree.
type Report struct {
	Name    string       `json:"name"`
	Title   string       `json:"title,omitempty"`
	Columns []ReportCell `json:"columns"`
	Rows    []ReportRow  `json:"rows"`
}

// FindRow returns the first row, depth-first, whose label cell equals label.
func (r *Report) FindRow(label string) (*ReportRow, bool) {
	if r == nil {
		return nil, false
	}
	return findRow(r.Rows, label)
}

func findRow(rows []ReportRow, label string) (*ReportRow, bool) {
	for i := range rows {
		row := &rows[i]
		if len(row.Cells) > 0 && row.Cells[0].Value == label {
			return row, true
		}
		if found, ok := findRow(row.Rows, label); ok {
			return found, true
		}
	}
	return nil, false
}
