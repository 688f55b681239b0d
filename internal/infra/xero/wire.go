package xero

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

// xeroDate accepts the provider's "/Date(1739059200000+0000)/" form as well
// as ISO dates with or without a time part.
type xeroDate struct {
	time.Time
}

var msDate = regexp.MustCompile(`^/Date\((-?\d+)([+-]\d{4})?\)/$`)

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	domain.DateLayout,
}

func (d *xeroDate) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := parseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// parseDate returns the date in UTC. The provider's offset suffix only
// describes the organisation's zone; the millisecond value is already UTC.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if m := msDate.FindStringSubmatch(s); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func (d xeroDate) ptr() *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

type wireContact struct {
	ContactID string `json:"ContactID"`
	Name      string `json:"Name"`
}

func (c wireContact) toDomain() domain.Contact {
	return domain.Contact{ID: c.ContactID, Name: c.Name}
}

type wireLineItem struct {
	Description string          `json:"Description"`
	Quantity    decimal.Decimal `json:"Quantity"`
	UnitAmount  decimal.Decimal `json:"UnitAmount"`
	LineAmount  decimal.Decimal `json:"LineAmount"`
	AccountCode string          `json:"AccountCode"`
	AccountName string          `json:"AccountName"`
}

func lineItems(in []wireLineItem) []domain.LineItem {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.LineItem, len(in))
	for i, li := range in {
		out[i] = domain.LineItem{
			Description: li.Description,
			AccountCode: li.AccountCode,
			AccountName: li.AccountName,
			Quantity:    li.Quantity,
			UnitAmount:  li.UnitAmount,
			LineAmount:  li.LineAmount,
		}
	}
	return out
}

type wireInvoice struct {
	InvoiceID     string          `json:"InvoiceID"`
	InvoiceNumber string          `json:"InvoiceNumber"`
	Reference     string          `json:"Reference"`
	Type          string          `json:"Type"`
	Contact       wireContact     `json:"Contact"`
	Date          xeroDate        `json:"Date"`
	DueDate       xeroDate        `json:"DueDate"`
	Status        string          `json:"Status"`
	Total         decimal.Decimal `json:"Total"`
	AmountDue     decimal.Decimal `json:"AmountDue"`
	AmountPaid    decimal.Decimal `json:"AmountPaid"`
	LineItems     []wireLineItem  `json:"LineItems"`
}

func (w wireInvoice) toDomain() domain.Invoice {
	return domain.Invoice{
		ID:         w.InvoiceID,
		Number:     w.InvoiceNumber,
		Reference:  w.Reference,
		Type:       w.Type,
		Contact:    w.Contact.toDomain(),
		Date:       w.Date.Time,
		DueDate:    w.DueDate.ptr(),
		Status:     w.Status,
		Total:      w.Total,
		AmountDue:  w.AmountDue,
		AmountPaid: w.AmountPaid,
		LineItems:  lineItems(w.LineItems),
	}
}

type wireBankAccount struct {
	AccountID string `json:"AccountID"`
	Code      string `json:"Code"`
	Name      string `json:"Name"`
}

type wireBankTransaction struct {
	BankTransactionID string          `json:"BankTransactionID"`
	Type              string          `json:"Type"`
	Contact           wireContact     `json:"Contact"`
	Date              xeroDate        `json:"Date"`
	Reference         string          `json:"Reference"`
	Status            string          `json:"Status"`
	Total             decimal.Decimal `json:"Total"`
	IsReconciled      bool            `json:"IsReconciled"`
	BankAccount       wireBankAccount `json:"BankAccount"`
	LineItems         []wireLineItem  `json:"LineItems"`
}

// toDomain takes the description from the first line item; bank
// transactions carry none of their own.
func (w wireBankTransaction) toDomain() domain.BankTransaction {
	var desc string
	if len(w.LineItems) > 0 {
		desc = w.LineItems[0].Description
	}
	return domain.BankTransaction{
		ID:           w.BankTransactionID,
		Type:         w.Type,
		Contact:      w.Contact.toDomain(),
		Date:         w.Date.Time,
		Reference:    w.Reference,
		Description:  desc,
		Status:       w.Status,
		Total:        w.Total,
		IsReconciled: w.IsReconciled,
		BankAccount: domain.BankAccount{
			ID:   w.BankAccount.AccountID,
			Code: w.BankAccount.Code,
			Name: w.BankAccount.Name,
		},
		LineItems: lineItems(w.LineItems),
	}
}

type wireSchedule struct {
	Period            int      `json:"Period"`
	Unit              string   `json:"Unit"`
	StartDate         xeroDate `json:"StartDate"`
	NextScheduledDate xeroDate `json:"NextScheduledDate"`
	EndDate           xeroDate `json:"EndDate"`
}

type wireRepeatingInvoice struct {
	RepeatingInvoiceID string          `json:"RepeatingInvoiceID"`
	Type               string          `json:"Type"`
	Reference          string          `json:"Reference"`
	Contact            wireContact     `json:"Contact"`
	Status             string          `json:"Status"`
	Total              decimal.Decimal `json:"Total"`
	Schedule           wireSchedule    `json:"Schedule"`
}

func (w wireRepeatingInvoice) toDomain() domain.RepeatingDocument {
	return domain.RepeatingDocument{
		ID:        w.RepeatingInvoiceID,
		Type:      w.Type,
		Reference: w.Reference,
		Contact:   w.Contact.toDomain(),
		Status:    w.Status,
		Total:     w.Total,
		Schedule: domain.Schedule{
			Unit:              domain.ScheduleUnit(w.Schedule.Unit),
			Interval:          w.Schedule.Period,
			StartDate:         w.Schedule.StartDate.ptr(),
			NextScheduledDate: w.Schedule.NextScheduledDate.ptr(),
			EndDate:           w.Schedule.EndDate.ptr(),
		},
	}
}

type wireCell struct {
	Value string `json:"Value"`
}

type wireRow struct {
	RowType string     `json:"RowType"`
	Title   string     `json:"Title"`
	Cells   []wireCell `json:"Cells"`
	Rows    []wireRow  `json:"Rows"`
}

type wireReport struct {
	ReportName   string    `json:"ReportName"`
	ReportTitles []string  `json:"ReportTitles"`
	Rows         []wireRow `json:"Rows"`
}

type invoicesEnvelope struct {
	Invoices []wireInvoice `json:"Invoices"`
}

type bankTransactionsEnvelope struct {
	BankTransactions []wireBankTransaction `json:"BankTransactions"`
}

type repeatingEnvelope struct {
	RepeatingInvoices []wireRepeatingInvoice `json:"RepeatingInvoices"`
}

type reportsEnvelope struct {
	Reports []wireReport `json:"Reports"`
}
