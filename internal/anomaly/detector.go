package anomaly

import (
	"time"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

// Sources is the document set one scan runs over. A nil ProfitAndLoss
// skips margin analysis.
type Sources struct {
	Transactions  []domain.BankTransaction
	Invoices      []domain.Invoice
	Bills         []domain.Invoice
	ProfitAndLoss *domain.Report
	Period        domain.Period
	AsOf          time.Time
}

// Detect runs every sub-detector and returns the merged findings in
// severity order.
func Detect(src Sources) []domain.Anomaly {
	var out []domain.Anomaly
	out = append(out, DetectTransactionAnomalies(src.Transactions)...)
	out = append(out, DetectInvoiceAnomalies(src.Invoices, src.AsOf)...)
	out = append(out, DetectExpenseAnomalies(src.Bills, src.Period)...)
	if src.ProfitAndLoss != nil {
		out = append(out, DetectMarginDeclines(src.ProfitAndLoss)...)
	}
	Sort(out)
	if out == nil {
		out = []domain.Anomaly{}
	}
	return out
}
