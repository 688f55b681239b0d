package anomaly

import (
	"fmt"
	"math"
	"time"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/stats"
)

// DetectInvoiceAnomalies flags unusually large invoices and AUTHORISED
// invoices more than OverdueDays past due at asOf.
func DetectInvoiceAnomalies(invoices []domain.Invoice, asOf time.Time) []domain.Anomaly {
	if len(invoices) == 0 {
		return nil
	}

	totals := make([]float64, len(invoices))
	for i, inv := range invoices {
		totals[i] = inv.Total.InexactFloat64()
	}
	mean := stats.Mean(totals)
	sd := stats.StandardDeviation(totals)
	threshold := mean + AmountSigmas*sd

	var anomalies []domain.Anomaly
	for i, inv := range invoices {
		if totals[i] <= threshold {
			continue
		}
		anomalies = append(anomalies, domain.Anomaly{
			Type:        domain.AnomalyUnusualInvoiceAmount,
			Severity:    domain.SeverityMedium,
			Date:        formatDate(inv.Date),
			Description: fmt.Sprintf("Unusually large invoice: #%s - $%.2f", inv.Number, totals[i]),
			Details: domain.OutlierDetails{
				DocumentID: inv.ID,
				Reference:  inv.Number,
				Contact:    inv.Contact.Name,
				Amount:     totals[i],
				Mean:       mean,
				StdDev:     sd,
				Threshold:  threshold,
			},
		})
	}

	for _, inv := range invoices {
		if inv.Status != domain.DocumentStatusAuthorised || inv.DueDate == nil {
			continue
		}
		overdue := daysOverdue(*inv.DueDate, asOf)
		if overdue <= OverdueDays {
			continue
		}
		amountDue := inv.AmountDue.InexactFloat64()
		anomalies = append(anomalies, domain.Anomaly{
			Type:        domain.AnomalyLongOverdueInvoice,
			Severity:    domain.SeverityHigh,
			Date:        formatDate(*inv.DueDate),
			Description: fmt.Sprintf("Invoice #%s is %d days overdue - $%.2f", inv.Number, overdue, amountDue),
			Details: domain.OverdueDetails{
				InvoiceID:   inv.ID,
				Number:      inv.Number,
				Contact:     inv.Contact.Name,
				DueDate:     formatDate(*inv.DueDate),
				DaysOverdue: overdue,
				AmountDue:   amountDue,
			},
		})
	}
	return anomalies
}

func daysOverdue(due, asOf time.Time) int {
	due = time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	asOf = time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Floor(asOf.Sub(due).Hours() / 24))
}

type expenseAccount struct {
	code    string
	name    string
	amounts []float64
}

// DetectExpenseAnomalies groups bill line items by account code and flags
// accounts where any line exceeds mean + ExpenseSigmas standard deviations.
func DetectExpenseAnomalies(bills []domain.Invoice, period domain.Period) []domain.Anomaly {
	accounts := make(map[string]*expenseAccount)
	var order []string
	for _, bill := range bills {
		for _, line := range bill.LineItems {
			if line.AccountCode == "" {
				continue
			}
			acc, ok := accounts[line.AccountCode]
			if !ok {
				acc = &expenseAccount{code: line.AccountCode, name: line.AccountName}
				accounts[line.AccountCode] = acc
				order = append(order, line.AccountCode)
			}
			acc.amounts = append(acc.amounts, line.LineAmount.InexactFloat64())
		}
	}

	var anomalies []domain.Anomaly
	for _, code := range order {
		acc := accounts[code]
		if len(acc.amounts) < MinExpenseSamples {
			continue
		}
		mean := stats.Mean(acc.amounts)
		threshold := mean + ExpenseSigmas*stats.StandardDeviation(acc.amounts)

		unusual := 0
		for _, a := range acc.amounts {
			if a > threshold {
				unusual++
			}
		}
		if unusual == 0 {
			continue
		}

		name := acc.name
		if name == "" {
			name = "account"
		}
		p := period
		anomalies = append(anomalies, domain.Anomaly{
			Type:        domain.AnomalyUnusualExpensePattern,
			Severity:    domain.SeverityMedium,
			Period:      &p,
			Description: fmt.Sprintf("Unusual spending in %s (%s)", name, acc.code),
			Details: domain.ExpenseDetails{
				AccountCode:     acc.code,
				AccountName:     acc.name,
				AverageAmount:   mean,
				Threshold:       threshold,
				UnusualExpenses: unusual,
				TotalExpenses:   len(acc.amounts),
			},
		})
	}
	return anomalies
}
