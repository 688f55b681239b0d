package kpi

import "github.com/boddenberg/cfo-assistant-go/internal/domain"

// DefaultKPIMonths is the look-back used when no period is given.
const DefaultKPIMonths = 3

// CalculateKPIs combines the health score with revenue figures from
// receivable invoices and expense figures from bills.
func CalculateKPIs(health domain.BusinessHealth, invoices, bills []domain.Invoice, period domain.Period) domain.KPIReport {
	var revenue domain.RevenueKPIs
	for _, inv := range invoices {
		if inv.Type != "" && inv.Type != domain.InvoiceTypeReceivable {
			continue
		}
		total := inv.Total.InexactFloat64()
		revenue.TotalRevenue += total
		revenue.InvoiceCount++
		if inv.Status == domain.DocumentStatusPaid {
			revenue.PaidRevenue += total
		}
	}
	revenue.UnpaidRevenue = revenue.TotalRevenue - revenue.PaidRevenue
	if revenue.TotalRevenue > 0 {
		revenue.CollectionRate = revenue.PaidRevenue / revenue.TotalRevenue * 100
	}
	if revenue.InvoiceCount > 0 {
		revenue.AvgInvoiceValue = revenue.TotalRevenue / float64(revenue.InvoiceCount)
	}

	var expenses domain.ExpenseKPIs
	for _, b := range bills {
		expenses.TotalExpenses += b.Total.InexactFloat64()
		expenses.BillCount++
	}
	if revenue.TotalRevenue > 0 {
		expenses.ExpenseToRevenueRatio = expenses.TotalExpenses / revenue.TotalRevenue * 100
	}

	health.Period = period
	return domain.KPIReport{
		Financial:       health.Ratios,
		Revenue:         revenue,
		Expenses:        expenses,
		Health:          health,
		Recommendations: health.Recommendations,
		Period:          period,
	}
}
