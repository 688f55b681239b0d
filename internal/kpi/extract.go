// Package kpi derives financial ratios, a composite business health score
// and revenue and expense KPIs from provider reports and documents.
package kpi

import (
	"strconv"
	"strings"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

// Report line labels read by ExtractFinancialData.
const (
	LabelRevenue            = "Revenue"
	LabelCostOfSales        = "Cost of Sales"
	LabelGrossProfit        = "Gross Profit"
	LabelTotalExpenses      = "Total Expenses"
	LabelNetProfit          = "Net Profit"
	LabelInterestExpense    = "Interest Expense"
	LabelOperatingCashFlow  = "Operating Cash Flow"
	LabelCurrentAssets      = "Total Current Assets"
	LabelTotalAssets        = "Total Assets"
	LabelCurrentLiabilities = "Total Current Liabilities"
	LabelTotalLiabilities   = "Total Liabilities"
	LabelEquity             = "Total Equity"
	LabelBank               = "Bank"
	LabelAccountsReceivable = "Accounts Receivable"
	LabelAccountsPayable    = "Accounts Payable"
	LabelInventory          = "Inventory"
)

// ExtractFromReport returns the last cell of the row labelled label, or 0
// when the row is missing or its value does not parse.
func ExtractFromReport(r *domain.Report, label string) float64 {
	row, ok := r.FindRow(label)
	if !ok || len(row.Cells) < 2 {
		return 0
	}
	raw := strings.ReplaceAll(strings.TrimSpace(row.Cells[len(row.Cells)-1].Value), ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

// ExtractFinancialData pulls the ratio inputs from a profit-and-loss report
// and a balance sheet. Either report may be nil.
func ExtractFinancialData(pl, bs *domain.Report) domain.FinancialData {
	return domain.FinancialData{
		Revenue:            ExtractFromReport(pl, LabelRevenue),
		CostOfSales:        ExtractFromReport(pl, LabelCostOfSales),
		GrossProfit:        ExtractFromReport(pl, LabelGrossProfit),
		Expenses:           ExtractFromReport(pl, LabelTotalExpenses),
		NetProfit:          ExtractFromReport(pl, LabelNetProfit),
		InterestExpense:    ExtractFromReport(pl, LabelInterestExpense),
		OperatingCashFlow:  ExtractFromReport(pl, LabelOperatingCashFlow),
		CurrentAssets:      ExtractFromReport(bs, LabelCurrentAssets),
		TotalAssets:        ExtractFromReport(bs, LabelTotalAssets),
		CurrentLiabilities: ExtractFromReport(bs, LabelCurrentLiabilities),
		TotalLiabilities:   ExtractFromReport(bs, LabelTotalLiabilities),
		Equity:             ExtractFromReport(bs, LabelEquity),
		Bank:               ExtractFromReport(bs, LabelBank),
		AccountsReceivable: ExtractFromReport(bs, LabelAccountsReceivable),
		AccountsPayable:    ExtractFromReport(bs, LabelAccountsPayable),
		Inventory:          ExtractFromReport(bs, LabelInventory),
	}
}
