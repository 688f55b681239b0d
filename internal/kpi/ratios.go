package kpi

import "github.com/boddenberg/cfo-assistant-go/internal/domain"

const daysPerYear = 365

// CalculateFinancialRatios extracts the raw figures from both reports and
// derives the ratio set.
func CalculateFinancialRatios(pl, bs *domain.Report, period domain.Period) domain.RatioAnalysis {
	data := ExtractFinancialData(pl, bs)
	return domain.RatioAnalysis{
		Ratios:  Ratios(data),
		RawData: data,
		Period:  period,
	}
}

// Ratios computes every ratio from d. A ratio whose denominator is zero is
// reported as 0.
func Ratios(d domain.FinancialData) domain.FinancialRatios {
	r := domain.FinancialRatios{
		GrossProfitMargin:      div(d.GrossProfit, d.Revenue) * 100,
		NetProfitMargin:        div(d.NetProfit, d.Revenue) * 100,
		ReturnOnAssets:         div(d.NetProfit, d.TotalAssets) * 100,
		ReturnOnEquity:         div(d.NetProfit, d.Equity) * 100,
		CurrentRatio:           div(d.CurrentAssets, d.CurrentLiabilities),
		QuickRatio:             div(d.CurrentAssets-d.Inventory, d.CurrentLiabilities),
		CashRatio:              div(d.Bank, d.CurrentLiabilities),
		AssetTurnover:          div(d.Revenue, d.TotalAssets),
		InventoryTurnover:      div(d.CostOfSales, d.Inventory),
		ReceivablesTurnover:    div(d.Revenue, d.AccountsReceivable),
		PayablesTurnover:       div(d.CostOfSales, d.AccountsPayable),
		DebtToEquity:           div(d.TotalLiabilities, d.Equity),
		DebtToAssets:           div(d.TotalLiabilities, d.TotalAssets),
		InterestCoverage:       div(d.NetProfit, d.InterestExpense),
		OperatingCashFlowRatio: div(d.OperatingCashFlow, d.CurrentLiabilities),
		DaysReceivables:        div(d.AccountsReceivable, d.Revenue) * daysPerYear,
		DaysPayables:           div(d.AccountsPayable, d.CostOfSales) * daysPerYear,
		DaysInventory:          div(d.Inventory, d.CostOfSales) * daysPerYear,
	}
	r.CashConversionCycle = r.DaysReceivables + r.DaysInventory - r.DaysPayables
	return r
}

func div(n, d float64) float64 {
	if d == 0 {
		return 0
	}
	return n / d
}
