package kpi

import (
	"math"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

// Component weights in the overall score.
const (
	WeightProfitability = 0.30
	WeightLiquidity     = 0.25
	WeightEfficiency    = 0.20
	WeightSolvency      = 0.15
	WeightGrowth        = 0.10

	// GrowthScore stands in until period-over-period trend data is scored.
	GrowthScore = 50.0
)

func profitabilityMetrics(r domain.FinancialRatios) []Metric {
	return []Metric{
		{Value: r.GrossProfitMargin, Weight: 0.3, Min: 0, Max: 80},
		{Value: r.NetProfitMargin, Weight: 0.4, Min: -10, Max: 30},
		{Value: r.ReturnOnAssets, Weight: 0.15, Min: 0, Max: 15},
		{Value: r.ReturnOnEquity, Weight: 0.15, Min: 0, Max: 30},
	}
}

func liquidityMetrics(r domain.FinancialRatios) []Metric {
	return []Metric{
		{Value: r.CurrentRatio, Weight: 0.4, Min: 0.5, Max: 3},
		{Value: r.QuickRatio, Weight: 0.4, Min: 0.3, Max: 2},
		{Value: r.CashRatio, Weight: 0.2, Min: 0.1, Max: 1},
	}
}

func efficiencyMetrics(r domain.FinancialRatios) []Metric {
	return []Metric{
		{Value: r.AssetTurnover, Weight: 0.2, Min: 0.5, Max: 4},
		{Value: r.InventoryTurnover, Weight: 0.2, Min: 2, Max: 12},
		{Value: r.DaysReceivables, Weight: 0.3, Min: 90, Max: 0, Inverse: true},
		{Value: r.DaysPayables, Weight: 0.3, Min: 15, Max: 60},
	}
}

func solvencyMetrics(r domain.FinancialRatios) []Metric {
	return []Metric{
		{Value: r.DebtToEquity, Weight: 0.4, Min: 3, Max: 0, Inverse: true},
		{Value: r.DebtToAssets, Weight: 0.4, Min: 1, Max: 0, Inverse: true},
		{Value: r.InterestCoverage, Weight: 0.2, Min: 1, Max: 10},
	}
}

// BusinessHealthScore scores the ratios per component against fixed
// benchmarks, combines them into an overall score and tier and attaches
// recommendations for weak areas. Scores are reported rounded; the tier
// uses the unrounded overall score.
func BusinessHealthScore(r domain.FinancialRatios) domain.BusinessHealth {
	components := domain.ComponentScores{
		Profitability: WeightedScore(profitabilityMetrics(r)),
		Liquidity:     WeightedScore(liquidityMetrics(r)),
		Efficiency:    WeightedScore(efficiencyMetrics(r)),
		Solvency:      WeightedScore(solvencyMetrics(r)),
		Growth:        GrowthScore,
	}

	overall := components.Profitability*WeightProfitability +
		components.Liquidity*WeightLiquidity +
		components.Efficiency*WeightEfficiency +
		components.Solvency*WeightSolvency +
		components.Growth*WeightGrowth

	recs := Recommendations(components, r)

	return domain.BusinessHealth{
		OverallScore: math.Round(overall),
		Status:       Tier(overall),
		Components: domain.ComponentScores{
			Profitability: math.Round(components.Profitability),
			Liquidity:     math.Round(components.Liquidity),
			Efficiency:    math.Round(components.Efficiency),
			Solvency:      math.Round(components.Solvency),
			Growth:        math.Round(components.Growth),
		},
		Ratios:          r,
		Recommendations: recs,
	}
}

// Tier maps an overall score to its status band.
func Tier(score float64) domain.HealthStatusTier {
	switch {
	case score >= 80:
		return domain.HealthExcellent
	case score >= 65:
		return domain.HealthGood
	case score >= 50:
		return domain.HealthFair
	case score >= 35:
		return domain.HealthConcerning
	}
	return domain.HealthCritical
}

// Recommendations returns guidance for each weak component whose
// contributing ratio crosses its trigger.
func Recommendations(c domain.ComponentScores, r domain.FinancialRatios) []domain.HealthRecommendation {
	recs := []domain.HealthRecommendation{}
	add := func(category, issue, text string) {
		recs = append(recs, domain.HealthRecommendation{Category: category, Issue: issue, Recommendation: text})
	}

	if c.Profitability < 40 {
		if r.GrossProfitMargin < 20 {
			add("Profitability", "Low gross profit margin",
				"Review pricing strategy and cost of goods sold. Consider increasing prices or negotiating better terms with suppliers.")
		}
		if r.NetProfitMargin < 5 {
			add("Profitability", "Low net profit margin",
				"Analyze operating expenses and identify areas for cost reduction. Focus on improving operational efficiency.")
		}
	}

	if c.Liquidity < 50 {
		if r.CurrentRatio < 1.2 {
			add("Liquidity", "Low current ratio",
				"Improve working capital management. Consider extending payment terms with suppliers, accelerating customer payments, or reducing inventory levels.")
		}
		if r.QuickRatio < 0.8 {
			add("Liquidity", "Low quick ratio",
				"Focus on improving cash position. Consider invoice factoring, reducing credit terms for customers, or establishing a line of credit.")
		}
	}

	if c.Efficiency < 50 {
		if r.DaysReceivables > 45 {
			add("Efficiency", "High days sales outstanding",
				"Improve accounts receivable management. Implement stricter credit policies, offer early payment discounts, or follow up on overdue invoices more aggressively.")
		}
		if r.DaysInventory > 60 {
			add("Efficiency", "High inventory days",
				"Optimize inventory management. Implement just-in-time inventory practices, identify slow-moving items, or consider drop-shipping for certain products.")
		}
	}

	if c.Solvency < 50 {
		if r.DebtToEquity > 2 {
			add("Solvency", "High debt-to-equity ratio",
				"Reduce debt levels. Consider debt consolidation, equity financing, or selling non-essential assets to pay down debt.")
		}
		if r.InterestCoverage < 2 {
			add("Solvency", "Low interest coverage ratio",
				"Improve ability to service debt. Focus on increasing operating income or refinancing debt at lower interest rates.")
		}
	}

	if r.CashConversionCycle > 60 {
		add("Cash Flow", "Long cash conversion cycle",
			"Optimize working capital cycle. Reduce inventory holding period, accelerate customer payments, and negotiate better terms with suppliers.")
	}

	return recs
}
