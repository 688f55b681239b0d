package anomaly

import (
	"fmt"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

// BuildReport summarises anomalies by severity and type and attaches
// remediation guidance for the categories present.
func BuildReport(anomalies []domain.Anomaly, period domain.Period) domain.AnomalyReport {
	summary := domain.AnomalySummary{Total: len(anomalies), ByType: []domain.AnomalyTypeCount{}}
	index := make(map[domain.AnomalyType]int)
	counts := make(map[domain.AnomalyType]int)

	for _, a := range anomalies {
		switch a.Severity {
		case domain.SeverityHigh:
			summary.High++
		case domain.SeverityMedium:
			summary.Medium++
		case domain.SeverityLow:
			summary.Low++
		}

		pos, ok := index[a.Type]
		if !ok {
			pos = len(summary.ByType)
			index[a.Type] = pos
			summary.ByType = append(summary.ByType, domain.AnomalyTypeCount{Type: a.Type})
		}
		summary.ByType[pos].Count++
		if a.Severity == domain.SeverityHigh {
			summary.ByType[pos].HighSeverity++
		}
		counts[a.Type]++
	}

	if anomalies == nil {
		anomalies = []domain.Anomaly{}
	}
	return domain.AnomalyReport{
		Summary:         summary,
		Anomalies:       anomalies,
		Recommendations: recommendations(counts),
		Period:          period,
	}
}

func recommendations(counts map[domain.AnomalyType]int) []domain.AnomalyRecommendation {
	recs := []domain.AnomalyRecommendation{}

	if n := counts[domain.AnomalyDuplicateTransaction]; n > 0 {
		recs = append(recs, domain.AnomalyRecommendation{
			Priority:       domain.SeverityHigh,
			Recommendation: "Review potential duplicate transactions",
			Description: fmt.Sprintf("Found %d potential duplicate transactions. "+
				"Review these transactions and contact your bank if necessary.", n),
			ActionItems: []string{
				"Compare transaction details for similarities",
				"Check bank statements for confirmation",
				"Request refunds for any confirmed duplicates",
			},
		})
	}

	if n := counts[domain.AnomalyLongOverdueInvoice]; n > 0 {
		recs = append(recs, domain.AnomalyRecommendation{
			Priority:       domain.SeverityHigh,
			Recommendation: "Address long overdue invoices",
			Description: fmt.Sprintf("Found %d invoices that are significantly overdue. "+
				"Take immediate action to collect these payments.", n),
			ActionItems: []string{
				"Contact customers with overdue invoices",
				"Consider offering payment plans",
				"Review credit terms for these customers",
				"Implement stricter credit control procedures",
			},
		})
	}

	if counts[domain.AnomalyGrossMarginDecline]+counts[domain.AnomalyNetMarginDecline] > 0 {
		recs = append(recs, domain.AnomalyRecommendation{
			Priority:       domain.SeverityHigh,
			Recommendation: "Investigate profit margin decline",
			Description:    "Significant decline in profit margins detected. Review pricing strategy and cost structure.",
			ActionItems: []string{
				"Analyze cost of goods sold for increases",
				"Review pricing strategy",
				"Identify specific products or services with margin erosion",
				"Evaluate supplier contracts and negotiate better terms",
			},
		})
	}

	if n := counts[domain.AnomalyUnusualExpensePattern]; n > 0 {
		recs = append(recs, domain.AnomalyRecommendation{
			Priority:       domain.SeverityMedium,
			Recommendation: "Review unusual expense patterns",
			Description: fmt.Sprintf("Found unusual spending patterns in %d expense categories. "+
				"Review these expenses for potential issues.", n),
			ActionItems: []string{
				"Audit expense categories with unusual patterns",
				"Implement approval processes for large expenses",
				"Review vendor contracts in affected categories",
				"Consider setting budget alerts for these categories",
			},
		})
	}

	return recs
}
