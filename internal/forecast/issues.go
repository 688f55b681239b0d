package forecast

import (
	"fmt"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

// Default issue thresholds.
const (
	DefaultLowBalanceThreshold         = 5000.0
	DefaultSignificantOutflowThreshold = 10000.0
)

// Thresholds configures DetectIssues. Zero values take the defaults.
type Thresholds struct {
	LowBalance         float64
	SignificantOutflow float64
}

func (t Thresholds) withDefaults() Thresholds {
	if t.LowBalance <= 0 {
		t.LowBalance = DefaultLowBalanceThreshold
	}
	if t.SignificantOutflow <= 0 {
		t.SignificantOutflow = DefaultSignificantOutflowThreshold
	}
	return t
}

// DetectIssues flags liquidity problems in a timeline.
func DetectIssues(tl *domain.ForecastTimeline, th Thresholds) *domain.CashFlowIssueReport {
	th = th.withDefaults()
	issues := []domain.CashFlowIssue{}

	negative := false
	for _, d := range tl.Daily {
		if d.RunningBalance < 0 {
			negative = true
			issues = append(issues, domain.CashFlowIssue{
				Type:        domain.IssueNegativeBalance,
				Severity:    domain.SeverityHigh,
				Date:        d.Date,
				Amount:      d.RunningBalance,
				Description: fmt.Sprintf("Projected negative cash balance of %.2f on %s", d.RunningBalance, d.Date),
				Recommendations: []string{
					"Accelerate customer payments",
					"Delay non-essential expenses",
					"Consider short-term financing options",
				},
			})
			break
		}
	}

	if !negative {
		for _, d := range tl.Daily {
			if d.RunningBalance >= 0 && d.RunningBalance < th.LowBalance {
				issues = append(issues, domain.CashFlowIssue{
					Type:        domain.IssueLowBalance,
					Severity:    domain.SeverityMedium,
					Date:        d.Date,
					Amount:      d.RunningBalance,
					Description: fmt.Sprintf("Projected low cash balance of %.2f on %s", d.RunningBalance, d.Date),
					Recommendations: []string{
						"Review upcoming expenses",
						"Prioritize customer collections",
						"Prepare contingency plans",
					},
				})
				break
			}
		}
	}

	for _, d := range tl.Daily {
		if d.TotalOutflow <= th.SignificantOutflow {
			continue
		}
		issues = append(issues, domain.CashFlowIssue{
			Type:        domain.IssueSignificantOutflow,
			Severity:    domain.SeverityMedium,
			Date:        d.Date,
			Amount:      d.TotalOutflow,
			Description: fmt.Sprintf("Significant cash outflow of %.2f on %s", d.TotalOutflow, d.Date),
			Items:       d.Outflows,
			Recommendations: []string{
				"Verify all large payments are necessary",
				"Consider renegotiating payment terms",
				"Ensure sufficient funds are available",
			},
		})
	}

	trend := WeeklyTrend(tl.Weekly)
	if trend == domain.TrendDeclining {
		issues = append(issues, domain.CashFlowIssue{
			Type:        domain.IssueDecliningCashFlow,
			Severity:    domain.SeverityMedium,
			Description: "Cash flow is projected to decline over the forecast period",
			Recommendations: []string{
				"Review pricing strategy",
				"Identify cost-saving opportunities",
				"Develop new revenue streams",
			},
		})
	}

	return &domain.CashFlowIssueReport{
		Issues:          issues,
		WeeklyTrend:     trend,
		StartDate:       tl.StartDate,
		EndDate:         tl.EndDate,
		StartingBalance: tl.StartingBalance,
		Summary:         tl.Summary,
	}
}

// WeeklyTrend compares week-over-week net cash flow. A direction wins when
// it occurs more than twice as often as the other.
func WeeklyTrend(weeks []domain.PeriodForecast) domain.Trend {
	if len(weeks) < 2 {
		return domain.TrendStable
	}
	var up, down int
	for i := 1; i < len(weeks); i++ {
		change := weeks[i].NetCashFlow - weeks[i-1].NetCashFlow
		switch {
		case change > 0:
			up++
		case change < 0:
			down++
		}
	}
	switch {
	case up > down*2:
		return domain.TrendImproving
	case down > up*2:
		return domain.TrendDeclining
	}
	return domain.TrendStable
}
