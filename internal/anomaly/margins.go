package anomaly

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

// Report row labels read by the margin detector.
const (
	rowRevenue     = "Revenue"
	rowGrossProfit = "Gross Profit"
	rowNetProfit   = "Net Profit"
)

// DetectMarginDeclines compares consecutive columns of a multi-period
// profit-and-loss report and flags gross or net margin drops of more than
// MarginDropPoints percentage points from a positive prior margin.
// Period columns are expected oldest first. The first cell of each row is
// its label; a trailing column is skipped as the total unless its header
// is a period.
func DetectMarginDeclines(pl *domain.Report) []domain.Anomaly {
	revenue, okRev := pl.FindRow(rowRevenue)
	gross, okGross := pl.FindRow(rowGrossProfit)
	net, okNet := pl.FindRow(rowNetProfit)
	if !okRev || !okGross || !okNet {
		return nil
	}

	periods := len(revenue.Cells) - 1
	if hasTotalColumn(pl, len(revenue.Cells)-1) {
		periods--
	}
	if periods < 2 {
		return nil
	}

	var anomalies []domain.Anomaly
	for i := 2; i <= periods; i++ {
		prevRev, curRev := cellFloat(revenue, i-1), cellFloat(revenue, i)
		prevLabel, curLabel := columnLabel(pl, i-1), columnLabel(pl, i)

		check := func(row *domain.ReportRow, typ domain.AnomalyType, kind string) {
			prev := margin(cellFloat(row, i-1), prevRev)
			cur := margin(cellFloat(row, i), curRev)
			change := cur - prev
			if change >= -MarginDropPoints || prev <= 0 {
				return
			}
			anomalies = append(anomalies, domain.Anomaly{
				Type:     typ,
				Severity: domain.SeverityHigh,
				Period:   &domain.Period{From: prevLabel, To: curLabel},
				Description: fmt.Sprintf("%s profit margin declined from %.1f%% to %.1f%%",
					kind, prev, cur),
				Details: domain.MarginDetails{
					CurrentPeriod:   curLabel,
					PreviousPeriod:  prevLabel,
					CurrentMargin:   cur,
					PreviousMargin:  prev,
					Change:          change,
					CurrentRevenue:  curRev,
					PreviousRevenue: prevRev,
				},
			})
		}

		check(gross, domain.AnomalyGrossMarginDecline, "Gross")
		check(net, domain.AnomalyNetMarginDecline, "Net")
	}
	return anomalies
}

// periodLayouts are the column headings the provider uses for periods.
var periodLayouts = []string{"Jan 2006", "Jan 06", "2 Jan 2006", "2 Jan 06", domain.DateLayout}

// hasTotalColumn reports whether column last holds the totals. Reports
// without headers are assumed to carry one.
func hasTotalColumn(pl *domain.Report, last int) bool {
	label := strings.TrimSpace(columnLabel(pl, last))
	if label == "" {
		return true
	}
	for _, layout := range periodLayouts {
		if _, err := time.Parse(layout, label); err == nil {
			return false
		}
	}
	return true
}

func margin(profit, revenue float64) float64 {
	if revenue == 0 {
		return 0
	}
	return profit / revenue * 100
}

func cellFloat(row *domain.ReportRow, i int) float64 {
	if i >= len(row.Cells) {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(row.Cells[i].Value, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

func columnLabel(r *domain.Report, i int) string {
	if i < len(r.Columns) {
		return r.Columns[i].Value
	}
	return ""
}
