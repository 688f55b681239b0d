package anomaly

import (
	"sort"
	"time"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

// Sort orders anomalies by severity, then most recent first. An anomaly
// without a date is placed by its period end when that parses as a date.
func Sort(anomalies []domain.Anomaly) {
	sort.SliceStable(anomalies, func(i, j int) bool {
		ri, rj := anomalies[i].Severity.Rank(), anomalies[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return sortKey(anomalies[i]).After(sortKey(anomalies[j]))
	})
}

func sortKey(a domain.Anomaly) time.Time {
	if t, err := time.Parse(domain.DateLayout, a.Date); err == nil {
		return t
	}
	if a.Period != nil {
		if t, err := time.Parse(domain.DateLayout, a.Period.To); err == nil {
			return t
		}
	}
	return time.Time{}
}
