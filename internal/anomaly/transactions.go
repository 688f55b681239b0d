// Package anomaly scans provider documents for statistical outliers and
// policy violations.
package anomaly

import (
	"fmt"
	"time"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/stats"
)

// Detection parameters.
const (
	AmountSigmas        = 3.0
	ExpenseSigmas       = 2.5
	MinExpenseSamples   = 3
	DuplicateWindowDays = 7
	DuplicateSimilarity = 0.7
	OverdueDays         = 60
	MarginDropPoints    = 5.0
)

// DetectTransactionAnomalies flags unusually large bank transactions and
// potential duplicates.
func DetectTransactionAnomalies(txs []domain.BankTransaction) []domain.Anomaly {
	if len(txs) == 0 {
		return nil
	}

	amounts := make([]float64, len(txs))
	for i, tx := range txs {
		amounts[i] = tx.Total.Abs().InexactFloat64()
	}
	mean := stats.Mean(amounts)
	sd := stats.StandardDeviation(amounts)
	threshold := mean + AmountSigmas*sd

	var anomalies []domain.Anomaly
	for i, tx := range txs {
		if amounts[i] <= threshold {
			continue
		}
		anomalies = append(anomalies, domain.Anomaly{
			Type:        domain.AnomalyUnusualTransactionAmount,
			Severity:    domain.SeverityMedium,
			Date:        formatDate(tx.Date),
			Description: fmt.Sprintf("Unusually large transaction: %s - $%.2f", label(tx), amounts[i]),
			Details: domain.OutlierDetails{
				DocumentID:  tx.ID,
				Reference:   tx.Reference,
				Contact:     tx.Contact.Name,
				Amount:      amounts[i],
				Mean:        mean,
				StdDev:      sd,
				Threshold:   threshold,
				Description: tx.Description,
			},
		})
	}

	return append(anomalies, DetectDuplicates(txs)...)
}

// DetectDuplicates groups transactions by amount in cents and links pairs
// dated within DuplicateWindowDays whose reference (or, failing that,
// description) is similar. Each connected group of two or more becomes one
// anomaly, so a transaction belongs to at most one cluster.
func DetectDuplicates(txs []domain.BankTransaction) []domain.Anomaly {
	groups := make(map[string][]int)
	var keys []string
	for i, tx := range txs {
		key := tx.Total.Abs().Round(2).StringFixed(2)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], i)
	}

	var anomalies []domain.Anomaly
	for _, key := range keys {
		members := groups[key]
		if len(members) < 2 {
			continue
		}

		uf := newUnionFind(len(members))
		for a := 0; a < len(members); a++ {
			for b := a + 1; b < len(members); b++ {
				if looksDuplicate(txs[members[a]], txs[members[b]]) {
					uf.union(a, b)
				}
			}
		}

		for _, cluster := range uf.groups() {
			if len(cluster) < 2 {
				continue
			}
			anomalies = append(anomalies, duplicateAnomaly(txs, members, cluster))
		}
	}
	return anomalies
}

func looksDuplicate(a, b domain.BankTransaction) bool {
	if absDays(a.Date, b.Date) > DuplicateWindowDays {
		return false
	}
	if a.Reference != "" && b.Reference != "" {
		return stats.StringSimilarity(a.Reference, b.Reference) > DuplicateSimilarity
	}
	if a.Description != "" && b.Description != "" {
		return stats.StringSimilarity(a.Description, b.Description) > DuplicateSimilarity
	}
	return false
}

func duplicateAnomaly(txs []domain.BankTransaction, members, cluster []int) domain.Anomaly {
	details := domain.DuplicateDetails{}
	var latest time.Time
	for _, c := range cluster {
		tx := txs[members[c]]
		details.TransactionIDs = append(details.TransactionIDs, tx.ID)
		details.References = append(details.References, tx.Reference)
		details.Dates = append(details.Dates, formatDate(tx.Date))
		if tx.Date.After(latest) {
			latest = tx.Date
		}
	}
	details.Amount = txs[members[cluster[0]]].Total.Abs().InexactFloat64()

	return domain.Anomaly{
		Type:     domain.AnomalyDuplicateTransaction,
		Severity: domain.SeverityHigh,
		Date:     formatDate(latest),
		Description: fmt.Sprintf("Potential duplicate transactions: %d transactions for $%.2f each",
			len(cluster), details.Amount),
		Details: details,
	}
}

func label(tx domain.BankTransaction) string {
	switch {
	case tx.Reference != "":
		return tx.Reference
	case tx.Description != "":
		return tx.Description
	}
	return "Unknown"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(domain.DateLayout)
}

// absDays is the whole-day distance between two calendar dates.
func absDays(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	d := int(da.Sub(db).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
}

// groups returns the components in order of their smallest member, each
// listing members in ascending order.
func (u *unionFind) groups() [][]int {
	index := make(map[int]int)
	var out [][]int
	for i := range u.parent {
		root := u.find(i)
		pos, ok := index[root]
		if !ok {
			pos = len(out)
			index[root] = pos
			out = append(out, nil)
		}
		out[pos] = append(out[pos], i)
	}
	return out
}
