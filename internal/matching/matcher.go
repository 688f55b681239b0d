// Package matching scores outstanding invoices and bills against a bank
// transaction for reconciliation.
package matching

import (
	"sort"
	"strings"
	"time"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Score weights. The total is capped at MaxConfidence.
const (
	AmountScore    = 50
	ContactScore   = 20
	ReferenceScore = 15
	NumberScore    = 15
	MaxDateScore   = 10
	DateWindowDays = 7
	MaxConfidence  = 100
)

// Tolerance is the absolute difference under which two amounts match.
var Tolerance = decimal.NewFromFloat(0.01)

// SearchSide picks the document type to search: outflows match bills,
// everything else matches invoices.
func SearchSide(amount decimal.Decimal) domain.DocumentType {
	if amount.IsNegative() {
		return domain.DocumentTypeBill
	}
	return domain.DocumentTypeInvoice
}

// AmountWindow returns [|amount| - Tolerance, |amount| + Tolerance].
func AmountWindow(amount decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	abs := amount.Abs()
	return abs.Sub(Tolerance), abs.Add(Tolerance)
}

// Confidence scores how likely doc settles tx, in [0, 100].
func Confidence(tx *domain.TransactionRecord, doc domain.Invoice) int {
	score := 0

	if tx.Amount.Abs().Sub(doc.OutstandingAmount().Abs()).Abs().LessThan(Tolerance) {
		score += AmountScore
	}

	if tx.ContactName != "" && doc.Contact.Name != "" &&
		strings.EqualFold(tx.ContactName, doc.Contact.Name) {
		score += ContactScore
	}

	if doc.Reference != "" && strings.Contains(tx.Reference, doc.Reference) {
		score += ReferenceScore
	}

	if doc.Number != "" && strings.Contains(tx.Description, doc.Number) {
		score += NumberScore
	}

	if !tx.Date.IsZero() && !doc.Date.IsZero() {
		if diff := daysBetween(tx.Date, doc.Date); diff <= DateWindowDays {
			score += MaxDateScore - diff
		}
	}

	return max(0, min(score, MaxConfidence))
}

// Rank builds candidates for docs and sorts them by descending confidence.
// Ties keep the provider order.
func Rank(tx *domain.TransactionRecord, docs []domain.Invoice) []domain.MatchCandidate {
	candidates := make([]domain.MatchCandidate, 0, len(docs))
	for _, doc := range docs {
		candidates = append(candidates, domain.MatchCandidate{
			DocumentID:   doc.ID,
			DocumentType: doc.DocumentType(),
			Number:       doc.Number,
			Reference:    doc.Reference,
			Contact:      doc.Contact.Name,
			Date:         doc.Date,
			DueDate:      doc.DueDate,
			Amount:       doc.Total,
			AmountDue:    doc.AmountDue,
			Confidence:   Confidence(tx, doc),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates
}

// daysBetween counts whole calendar days between a and b, ignoring order
// and time of day.
func daysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	d := int(da.Sub(db).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}
