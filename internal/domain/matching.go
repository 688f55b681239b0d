package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchCandidate is a ranked, ephemeral suggestion linking a bank record to
// an outstanding document. Confidence is in [0, 100].
type MatchCandidate struct {
	DocumentID   string          `json:"documentId"`
	DocumentType DocumentType    `json:"documentType"`
	Number       string          `json:"number,omitempty"`
	Reference    string          `json:"reference,omitempty"`
	Contact      string          `json:"contact,omitempty"`
	Date         time.Time       `json:"date"`
	DueDate      *time.Time      `json:"dueDate,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	AmountDue    decimal.Decimal `json:"amountDue"`
	Confidence   int             `json:"confidence"`
}

type MatchResult struct {
	TransactionID string           `json:"transactionId"`
	Invoices      []MatchCandidate `json:"invoices"`
	Bills         []MatchCandidate `json:"bills"`
}

// ReconcileRequest links one record to one document.
type ReconcileRequest struct {
	TransactionID string       `json:"transactionId"`
	DocumentID    string       `json:"documentId"`
	DocumentType  DocumentType `json:"documentType"`
}
