package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used in every derived output.
const DateLayout = "2006-01-02"

type TransactionType string

const (
	TransactionTypeBank       TransactionType = "BANK"
	TransactionTypeInvoice    TransactionType = "INVOICE"
	TransactionTypeBill       TransactionType = "BILL"
	TransactionTypePayment    TransactionType = "PAYMENT"
	TransactionTypeCreditNote TransactionType = "CREDIT_NOTE"
	TransactionTypeManual     TransactionType = "MANUAL"
)

type TransactionStatus string

const (
	TransactionStatusPending     TransactionStatus = "PENDING"
	TransactionStatusCategorized TransactionStatus = "CATEGORIZED"
	TransactionStatusReconciled  TransactionStatus = "RECONCILED"
	TransactionStatusVoided      TransactionStatus = "VOIDED"
)

// Metadata keys written by the categorization and reconciliation flows.
const (
	MetaCategorization = "categorization"
	MetaReconciliation = "reconciliation"
)

// TransactionRecord is the local copy of a provider document. Records are
// upserted by (UserID, TenantID, ExternalID, Type) and never hard-deleted.
type TransactionRecord struct {
	ID                 string            `json:"id"`
	UserID             string            `json:"userId"`
	TenantID           string            `json:"tenantId"`
	ExternalID         string            `json:"externalId"`
	Type               TransactionType   `json:"type"`
	Date               time.Time         `json:"date"`
	Amount             decimal.Decimal   `json:"amount"`
	Description        string            `json:"description,omitempty"`
	Reference          string            `json:"reference,omitempty"`
	ContactID          string            `json:"contactId,omitempty"`
	ContactName        string            `json:"contactName,omitempty"`
	AccountID          string            `json:"accountId,omitempty"`
	AccountCode        string            `json:"accountCode,omitempty"`
	AccountName        string            `json:"accountName,omitempty"`
	CategoryID         *string           `json:"categoryId"`
	Status             TransactionStatus `json:"status"`
	IsReconciled       bool              `json:"isReconciled"`
	ReconciliationDate *time.Time        `json:"reconciliationDate,omitempty"`
	Metadata           Metadata          `json:"metadata,omitempty"`
	LastSyncedAt       *time.Time        `json:"lastSyncedAt,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// SetMeta stores an annotation, allocating the map on first use.
func (t *TransactionRecord) SetMeta(key string, v Value) {
	if t.Metadata == nil {
		t.Metadata = Metadata{}
	}
	t.Metadata[key] = v
}

// Categorize assigns a category and records how it was chosen.
func (t *TransactionRecord) Categorize(categoryID string, annotation map[string]Value) {
	id := categoryID
	t.CategoryID = &id
	if t.Status != TransactionStatusReconciled {
		t.Status = TransactionStatusCategorized
	}
	t.SetMeta(MetaCategorization, MapValue(annotation))
}

// MarkReconciled links the record to a provider document. It keeps
// IsReconciled, Status and ReconciliationDate consistent.
func (t *TransactionRecord) MarkReconciled(documentID string, documentType DocumentType, at time.Time) {
	at = at.UTC()
	t.IsReconciled = true
	t.Status = TransactionStatusReconciled
	t.ReconciliationDate = &at
	t.SetMeta(MetaReconciliation, MapValue(map[string]Value{
		"documentId":   StringValue(documentID),
		"documentType": StringValue(string(documentType)),
		"date":         StringValue(at.Format(time.RFC3339)),
	}))
}

// TransactionFilter selects records in the TransactionStore. Zero-valued
// fields are ignored.
type TransactionFilter struct {
	ID              string
	UserID          string
	TenantID        string
	ExternalID      string
	Type            TransactionType
	Status          TransactionStatus
	ExcludeStatuses []TransactionStatus
	CategoryID      string
	Uncategorized   bool
	IsReconciled    *bool
	From            *time.Time
	To              *time.Time
	Limit           int
}

// CategorizationStats summarises how many records carry a category.
type CategorizationStats struct {
	Total              int64   `json:"total"`
	Categorized        int64   `json:"categorized"`
	Uncategorized      int64   `json:"uncategorized"`
	CategorizationRate float64 `json:"categorizationRate"`
}

// ReconciliationStats summarises how many bank records are reconciled.
type ReconciliationStats struct {
	Total              int64   `json:"total"`
	Reconciled         int64   `json:"reconciled"`
	Unreconciled       int64   `json:"unreconciled"`
	ReconciliationRate float64 `json:"reconciliationRate"`
}
