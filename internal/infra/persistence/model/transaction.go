// Package model defines the gorm models backing the stores.
package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

// TransactionModel represents the transactions table. A record is unique per
// (user_id, tenant_id, external_id, type).
type TransactionModel struct {
	ID                 string          `gorm:"type:varchar(36);primaryKey"`
	UserID             string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_transactions_external,priority:1"`
	TenantID           string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_transactions_external,priority:2"`
	ExternalID         string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_transactions_external,priority:3"`
	Type               string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_transactions_external,priority:4"`
	Date               time.Time       `gorm:"not null;index"`
	Amount             decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Description        string          `gorm:"type:text"`
	Reference          string          `gorm:"type:varchar(255)"`
	ContactID          string          `gorm:"type:varchar(64)"`
	ContactName        string          `gorm:"type:varchar(255)"`
	AccountID          string          `gorm:"type:varchar(64)"`
	AccountCode        string          `gorm:"type:varchar(32)"`
	AccountName        string          `gorm:"type:varchar(255)"`
	CategoryID         *string         `gorm:"type:varchar(36);index"`
	Status             string          `gorm:"type:varchar(20);not null;index"`
	IsReconciled       bool            `gorm:"not null"`
	ReconciliationDate *time.Time
	Metadata           domain.Metadata `gorm:"serializer:json"`
	LastSyncedAt       *time.Time
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

func (TransactionModel) TableName() string {
	return "transactions"
}

// ToEntity converts the model to a domain record.
func (m *TransactionModel) ToEntity() domain.TransactionRecord {
	return domain.TransactionRecord{
		ID:                 m.ID,
		UserID:             m.UserID,
		TenantID:           m.TenantID,
		ExternalID:         m.ExternalID,
		Type:               domain.TransactionType(m.Type),
		Date:               m.Date.UTC(),
		Amount:             m.Amount,
		Description:        m.Description,
		Reference:          m.Reference,
		ContactID:          m.ContactID,
		ContactName:        m.ContactName,
		AccountID:          m.AccountID,
		AccountCode:        m.AccountCode,
		AccountName:        m.AccountName,
		CategoryID:         m.CategoryID,
		Status:             domain.TransactionStatus(m.Status),
		IsReconciled:       m.IsReconciled,
		ReconciliationDate: utcPtr(m.ReconciliationDate),
		Metadata:           m.Metadata,
		LastSyncedAt:       utcPtr(m.LastSyncedAt),
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
	}
}

// TransactionFromEntity creates a model from a domain record.
func TransactionFromEntity(t *domain.TransactionRecord) *TransactionModel {
	return &TransactionModel{
		ID:                 t.ID,
		UserID:             t.UserID,
		TenantID:           t.TenantID,
		ExternalID:         t.ExternalID,
		Type:               string(t.Type),
		Date:               t.Date.UTC(),
		Amount:             t.Amount,
		Description:        t.Description,
		Reference:          t.Reference,
		ContactID:          t.ContactID,
		ContactName:        t.ContactName,
		AccountID:          t.AccountID,
		AccountCode:        t.AccountCode,
		AccountName:        t.AccountName,
		CategoryID:         t.CategoryID,
		Status:             string(t.Status),
		IsReconciled:       t.IsReconciled,
		ReconciliationDate: utcPtr(t.ReconciliationDate),
		Metadata:           t.Metadata,
		LastSyncedAt:       utcPtr(t.LastSyncedAt),
		CreatedAt:          t.CreatedAt.UTC(),
		UpdatedAt:          t.UpdatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
