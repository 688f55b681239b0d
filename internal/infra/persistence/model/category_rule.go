package model

import (
	"time"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

// CategoryRuleModel represents the category_rules table. Conditions are
// stored as a JSON array.
type CategoryRuleModel struct {
	ID            string             `gorm:"type:varchar(36);primaryKey"`
	UserID        string             `gorm:"type:varchar(64);not null;index:idx_category_rules_owner,priority:1"`
	TenantID      string             `gorm:"type:varchar(64);not null;index:idx_category_rules_owner,priority:2"`
	CategoryID    string             `gorm:"type:varchar(36);not null;index"`
	Name          string             `gorm:"type:varchar(255);not null"`
	Conditions    []domain.Condition `gorm:"serializer:json;not null"`
	Priority      int                `gorm:"not null"`
	IsActive      bool               `gorm:"not null"`
	IsAutomatic   bool               `gorm:"not null"`
	MatchCount    int                `gorm:"not null"`
	LastMatchedAt *time.Time
	CreatedAt     time.Time `gorm:"not null"`
}

func (CategoryRuleModel) TableName() string {
	return "category_rules"
}

func (m *CategoryRuleModel) ToEntity() domain.CategoryRule {
	return domain.CategoryRule{
		ID:            m.ID,
		UserID:        m.UserID,
		TenantID:      m.TenantID,
		CategoryID:    m.CategoryID,
		Name:          m.Name,
		Conditions:    m.Conditions,
		Priority:      m.Priority,
		IsActive:      m.IsActive,
		IsAutomatic:   m.IsAutomatic,
		MatchCount:    m.MatchCount,
		LastMatchedAt: utcPtr(m.LastMatchedAt),
		CreatedAt:     m.CreatedAt.UTC(),
	}
}

func CategoryRuleFromEntity(r *domain.CategoryRule) *CategoryRuleModel {
	return &CategoryRuleModel{
		ID:            r.ID,
		UserID:        r.UserID,
		TenantID:      r.TenantID,
		CategoryID:    r.CategoryID,
		Name:          r.Name,
		Conditions:    r.Conditions,
		Priority:      r.Priority,
		IsActive:      r.IsActive,
		IsAutomatic:   r.IsAutomatic,
		MatchCount:    r.MatchCount,
		LastMatchedAt: utcPtr(r.LastMatchedAt),
		CreatedAt:     r.CreatedAt.UTC(),
	}
}
