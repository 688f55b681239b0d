package model

import (
	"time"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

// CategoryModel represents the categories table.
type CategoryModel struct {
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	UserID      string    `gorm:"type:varchar(64);not null;index:idx_categories_owner,priority:1"`
	TenantID    string    `gorm:"type:varchar(64);not null;index:idx_categories_owner,priority:2"`
	Name        string    `gorm:"type:varchar(255);not null"`
	Type        string    `gorm:"type:varchar(20);not null"`
	AccountCode string    `gorm:"type:varchar(32)"`
	ParentID    *string   `gorm:"type:varchar(36);index"`
	IsActive    bool      `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (CategoryModel) TableName() string {
	return "categories"
}

func (m *CategoryModel) ToEntity() domain.Category {
	return domain.Category{
		ID:          m.ID,
		UserID:      m.UserID,
		TenantID:    m.TenantID,
		Name:        m.Name,
		Type:        domain.CategoryType(m.Type),
		AccountCode: m.AccountCode,
		ParentID:    m.ParentID,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

func CategoryFromEntity(c *domain.Category) *CategoryModel {
	return &CategoryModel{
		ID:          c.ID,
		UserID:      c.UserID,
		TenantID:    c.TenantID,
		Name:        c.Name,
		Type:        string(c.Type),
		AccountCode: c.AccountCode,
		ParentID:    c.ParentID,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt.UTC(),
	}
}
