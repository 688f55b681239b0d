package model

import (
	"time"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

// TenantConnectionModel represents the tenant_connections table.
type TenantConnectionModel struct {
	ID             string     `gorm:"type:varchar(36);primaryKey"`
	UserID         string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_tenant_connections_owner,priority:1"`
	TenantID       string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_tenant_connections_owner,priority:2"`
	TenantName     string     `gorm:"type:varchar(255);not null"`
	TenantType     string     `gorm:"type:varchar(32)"`
	AccessToken    string     `gorm:"type:text"`
	TokenExpiresAt *time.Time
	IsActive       bool      `gorm:"not null"`
	ConnectedAt    time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (TenantConnectionModel) TableName() string {
	return "tenant_connections"
}

func (m *TenantConnectionModel) ToEntity() domain.TenantConnection {
	c := domain.TenantConnection{
		ID:          m.ID,
		UserID:      m.UserID,
		TenantID:    m.TenantID,
		TenantName:  m.TenantName,
		TenantType:  m.TenantType,
		AccessToken: m.AccessToken,
		IsActive:    m.IsActive,
		ConnectedAt: m.ConnectedAt.UTC(),
	}
	if m.TokenExpiresAt != nil {
		t := m.TokenExpiresAt.UTC()
		c.TokenExpiresAt = &t
	}
	return c
}

func TenantConnectionFromEntity(c *domain.TenantConnection) *TenantConnectionModel {
	return &TenantConnectionModel{
		ID:             c.ID,
		UserID:         c.UserID,
		TenantID:       c.TenantID,
		TenantName:     c.TenantName,
		TenantType:     c.TenantType,
		AccessToken:    c.AccessToken,
		TokenExpiresAt: c.TokenExpiresAt,
		IsActive:       c.IsActive,
		ConnectedAt:    c.ConnectedAt.UTC(),
	}
}
