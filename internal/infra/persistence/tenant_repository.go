package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/persistence/model"
	"github.com/boddenberg/cfo-assistant-go/internal/port"
)

// TenantRepository implements port.TenantStore.
type TenantRepository struct {
	db *gorm.DB
}

var _ port.TenantStore = (*TenantRepository)(nil)

func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Find returns the user's active connection to tenantID.
func (r *TenantRepository) Find(ctx context.Context, userID, tenantID string) (*domain.TenantConnection, error) {
	var m model.TenantConnectionModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND tenant_id = ? AND is_active = ?", userID, tenantID, true).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.ErrNotFound{Resource: "tenant", ID: tenantID}
		}
		return nil, err
	}
	c := m.ToEntity()
	return &c, nil
}

// ListActive returns the user's active connections sorted by tenant name.
func (r *TenantRepository) ListActive(ctx context.Context, userID string) ([]domain.TenantConnection, error) {
	var models []model.TenantConnectionModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("tenant_name ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.TenantConnection, len(models))
	for i := range models {
		out[i] = models[i].ToEntity()
	}
	return out, nil
}

// Save upserts by (user, tenant). A saved connection keeps its id and
// original ConnectedAt.
func (r *TenantRepository) Save(ctx context.Context, c *domain.TenantConnection) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.TenantConnectionModel
		err := tx.Where("user_id = ? AND tenant_id = ?", c.UserID, c.TenantID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if c.ID == "" {
				c.ID = uuid.NewString()
			}
			if c.ConnectedAt.IsZero() {
				c.ConnectedAt = time.Now().UTC()
			}
			m := model.TenantConnectionFromEntity(c)
			m.UpdatedAt = time.Now().UTC()
			return tx.Create(m).Error
		case err != nil:
			return err
		}

		c.ID = existing.ID
		c.ConnectedAt = existing.ConnectedAt.UTC()
		m := model.TenantConnectionFromEntity(c)
		m.UpdatedAt = time.Now().UTC()
		return tx.Model(&model.TenantConnectionModel{}).
			Where("id = ?", c.ID).
			Select("*").
			Omit("id", "connected_at").
			Updates(m).Error
	})
}

// Deactivate ends the user's connection to tenantID. Records synced from it
// are kept.
func (r *TenantRepository) Deactivate(ctx context.Context, userID, tenantID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.TenantConnectionModel{}).
		Where("user_id = ? AND tenant_id = ? AND is_active = ?", userID, tenantID, true).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &domain.ErrNotFound{Resource: "tenant", ID: tenantID}
	}
	return nil
}
