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

// CategoryRepository implements port.CategoryStore.
type CategoryRepository struct {
	db *gorm.DB
}

var _ port.CategoryStore = (*CategoryRepository)(nil)

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// FindByID looks a category up within its owner's scope.
func (r *CategoryRepository) FindByID(ctx context.Context, userID, tenantID, id string) (*domain.Category, error) {
	var m model.CategoryModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND tenant_id = ?", id, userID, tenantID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.ErrNotFound{Resource: "category", ID: id}
		}
		return nil, err
	}
	c := m.ToEntity()
	return &c, nil
}

// ListActive returns the owner's active categories sorted by name.
func (r *CategoryRepository) ListActive(ctx context.Context, userID, tenantID string) ([]domain.Category, error) {
	var models []model.CategoryModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND tenant_id = ? AND is_active = ?", userID, tenantID, true).
		Order("name ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.Category, len(models))
	for i := range models {
		out[i] = models[i].ToEntity()
	}
	return out, nil
}

func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(model.CategoryFromEntity(c)).Error
}
