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

// CategoryRuleRepository implements port.CategoryRuleStore.
type CategoryRuleRepository struct {
	db *gorm.DB
}

var _ port.CategoryRuleStore = (*CategoryRuleRepository)(nil)

func NewCategoryRuleRepository(db *gorm.DB) *CategoryRuleRepository {
	return &CategoryRuleRepository{db: db}
}

func (r *CategoryRuleRepository) FindByID(ctx context.Context, userID, tenantID, id string) (*domain.CategoryRule, error) {
	var m model.CategoryRuleModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND tenant_id = ?", id, userID, tenantID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.ErrNotFound{Resource: "rule", ID: id}
		}
		return nil, err
	}
	rule := m.ToEntity()
	return &rule, nil
}

// ListActive returns active rules by ascending priority, oldest first within
// a priority. automaticOnly drops rules that only run on demand.
func (r *CategoryRuleRepository) ListActive(ctx context.Context, userID, tenantID string, automaticOnly bool) ([]domain.CategoryRule, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND tenant_id = ? AND is_active = ?", userID, tenantID, true)
	if automaticOnly {
		q = q.Where("is_automatic = ?", true)
	}

	var models []model.CategoryRuleModel
	if err := q.Order("priority ASC, created_at ASC, id").Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]domain.CategoryRule, len(models))
	for i := range models {
		out[i] = models[i].ToEntity()
	}
	return out, nil
}

func (r *CategoryRuleRepository) Create(ctx context.Context, rule *domain.CategoryRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(model.CategoryRuleFromEntity(rule)).Error
}

// RecordMatch increments match_count in the database so concurrent matches
// are not lost, and stamps last_matched_at.
func (r *CategoryRuleRepository) RecordMatch(ctx context.Context, ruleID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.CategoryRuleModel{}).
		Where("id = ?", ruleID).
		Updates(map[string]any{
			"match_count":     gorm.Expr("match_count + ?", 1),
			"last_matched_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &domain.ErrNotFound{Resource: "rule", ID: ruleID}
	}
	return nil
}
