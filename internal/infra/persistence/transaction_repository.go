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

// TransactionRepository implements port.TransactionStore.
type TransactionRepository struct {
	db *gorm.DB
}

var _ port.TransactionStore = (*TransactionRepository)(nil)

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// FindOne returns the first record matching filter, newest first.
func (r *TransactionRepository) FindOne(ctx context.Context, filter domain.TransactionFilter) (*domain.TransactionRecord, error) {
	var m model.TransactionModel
	err := applyTransactionFilter(r.db.WithContext(ctx), filter).
		Order("date DESC, id").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.ErrNotFound{Resource: "transaction", ID: filterID(filter)}
		}
		return nil, err
	}
	rec := m.ToEntity()
	return &rec, nil
}

// FindAll returns records matching filter ordered by date, oldest first.
// filter.Limit caps the result when positive.
func (r *TransactionRepository) FindAll(ctx context.Context, filter domain.TransactionFilter) ([]domain.TransactionRecord, error) {
	var models []model.TransactionModel
	q := applyTransactionFilter(r.db.WithContext(ctx), filter).Order("date ASC, id")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]domain.TransactionRecord, len(models))
	for i := range models {
		out[i] = models[i].ToEntity()
	}
	return out, nil
}

// Create inserts rec, assigning an id when it has none. The timestamps
// written are copied back onto rec.
func (r *TransactionRepository) Create(ctx context.Context, rec *domain.TransactionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	return r.db.WithContext(ctx).Create(model.TransactionFromEntity(rec)).Error
}

// Update overwrites every column of the stored record except its id and
// creation time. Last writer wins.
func (r *TransactionRepository) Update(ctx context.Context, rec *domain.TransactionRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	m := model.TransactionFromEntity(rec)

	result := r.db.WithContext(ctx).
		Model(&model.TransactionModel{}).
		Where("id = ?", rec.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &domain.ErrNotFound{Resource: "transaction", ID: rec.ID}
	}
	return nil
}

func (r *TransactionRepository) Count(ctx context.Context, filter domain.TransactionFilter) (int64, error) {
	var count int64
	err := applyTransactionFilter(r.db.WithContext(ctx).Model(&model.TransactionModel{}), filter).
		Count(&count).Error
	return count, err
}

func applyTransactionFilter(q *gorm.DB, f domain.TransactionFilter) *gorm.DB {
	if f.ID != "" {
		q = q.Where("id = ?", f.ID)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.TenantID != "" {
		q = q.Where("tenant_id = ?", f.TenantID)
	}
	if f.ExternalID != "" {
		q = q.Where("external_id = ?", f.ExternalID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", string(f.Type))
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if len(f.ExcludeStatuses) > 0 {
		excluded := make([]string, len(f.ExcludeStatuses))
		for i, s := range f.ExcludeStatuses {
			excluded[i] = string(s)
		}
		q = q.Where("status NOT IN ?", excluded)
	}
	if f.Uncategorized {
		q = q.Where("category_id IS NULL")
	} else if f.CategoryID != "" {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.IsReconciled != nil {
		q = q.Where("is_reconciled = ?", *f.IsReconciled)
	}
	if f.From != nil {
		q = q.Where("date >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("date <= ?", f.To.UTC())
	}
	return q
}

func filterID(f domain.TransactionFilter) string {
	if f.ID != "" {
		return f.ID
	}
	return f.ExternalID
}
