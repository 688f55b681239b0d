package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/cfo-assistant-go/internal/config"
	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/observability"
	"github.com/boddenberg/cfo-assistant-go/internal/port"
	"github.com/boddenberg/cfo-assistant-go/internal/rules"
)

// Rule defaults applied by CreateRule.
const (
	DefaultRulePriority = 100
	DefaultStatsDays    = 30
	MaxStatsDays        = 366
)

// Categorization methods recorded in record metadata.
const (
	MethodAutomatic = "AUTOMATIC"
	MethodManual    = "MANUAL"
)

// CategorizationService manages categories and rules and applies them to
// stored transactions.
type CategorizationService struct {
	transactions port.TransactionStore
	categories   port.CategoryStore
	rules        port.CategoryRuleStore
	defaults     config.Analytics
	metrics      *observability.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

func NewCategorizationService(
	transactions port.TransactionStore,
	categories port.CategoryStore,
	rules port.CategoryRuleStore,
	defaults config.Analytics,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *CategorizationService {
	o := applyOptions(opts)
	return &CategorizationService{
		transactions: transactions,
		categories:   categories,
		rules:        rules,
		defaults:     defaults,
		metrics:      metrics,
		logger:       logger,
		now:          o.now,
	}
}

func (s *CategorizationService) ListCategories(ctx context.Context, userID, tenantID string) ([]domain.Category, error) {
	if err := requireOwner(userID, tenantID); err != nil {
		return nil, err
	}
	return s.categories.ListActive(ctx, userID, tenantID)
}

// CreateCategory validates req and stores an active category. A parent,
// when given, must be an active category of the same owner.
func (s *CategorizationService) CreateCategory(ctx context.Context, userID, tenantID string, req domain.CreateCategoryRequest) (*domain.Category, error) {
	if err := requireOwner(userID, tenantID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "is required"}
	}
	if !req.Type.Valid() {
		return nil, &domain.ErrValidation{Field: "type", Message: "must be one of INCOME, EXPENSE, ASSET, LIABILITY, EQUITY"}
	}
	if req.ParentID != nil {
		if _, err := s.activeCategory(ctx, userID, tenantID, *req.ParentID); err != nil {
			return nil, err
		}
	}

	c := &domain.Category{
		UserID:      userID,
		TenantID:    tenantID,
		Name:        name,
		Type:        req.Type,
		AccountCode: req.AccountCode,
		ParentID:    req.ParentID,
		IsActive:    true,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("category created",
		zap.String("tenant_id", tenantID),
		zap.String("category_id", c.ID),
	)
	return c, nil
}

// ListRules returns the active rules in evaluation order.
func (s *CategorizationService) ListRules(ctx context.Context, userID, tenantID string) ([]domain.CategoryRule, error) {
	if err := requireOwner(userID, tenantID); err != nil {
		return nil, err
	}
	return s.rules.ListActive(ctx, userID, tenantID, false)
}

// CreateRule validates the conditions and target category and stores an
// active rule. Priority defaults to 100 and IsAutomatic to true.
func (s *CategorizationService) CreateRule(ctx context.Context, userID, tenantID string, req domain.CreateRuleRequest) (*domain.CategoryRule, error) {
	if err := requireOwner(userID, tenantID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "is required"}
	}
	if req.CategoryID == "" {
		return nil, &domain.ErrValidation{Field: "categoryId", Message: "is required"}
	}
	if err := rules.ValidateConditions(req.Conditions); err != nil {
		return nil, err
	}
	if _, err := s.activeCategory(ctx, userID, tenantID, req.CategoryID); err != nil {
		return nil, err
	}

	rule := &domain.CategoryRule{
		UserID:      userID,
		TenantID:    tenantID,
		CategoryID:  req.CategoryID,
		Name:        name,
		Conditions:  req.Conditions,
		Priority:    DefaultRulePriority,
		IsActive:    true,
		IsAutomatic: true,
		CreatedAt:   s.now().UTC(),
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.IsAutomatic != nil {
		rule.IsAutomatic = *req.IsAutomatic
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, err
	}
	s.logger.Info("category rule created",
		zap.String("tenant_id", tenantID),
		zap.String("rule_id", rule.ID),
		zap.Int("priority", rule.Priority),
	)
	return rule, nil
}

// ApplyRules runs the automatic rules over one batch of uncategorized,
// non-voided records, oldest first. Each record is updated on its own; a
// failed update is reported in the result and the batch carries on.
// Records no rule matches are counted as skipped. Cancelling ctx stops the
// batch and returns the partial result with the context error.
func (s *CategorizationService) ApplyRules(ctx context.Context, userID, tenantID string) (*domain.BatchResult, error) {
	ctx, span := tracer.Start(ctx, "Categorization.ApplyRules")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID))

	if err := requireOwner(userID, tenantID); err != nil {
		return nil, err
	}

	res := &domain.BatchResult{Items: []domain.BatchItem{}}
	active, err := s.rules.ListActive(ctx, userID, tenantID, true)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return res, nil
	}

	batch := s.defaults.RuleBatchSize
	if batch <= 0 {
		batch = 100
	}
	pending, err := s.transactions.FindAll(ctx, domain.TransactionFilter{
		UserID:          userID,
		TenantID:        tenantID,
		Uncategorized:   true,
		ExcludeStatuses: []domain.TransactionStatus{domain.TransactionStatusVoided},
		Limit:           batch,
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	for i := range pending {
		if err := ctx.Err(); err != nil {
			s.metrics.RecordBatch("apply_rules", res)
			return res, err
		}
		rec := &pending[i]
		rule, ok := rules.FindMatchingRule(rec, active)
		if !ok {
			res.Skip()
			continue
		}

		rec.Categorize(rule.CategoryID, map[string]domain.Value{
			"ruleId":     domain.StringValue(rule.ID),
			"ruleName":   domain.StringValue(rule.Name),
			"categoryId": domain.StringValue(rule.CategoryID),
			"method":     domain.StringValue(MethodAutomatic),
			"date":       domain.StringValue(s.now().UTC().Format(time.RFC3339)),
		})
		if err := s.transactions.Update(ctx, rec); err != nil {
			s.logger.Error("failed to categorize transaction",
				zap.String("transaction_id", rec.ID),
				zap.String("rule_id", rule.ID),
				zap.Error(err),
			)
			res.Record(rec.ID, rule.Name, err)
			continue
		}
		if err := s.rules.RecordMatch(ctx, rule.ID); err != nil {
			s.logger.Warn("failed to record rule match",
				zap.String("rule_id", rule.ID),
				zap.Error(err),
			)
		}
		res.Record(rec.ID, rule.Name, nil)
	}
	s.metrics.RecordEngineDuration("apply_rules", time.Since(start))
	s.metrics.RecordBatch("apply_rules", res)

	s.logger.Info("categorization rules applied",
		zap.String("tenant_id", tenantID),
		zap.Int("total", res.Total),
		zap.Int("categorized", res.Succeeded),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// CategorizeTransaction assigns a category by hand.
func (s *CategorizationService) CategorizeTransaction(ctx context.Context, userID, tenantID, transactionID string, req domain.CategorizeRequest) (*domain.TransactionRecord, error) {
	if err := requireOwner(userID, tenantID); err != nil {
		return nil, err
	}
	if req.CategoryID == "" {
		return nil, &domain.ErrValidation{Field: "categoryId", Message: "is required"}
	}

	category, err := s.activeCategory(ctx, userID, tenantID, req.CategoryID)
	if err != nil {
		return nil, err
	}
	rec, err := s.transactions.FindOne(ctx, domain.TransactionFilter{ID: transactionID, UserID: userID, TenantID: tenantID})
	if err != nil {
		return nil, err
	}

	rec.Categorize(category.ID, map[string]domain.Value{
		"categoryId":   domain.StringValue(category.ID),
		"categoryName": domain.StringValue(category.Name),
		"method":       domain.StringValue(MethodManual),
		"date":         domain.StringValue(s.now().UTC().Format(time.RFC3339)),
	})
	if err := s.transactions.Update(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info("transaction categorized manually",
		zap.String("transaction_id", rec.ID),
		zap.String("category_id", category.ID),
	)
	return rec, nil
}

// Stats counts categorized and uncategorized non-voided records dated in
// the last days.
func (s *CategorizationService) Stats(ctx context.Context, userID, tenantID string, days int) (*domain.CategorizationStats, error) {
	if err := requireOwner(userID, tenantID); err != nil {
		return nil, err
	}
	days, err := checkRange("days", days, DefaultStatsDays, MaxStatsDays)
	if err != nil {
		return nil, err
	}
	from, to := dayWindow(s.now, days)
	to = to.Add(24*time.Hour - time.Nanosecond)

	base := domain.TransactionFilter{
		UserID:          userID,
		TenantID:        tenantID,
		ExcludeStatuses: []domain.TransactionStatus{domain.TransactionStatusVoided},
		From:            &from,
		To:              &to,
	}
	total, err := s.transactions.Count(ctx, base)
	if err != nil {
		return nil, err
	}
	uncategorized := base
	uncategorized.Uncategorized = true
	open, err := s.transactions.Count(ctx, uncategorized)
	if err != nil {
		return nil, err
	}

	return &domain.CategorizationStats{
		Total:              total,
		Categorized:        total - open,
		Uncategorized:      open,
		CategorizationRate: rate(total-open, total),
	}, nil
}

func (s *CategorizationService) activeCategory(ctx context.Context, userID, tenantID, id string) (*domain.Category, error) {
	c, err := s.categories.FindByID(ctx, userID, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, &domain.ErrNotFound{Resource: "category", ID: id}
	}
	return c, nil
}
