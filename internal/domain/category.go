package domain

import "time"

type CategoryType string

const (
	CategoryTypeIncome    CategoryType = "INCOME"
	CategoryTypeExpense   CategoryType = "EXPENSE"
	CategoryTypeAsset     CategoryType = "ASSET"
	CategoryTypeLiability CategoryType = "LIABILITY"
	CategoryTypeEquity    CategoryType = "EQUITY"
)

// Valid reports whether t is one of the known category types.
func (t CategoryType) Valid() bool {
	switch t {
	case CategoryTypeIncome, CategoryTypeExpense, CategoryTypeAsset, CategoryTypeLiability, CategoryTypeEquity:
		return true
	}
	return false
}

// Category is a user-defined bucket owned by a user+tenant pair. ParentID
// forms a tree.
type Category struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	TenantID    string       `json:"tenantId"`
	Name        string       `json:"name"`
	Type        CategoryType `json:"type"`
	AccountCode string       `json:"accountCode,omitempty"`
	ParentID    *string      `json:"parentId"`
	IsActive    bool         `json:"isActive"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "notEquals"
	OpContains           Operator = "contains"
	OpNotContains        Operator = "notContains"
	OpStartsWith         Operator = "startsWith"
	OpEndsWith           Operator = "endsWith"
	OpGreaterThan        Operator = "greaterThan"
	OpLessThan           Operator = "lessThan"
	OpGreaterThanOrEqual Operator = "greaterThanOrEqual"
	OpLessThanOrEqual    Operator = "lessThanOrEqual"
	OpIn                 Operator = "in"
	OpNotIn              Operator = "notIn"
)

// Condition is one predicate of a CategoryRule.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    Value    `json:"value"`
}

// CategoryRule assigns CategoryID to records matching all Conditions.
// Lower Priority values are evaluated first.
type CategoryRule struct {
	ID            string      `json:"id"`
	UserID        string      `json:"userId"`
	TenantID      string      `json:"tenantId"`
	CategoryID    string      `json:"categoryId"`
	Name          string      `json:"name"`
	Conditions    []Condition `json:"conditions"`
	Priority      int         `json:"priority"`
	IsActive      bool        `json:"isActive"`
	IsAutomatic   bool        `json:"isAutomatic"`
	MatchCount    int         `json:"matchCount"`
	LastMatchedAt *time.Time  `json:"lastMatchedAt,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// CreateCategoryRequest is the input of CategorizationService.CreateCategory.
type CreateCategoryRequest struct {
	Name        string       `json:"name"`
	Type        CategoryType `json:"type"`
	AccountCode string       `json:"accountCode,omitempty"`
	ParentID    *string      `json:"parentId,omitempty"`
}

// CreateRuleRequest is the input of CategorizationService.CreateRule.
// Nil Priority and IsAutomatic take their defaults (100 and true).
type CreateRuleRequest struct {
	Name        string      `json:"name"`
	CategoryID  string      `json:"categoryId"`
	Conditions  []Condition `json:"conditions"`
	Priority    *int        `json:"priority,omitempty"`
	IsAutomatic *bool       `json:"isAutomatic,omitempty"`
}

// CategorizeRequest manually assigns a category to one record.
type CategorizeRequest struct {
	CategoryID string `json:"categoryId"`
}
