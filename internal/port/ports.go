// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the analytics
// engines and services from the accounting provider and the database.
package port

import (
	"context"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

// DocumentFetcher reads documents and reports for a tenant from the
// accounting provider on behalf of userID, using that user's connection.
type DocumentFetcher interface {
	FetchInvoices(ctx context.Context, userID, tenantID string, filter domain.DocumentFilter) ([]domain.Invoice, error)
	FetchBills(ctx context.Context, userID, tenantID string, filter domain.DocumentFilter) ([]domain.Invoice, error)
	FetchBankTransactions(ctx context.Context, userID, tenantID string, filter domain.DocumentFilter) ([]domain.BankTransaction, error)
	FetchRepeatingInvoices(ctx context.Context, userID, tenantID string) ([]domain.RepeatingDocument, error)
	FetchRepeatingBills(ctx context.Context, userID, tenantID string) ([]domain.RepeatingDocument, error)
	FetchReport(ctx context.Context, userID, tenantID, name string, opts domain.ReportOptions) (*domain.Report, error)
}

// TokenSource supplies the provider access token a user holds for a
// tenant. It returns *domain.ErrNotFound when the user has no active
// connection to the tenant.
type TokenSource interface {
	Token(ctx context.Context, userID, tenantID string) (string, error)
}

// TenantStore persists tenant connections. Find only returns active
// connections and *domain.ErrNotFound otherwise.
type TenantStore interface {
	Find(ctx context.Context, userID, tenantID string) (*domain.TenantConnection, error)
	ListActive(ctx context.Context, userID string) ([]domain.TenantConnection, error)
	Save(ctx context.Context, c *domain.TenantConnection) error
	Deactivate(ctx context.Context, userID, tenantID string) error
}

// TransactionStore persists local transaction records.
// FindOne returns *domain.ErrNotFound when nothing matches.
type TransactionStore interface {
	FindOne(ctx context.Context, filter domain.TransactionFilter) (*domain.TransactionRecord, error)
	FindAll(ctx context.Context, filter domain.TransactionFilter) ([]domain.TransactionRecord, error)
	Create(ctx context.Context, rec *domain.TransactionRecord) error
	Update(ctx context.Context, rec *domain.TransactionRecord) error
	Count(ctx context.Context, filter domain.TransactionFilter) (int64, error)
}

// CategoryStore persists categories owned by a user and tenant.
type CategoryStore interface {
	FindByID(ctx context.Context, userID, tenantID, id string) (*domain.Category, error)
	ListActive(ctx context.Context, userID, tenantID string) ([]domain.Category, error)
	Create(ctx context.Context, c *domain.Category) error
}

// CategoryRuleStore persists categorization rules. ListActive returns rules
// in ascending priority order.
type CategoryRuleStore interface {
	FindByID(ctx context.Context, userID, tenantID, id string) (*domain.CategoryRule, error)
	ListActive(ctx context.Context, userID, tenantID string, automaticOnly bool) ([]domain.CategoryRule, error)
	Create(ctx context.Context, r *domain.CategoryRule) error
	RecordMatch(ctx context.Context, ruleID string) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
