// Package app wires configuration, adapters and services into a runnable
// application shared by the HTTP server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/boddenberg/cfo-assistant-go/internal/config"
	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/handler"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/cache"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/observability"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/persistence"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/resilience"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/xero"
	"github.com/boddenberg/cfo-assistant-go/internal/port"
	"github.com/boddenberg/cfo-assistant-go/internal/service"
)

// App holds the wired services and the resources they own.
type App struct {
	Services handler.Services
	Checks   []handler.Check
	Metrics  *observability.Metrics

	logger  *zap.Logger
	closers []func() error
}

// New connects to PostgreSQL and builds the application.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := persistence.NewPostgres(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a, err := NewWithDB(cfg, db, logger)
	if err != nil {
		_ = persistence.Close(db)
		return nil, err
	}
	a.closers = append(a.closers, func() error { return persistence.Close(db) })
	return a, nil
}

// NewWithDB builds the application on an open, migrated database. The
// caller keeps ownership of db.
func NewWithDB(cfg *config.Config, db *gorm.DB, logger *zap.Logger, opts ...service.Option) (*App, error) {
	a := &App{
		Metrics: observability.NewMetrics(),
		logger:  logger,
	}
	a.Checks = append(a.Checks, handler.Check{
		Name: "database",
		Ping: func(ctx context.Context) error { return persistence.Ping(ctx, db) },
	})

	reports, err := a.reportCache(cfg.Redis)
	if err != nil {
		return nil, err
	}

	// --- Stores ---
	transactions := persistence.NewTransactionRepository(db)
	categories := persistence.NewCategoryRepository(db)
	rules := persistence.NewCategoryRuleRepository(db)
	tenants := persistence.NewTenantRepository(db)

	// --- Provider ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.Resilience.MaxRetries,
		InitialBackoff: cfg.Resilience.InitialBackoff,
		MaxBackoff:     cfg.Resilience.MaxBackoff,
		MaxConcurrency: cfg.Resilience.MaxConcurrency,
	}
	fetcher := xero.NewClient(
		&http.Client{Timeout: cfg.Xero.HTTPTimeout},
		cfg.Xero.BaseURL,
		xero.ConnectionTokenSource{Tenants: tenants, Fallback: cfg.Xero.AccessToken},
		resilience.NewCircuitBreaker("xero", logger),
		resilienceCfg,
		cfg.Xero.PageSize,
		logger,
	)

	// --- Services ---
	defaults := cfg.Analytics
	a.Services = handler.Services{
		CashFlow:       service.NewCashFlowService(fetcher, tenants, defaults, a.Metrics, logger, opts...),
		Anomaly:        service.NewAnomalyService(fetcher, tenants, defaults, a.Metrics, logger, opts...),
		KPI:            service.NewKPIService(fetcher, tenants, reports, defaults, a.Metrics, logger, opts...),
		Categorization: service.NewCategorizationService(transactions, categories, rules, defaults, a.Metrics, logger, opts...),
		Reconciliation: service.NewReconciliationService(fetcher, transactions, defaults, a.Metrics, logger, opts...),
		Sync:           service.NewSyncService(fetcher, transactions, defaults, a.Metrics, logger, opts...),
		Tenants:        service.NewTenantService(tenants, logger, opts...),
	}
	return a, nil
}

// reportCache uses Redis when a URL is configured and an in-process cache
// otherwise.
func (a *App) reportCache(cfg config.Redis) (port.Cache[*domain.Report], error) {
	if cfg.URL == "" {
		a.logger.Info("report cache: in-process", zap.Duration("ttl", cfg.CacheTTL))
		c := cache.New[*domain.Report](cfg.CacheTTL)
		a.closers = append(a.closers, func() error { c.Close(); return nil })
		return c, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	c := cache.NewRedis[*domain.Report](client, cfg.KeyPrefix, cfg.CacheTTL, a.logger)
	a.closers = append(a.closers, client.Close)
	a.Checks = append(a.Checks, handler.Check{Name: "redis", Ping: c.Ping})

	a.logger.Info("report cache: redis",
		zap.String("addr", opts.Addr),
		zap.Duration("ttl", cfg.CacheTTL),
	)
	return c, nil
}

// Router builds the HTTP API over the wired services.
func (a *App) Router(auth config.Auth) http.Handler {
	return handler.NewRouter(a.Services, handler.NewAuthenticator(auth, a.logger), a.Checks, a.Metrics, a.logger)
}

// Close releases the resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
