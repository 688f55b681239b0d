package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/cfo-assistant-go/internal/config"
	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/observability"
	"github.com/boddenberg/cfo-assistant-go/internal/kpi"
	"github.com/boddenberg/cfo-assistant-go/internal/port"
)

// MaxKPIMonths bounds the reporting period of a KPI request.
const MaxKPIMonths = 36

const reportCache = "reports"

// KPIService derives ratios, the health score and KPIs from the provider's
// reports. Reports are cached per user, tenant, name and period.
type KPIService struct {
	fetcher  port.DocumentFetcher
	tenants  port.TenantStore
	reports  port.Cache[*domain.Report]
	defaults config.Analytics
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewKPIService(
	fetcher port.DocumentFetcher,
	tenants port.TenantStore,
	reports port.Cache[*domain.Report],
	defaults config.Analytics,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *KPIService {
	o := applyOptions(opts)
	return &KPIService{
		fetcher:  fetcher,
		tenants:  tenants,
		reports:  reports,
		defaults: defaults,
		metrics:  metrics,
		logger:   logger,
		now:      o.now,
	}
}

// Ratios fetches the profit and loss for the last months and the balance
// sheet at today, then computes the ratio set.
func (s *KPIService) Ratios(ctx context.Context, userID, tenantID string, months int) (*domain.RatioAnalysis, error) {
	ctx, span := tracer.Start(ctx, "KPI.Ratios")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID))

	months, err := checkRange("months", months, s.defaults.KPIMonths, MaxKPIMonths)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.tenants, userID, tenantID); err != nil {
		return nil, err
	}
	from, to, period := monthWindow(s.now, months)

	var pl, bs *domain.Report
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.report(gctx, userID, tenantID, domain.ReportProfitAndLoss, domain.ReportOptions{From: &from, To: &to})
		pl = r
		return err
	})
	g.Go(func() error {
		r, err := s.report(gctx, userID, tenantID, domain.ReportBalanceSheet, domain.ReportOptions{Date: &to})
		bs = r
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	start := time.Now()
	analysis := kpi.CalculateFinancialRatios(pl, bs, period)
	s.metrics.RecordEngineDuration("ratios", time.Since(start))
	return &analysis, nil
}

// HealthScore scores the ratios of the last months.
func (s *KPIService) HealthScore(ctx context.Context, userID, tenantID string, months int) (*domain.BusinessHealth, error) {
	ctx, span := tracer.Start(ctx, "KPI.HealthScore")
	defer span.End()

	analysis, err := s.Ratios(ctx, userID, tenantID, months)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	health := kpi.BusinessHealthScore(analysis.Ratios)
	s.metrics.RecordEngineDuration("health_score", time.Since(start))
	health.Period = analysis.Period

	span.SetAttributes(attribute.Float64("health.score", health.OverallScore))
	return &health, nil
}

// KPIs combines the health score with revenue and expense figures from the
// invoices and bills dated inside the same period.
func (s *KPIService) KPIs(ctx context.Context, userID, tenantID string, months int) (*domain.KPIReport, error) {
	ctx, span := tracer.Start(ctx, "KPI.KPIs")
	defer span.End()

	health, err := s.HealthScore(ctx, userID, tenantID, months)
	if err != nil {
		return nil, err
	}
	if months == 0 {
		months = s.defaults.KPIMonths
	}
	from, to, period := monthWindow(s.now, months)
	window := domain.DocumentFilter{From: &from, To: &to}

	var invoices, bills []domain.Invoice
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.fetcher.FetchInvoices(gctx, userID, tenantID, window)
		if err != nil {
			return upstream(s.metrics, s.logger, "invoices", tenantID, err)
		}
		invoices = v
		return nil
	})
	g.Go(func() error {
		v, err := s.fetcher.FetchBills(gctx, userID, tenantID, window)
		if err != nil {
			return upstream(s.metrics, s.logger, "bills", tenantID, err)
		}
		bills = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := kpi.CalculateKPIs(*health, invoices, bills, period)
	return &report, nil
}

func (s *KPIService) report(ctx context.Context, userID, tenantID, name string, opts domain.ReportOptions) (*domain.Report, error) {
	key := reportKey(userID, tenantID, name, opts)
	if r, ok := s.reports.Get(key); ok && r != nil {
		s.metrics.IncrCacheHit(reportCache)
		return r, nil
	}
	s.metrics.IncrCacheMiss(reportCache)

	r, err := s.fetcher.FetchReport(ctx, userID, tenantID, name, opts)
	if err != nil {
		return nil, upstream(s.metrics, s.logger, name, tenantID, err)
	}
	s.reports.Set(key, r)
	return r, nil
}

// reportKey scopes cached reports to the requesting user.
func reportKey(userID, tenantID, name string, opts domain.ReportOptions) string {
	day := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format(domain.DateLayout)
	}
	return fmt.Sprintf("%s:%s:%s:%s:%s:%s:%d:%s",
		userID, tenantID, name, day(opts.From), day(opts.To), day(opts.Date), opts.Periods, opts.Timeframe)
}
