package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/cfo-assistant-go/internal/config"
	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/forecast"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/observability"
	"github.com/boddenberg/cfo-assistant-go/internal/port"
)

// MaxForecastDays bounds a forecast request.
const MaxForecastDays = 365

// ForecastRequest parameterises CashFlowService.Forecast. A zero StartDate
// means today and zero Days the configured default.
type ForecastRequest struct {
	StartDate      time.Time
	Days           int
	CurrentBalance float64
}

// IssueRequest adds thresholds to a forecast. Zero thresholds take the
// configured defaults.
type IssueRequest struct {
	ForecastRequest
	LowBalanceThreshold         float64
	SignificantOutflowThreshold float64
}

// CashFlowService projects the cash balance of a tenant.
type CashFlowService struct {
	fetcher  port.DocumentFetcher
	tenants  port.TenantStore
	defaults config.Analytics
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewCashFlowService(
	fetcher port.DocumentFetcher,
	tenants port.TenantStore,
	defaults config.Analytics,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *CashFlowService {
	o := applyOptions(opts)
	return &CashFlowService{
		fetcher:  fetcher,
		tenants:  tenants,
		defaults: defaults,
		metrics:  metrics,
		logger:   logger,
		now:      o.now,
	}
}

// Forecast fetches outstanding and repeating documents concurrently and
// builds the timeline. Any failed fetch fails the forecast.
func (s *CashFlowService) Forecast(ctx context.Context, userID, tenantID string, req ForecastRequest) (*domain.ForecastTimeline, error) {
	ctx, span := tracer.Start(ctx, "CashFlow.Forecast")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID))

	days, err := checkRange("days", req.Days, s.defaults.ForecastDays, MaxForecastDays)
	if err != nil {
		return nil, err
	}

	if err := authorize(ctx, s.tenants, userID, tenantID); err != nil {
		return nil, err
	}
	in, err := s.collect(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	in.StartDate = req.StartDate
	if in.StartDate.IsZero() {
		in.StartDate = today(s.now)
	}
	in.AsOf = today(s.now)
	in.Days = days
	in.CurrentBalance = req.CurrentBalance

	start := time.Now()
	tl, err := forecast.Generate(in)
	s.metrics.RecordEngineDuration("forecast", time.Since(start))
	if err != nil {
		return nil, err
	}

	s.logger.Debug("forecast generated",
		zap.String("tenant_id", tenantID),
		zap.Int("days", days),
		zap.Float64("lowest_balance", tl.Summary.LowestBalance),
	)
	return tl, nil
}

// DetectIssues runs a forecast and flags liquidity problems in it.
func (s *CashFlowService) DetectIssues(ctx context.Context, userID, tenantID string, req IssueRequest) (*domain.CashFlowIssueReport, error) {
	ctx, span := tracer.Start(ctx, "CashFlow.DetectIssues")
	defer span.End()

	if req.LowBalanceThreshold < 0 || req.SignificantOutflowThreshold < 0 {
		return nil, &domain.ErrValidation{Field: "threshold", Message: "must not be negative"}
	}

	tl, err := s.Forecast(ctx, userID, tenantID, req.ForecastRequest)
	if err != nil {
		return nil, err
	}

	th := forecast.Thresholds{
		LowBalance:         req.LowBalanceThreshold,
		SignificantOutflow: req.SignificantOutflowThreshold,
	}
	if th.LowBalance == 0 {
		th.LowBalance = s.defaults.LowBalanceThreshold
	}
	if th.SignificantOutflow == 0 {
		th.SignificantOutflow = s.defaults.SignificantOutflowThreshold
	}

	start := time.Now()
	report := forecast.DetectIssues(tl, th)
	s.metrics.RecordEngineDuration("cashflow_issues", time.Since(start))
	span.SetAttributes(attribute.Int("issues", len(report.Issues)))
	return report, nil
}

func (s *CashFlowService) collect(ctx context.Context, userID, tenantID string) (forecast.Input, error) {
	var in forecast.Input
	outstanding := domain.DocumentFilter{Statuses: []string{domain.DocumentStatusAuthorised}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.fetcher.FetchInvoices(gctx, userID, tenantID, outstanding)
		if err != nil {
			return upstream(s.metrics, s.logger, "invoices", tenantID, err)
		}
		in.Invoices = v
		return nil
	})
	g.Go(func() error {
		v, err := s.fetcher.FetchBills(gctx, userID, tenantID, outstanding)
		if err != nil {
			return upstream(s.metrics, s.logger, "bills", tenantID, err)
		}
		in.Bills = v
		return nil
	})
	g.Go(func() error {
		v, err := s.fetcher.FetchRepeatingInvoices(gctx, userID, tenantID)
		if err != nil {
			return upstream(s.metrics, s.logger, "repeating_invoices", tenantID, err)
		}
		in.RepeatingInvoices = v
		return nil
	})
	g.Go(func() error {
		v, err := s.fetcher.FetchRepeatingBills(gctx, userID, tenantID)
		if err != nil {
			return upstream(s.metrics, s.logger, "repeating_bills", tenantID, err)
		}
		in.RepeatingBills = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return forecast.Input{}, err
	}
	return in, nil
}
