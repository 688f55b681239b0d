package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/cfo-assistant-go/internal/anomaly"
	"github.com/boddenberg/cfo-assistant-go/internal/config"
	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/observability"
	"github.com/boddenberg/cfo-assistant-go/internal/port"
)

// MaxAnomalyMonths bounds the look-back of a scan.
const MaxAnomalyMonths = 24

// AnomalyService scans a tenant's recent activity for outliers.
type AnomalyService struct {
	fetcher  port.DocumentFetcher
	tenants  port.TenantStore
	defaults config.Analytics
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewAnomalyService(
	fetcher port.DocumentFetcher,
	tenants port.TenantStore,
	defaults config.Analytics,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *AnomalyService {
	o := applyOptions(opts)
	return &AnomalyService{
		fetcher:  fetcher,
		tenants:  tenants,
		defaults: defaults,
		metrics:  metrics,
		logger:   logger,
		now:      o.now,
	}
}

// Detect fetches the last months of bank transactions, invoices, bills and
// the monthly profit and loss concurrently and runs every sub-detector.
// A source that fails to load is logged, listed in the result and treated
// as empty; the scan itself only fails on invalid input or an unknown
// tenant.
func (s *AnomalyService) Detect(ctx context.Context, userID, tenantID string, months int) (*domain.AnomalyScan, error) {
	ctx, span := tracer.Start(ctx, "Anomaly.Detect")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID))

	months, err := checkRange("months", months, s.defaults.AnomalyMonths, MaxAnomalyMonths)
	if err != nil {
		return nil, err
	}

	if err := authorize(ctx, s.tenants, userID, tenantID); err != nil {
		return nil, err
	}

	from, to, period := monthWindow(s.now, months)
	window := domain.DocumentFilter{From: &from, To: &to}
	src := anomaly.Sources{Period: period, AsOf: today(s.now)}

	var (
		mu     sync.Mutex
		failed []string
	)
	degrade := func(source string, err error) {
		s.metrics.IncrUpstreamError(source)
		s.logger.Warn("anomaly source unavailable, continuing without it",
			zap.String("source", source),
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		mu.Lock()
		failed = append(failed, source)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	load := func(source string, fetch func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fetch(); err != nil {
				degrade(source, err)
			}
		}()
	}
	load("bank_transactions", func() (err error) {
		src.Transactions, err = s.fetcher.FetchBankTransactions(ctx, userID, tenantID, window)
		return err
	})
	load("invoices", func() (err error) {
		src.Invoices, err = s.fetcher.FetchInvoices(ctx, userID, tenantID, window)
		return err
	})
	load("bills", func() (err error) {
		src.Bills, err = s.fetcher.FetchBills(ctx, userID, tenantID, window)
		return err
	})
	load("profit_and_loss", func() (err error) {
		src.ProfitAndLoss, err = s.fetcher.FetchReport(ctx, userID, tenantID, domain.ReportProfitAndLoss, monthlyProfitAndLoss(to, months))
		return err
	})
	wg.Wait()
	sort.Strings(failed)

	start := time.Now()
	found := anomaly.Detect(src)
	s.metrics.RecordEngineDuration("anomalies", time.Since(start))
	s.metrics.RecordAnomalies(found)
	span.SetAttributes(attribute.Int("anomalies", len(found)))

	return &domain.AnomalyScan{Anomalies: found, Period: period, Sources: failed}, nil
}

// Report runs Detect and summarises the findings with recommendations.
func (s *AnomalyService) Report(ctx context.Context, userID, tenantID string, months int) (*domain.AnomalyReport, error) {
	scan, err := s.Detect(ctx, userID, tenantID, months)
	if err != nil {
		return nil, err
	}
	report := anomaly.BuildReport(scan.Anomalies, scan.Period)
	return &report, nil
}

// monthlyProfitAndLoss asks for one column per month: the month containing
// to, plus months-1 comparison periods before it.
func monthlyProfitAndLoss(to time.Time, months int) domain.ReportOptions {
	from := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	opts := domain.ReportOptions{From: &from, To: &to, Timeframe: "MONTH"}
	if months > 1 {
		opts.Periods = months - 1
	}
	return opts
}
