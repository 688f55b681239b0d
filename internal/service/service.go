// Package service orchestrates the analytics engines over the accounting
// provider and the local stores.
package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/observability"
	"github.com/boddenberg/cfo-assistant-go/internal/port"
)

var tracer = otel.Tracer("service")

// Option configures a service.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, making date windows reproducible.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func today(now func() time.Time) time.Time {
	t := now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// monthWindow returns [to - months, to] where to is today.
func monthWindow(now func() time.Time, months int) (time.Time, time.Time, domain.Period) {
	to := today(now)
	from := to.AddDate(0, -months, 0)
	return from, to, periodOf(from, to)
}

// dayWindow returns [to - days, to] where to is today.
func dayWindow(now func() time.Time, days int) (time.Time, time.Time) {
	to := today(now)
	return to.AddDate(0, 0, -days), to
}

func periodOf(from, to time.Time) domain.Period {
	return domain.Period{From: from.Format(domain.DateLayout), To: to.Format(domain.DateLayout)}
}

func requireTenant(tenantID string) error {
	if tenantID == "" {
		return &domain.ErrValidation{Field: "tenantId", Message: "is required"}
	}
	return nil
}

func requireOwner(userID, tenantID string) error {
	if userID == "" {
		return &domain.ErrValidation{Field: "userId", Message: "is required"}
	}
	return requireTenant(tenantID)
}

// authorize fails with ErrNotFound unless the user holds an active
// connection to the tenant.
func authorize(ctx context.Context, tenants port.TenantStore, userID, tenantID string) error {
	if err := requireOwner(userID, tenantID); err != nil {
		return err
	}
	_, err := tenants.Find(ctx, userID, tenantID)
	return err
}

// checkRange validates an optional positive count; zero takes def.
func checkRange(field string, v, def, max int) (int, error) {
	if v == 0 {
		return def, nil
	}
	if v < 0 || v > max {
		return 0, &domain.ErrValidation{Field: field, Message: fmt.Sprintf("must be between 1 and %d", max)}
	}
	return v, nil
}

// upstream records a failed provider fetch and wraps it with the source name.
func upstream(metrics *observability.Metrics, logger *zap.Logger, source, tenantID string, err error) error {
	metrics.IncrUpstreamError(source)
	logger.Error("provider fetch failed",
		zap.String("source", source),
		zap.String("tenant_id", tenantID),
		zap.Error(err),
	)
	return fmt.Errorf("fetch %s: %w", source, err)
}

func rate(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part) / float64(total) * 100)
}
