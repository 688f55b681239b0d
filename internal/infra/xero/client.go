// Package xero implements port.DocumentFetcher against the Xero
// accounting API.
package xero

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/resilience"
	"github.com/boddenberg/cfo-assistant-go/internal/port"
)

const serviceName = "xero"

var tracer = otel.Tracer("infra/xero")

// Client fetches documents and reports. Every call runs inside the bulkhead
// and circuit breaker and is retried with backoff.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     port.TokenSource
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
	pageSize   int
	maxPages   int
	logger     *zap.Logger
}

var _ port.DocumentFetcher = (*Client)(nil)

// NewClient creates a Client. pageSize is the provider's page length and
// decides when pagination stops.
func NewClient(
	httpClient *http.Client,
	baseURL string,
	tokens port.TokenSource,
	cb *gobreaker.CircuitBreaker,
	cfg resilience.Config,
	pageSize int,
	logger *zap.Logger,
) *Client {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		tokens:     tokens,
		cb:         cb,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:        cfg,
		pageSize:   pageSize,
		maxPages:   50,
		logger:     logger,
	}
}

// get issues GET baseURL+path with userID's token for tenantID and decodes
// the JSON body into out. resource and id describe the target for NotFound
// errors. A missing connection fails before any request is made.
func (c *Client) get(ctx context.Context, userID, tenantID, path string, query url.Values, out any, resource, id string) error {
	ctx, span := tracer.Start(ctx, "Xero.GET "+resource)
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("http.path", path),
	)

	token, err := c.tokens.Token(ctx, userID, tenantID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	err = c.bulkhead.Do(ctx, func() error {
		_, err := c.cb.Execute(func() (any, error) {
			return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
				return c.attempt(ctx, token, tenantID, path, query, out, resource, id)
			})
		})
		return err
	})
	if err == nil {
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: serviceName}
	}
	c.logger.Warn("xero request failed",
		zap.String("tenant_id", tenantID),
		zap.String("path", path),
		zap.Error(err),
	)
	return &domain.ErrExternalService{Service: serviceName, Err: err}
}

func (c *Client) attempt(ctx context.Context, token, tenantID, path string, query url.Values, out any, resource, id string) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return resilience.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("xero-tenant-id", tenantID)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resilience.Permanent(fmt.Errorf("decode %s: %w", resource, err))
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return resilience.Permanent(&domain.ErrNotFound{Resource: resource, ID: id})
	case resp.StatusCode == http.StatusTooManyRequests:
		return &domain.ErrRateLimited{Service: serviceName, RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return resilience.Permanent(&domain.ErrUnauthorized{
			Message: fmt.Sprintf("xero rejected credentials for tenant %s (status %d)", tenantID, resp.StatusCode),
		})
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return resilience.Permanent(fmt.Errorf("xero returned status %d: %s", resp.StatusCode, snippet(resp.Body)))
	}
	return fmt.Errorf("xero returned status %d", resp.StatusCode)
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP
// date. Unparseable values yield 0, deferring to the normal backoff.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return string(b)
}

// ConnectionTokenSource serves the token stored on the user's tenant
// connection. Connections saved without a token use Fallback, which lets a
// single development token serve every registered tenant.
type ConnectionTokenSource struct {
	Tenants  port.TenantStore
	Fallback string
	Now      func() time.Time
}

var _ port.TokenSource = ConnectionTokenSource{}

func (s ConnectionTokenSource) Token(ctx context.Context, userID, tenantID string) (string, error) {
	conn, err := s.Tenants.Find(ctx, userID, tenantID)
	if err != nil {
		return "", err
	}
	if conn.AccessToken == "" {
		if s.Fallback == "" {
			return "", &domain.ErrUnauthorized{Message: "no access token stored for tenant " + tenantID}
		}
		return s.Fallback, nil
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if conn.Expired(now()) {
		return "", &domain.ErrUnauthorized{Message: "access token for tenant " + tenantID + " has expired; reconnect the organisation"}
	}
	return conn.AccessToken, nil
}
