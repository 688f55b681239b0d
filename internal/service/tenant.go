package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/port"
)

// TenantService manages which provider organisations a user may query.
type TenantService struct {
	tenants port.TenantStore
	logger  *zap.Logger
	now     func() time.Time
}

func NewTenantService(tenants port.TenantStore, logger *zap.Logger, opts ...Option) *TenantService {
	o := applyOptions(opts)
	return &TenantService{tenants: tenants, logger: logger, now: o.now}
}

// Connect stores an active connection for the user, replacing the token of
// an existing one. The tenant name defaults to the tenant id.
func (s *TenantService) Connect(ctx context.Context, userID string, req domain.ConnectTenantRequest) (*domain.TenantConnection, error) {
	tenantID := strings.TrimSpace(req.TenantID)
	if err := requireOwner(userID, tenantID); err != nil {
		return nil, err
	}
	if req.TokenExpiresAt != nil && !req.TokenExpiresAt.After(s.now()) {
		return nil, &domain.ErrValidation{Field: "tokenExpiresAt", Message: "must be in the future"}
	}
	name := strings.TrimSpace(req.TenantName)
	if name == "" {
		name = tenantID
	}

	conn := &domain.TenantConnection{
		UserID:         userID,
		TenantID:       tenantID,
		TenantName:     name,
		TenantType:     req.TenantType,
		AccessToken:    req.AccessToken,
		TokenExpiresAt: req.TokenExpiresAt,
		IsActive:       true,
		ConnectedAt:    s.now().UTC(),
	}
	if err := s.tenants.Save(ctx, conn); err != nil {
		return nil, err
	}
	s.logger.Info("tenant connected",
		zap.String("user_id", userID),
		zap.String("tenant_id", tenantID),
		zap.Bool("own_token", req.AccessToken != ""),
	)
	return conn, nil
}

func (s *TenantService) List(ctx context.Context, userID string) ([]domain.TenantConnection, error) {
	if userID == "" {
		return nil, &domain.ErrValidation{Field: "userId", Message: "is required"}
	}
	return s.tenants.ListActive(ctx, userID)
}

// Disconnect deactivates the connection. Local records synced from the
// tenant stay in place.
func (s *TenantService) Disconnect(ctx context.Context, userID, tenantID string) error {
	if err := requireOwner(userID, tenantID); err != nil {
		return err
	}
	if err := s.tenants.Deactivate(ctx, userID, tenantID); err != nil {
		return err
	}
	s.logger.Info("tenant disconnected",
		zap.String("user_id", userID),
		zap.String("tenant_id", tenantID),
	)
	return nil
}
