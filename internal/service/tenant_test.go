package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/persistence"
	"github.com/boddenberg/cfo-assistant-go/internal/service"
)

func TestTenantService_ConnectListDisconnect(t *testing.T) {
	ctx := context.Background()
	repo := persistence.NewTenantRepository(newTestDB(t))
	svc := service.NewTenantService(repo, newLogger(), clock())

	conn, err := svc.Connect(ctx, testUser, domain.ConnectTenantRequest{TenantID: " tenant-1 ", AccessToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, testTenant, conn.TenantID)
	assert.Equal(t, testTenant, conn.TenantName)
	assert.True(t, conn.IsActive)

	stored, err := repo.Find(ctx, testUser, testTenant)
	require.NoError(t, err)
	assert.Equal(t, "tok", stored.AccessToken)

	list, err := svc.List(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, list, 1)

	others, err := svc.List(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, others)

	require.NoError(t, svc.Disconnect(ctx, testUser, testTenant))
	_, err = repo.Find(ctx, testUser, testTenant)
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)

	err = svc.Disconnect(ctx, testUser, testTenant)
	assert.ErrorAs(t, err, &nf)
}

func TestTenantService_ConnectValidation(t *testing.T) {
	svc := service.NewTenantService(owned(), newLogger(), clock())
	expired := fixedNow.Add(-time.Hour)

	tests := []struct {
		name   string
		userID string
		req    domain.ConnectTenantRequest
	}{
		{"missing user", "", domain.ConnectTenantRequest{TenantID: testTenant}},
		{"missing tenant", testUser, domain.ConnectTenantRequest{TenantID: "  "}},
		{"expired token", testUser, domain.ConnectTenantRequest{TenantID: testTenant, AccessToken: "x", TokenExpiresAt: &expired}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Connect(context.Background(), tt.userID, tt.req)
			var ve *domain.ErrValidation
			assert.ErrorAs(t, err, &ve)
		})
	}
}
