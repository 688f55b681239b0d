package domain

import "time"

// TenantConnection links a user to an accounting-provider organisation.
// Provider data for a tenant is only served to users holding an active
// connection to it. The access token never leaves the server.
type TenantConnection struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	TenantID       string     `json:"tenantId"`
	TenantName     string     `json:"tenantName"`
	TenantType     string     `json:"tenantType,omitempty"`
	AccessToken    string     `json:"-"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt,omitempty"`
	IsActive       bool       `json:"isActive"`
	ConnectedAt    time.Time  `json:"connectedAt"`
}

// Expired reports whether the stored token is past its expiry at now.
func (c *TenantConnection) Expired(now time.Time) bool {
	return c.TokenExpiresAt != nil && !now.Before(*c.TokenExpiresAt)
}

// ConnectTenantRequest registers or refreshes a connection. Token exchange
// with the provider happens elsewhere; the caller hands over its result.
type ConnectTenantRequest struct {
	TenantID       string     `json:"tenantId"`
	TenantName     string     `json:"tenantName"`
	TenantType     string     `json:"tenantType,omitempty"`
	AccessToken    string     `json:"accessToken,omitempty"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt,omitempty"`
}
