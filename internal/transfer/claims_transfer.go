package transfer

import "github.com/golang-jwt/jwt/v5"

// CustomClaims is the service token the chat layer presents; TenantID scopes
// every API call to one tenant.
type CustomClaims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}
