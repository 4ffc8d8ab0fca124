package dto

import (
	"time"

	"github.com/helpdesk-labs/ticketing/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// PrincipalResponse describes the logged-in user.
type PrincipalResponse struct {
	ID          int64       `json:"id"`
	DisplayName string      `json:"displayName"`
	Role        domain.Role `json:"role"`
}

// TokenResponse carries a capability token for the estimation service.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewPrincipalResponse maps a principal.
func NewPrincipalResponse(p domain.Principal) PrincipalResponse {
	return PrincipalResponse{ID: p.ID, DisplayName: p.DisplayName, Role: p.Role}
}

// NewTokenResponse maps an issued token.
func NewTokenResponse(t domain.CapabilityToken) TokenResponse {
	return TokenResponse{Token: t.Value, ExpiresAt: t.ExpiresAt}
}
