package dto

import (
	"time"

	"github.com/bankdesk/servicedesk/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token       string      `json:"token"`
	ExpiresAt   time.Time   `json:"expires_at"`
	PrincipalID string      `json:"principal_id"`
	Role        domain.Role `json:"role"`
}
