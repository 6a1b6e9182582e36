package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bankdesk/servicedesk/internal/auth"
	"github.com/bankdesk/servicedesk/internal/config"
	"github.com/bankdesk/servicedesk/internal/domain"
	"github.com/bankdesk/servicedesk/internal/repository"
	apperrors "github.com/bankdesk/servicedesk/pkg/util"
)

// AuthService authenticates principals and issues role-bearing tokens.
type AuthService struct {
	principals repository.PrincipalRepository
	tokenMgr   *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, principals repository.PrincipalRepository) *AuthService {
	return &AuthService{
		principals: principals,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
	}
}

// Login authenticates a principal by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Principal, string, time.Time, error) {
	principal, err := s.principals.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if !principal.Active {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("principal inactive")
	}
	if err := auth.ComparePassword(principal.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(principal.ID, principal.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return principal, token, exp, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
