package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-automation/internal/auth"
	"github.com/spec-kit/ticket-automation/internal/config"
	"github.com/spec-kit/ticket-automation/internal/domain"
	apperrors "github.com/spec-kit/ticket-automation/pkg/util/errorutil"
)

// AuthService exchanges the shared operator key for short-lived access tokens.
type AuthService struct {
	keyHash  string
	tokenMgr *auth.TokenManager
	logger   *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, logger *zap.Logger) *AuthService {
	return &AuthService{
		keyHash:  cfg.OperatorKeyHash,
		tokenMgr: auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		logger:   logger,
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// LoginOperator verifies key and issues a token naming operator.
func (s *AuthService) LoginOperator(_ context.Context, operator, key string) (domain.Token, string, error) {
	if err := auth.CompareOperatorKey(s.keyHash, key); err != nil {
		if errors.Is(err, auth.ErrOperatorLoginDisabled) {
			return domain.Token{}, "", apperrors.NewForbidden("operator login disabled")
		}
		s.logger.Warn("operator login rejected", zap.String("operator", operator))
		return domain.Token{}, "", apperrors.NewUnauthorized("invalid credentials")
	}

	meta, token, err := s.tokenMgr.GenerateToken(operator, domain.SubjectTypeOperator)
	if err != nil {
		return domain.Token{}, "", apperrors.NewInternalError(err)
	}
	s.logger.Info("operator logged in", zap.String("operator", operator))
	return meta, token, nil
}
