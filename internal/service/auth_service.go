package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/epcr-service/internal/auth"
	"github.com/spec-kit/epcr-service/internal/config"
	"github.com/spec-kit/epcr-service/internal/domain"
	"github.com/spec-kit/epcr-service/internal/repository"
	apperrors "github.com/spec-kit/epcr-service/pkg/util/errorutil"
)

// CodeSender delivers one-time sign-in codes.
type CodeSender interface {
	SendSignInCode(ctx context.Context, email, code string) error
}

// AuthService coordinates passwordless sign-in.
type AuthService struct {
	users       repository.UserRepository
	codes       repository.SignInCodeStore
	sender      CodeSender
	tokenMgr    *auth.TokenManager
	bcryptCost  int
	codeTTL     time.Duration
	maxAttempts int64
	logger      *zap.Logger
}

// AuthDependencies encapsulates collaborators for auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	CodeStore  repository.SignInCodeStore
	CodeSender CodeSender
	Tokens     *auth.TokenManager
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	tokens := deps.Tokens
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.App.Name, cfg.Auth.AccessTokenTTLMinutes)
	}
	ttl := time.Duration(cfg.Auth.SignInCodeTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	maxAttempts := cfg.Auth.SignInMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:       deps.UserRepo,
		codes:       deps.CodeStore,
		sender:      deps.CodeSender,
		tokenMgr:    tokens,
		bcryptCost:  cfg.Auth.BcryptCost,
		codeTTL:     ttl,
		maxAttempts: int64(maxAttempts),
		logger:      logger,
	}
}

// RequestSignInCode issues a code for a known email. Unknown emails succeed silently so
// the endpoint cannot be used to enumerate accounts.
func (s *AuthService) RequestSignInCode(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Debug("sign-in requested for unknown email")
			return nil
		}
		return err
	}

	code, err := auth.GenerateCode()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	hash, err := auth.HashCode(code, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.codes.Save(ctx, email, hash, s.codeTTL); err != nil {
		return err
	}
	if s.sender != nil {
		if err := s.sender.SendSignInCode(ctx, email, code); err != nil {
			return err
		}
	}
	return nil
}

// VerifySignInCode exchanges a valid code for an access token. Codes are single use.
func (s *AuthService) VerifySignInCode(ctx context.Context, email, code string) (*domain.User, string, time.Time, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	hash, err := s.codes.Get(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid or expired code")
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.CompareCode(hash, strings.TrimSpace(code)); err != nil {
		s.recordFailure(ctx, email)
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid or expired code")
	}
	if err := s.codes.Delete(ctx, email); err != nil {
		s.logger.Warn("failed to delete used sign-in code", zap.Error(err))
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid or expired code")
		}
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// recordFailure counts a wrong code and burns the code once the attempt budget is
// spent. A counter failure burns it too.
func (s *AuthService) recordFailure(ctx context.Context, email string) {
	attempts, err := s.codes.RecordFailure(ctx, email, s.codeTTL)
	if err != nil {
		s.logger.Warn("sign-in attempt counter failed", zap.Error(err))
	} else if attempts < s.maxAttempts {
		return
	}
	if err := s.codes.Delete(ctx, email); err != nil {
		s.logger.Warn("failed to revoke sign-in code", zap.Error(err))
		return
	}
	s.logger.Info("sign-in code revoked after failed attempts", zap.Int64("attempts", attempts))
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperrors.NewValidationError("invalid email", map[string]any{"field": "email"})
	}
	return email, nil
}
