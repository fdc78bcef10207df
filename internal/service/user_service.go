package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/epcr-service/internal/domain"
	"github.com/spec-kit/epcr-service/internal/policy"
	"github.com/spec-kit/epcr-service/internal/repository"
	apperrors "github.com/spec-kit/epcr-service/pkg/util/errorutil"
)

// UserService manages staff accounts.
type UserService struct {
	users repository.UserRepository
	gate  *Gate
}

// UserListFilters define listing parameters.
type UserListFilters struct {
	Role   *domain.Role
	Limit  int
	Offset int
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, gate *Gate) *UserService {
	return &UserService{users: users, gate: gate}
}

func requireAdmin(actor policy.Actor) error {
	if !actor.Role.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// CreateUser adds a staff account.
func (s *UserService) CreateUser(ctx context.Context, actor policy.Actor, name, email string, role domain.Role) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"field": "role"})
	}
	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	user := &domain.User{Name: strings.TrimSpace(name), Email: email, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.gate.Audit(ctx, actor, domain.AuditCreate, domain.ResourceUser, user.ID, map[string]any{"role": role})
	return user, nil
}

// ListUsers lists staff accounts.
func (s *UserService) ListUsers(ctx context.Context, actor policy.Actor, filters UserListFilters) ([]domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if filters.Role != nil && !filters.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"field": "role"})
	}
	return s.users.List(ctx, repository.UserFilter{Role: filters.Role, Limit: filters.Limit, Offset: filters.Offset})
}

// UpdateRole changes a user's role.
func (s *UserService) UpdateRole(ctx context.Context, actor policy.Actor, userID string, role domain.Role) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"field": "role"})
	}
	if !validID(userID) {
		return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, err
	}
	s.gate.Audit(ctx, actor, domain.AuditUpdate, domain.ResourceUser, userID, map[string]any{"role": role})
	return s.users.GetByID(ctx, userID)
}

// BootstrapAdmin creates an admin account for email, or promotes the existing account.
// It runs outside any request so nothing is audited. created reports whether a new
// account was inserted.
func BootstrapAdmin(ctx context.Context, users repository.UserRepository, name, email string) (user *domain.User, created bool, err error) {
	email, err = normalizeEmail(email)
	if err != nil {
		return nil, false, err
	}
	existing, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		if existing.Role == domain.RoleAdmin {
			return existing, false, nil
		}
		if err := users.UpdateRole(ctx, existing.ID, domain.RoleAdmin); err != nil {
			return nil, false, err
		}
		existing.Role = domain.RoleAdmin
		return existing, false, nil
	case err != nil && !errors.Is(err, pgx.ErrNoRows):
		return nil, false, err
	}

	if strings.TrimSpace(name) == "" {
		name = email
	}
	user = &domain.User{Name: strings.TrimSpace(name), Email: email, Role: domain.RoleAdmin}
	if err := users.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}
