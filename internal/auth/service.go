package auth

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// RoleResolver loads the tenant's definition for a role name, nil when the
// role has no stored definition.
type RoleResolver interface {
	ResolveForUser(ctx context.Context, companyID int64, roleName string) (*authz.RoleDefinition, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	roles  RoleResolver
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, roles RoleResolver, logger *slog.Logger) *Service {
	return &Service{repo: repo, roles: roles, logger: logger}
}

// Authenticate validates email/password credentials. Lookup failures and
// password mismatches are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if user.Status != authz.StatusActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// BuildContext constructs the request identity for a user, attaching the
// stored role definition when the tenant has one. A resolver failure falls
// back to the default permission table rather than failing the request; the
// evaluator degrades safely without a definition.
func (s *Service) BuildContext(ctx context.Context, user *User) *authz.AuthContext {
	id := &authz.AuthContext{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		CompanyID: user.CompanyID,
		Status:    user.Status,
	}
	if s.roles == nil || user.CompanyID == 0 {
		return id
	}
	def, err := s.roles.ResolveForUser(ctx, user.CompanyID, user.Role)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("resolve role definition", slog.Int64("user_id", user.ID), slog.Any("error", err))
		}
		return id
	}
	id.RoleDefinition = def
	return id
}

// LoadUser fetches a user account by id.
func (s *Service) LoadUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}
