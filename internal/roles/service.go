package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// RepositoryPort defines data access methods for role definitions.
type RepositoryPort interface {
	GetByID(ctx context.Context, id int64) (*authz.RoleDefinition, error)
	GetByName(ctx context.Context, companyID int64, name string) (*authz.RoleDefinition, error)
	ListByCompany(ctx context.Context, companyID int64) ([]authz.RoleDefinition, error)
	DefaultForCompany(ctx context.Context, companyID int64) (*authz.RoleDefinition, error)
	Create(ctx context.Context, def *authz.RoleDefinition) (*authz.RoleDefinition, error)
	Update(ctx context.Context, def *authz.RoleDefinition) (*authz.RoleDefinition, error)
	Delete(ctx context.Context, id int64) error
	SetDefault(ctx context.Context, companyID, roleID int64) error
}

// Service handles role definition business logic and keeps the cache
// coherent with every mutation.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// ResolveForUser returns the tenant's definition for the given role name, or
// nil when none exists so the caller falls back to the default permission
// table. Concurrent lookups for the same role collapse into one fetch.
func (s *Service) ResolveForUser(ctx context.Context, companyID int64, roleName string) (*authz.RoleDefinition, error) {
	roleName = strings.TrimSpace(roleName)
	if roleName == "" || companyID == 0 {
		return nil, nil
	}
	if def := s.cache.Get(ctx, companyID, roleName); def != nil {
		return def, nil
	}

	key := fmt.Sprintf("%d:%s", companyID, strings.ToLower(roleName))
	v, err, _ := s.group.Do(key, func() (any, error) {
		def, err := s.repo.GetByName(ctx, companyID, roleName)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return (*authz.RoleDefinition)(nil), nil
			}
			return nil, err
		}
		if err := s.cache.Set(ctx, def); err != nil && s.logger != nil {
			s.logger.Warn("role cache set", slog.Any("error", err))
		}
		return def, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*authz.RoleDefinition), nil
}

// List returns all role definitions for a tenant.
func (s *Service) List(ctx context.Context, companyID int64) ([]authz.RoleDefinition, error) {
	return s.repo.ListByCompany(ctx, companyID)
}

// Get fetches one role definition.
func (s *Service) Get(ctx context.Context, id int64) (*authz.RoleDefinition, error) {
	return s.repo.GetByID(ctx, id)
}

// DefaultForCompany returns the tenant's auto-assignable role, nil when none
// is marked.
func (s *Service) DefaultForCompany(ctx context.Context, companyID int64) (*authz.RoleDefinition, error) {
	def, err := s.repo.DefaultForCompany(ctx, companyID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return def, nil
}

// Create validates and persists a new role definition.
func (s *Service) Create(ctx context.Context, def *authz.RoleDefinition) (*authz.RoleDefinition, error) {
	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" {
		return nil, errors.New("roles: role name required")
	}
	if def.CompanyID == 0 {
		return nil, errors.New("roles: company required")
	}
	created, err := s.repo.Create(ctx, def)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, created.CompanyID, created.Name)
	return created, nil
}

// Update persists changes to an existing role definition.
func (s *Service) Update(ctx context.Context, def *authz.RoleDefinition) (*authz.RoleDefinition, error) {
	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" {
		return nil, errors.New("roles: role name required")
	}
	previous, err := s.repo.GetByID(ctx, def.ID)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, def)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, previous.CompanyID, previous.Name)
	s.invalidate(ctx, updated.CompanyID, updated.Name)
	return updated, nil
}

// Delete removes a role definition.
func (s *Service) Delete(ctx context.Context, id int64) error {
	def, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, def.CompanyID, def.Name)
	return nil
}

// SetDefault marks one role as the tenant's default.
func (s *Service) SetDefault(ctx context.Context, companyID, roleID int64) error {
	return s.repo.SetDefault(ctx, companyID, roleID)
}

func (s *Service) invalidate(ctx context.Context, companyID int64, name string) {
	if err := s.cache.Invalidate(ctx, companyID, name); err != nil && s.logger != nil {
		s.logger.Warn("role cache invalidate", slog.Any("error", err))
	}
}
