package store

import (
	"context"
	"log/slog"

	"github.com/ledgerline/ledgerline/internal/authz"
)

type explicitTenantKey struct{}

// WithTenant marks the context with an explicit target tenant. Global admin
// identities without a company of their own must use this for writes; the
// ambient identity is never used to guess a target tenant.
func WithTenant(ctx context.Context, companyID int64) context.Context {
	return context.WithValue(ctx, explicitTenantKey{}, companyID)
}

func explicitTenant(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(explicitTenantKey{}).(int64)
	return id, ok
}

// AuditHook is invoked whenever a global admin operates outside the normal
// tenant scoping, for audit attribution.
type AuditHook func(ctx context.Context, id *authz.AuthContext, op, collection string)

// ViolationHook is invoked whenever a cross-tenant access is blocked.
type ViolationHook func(collection string)

// Scoped decorates a Store so that every operation made on behalf of the
// bound identity is confined to the identity's tenant. Tenant isolation is
// unconditional here: it holds even when a call site forgot the permission
// check. Admin and super_admin identities bypass scoping and observe all
// tenants.
type Scoped struct {
	backend   Store
	identity  *authz.AuthContext
	logger    *slog.Logger
	audit     AuditHook
	violation ViolationHook
}

// NewScoped binds a backend to an identity.
func NewScoped(backend Store, identity *authz.AuthContext, logger *slog.Logger) *Scoped {
	return &Scoped{backend: backend, identity: identity, logger: logger}
}

// WithAuditHook attaches an attribution hook for admin bypass operations.
func (s *Scoped) WithAuditHook(hook AuditHook) *Scoped {
	s.audit = hook
	return s
}

// WithViolationHook attaches a hook fired for blocked cross-tenant accesses.
func (s *Scoped) WithViolationHook(hook ViolationHook) *Scoped {
	s.violation = hook
	return s
}

// Unscoped exposes the raw backend for administrative call sites. Non-admin
// identities are refused.
func (s *Scoped) Unscoped() (Store, error) {
	if !s.identity.IsGlobalAdmin() {
		return nil, ErrForbiddenCrossTenantAccess
	}
	return s.backend, nil
}

// tenant resolves the tenant every non-admin operation is confined to.
// Fails closed when the identity has no company.
func (s *Scoped) tenant(ctx context.Context) (int64, error) {
	if s.identity == nil {
		return 0, ErrMissingTenantContext
	}
	if explicit, ok := explicitTenant(ctx); ok {
		if !s.identity.IsGlobalAdmin() && explicit != s.identity.CompanyID {
			return 0, ErrForbiddenCrossTenantAccess
		}
		return explicit, nil
	}
	if s.identity.CompanyID == 0 {
		return 0, ErrMissingTenantContext
	}
	return s.identity.CompanyID, nil
}

// Select merges the tenant filter over the caller's filter. A caller-supplied
// company_id is always overridden; it is never trusted from input.
func (s *Scoped) Select(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	if s.identity.IsGlobalAdmin() {
		s.attribute(ctx, "select", collection)
		return s.backend.Select(ctx, collection, filter)
	}
	tenant, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	scoped := filter.Clone()
	scoped[TenantField] = tenant
	return s.backend.Select(ctx, collection, scoped)
}

// SelectOne fetches by id and post-verifies tenant ownership. A cross-tenant
// record surfaces as not-found, never as the record and never as forbidden.
func (s *Scoped) SelectOne(ctx context.Context, collection string, id int64) (Record, error) {
	rec, err := s.backend.SelectOne(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if s.identity.IsGlobalAdmin() {
		s.attribute(ctx, "select_one", collection)
		return rec, nil
	}
	tenant, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	if !equalValues(rec[TenantField], tenant) {
		if s.logger != nil {
			s.logger.Warn("cross-tenant read blocked",
				slog.Int64("user_id", s.identity.UserID),
				slog.String("collection", collection),
				slog.Int64("record_id", id))
		}
		if s.violation != nil {
			s.violation(collection)
		}
		return nil, ErrNotFound
	}
	return rec, nil
}

// SelectBy behaves like Select with a single-field filter.
func (s *Scoped) SelectBy(ctx context.Context, collection, field string, value any) ([]Record, error) {
	return s.Select(ctx, collection, Filter{field: value})
}

// Insert stamps the resolved tenant onto the record, overwriting any caller
// supplied company_id. This closes the path where a caller writes into
// another tenant's namespace.
func (s *Scoped) Insert(ctx context.Context, collection string, rec Record) (Record, error) {
	tenant, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	stamped := rec.Clone()
	stamped[TenantField] = tenant
	if s.identity.IsGlobalAdmin() {
		s.attribute(ctx, "insert", collection)
	}
	return s.backend.Insert(ctx, collection, stamped)
}

// InsertMany stamps the resolved tenant onto every record in the batch.
func (s *Scoped) InsertMany(ctx context.Context, collection string, recs []Record) ([]Record, error) {
	tenant, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	stamped := make([]Record, 0, len(recs))
	for _, rec := range recs {
		c := rec.Clone()
		c[TenantField] = tenant
		stamped = append(stamped, c)
	}
	if s.identity.IsGlobalAdmin() {
		s.attribute(ctx, "insert_many", collection)
	}
	return s.backend.InsertMany(ctx, collection, stamped)
}

// Update verifies ownership before mutating. A cross-tenant target reports
// not-found rather than a silent no-op. The tenant field itself cannot be
// changed through a scoped update.
func (s *Scoped) Update(ctx context.Context, collection string, id int64, changes Record) (Record, error) {
	if s.identity.IsGlobalAdmin() {
		s.attribute(ctx, "update", collection)
		return s.backend.Update(ctx, collection, id, changes)
	}
	tenant, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.SelectOne(ctx, collection, id); err != nil {
		return nil, err
	}
	clean := changes.Clone()
	clean[TenantField] = tenant
	return s.backend.Update(ctx, collection, id, clean)
}

// UpdateMany merges the tenant filter into the caller's filter so only
// in-tenant rows are affected, however broad the caller's filter is.
func (s *Scoped) UpdateMany(ctx context.Context, collection string, filter Filter, changes Record) (int64, error) {
	if s.identity.IsGlobalAdmin() {
		s.attribute(ctx, "update_many", collection)
		return s.backend.UpdateMany(ctx, collection, filter, changes)
	}
	tenant, err := s.tenant(ctx)
	if err != nil {
		return 0, err
	}
	scoped := filter.Clone()
	scoped[TenantField] = tenant
	clean := changes.Clone()
	clean[TenantField] = tenant
	return s.backend.UpdateMany(ctx, collection, scoped, clean)
}

// Delete verifies ownership before removing the record.
func (s *Scoped) Delete(ctx context.Context, collection string, id int64) error {
	if s.identity.IsGlobalAdmin() {
		s.attribute(ctx, "delete", collection)
		return s.backend.Delete(ctx, collection, id)
	}
	if _, err := s.SelectOne(ctx, collection, id); err != nil {
		return err
	}
	return s.backend.Delete(ctx, collection, id)
}

// DeleteMany merges the tenant filter into the caller's filter.
func (s *Scoped) DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error) {
	if s.identity.IsGlobalAdmin() {
		s.attribute(ctx, "delete_many", collection)
		return s.backend.DeleteMany(ctx, collection, filter)
	}
	tenant, err := s.tenant(ctx)
	if err != nil {
		return 0, err
	}
	scoped := filter.Clone()
	scoped[TenantField] = tenant
	return s.backend.DeleteMany(ctx, collection, scoped)
}

func (s *Scoped) attribute(ctx context.Context, op, collection string) {
	if s.audit != nil {
		s.audit(ctx, s.identity, op, collection)
	}
}
