package store

import "errors"

var (
	// ErrNotFound indicates the record does not exist or is not visible to
	// the caller's tenant. Cross-tenant reads surface as not-found so that
	// record existence never leaks across tenants.
	ErrNotFound = errors.New("store: record not found")

	// ErrMissingTenantContext indicates an operation attempted without a
	// resolvable tenant: a non-admin identity with no company, or an admin
	// write without an explicit target tenant.
	ErrMissingTenantContext = errors.New("store: missing tenant context")

	// ErrForbiddenCrossTenantAccess indicates an explicit attempt to operate
	// outside the caller's tenant.
	ErrForbiddenCrossTenantAccess = errors.New("store: cross-tenant access forbidden")

	// ErrUnknownCollection indicates the backend has no such collection.
	ErrUnknownCollection = errors.New("store: unknown collection")
)
