package authz

import (
	"strings"
	"time"
)

// RoleType identifies one of the built-in role kinds.
type RoleType string

const (
	RoleAdmin        RoleType = "admin"
	RoleSuperAdmin   RoleType = "super_admin"
	RoleAccountant   RoleType = "accountant"
	RoleStockManager RoleType = "stock_manager"
	RoleUser         RoleType = "user"
)

// Status describes the lifecycle state of a user account.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusPending  Status = "pending"
)

// AuthContext carries the authenticated caller's identity for one request.
// It is constructed by the auth layer from a session or bearer token and is
// immutable for the duration of the request.
type AuthContext struct {
	UserID    int64
	Email     string
	Role      string
	CompanyID int64 // zero only for super_admin identities
	Status    Status

	// RoleDefinition is attached when the caller's role has already been
	// resolved from storage. When nil the evaluator falls back to the
	// default role permission table.
	RoleDefinition *RoleDefinition
}

// IsGlobalAdmin reports whether the identity bypasses permission and tenant
// checks entirely.
func (a *AuthContext) IsGlobalAdmin() bool {
	if a == nil {
		return false
	}
	return IsGlobalAdminRole(a.Role)
}

// IsGlobalAdminRole reports whether a role name, matched the same way
// IsGlobalAdmin matches it, would bypass permission and tenant checks.
// Anything that hands out role names must consult this before writing one.
func IsGlobalAdminRole(role string) bool {
	return strings.EqualFold(role, string(RoleAdmin)) || strings.EqualFold(role, string(RoleSuperAdmin))
}

// RoleDefinition is a named, tenant-scoped bundle of permissions.
type RoleDefinition struct {
	ID          int64
	Name        string
	RoleType    RoleType
	Description string
	Permissions PermissionSet
	CompanyID   int64
	IsDefault   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
