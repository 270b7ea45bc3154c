package authz

import "log/slog"

// DecisionObserver receives the outcome of every permission decision.
// Implementations must be safe for concurrent use.
type DecisionObserver interface {
	PermissionDecision(role string, permission Permission, allowed bool)
}

// Evaluator answers permission questions for an identity. It is purely
// functional over its inputs and the static default role table: no I/O, no
// mutation, safe for concurrent use. The zero value is usable.
type Evaluator struct {
	Logger   *slog.Logger
	Observer DecisionObserver
}

// HasPermission reports whether the identity may perform the given
// permission. An empty permission means the operation requires none and is
// always allowed. Admin and super_admin roles bypass the permission set
// lookup entirely; this branch is deliberate and must stay ahead of the set
// resolution so that permission-table drift can never narrow admin access.
func (e *Evaluator) HasPermission(id *AuthContext, p Permission) bool {
	if p == "" {
		return true
	}
	if id == nil {
		return false
	}
	if id.IsGlobalAdmin() {
		e.observe(id.Role, p, true)
		return true
	}

	allowed := e.EffectivePermissions(id).Has(NormalizeTag(p))
	if !allowed && e.Logger != nil {
		e.Logger.Debug("permission denied",
			slog.Int64("user_id", id.UserID),
			slog.String("role", id.Role),
			slog.String("permission", string(p)))
	}
	e.observe(id.Role, p, allowed)
	return allowed
}

// HasAny reports whether the identity holds at least one of the given
// permissions. An empty list is vacuously true.
func (e *Evaluator) HasAny(id *AuthContext, perms []Permission) bool {
	if len(perms) == 0 {
		return true
	}
	for _, p := range perms {
		if e.HasPermission(id, p) {
			return true
		}
	}
	return false
}

// HasAll reports whether the identity holds every one of the given
// permissions. An empty list is vacuously true.
func (e *Evaluator) HasAll(id *AuthContext, perms []Permission) bool {
	for _, p := range perms {
		if !e.HasPermission(id, p) {
			return false
		}
	}
	return true
}

// Missing returns the subset of required permissions the identity lacks.
// Intended for diagnostics and error messages, never for the decision
// itself.
func (e *Evaluator) Missing(id *AuthContext, required []Permission) []Permission {
	missing := make([]Permission, 0, len(required))
	for _, p := range required {
		if !e.HasPermission(id, p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// EffectivePermissions resolves the permission set actually used for
// decisions: the attached role definition when present, otherwise the
// default table entry for the identity's role name.
func (e *Evaluator) EffectivePermissions(id *AuthContext) PermissionSet {
	if id == nil {
		return PermissionSet{}
	}
	if rd := id.RoleDefinition; rd != nil && rd.Permissions != nil {
		return rd.Permissions
	}
	return DefaultPermissionsFor(ResolveRoleType(id.Role))
}

func (e *Evaluator) observe(role string, p Permission, allowed bool) {
	if e.Observer != nil {
		e.Observer.PermissionDecision(role, p, allowed)
	}
}
