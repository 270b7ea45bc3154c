package authz

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPermissionDenied is the sentinel matched by errors.Is for every
// permission denial raised by a Checker.
var ErrPermissionDenied = errors.New("insufficient permissions")

// PermissionDeniedError carries the role and the permission tags that were
// required, for translation into a 403 response or UI message.
type PermissionDeniedError struct {
	Role     string
	Required []Permission
}

func (e *PermissionDeniedError) Error() string {
	tags := make([]string, len(e.Required))
	for i, p := range e.Required {
		tags[i] = string(p)
	}
	return fmt.Sprintf("insufficient permissions: role %q requires %s", e.Role, strings.Join(tags, ", "))
}

func (e *PermissionDeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// Checker binds an evaluator to a single identity for convenience at call
// sites that perform several checks.
type Checker struct {
	eval *Evaluator
	id   *AuthContext
}

// CheckerFor returns a Checker bound to the given identity.
func (e *Evaluator) CheckerFor(id *AuthContext) *Checker {
	return &Checker{eval: e, id: id}
}

// Can reports whether the bound identity holds the permission.
func (c *Checker) Can(p Permission) bool {
	return c.eval.HasPermission(c.id, p)
}

// CanAny reports whether the bound identity holds any of the permissions.
func (c *Checker) CanAny(perms ...Permission) bool {
	return c.eval.HasAny(c.id, perms)
}

// CanAll reports whether the bound identity holds all of the permissions.
func (c *Checker) CanAll(perms ...Permission) bool {
	return c.eval.HasAll(c.id, perms)
}

// Require returns a PermissionDeniedError when the bound identity lacks the
// permission, nil otherwise.
func (c *Checker) Require(p Permission) error {
	if c.eval.HasPermission(c.id, p) {
		return nil
	}
	return &PermissionDeniedError{Role: c.role(), Required: []Permission{p}}
}

// RequireAny returns a PermissionDeniedError when the bound identity holds
// none of the permissions.
func (c *Checker) RequireAny(perms ...Permission) error {
	if c.eval.HasAny(c.id, perms) {
		return nil
	}
	return &PermissionDeniedError{Role: c.role(), Required: perms}
}

func (c *Checker) role() string {
	if c.id == nil {
		return ""
	}
	return c.id.Role
}
