package authz

import (
	"log/slog"
	"net/http"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// Middleware wires permission checks into HTTP routes. The evaluator decides;
// the middleware only translates the outcome to a response.
type Middleware struct {
	Evaluator *Evaluator
	Logger    *slog.Logger
}

// RequirePermission allows the request through only when the identity in
// context holds the permission.
func (m Middleware) RequirePermission(p Permission) func(http.Handler) http.Handler {
	return m.guard(func(id *AuthContext) bool {
		return m.Evaluator.HasPermission(id, p)
	}, []Permission{p})
}

// RequireAny allows the request through when the identity holds at least one
// of the permissions.
func (m Middleware) RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	return m.guard(func(id *AuthContext) bool {
		return m.Evaluator.HasAny(id, perms)
	}, perms)
}

// RequireAll allows the request through only when the identity holds every
// permission.
func (m Middleware) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	return m.guard(func(id *AuthContext) bool {
		return m.Evaluator.HasAll(id, perms)
	}, perms)
}

func (m Middleware) guard(allowed func(*AuthContext) bool, perms []Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			if id == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			if !allowed(id) {
				if m.Logger != nil {
					m.Logger.Warn("permission denied",
						slog.Int64("user_id", id.UserID),
						slog.String("role", id.Role),
						slog.String("path", r.URL.Path))
				}
				err := &PermissionDeniedError{Role: id.Role, Required: perms}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
