package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// Middleware resolves bearer tokens into request identities. This is the one
// place account status is gated: a non-active user never reaches a handler,
// so downstream permission checks can stay pure functions of role.
type Middleware struct {
	Tokens  *TokenManager
	Service *Service
	Logger  *slog.Logger
}

// RequireIdentity rejects requests without a valid token and attaches the
// resolved identity to the request context.
func (m Middleware) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		userID, err := m.Tokens.Resolve(r.Context(), token)
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
			return
		}
		user, err := m.Service.LoadUser(r.Context(), userID)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("load user for token", slog.Int64("user_id", userID), slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
			return
		}
		if user.Status != authz.StatusActive {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "account is not active")
			return
		}
		id := m.Service.BuildContext(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(authz.ContextWithIdentity(r.Context(), id)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
