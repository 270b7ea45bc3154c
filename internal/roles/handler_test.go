package roles

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/authz"
)

func newTestHandler(t *testing.T) (*Handler, *Service) {
	t.Helper()
	svc, _ := newTestService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard := authz.Middleware{Evaluator: &authz.Evaluator{}, Logger: logger}
	return NewHandler(logger, svc, guard), svc
}

func serveAs(h *Handler, id *authz.AuthContext, method, target, body string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Route("/api/roles", func(r chi.Router) { h.MountRoutes(r) })
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(authz.ContextWithIdentity(req.Context(), id))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func tenantRoleManager() *authz.AuthContext {
	return &authz.AuthContext{
		UserID:    7,
		Role:      "accountant",
		CompanyID: 10,
		Status:    authz.StatusActive,
		RoleDefinition: &authz.RoleDefinition{
			Name:        "office manager",
			RoleType:    authz.RoleAccountant,
			Permissions: authz.NewPermissionSet(authz.PermManageRoles),
		},
	}
}

func TestCreateRefusesAdminRoleTypeForTenantCaller(t *testing.T) {
	h, _ := newTestHandler(t)

	for _, roleType := range []string{"admin", "super_admin"} {
		body := fmt.Sprintf(`{"name":"escalated","role_type":%q,"permissions":[]}`, roleType)
		rec := serveAs(h, tenantRoleManager(), http.MethodPost, "/api/roles/", body)
		require.Equal(t, http.StatusForbidden, rec.Code, "role_type %q must be refused", roleType)
	}
}

func TestUpdateRefusesAdminRoleTypeForTenantCaller(t *testing.T) {
	h, svc := newTestHandler(t)
	existing, err := svc.Create(context.Background(), &authz.RoleDefinition{
		Name:        "billing_clerk",
		RoleType:    authz.RoleAccountant,
		CompanyID:   10,
		Permissions: authz.NewPermissionSet(authz.PermViewInvoice),
	})
	require.NoError(t, err)

	body := `{"name":"billing_clerk","role_type":"super_admin","permissions":[]}`
	rec := serveAs(h, tenantRoleManager(), http.MethodPut, fmt.Sprintf("/api/roles/%d", existing.ID), body)
	require.Equal(t, http.StatusForbidden, rec.Code)

	kept, err := svc.Get(context.Background(), existing.ID)
	require.NoError(t, err)
	require.Equal(t, authz.RoleAccountant, kept.RoleType)
}

func TestGlobalAdminMayDefineAdminRoleType(t *testing.T) {
	h, _ := newTestHandler(t)
	admin := &authz.AuthContext{UserID: 1, Role: "super_admin", Status: authz.StatusActive}

	body := `{"name":"regional_admin","role_type":"admin","permissions":[]}`
	rec := serveAs(h, admin, http.MethodPost, "/api/roles/?company_id=10", body)
	require.Equal(t, http.StatusCreated, rec.Code)
}
