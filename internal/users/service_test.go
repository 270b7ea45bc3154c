package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerline/ledgerline/internal/audit"
	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/store"
)

type recordingAudit struct {
	events []audit.Event
}

func (r *recordingAudit) Record(_ context.Context, e audit.Event) {
	r.events = append(r.events, e)
}

func seedBackend(t *testing.T) store.Store {
	t.Helper()
	backend := store.NewMemory()
	admin := &authz.AuthContext{UserID: 1, Role: "admin"}
	seed := store.NewScoped(backend, admin, nil)
	ten := store.WithTenant(context.Background(), 10)
	for _, rec := range []store.Record{
		{"email": "owner@acme.test", "role": "admin", "status": "active"},
		{"email": "clerk@acme.test", "role": "user", "status": "active"},
	} {
		_, err := seed.Insert(ten, Collection, rec)
		require.NoError(t, err)
	}
	other := store.WithTenant(context.Background(), 20)
	_, err := seed.Insert(other, Collection, store.Record{
		"email": "boss@rival.test", "role": "admin", "status": "active",
	})
	require.NoError(t, err)
	return backend
}

func manager() *authz.AuthContext {
	return &authz.AuthContext{
		UserID:    1,
		Role:      "accountant",
		CompanyID: 10,
		Status:    authz.StatusActive,
		RoleDefinition: &authz.RoleDefinition{
			Name:        "office manager",
			RoleType:    authz.RoleAccountant,
			Permissions: authz.NewPermissionSet(authz.PermManageUsers),
		},
	}
}

func TestListScopedToTenant(t *testing.T) {
	svc := NewService(seedBackend(t), &authz.Evaluator{}, nil, nil)

	accounts, err := svc.List(context.Background(), manager())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	for _, u := range accounts {
		assert.Equal(t, int64(10), u.CompanyID)
	}
}

func TestManageUsersRequired(t *testing.T) {
	svc := NewService(seedBackend(t), &authz.Evaluator{}, nil, nil)
	clerk := &authz.AuthContext{UserID: 2, Role: "user", CompanyID: 10, Status: authz.StatusActive}

	_, err := svc.List(context.Background(), clerk)
	require.ErrorIs(t, err, authz.ErrPermissionDenied)
}

func TestCreateHashesPasswordAndStampsTenant(t *testing.T) {
	svc := NewService(seedBackend(t), &authz.Evaluator{}, nil, nil)

	created, err := svc.Create(context.Background(), manager(), User{
		Email:     "  New@Acme.Test ",
		Role:      "user",
		CompanyID: 99, // ignored
	}, "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, int64(10), created.CompanyID)
	assert.Equal(t, "new@acme.test", created.Email)
	assert.Equal(t, authz.StatusPending, created.Status)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("hunter2hunter2")))
}

func TestAssignRole(t *testing.T) {
	svc := NewService(seedBackend(t), &authz.Evaluator{}, nil, nil)

	updated, err := svc.AssignRole(context.Background(), manager(), 2, "stock_manager")
	require.NoError(t, err)
	assert.Equal(t, "stock_manager", updated.Role)
}

func TestAssignRoleRefusesGlobalAdminPromotion(t *testing.T) {
	backend := seedBackend(t)
	recorder := &recordingAudit{}
	svc := NewService(backend, &authz.Evaluator{}, recorder, nil)

	for _, role := range []string{"super_admin", "admin", "Admin", "SUPER_ADMIN"} {
		_, err := svc.AssignRole(context.Background(), manager(), 2, role)
		require.ErrorIs(t, err, ErrRoleEscalation, "role %q must be refused", role)
	}

	// The target account keeps its original role, so it still resolves as a
	// tenant-bound identity.
	admin := &authz.AuthContext{UserID: 99, Role: "admin"}
	rec, err := store.NewScoped(backend, admin, nil).SelectOne(context.Background(), Collection, 2)
	require.NoError(t, err)
	assert.Equal(t, "user", rec["role"])

	require.NotEmpty(t, recorder.events)
	last := recorder.events[len(recorder.events)-1]
	assert.Equal(t, audit.DecisionDenied, last.Decision)
	assert.Equal(t, "grant_role", last.Action)
}

func TestCreateRefusesGlobalAdminRole(t *testing.T) {
	svc := NewService(seedBackend(t), &authz.Evaluator{}, nil, nil)

	_, err := svc.Create(context.Background(), manager(), User{
		Email: "shadow@acme.test",
		Role:  "super_admin",
	}, "hunter2hunter2")
	require.ErrorIs(t, err, ErrRoleEscalation)
}

func TestGlobalAdminMayGrantAdminRole(t *testing.T) {
	svc := NewService(seedBackend(t), &authz.Evaluator{}, nil, nil)
	admin := &authz.AuthContext{UserID: 99, Role: "super_admin", Status: authz.StatusActive}

	updated, err := svc.AssignRole(context.Background(), admin, 2, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", updated.Role)
}

func TestCrossTenantTargetsReadAsNotFound(t *testing.T) {
	svc := NewService(seedBackend(t), &authz.Evaluator{}, nil, nil)

	_, err := svc.Get(context.Background(), manager(), 3)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.AssignRole(context.Background(), manager(), 3, "user")
	require.ErrorIs(t, err, store.ErrNotFound)

	err = svc.Delete(context.Background(), manager(), 3)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSelfDeletionRefused(t *testing.T) {
	svc := NewService(seedBackend(t), &authz.Evaluator{}, nil, nil)

	err := svc.Delete(context.Background(), manager(), 1)
	require.ErrorIs(t, err, ErrSelfDeletion)
}

func TestSetStatusDeactivates(t *testing.T) {
	svc := NewService(seedBackend(t), &authz.Evaluator{}, nil, nil)

	updated, err := svc.SetStatus(context.Background(), manager(), 2, authz.StatusInactive)
	require.NoError(t, err)
	assert.Equal(t, authz.StatusInactive, updated.Status)
}
