package invoices

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/audit"
	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/store"
)

type capturingRecorder struct {
	events []audit.Event
}

func (c *capturingRecorder) Record(_ context.Context, ev audit.Event) {
	c.events = append(c.events, ev)
}

func seedBackend(t *testing.T) store.Store {
	t.Helper()
	backend := store.NewMemory()
	admin := &authz.AuthContext{UserID: 1, Role: "admin"}
	seed := store.NewScoped(backend, admin, nil)
	ctx := store.WithTenant(context.Background(), 10)
	for _, rec := range []store.Record{
		{"customer_name": "Acme Ltd", "reference": "INV-001", "status": StatusDraft, "amount_cents": int64(125000)},
		{"customer_name": "Beta Co", "reference": "INV-002", "status": StatusSent, "amount_cents": int64(54000)},
	} {
		_, err := seed.Insert(ctx, Collection, rec)
		require.NoError(t, err)
	}
	other := store.WithTenant(context.Background(), 20)
	_, err := seed.Insert(other, Collection, store.Record{
		"customer_name": "Rival Inc", "reference": "INV-900", "status": StatusDraft, "amount_cents": int64(999),
	})
	require.NoError(t, err)
	return backend
}

func accountant() *authz.AuthContext {
	return &authz.AuthContext{UserID: 7, Role: "accountant", CompanyID: 10, Status: authz.StatusActive}
}

func plainUser() *authz.AuthContext {
	return &authz.AuthContext{UserID: 8, Role: "user", CompanyID: 10, Status: authz.StatusActive}
}

func TestListScopedToTenant(t *testing.T) {
	svc := NewService(seedBackend(t), &authz.Evaluator{}, nil, nil)

	invs, err := svc.List(context.Background(), accountant(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, invs, 2)
	for _, inv := range invs {
		assert.Equal(t, int64(10), inv.CompanyID)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	svc := NewService(seedBackend(t), &authz.Evaluator{}, nil, nil)

	invs, err := svc.List(context.Background(), accountant(), ListFilter{Status: StatusSent})
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, "INV-002", invs[0].Reference)
}

func TestAccountantCanViewButNotDelete(t *testing.T) {
	rec := &capturingRecorder{}
	svc := NewService(seedBackend(t), &authz.Evaluator{}, rec, nil)
	id := accountant()

	inv, err := svc.Get(context.Background(), id, 1)
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", inv.CustomerName)

	err = svc.Delete(context.Background(), id, 1)
	require.ErrorIs(t, err, authz.ErrPermissionDenied)

	var denied *authz.PermissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, []authz.Permission{authz.PermDeleteInvoice}, denied.Required)

	// The denial is audited; the record is untouched.
	require.Len(t, rec.events, 1)
	assert.Equal(t, audit.DecisionDenied, rec.events[0].Decision)
	still, err := svc.Get(context.Background(), id, 1)
	require.NoError(t, err)
	assert.NotNil(t, still)
}

func TestPlainUserCannotCreate(t *testing.T) {
	svc := NewService(seedBackend(t), &authz.Evaluator{}, nil, nil)

	_, err := svc.Create(context.Background(), plainUser(), Invoice{CustomerName: "Acme Ltd"})
	require.ErrorIs(t, err, authz.ErrPermissionDenied)
}

func TestCreateStampsTenantAndDefaults(t *testing.T) {
	rec := &capturingRecorder{}
	svc := NewService(seedBackend(t), &authz.Evaluator{}, rec, nil)

	created, err := svc.Create(context.Background(), accountant(), Invoice{
		CustomerName: "Gamma LLC",
		Reference:    "INV-003",
		CompanyID:    99, // caller-supplied tenant must be ignored
		AmountCents:  80000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), created.CompanyID)
	assert.Equal(t, StatusDraft, created.Status)
	assert.False(t, created.IssuedAt.IsZero())

	require.Len(t, rec.events, 1)
	assert.Equal(t, audit.DecisionAllowed, rec.events[0].Decision)
	assert.Equal(t, "create", rec.events[0].Action)
}

func TestCrossTenantReadIsNotFound(t *testing.T) {
	svc := NewService(seedBackend(t), &authz.Evaluator{}, nil, nil)

	_, err := svc.Get(context.Background(), accountant(), 3)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCrossTenantUpdateIsNotFound(t *testing.T) {
	backend := seedBackend(t)
	svc := NewService(backend, &authz.Evaluator{}, nil, nil)

	_, err := svc.Update(context.Background(), accountant(), 3, Invoice{Status: StatusPaid})
	require.ErrorIs(t, err, store.ErrNotFound)

	// Victim row unchanged.
	raw, err := backend.SelectOne(context.Background(), Collection, 3)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, raw["status"])
}

func TestAdminSeesAllTenantsAndIsAudited(t *testing.T) {
	rec := &capturingRecorder{}
	svc := NewService(seedBackend(t), &authz.Evaluator{}, rec, nil)
	admin := &authz.AuthContext{UserID: 1, Role: "admin", Status: authz.StatusActive}

	invs, err := svc.List(context.Background(), admin, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, invs, 3)

	require.NotEmpty(t, rec.events)
	assert.Equal(t, audit.DecisionBypass, rec.events[0].Decision)
	assert.Equal(t, Collection, rec.events[0].Entity)
}

func TestIdentityWithoutTenantFailsClosed(t *testing.T) {
	svc := NewService(seedBackend(t), &authz.Evaluator{}, nil, nil)
	orphan := &authz.AuthContext{UserID: 9, Role: "accountant", Status: authz.StatusActive}

	_, err := svc.List(context.Background(), orphan, ListFilter{})
	require.ErrorIs(t, err, store.ErrMissingTenantContext)
}

func TestArchiveByStatusOnlyTouchesOwnTenant(t *testing.T) {
	backend := seedBackend(t)
	svc := NewService(backend, &authz.Evaluator{}, nil, nil)

	n, err := svc.ArchiveByStatus(context.Background(), accountant(), StatusDraft)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// The other tenant's draft survives.
	raw, err := backend.SelectOne(context.Background(), Collection, 3)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, raw["status"])
}

func TestRoleDefinitionGrantsDelete(t *testing.T) {
	svc := NewService(seedBackend(t), &authz.Evaluator{}, nil, nil)
	id := accountant()
	id.RoleDefinition = &authz.RoleDefinition{
		Name:        "senior accountant",
		RoleType:    authz.RoleAccountant,
		Permissions: authz.NewPermissionSet(authz.PermViewInvoice, authz.PermDeleteInvoice),
	}

	require.NoError(t, svc.Delete(context.Background(), id, 1))

	_, err := svc.Get(context.Background(), id, 1)
	require.ErrorIs(t, err, store.ErrNotFound)
}
