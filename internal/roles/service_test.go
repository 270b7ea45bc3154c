package roles

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/shared"
)

type mockRepo struct {
	byID     map[int64]*authz.RoleDefinition
	nextID   int64
	getCalls int
}

func newMockRepo() *mockRepo {
	return &mockRepo{byID: make(map[int64]*authz.RoleDefinition), nextID: 1}
}

func (m *mockRepo) clone(def *authz.RoleDefinition) *authz.RoleDefinition {
	c := *def
	c.Permissions = def.Permissions.Clone()
	return &c
}

func (m *mockRepo) GetByID(ctx context.Context, id int64) (*authz.RoleDefinition, error) {
	def, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return m.clone(def), nil
}

func (m *mockRepo) GetByName(ctx context.Context, companyID int64, name string) (*authz.RoleDefinition, error) {
	m.getCalls++
	for _, def := range m.byID {
		if def.CompanyID == companyID && def.Name == name {
			return m.clone(def), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepo) ListByCompany(ctx context.Context, companyID int64) ([]authz.RoleDefinition, error) {
	var out []authz.RoleDefinition
	for _, def := range m.byID {
		if def.CompanyID == companyID {
			out = append(out, *m.clone(def))
		}
	}
	return out, nil
}

func (m *mockRepo) DefaultForCompany(ctx context.Context, companyID int64) (*authz.RoleDefinition, error) {
	for _, def := range m.byID {
		if def.CompanyID == companyID && def.IsDefault {
			return m.clone(def), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepo) Create(ctx context.Context, def *authz.RoleDefinition) (*authz.RoleDefinition, error) {
	for _, existing := range m.byID {
		if existing.CompanyID == def.CompanyID && existing.Name == def.Name {
			return nil, shared.ErrDuplicate
		}
	}
	stored := m.clone(def)
	stored.ID = m.nextID
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	m.nextID++
	m.byID[stored.ID] = stored
	return m.clone(stored), nil
}

func (m *mockRepo) Update(ctx context.Context, def *authz.RoleDefinition) (*authz.RoleDefinition, error) {
	if _, ok := m.byID[def.ID]; !ok {
		return nil, shared.ErrNotFound
	}
	stored := m.clone(def)
	stored.UpdatedAt = time.Now()
	m.byID[def.ID] = stored
	return m.clone(stored), nil
}

func (m *mockRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.byID[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *mockRepo) SetDefault(ctx context.Context, companyID, roleID int64) error {
	target, ok := m.byID[roleID]
	if !ok || target.CompanyID != companyID {
		return shared.ErrNotFound
	}
	for _, def := range m.byID {
		if def.CompanyID == companyID {
			def.IsDefault = def.ID == roleID
		}
	}
	return nil
}

func newTestService(t *testing.T) (*Service, *mockRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := newMockRepo()
	return NewService(repo, NewCache(client, time.Minute), nil), repo
}

func TestResolveForUserCachesDefinition(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &authz.RoleDefinition{
		Name:        "billing_clerk",
		RoleType:    authz.RoleAccountant,
		CompanyID:   1,
		Permissions: authz.NewPermissionSet(authz.PermViewInvoice, authz.PermCreateInvoice),
	})
	require.NoError(t, err)

	def, err := svc.ResolveForUser(ctx, 1, "billing_clerk")
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, created.ID, def.ID)
	assert.True(t, def.Permissions.Has(authz.PermViewInvoice))

	calls := repo.getCalls
	def, err = svc.ResolveForUser(ctx, 1, "billing_clerk")
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, calls, repo.getCalls, "second resolve must hit the cache")
}

func TestResolveForUserMissingRoleIsNil(t *testing.T) {
	svc, _ := newTestService(t)

	def, err := svc.ResolveForUser(context.Background(), 1, "ghost_role")
	require.NoError(t, err)
	assert.Nil(t, def)
}

func TestResolveForUserEmptyInputs(t *testing.T) {
	svc, repo := newTestService(t)

	def, err := svc.ResolveForUser(context.Background(), 0, "accountant")
	require.NoError(t, err)
	assert.Nil(t, def)

	def, err = svc.ResolveForUser(context.Background(), 1, "  ")
	require.NoError(t, err)
	assert.Nil(t, def)
	assert.Zero(t, repo.getCalls)
}

func TestUpdateInvalidatesCache(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &authz.RoleDefinition{
		Name:        "billing_clerk",
		RoleType:    authz.RoleAccountant,
		CompanyID:   1,
		Permissions: authz.NewPermissionSet(authz.PermViewInvoice),
	})
	require.NoError(t, err)

	// Warm cache.
	_, err = svc.ResolveForUser(ctx, 1, "billing_clerk")
	require.NoError(t, err)

	created.Permissions = authz.NewPermissionSet(authz.PermViewInvoice, authz.PermDeleteInvoice)
	_, err = svc.Update(ctx, created)
	require.NoError(t, err)

	def, err := svc.ResolveForUser(ctx, 1, "billing_clerk")
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.True(t, def.Permissions.Has(authz.PermDeleteInvoice), "stale cache entry served after update")
}

func TestCreateDuplicateName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &authz.RoleDefinition{Name: "clerk", CompanyID: 1, RoleType: authz.RoleUser})
	require.NoError(t, err)

	_, err = svc.Create(ctx, &authz.RoleDefinition{Name: "clerk", CompanyID: 1, RoleType: authz.RoleUser})
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &authz.RoleDefinition{Name: "  ", CompanyID: 1})
	assert.Error(t, err)

	_, err = svc.Create(ctx, &authz.RoleDefinition{Name: "clerk"})
	assert.Error(t, err)
}

func TestDeleteInvalidatesCache(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &authz.RoleDefinition{Name: "clerk", CompanyID: 1, RoleType: authz.RoleUser})
	require.NoError(t, err)
	_, err = svc.ResolveForUser(ctx, 1, "clerk")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	calls := repo.getCalls
	def, err := svc.ResolveForUser(ctx, 1, "clerk")
	require.NoError(t, err)
	assert.Nil(t, def)
	assert.Greater(t, repo.getCalls, calls, "cache must not serve a deleted role")
}

func TestSetDefault(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, &authz.RoleDefinition{Name: "clerk", CompanyID: 1, RoleType: authz.RoleUser, IsDefault: true})
	require.NoError(t, err)
	second, err := svc.Create(ctx, &authz.RoleDefinition{Name: "approver", CompanyID: 1, RoleType: authz.RoleAccountant})
	require.NoError(t, err)

	require.NoError(t, svc.SetDefault(ctx, 1, second.ID))
	assert.False(t, repo.byID[first.ID].IsDefault)
	assert.True(t, repo.byID[second.ID].IsDefault)
}
