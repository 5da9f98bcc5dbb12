package remito_test

import (
	"context"
	"testing"

	remito "github.com/goliatone/go-remito"
	"github.com/goliatone/go-remito/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tenantEnv struct {
	*registryEnv
	tenants *remito.TenantService
}

func newTenantEnv(t *testing.T) *tenantEnv {
	t.Helper()
	env := &tenantEnv{registryEnv: newRegistryEnv(t)}
	env.tenants = remito.NewTenantService(env.repo.Tenants(), env.registry,
		remito.WithTenantCache(env.cache),
		remito.WithTenantActivity(env.recorder),
		remito.WithTenantLogger(newCaptureLogger()),
	)
	return env
}

func TestTenantCreateSeedsStatuses(t *testing.T) {
	ctx := context.Background()
	env := newTenantEnv(t)
	root := remito.NewSession(env.superadmin)

	tenant, err := env.tenants.Create(ctx, root, "  Initech ")
	require.NoError(t, err)
	assert.Equal(t, "Initech", tenant.Name)
	assert.True(t, tenant.Active)

	statuses, err := env.registry.List(ctx, root, tenant.ID.String(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"PENDIENTE", "PREPARADO", "EN_TRANSITO", "ENTREGADO", "CANCELADO"}, statusNames(statuses))

	event := env.recorder.Last()
	assert.Equal(t, remito.ActionTenantCreate, event.Action)
	assert.Equal(t, env.superadmin.ID, event.ActorID)
	assert.Equal(t, tenant.ID.String(), event.Metadata["tenant_id"])
}

func TestTenantCreateRejects(t *testing.T) {
	ctx := context.Background()
	env := newTenantEnv(t)
	root := remito.NewSession(env.superadmin)

	_, err := env.tenants.Create(ctx, root, "Acme")
	assert.True(t, remito.IsDuplicateName(err))

	_, err = env.tenants.Create(ctx, root, "   ")
	assert.True(t, remito.IsInvalidInput(err))

	_, err = env.tenants.Create(ctx, remito.NewSession(env.adminA), "Umbrella")
	assert.True(t, remito.IsForbidden(err))

	_, err = env.tenants.Create(ctx, nil, "Umbrella")
	assert.True(t, remito.IsUnauthorized(err))
}

func TestTenantListIsCachedAndInvalidated(t *testing.T) {
	ctx := context.Background()
	env := newTenantEnv(t)
	root := remito.NewSession(env.superadmin)

	tenants, err := env.tenants.List(ctx, root, 0, 0)
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	assert.Equal(t, "Acme", tenants[0].Name)
	assert.Equal(t, "Globex", tenants[1].Name)

	// mutate the returned copy; the cached page must not change
	tenants[0].Name = "changed"
	again, err := env.tenants.List(ctx, root, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Acme", again[0].Name)

	_, err = env.tenants.Create(ctx, root, "Hooli")
	require.NoError(t, err)

	tenants, err = env.tenants.List(ctx, root, 0, 0)
	require.NoError(t, err)
	assert.Len(t, tenants, 3)

	_, err = env.tenants.List(ctx, remito.NewSession(env.adminA), 0, 0)
	assert.True(t, remito.IsForbidden(err))
}

func TestTenantSetActive(t *testing.T) {
	ctx := context.Background()
	env := newTenantEnv(t)
	root := remito.NewSession(env.superadmin)

	tenant, err := env.tenants.SetActive(ctx, root, env.tenantB, false)
	require.NoError(t, err)
	assert.False(t, tenant.Active)

	stored, err := env.repo.Tenants().GetTenant(ctx, env.tenantB)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	event := env.recorder.Last()
	assert.Equal(t, remito.ActionTenantStatusChanged, event.Action)
	assert.Equal(t, false, event.Metadata["active"])

	_, err = env.tenants.SetActive(ctx, root, "not-a-uuid", true)
	assert.True(t, remito.IsNotFound(err))

	_, err = env.tenants.SetActive(ctx, remito.NewSession(env.adminB), env.tenantB, true)
	assert.True(t, remito.IsForbidden(err))
}

func TestTenantServiceWithoutCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	service := remito.NewTenantService(f.repo.Tenants(), nil, remito.WithTenantCache(cache.Nop{}))

	tenant, err := service.Create(ctx, remito.NewSession(f.superadmin), "Vandelay")
	require.NoError(t, err)

	statuses, err := f.repo.Statuses().ListStatuses(ctx, tenant.ID.String(), false)
	require.NoError(t, err)
	assert.Empty(t, statuses, "no registry, no seeding")
}
