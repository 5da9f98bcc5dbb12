package remito

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-remito/cache"
)

const tenantsTag = "tenants"

// TenantService manages tenants. Every operation is reserved to SUPERADMIN.
type TenantService struct {
	store    TenantStore
	registry *StatusRegistry
	cache    cache.Store
	guard    *Guard
	activity ActivityRecorder
	logger   Logger
	now      func() time.Time
}

// TenantServiceOption configures a TenantService.
type TenantServiceOption func(*TenantService)

func WithTenantCache(store cache.Store) TenantServiceOption {
	return func(s *TenantService) {
		if store != nil {
			s.cache = store
		}
	}
}

func WithTenantActivity(recorder ActivityRecorder) TenantServiceOption {
	return func(s *TenantService) {
		s.activity = normalizeRecorder(recorder)
	}
}

func WithTenantLogger(logger Logger) TenantServiceOption {
	return func(s *TenantService) {
		s.logger = normalizeLogger(logger)
	}
}

// NewTenantService returns a tenant service. When registry is set new
// tenants get the default status catalog.
func NewTenantService(store TenantStore, registry *StatusRegistry, opts ...TenantServiceOption) *TenantService {
	s := &TenantService{
		store:    store,
		registry: registry,
		cache:    cache.Nop{},
		guard:    NewGuard(),
		activity: noopRecorder{},
		logger:   defLogger{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create registers a tenant and seeds its statuses.
func (s *TenantService) Create(ctx context.Context, session *EffectiveSession, name string) (*Tenant, error) {
	if _, err := s.guard.RequireRole(session, RoleSuperAdmin); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validation.Validate(name, validation.Required, validation.RuneLength(1, 128)); err != nil {
		return nil, raise(ErrInvalidInput, "invalid tenant name", map[string]any{"name": err.Error()})
	}

	now := s.now().UTC()
	tenant, err := s.store.CreateTenant(ctx, &Tenant{
		Name:      name,
		Active:    true,
		CreatedAt: &now,
		UpdatedAt: &now,
	})
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateByTag(tenantsTag)

	if s.registry != nil {
		if _, err := s.registry.SeedDefaults(ctx, tenant.ID.String()); err != nil {
			s.logger.Error("failed to seed tenant statuses", "tenant_id", tenant.ID, "error", err)
			return nil, err
		}
	}

	event := sessionEvent(session, ActionTenantCreate, "tenant created", map[string]any{
		"tenant_id": tenant.ID.String(),
		"name":      tenant.Name,
	})
	s.activity.RecordEvent(ctx, event)
	return tenant, nil
}

// List returns a page of tenants ordered by name.
func (s *TenantService) List(ctx context.Context, session *EffectiveSession, limit, offset int) ([]Tenant, error) {
	if _, err := s.guard.RequireRole(session, RoleSuperAdmin); err != nil {
		return nil, err
	}
	page, err := NewPage(limit, offset)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s:%d:%d", tenantsTag, page.Limit, page.Offset)
	tenants, err := cache.Typed(s.cache, key, func() ([]Tenant, error) {
		records, err := s.store.ListTenants(ctx, page.Limit, page.Offset)
		if err != nil {
			return nil, err
		}
		out := make([]Tenant, 0, len(records))
		for _, rec := range records {
			out = append(out, *rec)
		}
		return out, nil
	}, cache.WithTags(tenantsTag))
	if err != nil {
		return nil, err
	}
	out := make([]Tenant, len(tenants))
	copy(out, tenants)
	return out, nil
}

// SetActive enables or disables a tenant.
func (s *TenantService) SetActive(ctx context.Context, session *EffectiveSession, tenantID string, active bool) (*Tenant, error) {
	if _, err := s.guard.RequireRole(session, RoleSuperAdmin); err != nil {
		return nil, err
	}
	tenant, err := s.store.SetTenantActive(ctx, tenantID, active)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateByTag(tenantsTag)

	s.activity.RecordEvent(ctx, sessionEvent(session, ActionTenantStatusChanged, "tenant status changed", map[string]any{
		"tenant_id": tenantID,
		"active":    active,
	}))
	return tenant, nil
}

// requireActiveTenant rejects writes to a disabled tenant. A nil store skips
// the check.
func requireActiveTenant(ctx context.Context, store TenantStore, tenantID string) error {
	if store == nil {
		return nil
	}
	tenant, err := store.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if !tenant.Active {
		return raise(ErrForbidden, "tenant is disabled", map[string]any{"tenant_id": tenantID})
	}
	return nil
}
