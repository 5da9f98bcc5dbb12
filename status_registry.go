package remito

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-remito/cache"
)

// DefaultStatus is a status seeded into new tenants.
type DefaultStatus struct {
	Name      string
	Color     string
	IsDefault bool
}

// DefaultStatuses is the catalog SeedDefaults installs.
var DefaultStatuses = []DefaultStatus{
	{Name: "PENDIENTE", Color: "#F59E0B", IsDefault: true},
	{Name: "PREPARADO", Color: "#3B82F6"},
	{Name: "EN_TRANSITO", Color: "#8B5CF6"},
	{Name: "ENTREGADO", Color: "#10B981"},
	{Name: "CANCELADO", Color: "#EF4444"},
}

// StatusListKey is the cache key of a tenant status list.
func StatusListKey(tenantID string, activeOnly bool) string {
	scope := "all"
	if activeOnly {
		scope = "active"
	}
	return fmt.Sprintf("estados:%s:%s", tenantID, scope)
}

// StatusTag tags every cached status view of a tenant.
func StatusTag(tenantID string) string {
	return "estados:" + tenantID
}

// StatusRegistry manages the per tenant catalog of status definitions.
type StatusRegistry struct {
	store    StatusStore
	cache    cache.Store
	guard    *Guard
	activity ActivityRecorder
	logger   Logger
	tenants  TenantStore
	now      func() time.Time
}

// StatusRegistryOption configures a StatusRegistry.
type StatusRegistryOption func(*StatusRegistry)

func WithStatusCache(store cache.Store) StatusRegistryOption {
	return func(r *StatusRegistry) {
		if store != nil {
			r.cache = store
		}
	}
}

func WithStatusActivity(recorder ActivityRecorder) StatusRegistryOption {
	return func(r *StatusRegistry) {
		r.activity = normalizeRecorder(recorder)
	}
}

func WithStatusLogger(logger Logger) StatusRegistryOption {
	return func(r *StatusRegistry) {
		r.logger = normalizeLogger(logger)
	}
}

// WithStatusTenants rejects new definitions for disabled tenants.
func WithStatusTenants(store TenantStore) StatusRegistryOption {
	return func(r *StatusRegistry) {
		r.tenants = store
	}
}

func WithStatusClock(now func() time.Time) StatusRegistryOption {
	return func(r *StatusRegistry) {
		if now != nil {
			r.now = now
		}
	}
}

func NewStatusRegistry(store StatusStore, opts ...StatusRegistryOption) *StatusRegistry {
	r := &StatusRegistry{
		store:    store,
		cache:    cache.Nop{},
		guard:    NewGuard(),
		activity: noopRecorder{},
		logger:   defLogger{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// List returns the statuses of tenantID ordered by sort order then creation.
func (r *StatusRegistry) List(ctx context.Context, session *EffectiveSession, tenantID string, activeOnly bool) ([]StatusDefinition, error) {
	if _, err := r.guard.Authorize(session, tenantID); err != nil {
		return nil, err
	}
	return r.list(ctx, tenantID, activeOnly)
}

// ActiveNames returns the names of the active statuses of tenantID.
func (r *StatusRegistry) ActiveNames(ctx context.Context, tenantID string) ([]string, error) {
	statuses, err := r.list(ctx, tenantID, true)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, s.Name)
	}
	return names, nil
}

// RequireActive reads the definition straight from the store and fails with
// ErrInvalidStatus unless name is active in tenantID.
func (r *StatusRegistry) RequireActive(ctx context.Context, tenantID, name string) (*StatusDefinition, error) {
	name, err := validateStatusName(name)
	if err != nil {
		return nil, err
	}
	def, err := r.store.FindStatusByName(ctx, tenantID, name)
	if err != nil {
		if IsNotFound(err) {
			return nil, raise(ErrInvalidStatus, "unknown status", map[string]any{"tenant_id": tenantID, "status": name})
		}
		return nil, err
	}
	if !def.Active {
		return nil, raise(ErrInvalidStatus, "status is inactive", map[string]any{"tenant_id": tenantID, "status": name})
	}
	return def, nil
}

// Default returns the status new remitos start in: the default definition
// when active, the first active one otherwise.
func (r *StatusRegistry) Default(ctx context.Context, tenantID string) (*StatusDefinition, error) {
	statuses, err := r.store.ListStatuses(ctx, tenantID, true)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, raise(ErrInvalidStatus, "tenant has no active status", map[string]any{"tenant_id": tenantID})
	}
	for _, s := range statuses {
		if s.IsDefault {
			return s, nil
		}
	}
	return statuses[0], nil
}

// Create adds a status definition to tenantID.
func (r *StatusRegistry) Create(ctx context.Context, session *EffectiveSession, tenantID string, in CreateStatusInput) (*StatusDefinition, error) {
	if _, err := r.guard.RequireTenantAdmin(session, tenantID); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := requireActiveTenant(ctx, r.tenants, tenantID); err != nil {
		return nil, err
	}

	def, err := r.create(ctx, tenantID, in)
	if err != nil {
		return nil, err
	}

	r.activity.RecordEvent(ctx, sessionEvent(session, ActionStatusCreate, "status created", map[string]any{
		"status_id": def.ID,
		"name":      def.Name,
		"color":     def.Color,
		"tenant_id": tenantID,
	}))
	return def, nil
}

// Update changes color, sort order or default flag of a definition.
func (r *StatusRegistry) Update(ctx context.Context, session *EffectiveSession, id string, in UpdateStatusInput) (*StatusDefinition, error) {
	def, err := r.loadManaged(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	changes := map[string]any{"status_id": def.ID, "name": def.Name}
	if in.Color != nil {
		changes["color"] = *in.Color
		def.Color = *in.Color
	}
	if in.SortOrder != nil {
		changes["sort_order"] = *in.SortOrder
		def.SortOrder = *in.SortOrder
	}
	if in.IsDefault != nil {
		changes["is_default"] = *in.IsDefault
		def.IsDefault = *in.IsDefault
	}

	if err := r.save(ctx, def); err != nil {
		return nil, err
	}
	r.activity.RecordEvent(ctx, sessionEvent(session, ActionStatusUpdate, "status updated", changes))
	return def, nil
}

// Deactivate hides a definition from future selection. Remitos holding the
// status keep it.
func (r *StatusRegistry) Deactivate(ctx context.Context, session *EffectiveSession, id string) (*StatusDefinition, error) {
	return r.setActive(ctx, session, id, false)
}

// Reactivate makes a deactivated definition selectable again.
func (r *StatusRegistry) Reactivate(ctx context.Context, session *EffectiveSession, id string) (*StatusDefinition, error) {
	return r.setActive(ctx, session, id, true)
}

// SeedDefaults installs DefaultStatuses when the tenant has no status yet.
func (r *StatusRegistry) SeedDefaults(ctx context.Context, tenantID string) ([]StatusDefinition, error) {
	existing, err := r.store.ListStatuses(ctx, tenantID, false)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return derefStatuses(existing), nil
	}

	out := make([]StatusDefinition, 0, len(DefaultStatuses))
	for i, seed := range DefaultStatuses {
		sortOrder := i
		def, err := r.create(ctx, tenantID, CreateStatusInput{
			Name:      seed.Name,
			Color:     seed.Color,
			IsDefault: seed.IsDefault,
			SortOrder: &sortOrder,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, *def)
	}
	r.logger.Info("seeded default statuses", "tenant_id", tenantID, "count", len(out))
	return out, nil
}

func (r *StatusRegistry) setActive(ctx context.Context, session *EffectiveSession, id string, active bool) (*StatusDefinition, error) {
	def, err := r.loadManaged(ctx, session, id)
	if err != nil {
		return nil, err
	}

	action, description := ActionStatusReactivate, "status reactivated"
	if !active {
		action, description = ActionStatusDeactivate, "status deactivated"
	}
	if def.Active == active {
		return def, nil
	}

	def.Active = active
	if !active {
		def.IsDefault = false
	}
	if err := r.save(ctx, def); err != nil {
		return nil, err
	}
	r.activity.RecordEvent(ctx, sessionEvent(session, action, description, map[string]any{
		"status_id": def.ID,
		"name":      def.Name,
		"tenant_id": def.TenantID,
	}))
	return def, nil
}

// loadManaged loads a definition the session may administer. Definitions of
// other tenants are reported as missing.
func (r *StatusRegistry) loadManaged(ctx context.Context, session *EffectiveSession, id string) (*StatusDefinition, error) {
	identity, err := r.guard.Resolve(session)
	if err != nil {
		return nil, err
	}
	def, err := r.store.GetStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.guard.CanAccess(identity, def.TenantID) {
		return nil, raise(ErrNotFound, "status not found", map[string]any{"id": id})
	}
	if _, err := r.guard.RequireTenantAdmin(session, def.TenantID); err != nil {
		return nil, err
	}
	return def, nil
}

func (r *StatusRegistry) create(ctx context.Context, tenantID string, in CreateStatusInput) (*StatusDefinition, error) {
	sortOrder := 0
	if in.SortOrder != nil {
		sortOrder = *in.SortOrder
	} else {
		existing, err := r.store.ListStatuses(ctx, tenantID, false)
		if err != nil {
			return nil, err
		}
		for _, s := range existing {
			if s.SortOrder >= sortOrder {
				sortOrder = s.SortOrder + 1
			}
		}
	}

	now := r.now().UTC()
	def := &StatusDefinition{
		ID:        newRecordID(),
		TenantID:  tenantID,
		Name:      in.Name,
		Color:     in.Color,
		Active:    true,
		IsDefault: in.IsDefault,
		SortOrder: sortOrder,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.CreateStatus(ctx, def); err != nil {
		return nil, err
	}
	r.cache.InvalidateByTag(StatusTag(tenantID))
	return def, nil
}

func (r *StatusRegistry) save(ctx context.Context, def *StatusDefinition) error {
	def.UpdatedAt = r.now().UTC()
	if err := r.store.UpdateStatus(ctx, def); err != nil {
		return err
	}
	r.cache.InvalidateByTag(StatusTag(def.TenantID))
	return nil
}

func (r *StatusRegistry) list(ctx context.Context, tenantID string, activeOnly bool) ([]StatusDefinition, error) {
	statuses, err := cache.Typed(r.cache, StatusListKey(tenantID, activeOnly), func() ([]StatusDefinition, error) {
		records, err := r.store.ListStatuses(ctx, tenantID, activeOnly)
		if err != nil {
			return nil, err
		}
		return derefStatuses(records), nil
	}, cache.WithTags(StatusTag(tenantID)))
	if err != nil {
		return nil, err
	}
	out := make([]StatusDefinition, len(statuses))
	copy(out, statuses)
	return out, nil
}

func derefStatuses(records []*StatusDefinition) []StatusDefinition {
	out := make([]StatusDefinition, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			out = append(out, *rec)
		}
	}
	return out
}
