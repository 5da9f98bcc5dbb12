package remito

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Tenants is the tenant repository.
type Tenants interface {
	repository.Repository[*Tenant]
	TenantStore
}

type tenants struct {
	repository.Repository[*Tenant]
	db *bun.DB
}

var _ Tenants = (*tenants)(nil)

func NewTenantsRepository(db *bun.DB) Tenants {
	repo := repository.NewRepository[*Tenant](db, repository.ModelHandlers[*Tenant]{
		NewRecord: func() *Tenant { return &Tenant{} },
		GetID: func(t *Tenant) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *Tenant, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})
	return &tenants{Repository: repo, db: db}
}

func (a *tenants) CreateTenant(ctx context.Context, tenant *Tenant) (*Tenant, error) {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	exists, err := a.db.NewSelect().
		Model((*Tenant)(nil)).
		Where("?TableAlias.name = ?", tenant.Name).
		Exists(ctx)
	if err != nil {
		return nil, persistenceError(err, "failed to check tenant name", map[string]any{"name": tenant.Name})
	}
	if exists {
		return nil, raise(ErrDuplicateName, "tenant name already exists", map[string]any{"name": tenant.Name})
	}
	record, err := a.Repository.CreateTx(ctx, a.db, tenant)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, raise(ErrDuplicateName, "tenant name already exists", map[string]any{"name": tenant.Name})
		}
		return nil, persistenceError(err, "failed to create tenant", map[string]any{"name": tenant.Name})
	}
	return record, nil
}

func (a *tenants) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	tenantID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, raise(ErrNotFound, "tenant not found", map[string]any{"tenant_id": id})
	}
	record := &Tenant{}
	err = a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, raise(ErrNotFound, "tenant not found", map[string]any{"tenant_id": id})
		}
		return nil, persistenceError(err, "failed to load tenant", map[string]any{"tenant_id": id})
	}
	return record, nil
}

func (a *tenants) ListTenants(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	records := []*Tenant{}
	err := a.db.NewSelect().
		Model(&records).
		Order("name ASC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, persistenceError(err, "failed to list tenants", nil)
	}
	return records, nil
}

func (a *tenants) SetTenantActive(ctx context.Context, id string, active bool) (*Tenant, error) {
	record, err := a.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	record.Active = active
	record.UpdatedAt = &now
	// explicit columns: a false flag must reach the row
	_, err = a.db.NewUpdate().
		Model(record).
		Column("active", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, persistenceError(err, "failed to update tenant", map[string]any{"tenant_id": id})
	}
	return a.GetTenant(ctx, id)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}
