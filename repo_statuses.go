package remito

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// StatusRepository is the bun backed StatusStore.
type StatusRepository struct {
	db *bun.DB
}

var _ StatusStore = (*StatusRepository)(nil)

func NewStatusRepository(db *bun.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

func (r *StatusRepository) ListStatuses(ctx context.Context, tenantID string, activeOnly bool) ([]*StatusDefinition, error) {
	records := []*StatusDefinition{}
	q := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.tenant_id = ?", tenantID)
	if activeOnly {
		q = q.Where("?TableAlias.active = ?", true)
	}
	err := q.OrderExpr("?TableAlias.sort_order ASC, ?TableAlias.created_at ASC, ?TableAlias.name ASC").Scan(ctx)
	if err != nil {
		return nil, persistenceError(err, "failed to list statuses", map[string]any{"tenant_id": tenantID})
	}
	return records, nil
}

func (r *StatusRepository) GetStatus(ctx context.Context, id string) (*StatusDefinition, error) {
	return r.getOne(ctx, r.db, map[string]any{"id": id}, "?TableAlias.id = ?", id)
}

// FindStatusByName matches the exact, case sensitive name regardless of the
// active flag.
func (r *StatusRepository) FindStatusByName(ctx context.Context, tenantID, name string) (*StatusDefinition, error) {
	return r.getOne(ctx, r.db, map[string]any{"tenant_id": tenantID, "name": name},
		"?TableAlias.tenant_id = ? AND ?TableAlias.name = ?", tenantID, name)
}

func (r *StatusRepository) CreateStatus(ctx context.Context, status *StatusDefinition) error {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := r.getOne(ctx, tx, nil, "?TableAlias.tenant_id = ? AND ?TableAlias.name = ?", status.TenantID, status.Name); err == nil {
			return raise(ErrDuplicateName, "status name already exists", map[string]any{
				"tenant_id": status.TenantID,
				"name":      status.Name,
			})
		} else if !IsNotFound(err) {
			return err
		}
		if status.IsDefault {
			if err := clearDefault(ctx, tx, status.TenantID, status.ID); err != nil {
				return err
			}
		}
		_, err := tx.NewInsert().Model(status).Exec(ctx)
		return err
	})
	if err != nil {
		if KindOf(err) == "" && isUniqueViolation(err) {
			return raise(ErrDuplicateName, "status name already exists", map[string]any{
				"tenant_id": status.TenantID,
				"name":      status.Name,
			})
		}
		return persistenceError(err, "failed to create status", map[string]any{"tenant_id": status.TenantID})
	}
	return nil
}

func (r *StatusRepository) UpdateStatus(ctx context.Context, status *StatusDefinition) error {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if status.IsDefault {
			if err := clearDefault(ctx, tx, status.TenantID, status.ID); err != nil {
				return err
			}
		}
		res, err := tx.NewUpdate().
			Model(status).
			Column("color", "active", "is_default", "sort_order", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return raise(ErrNotFound, "status not found", map[string]any{"id": status.ID})
		}
		return nil
	})
	if err != nil {
		return persistenceError(err, "failed to update status", map[string]any{"id": status.ID})
	}
	return nil
}

func (r *StatusRepository) getOne(ctx context.Context, db bun.IDB, meta map[string]any, where string, args ...any) (*StatusDefinition, error) {
	record := &StatusDefinition{}
	err := db.NewSelect().
		Model(record).
		Where(where, args...).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, raise(ErrNotFound, "status not found", meta)
		}
		return nil, persistenceError(err, "failed to load status", meta)
	}
	return record, nil
}

func clearDefault(ctx context.Context, tx bun.IDB, tenantID, keepID string) error {
	_, err := tx.NewUpdate().
		Model((*StatusDefinition)(nil)).
		Set("is_default = ?", false).
		Where("tenant_id = ?", tenantID).
		Where("id <> ?", keepID).
		Where("is_default = ?", true).
		Exec(ctx)
	return err
}
