package remito

import (
	"context"

	"github.com/uptrace/bun"
)

// AuditRepository is the bun backed AuditStore. Entry ids are ULIDs, so
// ordering by id is chronological and served by the primary key.
type AuditRepository struct {
	db *bun.DB
}

var _ AuditStore = (*AuditRepository)(nil)

func NewAuditRepository(db *bun.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry *AuditEntry) error {
	if _, err := r.db.NewInsert().Model(entry).Exec(ctx); err != nil {
		return persistenceError(err, "failed to append activity", map[string]any{"action": entry.Action})
	}
	return nil
}

func (r *AuditRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*AuditEntry, error) {
	return r.list(ctx, "?TableAlias.user_id = ?", userID, limit, offset)
}

func (r *AuditRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*AuditEntry, error) {
	return r.list(ctx, "?TableAlias.tenant_id = ?", tenantID, limit, offset)
}

func (r *AuditRepository) list(ctx context.Context, where, value string, limit, offset int) ([]*AuditEntry, error) {
	records := []*AuditEntry{}
	err := r.db.NewSelect().
		Model(&records).
		Where(where, value).
		OrderExpr("?TableAlias.id DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, persistenceError(err, "failed to list activity", nil)
	}
	return records, nil
}
