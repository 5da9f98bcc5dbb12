package remito

import (
	"context"

	"github.com/uptrace/bun"
)

var schemaModels = []any{
	(*Tenant)(nil),
	(*IdentityRecord)(nil),
	(*StatusDefinition)(nil),
	(*Document)(nil),
	(*StatusHistoryEntry)(nil),
	(*AuditEntry)(nil),
}

type schemaIndex struct {
	model   any
	name    string
	columns []string
}

var schemaIndexes = []schemaIndex{
	{(*Document)(nil), "idx_remitos_tenant_created", []string{"tenant_id", "created_at"}},
	{(*StatusHistoryEntry)(nil), "idx_remito_history_document_at", []string{"document_id", "at", "id"}},
	{(*AuditEntry)(nil), "idx_activity_user_id", []string{"user_id", "id"}},
	{(*AuditEntry)(nil), "idx_activity_tenant_id", []string{"tenant_id", "id"}},
}

// CreateSchema creates the tables and indexes when missing. It is a
// bootstrap helper for development and tests, not a migration tool.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range schemaModels {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return persistenceError(err, "failed to create table", nil)
		}
	}
	for _, idx := range schemaIndexes {
		if _, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx); err != nil {
			return persistenceError(err, "failed to create index", map[string]any{"index": idx.name})
		}
	}
	return nil
}
