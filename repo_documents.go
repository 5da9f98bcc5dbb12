package remito

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// DocumentRepository is the bun backed DocumentStore. On postgres the
// transition locks the row with SELECT ... FOR UPDATE; sqlite serializes
// writers at the database level.
type DocumentRepository struct {
	db *bun.DB
}

var _ DocumentStore = (*DocumentRepository)(nil)

func NewDocumentRepository(db *bun.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*Document, error) {
	return getDocument(ctx, r.db, id, false)
}

func (r *DocumentRepository) ListDocuments(ctx context.Context, tenantID string, limit, offset int) ([]*Document, error) {
	records := []*Document{}
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.tenant_id = ?", tenantID).
		OrderExpr("?TableAlias.created_at DESC, ?TableAlias.id DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, persistenceError(err, "failed to list remitos", map[string]any{"tenant_id": tenantID})
	}
	return records, nil
}

func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *Document, initial *StatusHistoryEntry) error {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(doc).Exec(ctx); err != nil {
			return err
		}
		if initial == nil {
			return nil
		}
		_, err := tx.NewInsert().Model(initial).Exec(ctx)
		return err
	})
	if err != nil {
		return persistenceError(err, "failed to create remito", map[string]any{"tenant_id": doc.TenantID})
	}
	return nil
}

// ApplyTransition writes the new status and the history entry atomically.
// entry.TenantID must match the stored document or ErrNotFound is returned.
func (r *DocumentRepository) ApplyTransition(ctx context.Context, documentID string, entry *StatusHistoryEntry, now func() time.Time) (string, *Document, error) {
	if now == nil {
		now = time.Now
	}
	var (
		before string
		doc    *Document
	)
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		locked, err := getDocument(ctx, tx, documentID, tx.Dialect().Name() == dialect.PG)
		if err != nil {
			return err
		}
		if entry.TenantID != "" && locked.TenantID != entry.TenantID {
			return raise(ErrNotFound, "remito not found", map[string]any{"id": documentID})
		}

		// never older than the change it follows
		at := now().UTC()
		if at.Before(locked.StatusChangedAt) {
			at = locked.StatusChangedAt
		}
		entry.At = at
		entry.ID = NewSortableID(at)

		before = locked.Status
		locked.Status = entry.Status
		locked.StatusChangedAt = entry.At
		locked.UpdatedAt = entry.At

		if _, err := tx.NewUpdate().
			Model(locked).
			Column("status", "status_changed_at", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return err
		}

		entry.DocumentID = locked.ID
		entry.TenantID = locked.TenantID
		if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
			return err
		}
		doc = locked
		return nil
	})
	if err != nil {
		return "", nil, persistenceError(err, "failed to apply status transition", map[string]any{
			"id":     documentID,
			"status": entry.Status,
		})
	}
	return before, doc, nil
}

// History returns the entries of documentID oldest first.
func (r *DocumentRepository) History(ctx context.Context, documentID string) ([]*StatusHistoryEntry, error) {
	records := []*StatusHistoryEntry{}
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.document_id = ?", documentID).
		OrderExpr("?TableAlias.at ASC, ?TableAlias.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, persistenceError(err, "failed to load history", map[string]any{"id": documentID})
	}
	return records, nil
}

func getDocument(ctx context.Context, db bun.IDB, id string, forUpdate bool) (*Document, error) {
	record := &Document{}
	q := db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1)
	if forUpdate {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, raise(ErrNotFound, "remito not found", map[string]any{"id": id})
		}
		return nil, persistenceError(err, "failed to load remito", map[string]any{"id": id})
	}
	return record, nil
}
