package remito

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/goliatone/go-remito/cache"
)

// DocumentKey is the cache key of a single remito.
func DocumentKey(id string) string {
	return "remito:" + id
}

// HistoryKey is the cache key of a remito status history.
func HistoryKey(id string) string {
	return "remito:" + id + ":history"
}

// DocumentListKey is the cache key of a page of a tenant's remitos.
func DocumentListKey(tenantID string, limit, offset int) string {
	return fmt.Sprintf("remitos:%s:%d:%d", tenantID, limit, offset)
}

// DocumentTag tags every cached view of one remito.
func DocumentTag(id string) string {
	return "remito:" + id
}

// DocumentListTag tags every cached list of a tenant's remitos.
func DocumentListTag(tenantID string) string {
	return "remitos:" + tenantID
}

// TransitionOption configures a single transition.
type TransitionOption func(*transitionOptions)

type transitionOptions struct {
	note     string
	metadata map[string]any
}

// WithTransitionNote stores a note on the history entry.
func WithTransitionNote(note string) TransitionOption {
	return func(o *transitionOptions) {
		o.note = note
	}
}

// WithTransitionMetadata adds fields to the audit record of the transition.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(o *transitionOptions) {
		o.metadata = cloneMetadata(metadata)
	}
}

// StatusWorkflow moves remitos between statuses of their tenant catalog.
// There is no transition graph: any active status is a valid target,
// including the current one.
type StatusWorkflow struct {
	documents DocumentStore
	registry  *StatusRegistry
	cache     cache.Store
	guard     *Guard
	activity  ActivityRecorder
	logger    Logger
	metrics   *Metrics
	tenants   TenantStore
	now       func() time.Time
}

// WorkflowOption configures a StatusWorkflow.
type WorkflowOption func(*StatusWorkflow)

func WithWorkflowCache(store cache.Store) WorkflowOption {
	return func(w *StatusWorkflow) {
		if store != nil {
			w.cache = store
		}
	}
}

func WithWorkflowActivity(recorder ActivityRecorder) WorkflowOption {
	return func(w *StatusWorkflow) {
		w.activity = normalizeRecorder(recorder)
	}
}

func WithWorkflowLogger(logger Logger) WorkflowOption {
	return func(w *StatusWorkflow) {
		w.logger = normalizeLogger(logger)
	}
}

func WithWorkflowMetrics(m *Metrics) WorkflowOption {
	return func(w *StatusWorkflow) {
		w.metrics = m
	}
}

// WithWorkflowTenants rejects writes to remitos of disabled tenants.
func WithWorkflowTenants(store TenantStore) WorkflowOption {
	return func(w *StatusWorkflow) {
		w.tenants = store
	}
}

func WithWorkflowClock(now func() time.Time) WorkflowOption {
	return func(w *StatusWorkflow) {
		if now != nil {
			w.now = now
		}
	}
}

func NewStatusWorkflow(documents DocumentStore, registry *StatusRegistry, opts ...WorkflowOption) *StatusWorkflow {
	w := &StatusWorkflow{
		documents: documents,
		registry:  registry,
		cache:     cache.Nop{},
		guard:     NewGuard(),
		activity:  noopRecorder{},
		logger:    defLogger{},
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Transition sets the status of documentID to newStatus on behalf of the
// session's acting identity.
func (w *StatusWorkflow) Transition(ctx context.Context, session *EffectiveSession, documentID, newStatus string, opts ...TransitionOption) (doc *Document, err error) {
	defer func() { w.metrics.Transition(err) }()

	options := transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	identity, err := w.guard.Resolve(session)
	if err != nil {
		return nil, err
	}
	current, err := w.load(ctx, identity, documentID)
	if err != nil {
		return nil, err
	}
	if err := requireActiveTenant(ctx, w.tenants, current.TenantID); err != nil {
		return nil, err
	}
	def, err := w.registry.RequireActive(ctx, current.TenantID, newStatus)
	if err != nil {
		return nil, err
	}

	entry := &StatusHistoryEntry{
		TenantID:       current.TenantID,
		Status:         def.Name,
		ByUserID:       identity.ID,
		ImpersonatorID: session.ImpersonatorID(),
		Note:           options.note,
	}

	before, doc, err := w.documents.ApplyTransition(ctx, current.ID, entry, w.now)
	if err != nil {
		w.logger.Error("status transition failed", "remito_id", current.ID, "status", def.Name, "error", err)
		return nil, persistenceError(err, "failed to apply status transition", map[string]any{
			"id":     current.ID,
			"status": def.Name,
		})
	}

	w.invalidateDocument(doc)

	metadata := map[string]any{
		"remito_id":   doc.ID,
		"number":      doc.Number,
		"from_status": before,
		"to_status":   doc.Status,
		"history_id":  entry.ID,
	}
	if options.note != "" {
		metadata["note"] = options.note
	}
	for k, v := range options.metadata {
		if _, exists := metadata[k]; !exists {
			metadata[k] = v
		}
	}
	event := sessionEvent(session, ActionStatusChange, fmt.Sprintf("remito %s: %s -> %s", doc.Number, before, doc.Status), metadata)
	event.TenantID = doc.TenantID
	w.activity.RecordEvent(ctx, event)

	return doc, nil
}

// Get returns a remito visible to the session.
func (w *StatusWorkflow) Get(ctx context.Context, session *EffectiveSession, documentID string) (*Document, error) {
	identity, err := w.guard.Resolve(session)
	if err != nil {
		return nil, err
	}
	return w.load(ctx, identity, documentID)
}

// History returns the status history of a remito oldest first.
func (w *StatusWorkflow) History(ctx context.Context, session *EffectiveSession, documentID string) ([]StatusHistoryEntry, error) {
	identity, err := w.guard.Resolve(session)
	if err != nil {
		return nil, err
	}
	doc, err := w.load(ctx, identity, documentID)
	if err != nil {
		return nil, err
	}

	history, err := cache.Typed(w.cache, HistoryKey(doc.ID), func() ([]StatusHistoryEntry, error) {
		records, err := w.documents.History(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		out := make([]StatusHistoryEntry, 0, len(records))
		for _, rec := range records {
			out = append(out, *rec)
		}
		return out, nil
	}, cache.WithTags(DocumentTag(doc.ID)))
	if err != nil {
		return nil, err
	}
	out := make([]StatusHistoryEntry, len(history))
	copy(out, history)
	return out, nil
}

// Create adds a remito to tenantID in the tenant's default status.
func (w *StatusWorkflow) Create(ctx context.Context, session *EffectiveSession, tenantID, number string) (*Document, error) {
	identity, err := w.guard.Authorize(session, tenantID)
	if err != nil {
		return nil, err
	}
	number, err = validateDocumentNumber(number)
	if err != nil {
		return nil, err
	}
	if err := requireActiveTenant(ctx, w.tenants, tenantID); err != nil {
		return nil, err
	}
	def, err := w.registry.Default(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := w.now().UTC()
	doc := &Document{
		ID:              newRecordID(),
		TenantID:        tenantID,
		Number:          number,
		Status:          def.Name,
		StatusChangedAt: now,
		CreatedBy:       identity.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	initial := &StatusHistoryEntry{
		ID:             NewSortableID(now),
		DocumentID:     doc.ID,
		TenantID:       tenantID,
		Status:         def.Name,
		At:             now,
		ByUserID:       identity.ID,
		ImpersonatorID: session.ImpersonatorID(),
	}
	if err := w.documents.CreateDocument(ctx, doc, initial); err != nil {
		return nil, persistenceError(err, "failed to create remito", map[string]any{"tenant_id": tenantID})
	}
	w.invalidateList(tenantID)

	event := sessionEvent(session, ActionRemitoCreate, "remito created", map[string]any{
		"remito_id": doc.ID,
		"number":    doc.Number,
		"status":    doc.Status,
	})
	event.TenantID = tenantID
	w.activity.RecordEvent(ctx, event)
	return doc, nil
}

// List returns a page of the remitos of tenantID, newest first.
func (w *StatusWorkflow) List(ctx context.Context, session *EffectiveSession, tenantID string, limit, offset int) ([]Document, error) {
	if _, err := w.guard.Authorize(session, tenantID); err != nil {
		return nil, err
	}
	page, err := NewPage(limit, offset)
	if err != nil {
		return nil, err
	}

	docs, err := cache.Typed(w.cache, DocumentListKey(tenantID, page.Limit, page.Offset), func() ([]Document, error) {
		records, err := w.documents.ListDocuments(ctx, tenantID, page.Limit, page.Offset)
		if err != nil {
			return nil, err
		}
		out := make([]Document, 0, len(records))
		for _, rec := range records {
			out = append(out, *rec)
		}
		return out, nil
	}, cache.WithTags(DocumentListTag(tenantID)))
	if err != nil {
		return nil, err
	}
	out := make([]Document, len(docs))
	copy(out, docs)
	return out, nil
}

// load reads a remito through the cache and hides remitos of other tenants
// behind ErrNotFound.
func (w *StatusWorkflow) load(ctx context.Context, identity Identity, documentID string) (*Document, error) {
	doc, err := cache.Typed(w.cache, DocumentKey(documentID), func() (Document, error) {
		rec, err := w.documents.GetDocument(ctx, documentID)
		if err != nil {
			return Document{}, err
		}
		return *rec, nil
	}, cache.WithTags(DocumentTag(documentID)))
	if err != nil {
		return nil, err
	}
	if !w.guard.CanAccess(identity, doc.TenantID) {
		return nil, raise(ErrNotFound, "remito not found", map[string]any{"id": documentID})
	}
	return &doc, nil
}

func (w *StatusWorkflow) invalidateDocument(doc *Document) {
	w.cache.InvalidateByTag(DocumentTag(doc.ID))
	// tag indexes can be evicted before their entries
	w.cache.Invalidate(DocumentKey(doc.ID))
	w.cache.Invalidate(HistoryKey(doc.ID))
	w.invalidateList(doc.TenantID)
}

func (w *StatusWorkflow) invalidateList(tenantID string) {
	w.cache.InvalidateByTag(DocumentListTag(tenantID))
	w.cache.InvalidateByPattern(`^remitos:` + regexp.QuoteMeta(tenantID) + `:`)
}
