package remito

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultAuditQueueSize bounds the number of pending audit events.
	DefaultAuditQueueSize   = 256
	defaultAuditEmitTimeout = 5 * time.Second
)

// ActivityLog is the append-only audit trail. Record never blocks and never
// fails the caller: events are queued and written by a single worker.
type ActivityLog struct {
	sink        ActivitySink
	store       AuditStore
	guard       *Guard
	logger      Logger
	metrics     *Metrics
	now         func() time.Time
	emitTimeout time.Duration
	queueSize   int

	queue     chan ActivityEvent
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

// ActivityLogOption configures an ActivityLog.
type ActivityLogOption func(*ActivityLog)

// WithActivitySink replaces the sink events are written to. By default
// events are persisted through the AuditStore.
func WithActivitySink(sink ActivitySink) ActivityLogOption {
	return func(l *ActivityLog) {
		if sink != nil {
			l.sink = sink
		}
	}
}

func WithActivityLogger(logger Logger) ActivityLogOption {
	return func(l *ActivityLog) {
		l.logger = normalizeLogger(logger)
	}
}

func WithActivityMetrics(m *Metrics) ActivityLogOption {
	return func(l *ActivityLog) {
		l.metrics = m
	}
}

func WithActivityClock(now func() time.Time) ActivityLogOption {
	return func(l *ActivityLog) {
		if now != nil {
			l.now = now
		}
	}
}

// WithActivityQueueSize sets the queue bound. Values below one are ignored.
func WithActivityQueueSize(size int) ActivityLogOption {
	return func(l *ActivityLog) {
		if size > 0 {
			l.queueSize = size
		}
	}
}

// WithActivityEmitTimeout bounds each sink write.
func WithActivityEmitTimeout(d time.Duration) ActivityLogOption {
	return func(l *ActivityLog) {
		if d > 0 {
			l.emitTimeout = d
		}
	}
}

// NewActivityLog starts the audit worker. Call Close to drain it.
func NewActivityLog(store AuditStore, opts ...ActivityLogOption) *ActivityLog {
	l := &ActivityLog{
		store:       store,
		guard:       NewGuard(),
		logger:      defLogger{},
		now:         time.Now,
		emitTimeout: defaultAuditEmitTimeout,
		queueSize:   DefaultAuditQueueSize,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if l.sink == nil {
		l.sink = StoreSink(store)
	}
	l.sink = normalizeActivitySink(l.sink)
	l.queue = make(chan ActivityEvent, l.queueSize)

	go l.run()
	return l
}

// Record queues an audit event for actorID.
func (l *ActivityLog) Record(ctx context.Context, actorID string, action ActivityAction, description string, metadata map[string]any) {
	l.RecordEvent(ctx, ActivityEvent{
		Action:      action,
		ActorID:     actorID,
		Description: description,
		Metadata:    metadata,
	})
}

// RecordEvent queues event. A full queue or a closed log drops the event
// with a warning.
func (l *ActivityLog) RecordEvent(ctx context.Context, event ActivityEvent) {
	if l == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = l.now().UTC()
	}
	if event.ID == "" {
		event.ID = NewSortableID(event.OccurredAt)
	}
	event.Metadata = cloneMetadata(event.Metadata)

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.logger.Warn("activity log closed, dropping event", "action", event.Action, "actor_id", event.ActorID)
		l.metrics.AuditDropped()
		return
	}

	select {
	case l.queue <- event:
	default:
		l.logger.Warn("activity queue full, dropping event", "action", event.Action, "actor_id", event.ActorID)
		l.metrics.AuditDropped()
	}
}

func (l *ActivityLog) run() {
	defer close(l.done)
	for event := range l.queue {
		l.emit(event)
	}
}

func (l *ActivityLog) emit(event ActivityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), l.emitTimeout)
	defer cancel()

	if err := l.sink.Record(ctx, event); err != nil {
		l.logger.Error("failed to record activity", "action", event.Action, "actor_id", event.ActorID, "error", err)
		l.metrics.AuditFailed()
		return
	}
	l.metrics.AuditRecorded(string(event.Action))
}

// Close stops accepting events and waits until queued ones are written or
// ctx is done.
func (l *ActivityLog) Close(ctx context.Context) error {
	if l == nil {
		return nil
	}
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		close(l.queue)
		l.mu.Unlock()
	})

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Query returns the events performed by userID, newest first.
func (l *ActivityLog) Query(ctx context.Context, userID string, limit, offset int) ([]*AuditEntry, error) {
	if userID == "" {
		return nil, raise(ErrInvalidInput, "user id is required", nil)
	}
	page, err := NewPage(limit, offset)
	if err != nil {
		return nil, err
	}
	entries, err := l.store.ListByUser(ctx, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, persistenceError(err, "failed to query activity", map[string]any{"user_id": userID})
	}
	return entries, nil
}

// QueryTenant returns the events recorded in tenantID, newest first. It is
// reserved to tenant administrators.
func (l *ActivityLog) QueryTenant(ctx context.Context, session *EffectiveSession, tenantID string, limit, offset int) ([]*AuditEntry, error) {
	if _, err := l.guard.RequireTenantAdmin(session, tenantID); err != nil {
		return nil, err
	}
	page, err := NewPage(limit, offset)
	if err != nil {
		return nil, err
	}
	entries, err := l.store.ListByTenant(ctx, tenantID, page.Limit, page.Offset)
	if err != nil {
		return nil, persistenceError(err, "failed to query activity", map[string]any{"tenant_id": tenantID})
	}
	return entries, nil
}
