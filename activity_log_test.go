package remito_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	remito "github.com/goliatone/go-remito"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// blockingSink holds every write until release is closed.
type blockingSink struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once

	mu     sync.Mutex
	events []remito.ActivityEvent
}

func newBlockingSink() *blockingSink {
	return &blockingSink{started: make(chan struct{}), release: make(chan struct{})}
}

func (s *blockingSink) Record(ctx context.Context, event remito.ActivityEvent) error {
	s.once.Do(func() { close(s.started) })
	<-s.release
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *blockingSink) Events() []remito.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]remito.ActivityEvent(nil), s.events...)
}

func closeLog(t *testing.T, log *remito.ActivityLog) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, log.Close(ctx))
}

func TestActivityLogPersistsAndQueriesNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	log := remito.NewActivityLog(f.repo.Audit(), remito.WithActivityLogger(newCaptureLogger()))

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		log.RecordEvent(ctx, remito.ActivityEvent{
			Action:      remito.ActionStatusChange,
			ActorID:     f.userA.ID,
			TenantID:    f.tenantA,
			Description: fmt.Sprintf("change %d", i),
			Metadata:    map[string]any{"step": i},
			OccurredAt:  base.Add(time.Duration(i) * time.Minute),
		})
	}
	log.Record(ctx, f.userB.ID, remito.ActionLogin, "login", nil)
	closeLog(t, log)

	entries, err := log.Query(ctx, f.userA.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	for i, entry := range entries {
		assert.Equal(t, fmt.Sprintf("change %d", 4-i), entry.Description)
		assert.Equal(t, string(remito.ActionStatusChange), entry.Action)
	}
	assert.EqualValues(t, 4, entries[0].Metadata["step"])

	page, err := log.Query(ctx, f.userA.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "change 2", page[0].Description)
	assert.Equal(t, "change 1", page[1].Description)

	_, err = log.Query(ctx, "", 10, 0)
	assert.True(t, remito.IsInvalidInput(err))

	_, err = log.Query(ctx, f.userA.ID, -1, 0)
	assert.True(t, remito.IsInvalidInput(err))

	_, err = log.Query(ctx, f.userA.ID, 10, -1)
	assert.True(t, remito.IsInvalidInput(err))
}

func TestActivityLogQueryTenant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	log := remito.NewActivityLog(f.repo.Audit(), remito.WithActivityLogger(newCaptureLogger()))

	log.RecordEvent(ctx, remito.ActivityEvent{Action: remito.ActionLogin, ActorID: f.userA.ID, TenantID: f.tenantA})
	log.RecordEvent(ctx, remito.ActivityEvent{Action: remito.ActionLogin, ActorID: f.adminA.ID, TenantID: f.tenantA})
	log.RecordEvent(ctx, remito.ActivityEvent{Action: remito.ActionLogin, ActorID: f.userB.ID, TenantID: f.tenantB})
	closeLog(t, log)

	entries, err := log.QueryTenant(ctx, remito.NewSession(f.adminA), f.tenantA, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, f.adminA.ID, entries[0].UserID)
	assert.Equal(t, f.userA.ID, entries[1].UserID)

	_, err = log.QueryTenant(ctx, remito.NewSession(f.userA), f.tenantA, 0, 0)
	assert.True(t, remito.IsForbidden(err))

	_, err = log.QueryTenant(ctx, remito.NewSession(f.adminB), f.tenantA, 0, 0)
	assert.True(t, remito.IsForbidden(err))

	entries, err = log.QueryTenant(ctx, remito.NewSession(f.superadmin), f.tenantB, 0, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestActivityLogDropsWhenQueueIsFull(t *testing.T) {
	ctx := context.Background()
	sink := newBlockingSink()
	logger := newCaptureLogger()
	reg := prometheus.NewRegistry()

	log := remito.NewActivityLog(nil,
		remito.WithActivitySink(sink),
		remito.WithActivityLogger(logger),
		remito.WithActivityMetrics(remito.NewMetrics(reg)),
		remito.WithActivityQueueSize(1),
	)

	log.Record(ctx, "user-1", remito.ActionLogin, "first", nil)
	select {
	case <-sink.started:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never picked up the first event")
	}

	log.Record(ctx, "user-1", remito.ActionLogin, "second", nil)
	log.Record(ctx, "user-1", remito.ActionLogin, "third", nil)

	assert.Equal(t, []string{"activity queue full, dropping event"}, logger.Lines("warn"))
	assert.Equal(t, float64(1), counterValue(t, reg, "remito_audit_dropped_total", "", ""))

	close(sink.release)
	closeLog(t, log)

	descriptions := []string{}
	for _, e := range sink.Events() {
		descriptions = append(descriptions, e.Description)
	}
	assert.Equal(t, []string{"first", "second"}, descriptions)
	assert.Equal(t, float64(2), counterValue(t, reg, "remito_audit_recorded_total", "action", string(remito.ActionLogin)))
}

func TestActivityLogSinkFailureIsLoggedNotReturned(t *testing.T) {
	ctx := context.Background()
	sink := new(MockActivitySink)
	sink.On("Record", mock.Anything, mock.MatchedBy(func(e remito.ActivityEvent) bool {
		return e.Action == remito.ActionLogout
	})).Return(errors.New("sink unavailable")).Once()

	logger := newCaptureLogger()
	reg := prometheus.NewRegistry()
	log := remito.NewActivityLog(nil,
		remito.WithActivitySink(sink),
		remito.WithActivityLogger(logger),
		remito.WithActivityMetrics(remito.NewMetrics(reg)),
	)

	log.Record(ctx, "user-1", remito.ActionLogout, "logout", nil)
	closeLog(t, log)

	sink.AssertExpectations(t)
	assert.Equal(t, []string{"failed to record activity"}, logger.Lines("error"))
	assert.Equal(t, float64(1), counterValue(t, reg, "remito_audit_failed_total", "", ""))
}

func TestActivityLogAfterClose(t *testing.T) {
	sink := new(MockActivitySink)
	logger := newCaptureLogger()
	log := remito.NewActivityLog(nil, remito.WithActivitySink(sink), remito.WithActivityLogger(logger))
	closeLog(t, log)

	log.Record(context.Background(), "user-1", remito.ActionLogin, "late", nil)

	assert.Equal(t, []string{"activity log closed, dropping event"}, logger.Lines("warn"))
	sink.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	require.NoError(t, log.Close(context.Background()), "close is idempotent")
}

func TestActivityLogAssignsSortableIDs(t *testing.T) {
	sink := &collectingSink{}
	log := remito.NewActivityLog(nil, remito.WithActivitySink(sink))

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		log.RecordEvent(context.Background(), remito.ActivityEvent{Action: remito.ActionLogin, ActorID: "u", OccurredAt: at})
	}
	closeLog(t, log)

	events := sink.Events()
	require.Len(t, events, 3)
	assert.Less(t, events[0].ID, events[1].ID)
	assert.Less(t, events[1].ID, events[2].ID)
}

func TestAuditFailureDoesNotRollBackTransition(t *testing.T) {
	ctx := context.Background()
	env := newWorkflowEnv(t)

	failing := remito.ActivitySinkFunc(func(context.Context, remito.ActivityEvent) error {
		return errors.New("audit store offline")
	})
	log := remito.NewActivityLog(env.repo.Audit(),
		remito.WithActivitySink(failing),
		remito.WithActivityLogger(newCaptureLogger()),
	)
	workflow := remito.NewStatusWorkflow(env.repo.Documents(), env.registry, remito.WithWorkflowActivity(log))

	doc := env.createDocument(t, env.userA, env.tenantA, "R-0001")
	updated, err := workflow.Transition(ctx, remito.NewSession(env.userA), doc.ID, "PREPARADO")
	require.NoError(t, err)
	assert.Equal(t, "PREPARADO", updated.Status)
	closeLog(t, log)

	history, err := env.repo.Documents().History(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestMultiSink(t *testing.T) {
	first := &collectingSink{}
	broken := remito.ActivitySinkFunc(func(context.Context, remito.ActivityEvent) error {
		return errors.New("broken")
	})
	last := &collectingSink{}

	err := remito.MultiSink(first, nil, broken, last).Record(context.Background(), remito.ActivityEvent{Action: remito.ActionLogin})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Len(t, first.Events(), 1)
	assert.Len(t, last.Events(), 1)
}

type collectingSink struct {
	mu     sync.Mutex
	events []remito.ActivityEvent
}

func (s *collectingSink) Record(_ context.Context, event remito.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *collectingSink) Events() []remito.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]remito.ActivityEvent(nil), s.events...)
}
