package remito_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	remito "github.com/goliatone/go-remito"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	// every query shares the one in-memory database
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, remito.CreateSchema(context.Background(), db))
	return db
}

// fixture holds two tenants with an ADMIN and a USER each, plus a SUPERADMIN
// without tenant.
type fixture struct {
	db      *bun.DB
	repo    remito.RepositoryManager
	tenantA string
	tenantB string

	superadmin remito.Identity
	adminA     remito.Identity
	userA      remito.Identity
	userA2     remito.Identity
	adminB     remito.Identity
	userB      remito.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db := newTestDB(t)
	repo := remito.NewRepositoryManager(db)
	repo.MustValidate()

	f := &fixture{db: db, repo: repo}

	tenantA, err := repo.Tenants().CreateTenant(ctx, &remito.Tenant{Name: "Acme", Active: true})
	require.NoError(t, err)
	tenantB, err := repo.Tenants().CreateTenant(ctx, &remito.Tenant{Name: "Globex", Active: true})
	require.NoError(t, err)
	f.tenantA = tenantA.ID.String()
	f.tenantB = tenantB.ID.String()

	f.superadmin = f.register(t, nil, remito.RoleSuperAdmin, "root@remito.test")
	f.adminA = f.register(t, &tenantA.ID, remito.RoleAdmin, "admin@acme.test")
	f.userA = f.register(t, &tenantA.ID, remito.RoleUser, "user@acme.test")
	f.userA2 = f.register(t, &tenantA.ID, remito.RoleUser, "other@acme.test")
	f.adminB = f.register(t, &tenantB.ID, remito.RoleAdmin, "admin@globex.test")
	f.userB = f.register(t, &tenantB.ID, remito.RoleUser, "user@globex.test")

	return f
}

func (f *fixture) register(t *testing.T, tenantID *uuid.UUID, role remito.Role, email string) remito.Identity {
	t.Helper()
	record, err := f.repo.Identities().Register(context.Background(), &remito.IdentityRecord{
		TenantID: tenantID,
		Role:     role.String(),
		Name:     email,
		Email:    email,
	})
	require.NoError(t, err)
	return record.Identity()
}

func (f *fixture) seed(t *testing.T, registry *remito.StatusRegistry, tenants ...string) {
	t.Helper()
	for _, tenantID := range tenants {
		_, err := registry.SeedDefaults(context.Background(), tenantID)
		require.NoError(t, err)
	}
}

// recordingRecorder captures the events handed to an ActivityRecorder.
type recordingRecorder struct {
	mu     sync.Mutex
	events []remito.ActivityEvent
}

func (r *recordingRecorder) RecordEvent(_ context.Context, event remito.ActivityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingRecorder) Events() []remito.ActivityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]remito.ActivityEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recordingRecorder) Last() remito.ActivityEvent {
	events := r.Events()
	if len(events) == 0 {
		return remito.ActivityEvent{}
	}
	return events[len(events)-1]
}

// MockIdentityStore implements remito.IdentityStore
type MockIdentityStore struct {
	mock.Mock
}

func (m *MockIdentityStore) FindIdentity(ctx context.Context, id string) (remito.Identity, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(remito.Identity), args.Error(1)
}

// MockActivitySink implements remito.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event remito.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// captureLogger records log lines by level.
type captureLogger struct {
	mu    sync.Mutex
	lines map[string][]string
}

func newCaptureLogger() *captureLogger {
	return &captureLogger{lines: map[string][]string{}}
}

func (l *captureLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines[level] = append(l.lines[level], msg)
}

func (l *captureLogger) Debug(msg string, args ...any) { l.add("debug", msg) }
func (l *captureLogger) Info(msg string, args ...any) { l.add("info", msg) }
func (l *captureLogger) Warn(msg string, args ...any) { l.add("warn", msg) }
func (l *captureLogger) Error(msg string, args ...any) { l.add("error", msg) }

func (l *captureLogger) Lines(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines[level]...)
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
