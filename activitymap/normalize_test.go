package activitymap_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	remito "github.com/goliatone/go-remito"
	"github.com/goliatone/go-remito/activitymap"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := remito.ActivityEvent{
		ID:             "01HQ0000000000000000000000",
		Action:         remito.ActionStatusChange,
		ActorID:        "user-100",
		TenantID:       "tenant-1",
		ImpersonatorID: "admin-42",
		Description:    "remito R-1: PENDIENTE -> ENTREGADO",
		Metadata: map[string]any{
			"remito_id": "doc-7",
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "user-100" {
		t.Fatalf("expected actor_id user-100, got %q", out.ActorID)
	}
	if out.Verb != string(remito.ActionStatusChange) {
		t.Fatalf("expected verb %q, got %q", remito.ActionStatusChange, out.Verb)
	}
	if out.ObjectType != "remito" {
		t.Fatalf("expected object_type remito, got %q", out.ObjectType)
	}
	if out.ObjectID != "doc-7" {
		t.Fatalf("expected object_id doc-7, got %q", out.ObjectID)
	}
	if out.TenantID != "tenant-1" {
		t.Fatalf("expected tenant_id tenant-1, got %q", out.TenantID)
	}
	if out.Channel != "remito" {
		t.Fatalf("expected channel remito, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}
	if out.Metadata[activitymap.MetadataKeyImpersonatorID] != "admin-42" {
		t.Fatalf("expected impersonator_id admin-42, got %#v", out.Metadata[activitymap.MetadataKeyImpersonatorID])
	}
	if out.Metadata[activitymap.MetadataKeyDescription] != event.Description {
		t.Fatalf("expected description in metadata, got %#v", out.Metadata[activitymap.MetadataKeyDescription])
	}

	if len(event.Metadata) != 1 {
		t.Fatalf("expected source metadata to remain unchanged, got %+v", event.Metadata)
	}
}

func TestNormalizeObjectByAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		action     remito.ActivityAction
		metadata   map[string]any
		objectType string
		objectID   string
	}{
		{remito.ActionRemitoCreate, map[string]any{"remito_id": "doc-1"}, "remito", "doc-1"},
		{remito.ActionStatusDeactivate, map[string]any{"status_id": "st-1"}, "status", "st-1"},
		{remito.ActionImpersonationStart, map[string]any{"target_id": "user-9"}, "user", "user-9"},
		{remito.ActionTenantCreate, map[string]any{"tenant_id": "t-3"}, "tenant", "t-3"},
		{remito.ActionLogin, nil, "session", "actor-1"},
		{remito.ActivityAction("CUSTOM"), nil, "", ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(string(tc.action), func(t *testing.T) {
			t.Parallel()

			out := activitymap.Normalize(remito.ActivityEvent{
				Action:   tc.action,
				ActorID:  "actor-1",
				Metadata: tc.metadata,
			})
			if out.ObjectType != tc.objectType || out.ObjectID != tc.objectID {
				t.Fatalf("expected %s/%s, got %s/%s", tc.objectType, tc.objectID, out.ObjectType, out.ObjectID)
			}
		})
	}
}

func TestNormalizeOptionOverrides(t *testing.T) {
	t.Parallel()

	event := remito.ActivityEvent{
		Action: remito.ActionStatusUpdate,
		Metadata: map[string]any{
			"status_id":                        "st-1",
			activitymap.MetadataKeyDescription: "existing",
		},
		Description: "status updated",
	}

	out := activitymap.Normalize(
		event,
		activitymap.WithDefaultChannel("catalog"),
		activitymap.WithObjectResolver(func(e remito.ActivityEvent) (string, string) {
			return "estado", fmt.Sprint(e.Metadata["status_id"])
		}),
	)

	if out.Channel != "catalog" {
		t.Fatalf("expected channel catalog, got %q", out.Channel)
	}
	if out.ObjectType != "estado" || out.ObjectID != "st-1" {
		t.Fatalf("expected estado/st-1, got %s/%s", out.ObjectType, out.ObjectID)
	}
	if out.Metadata[activitymap.MetadataKeyDescription] != "existing" {
		t.Fatalf("expected existing description preserved, got %#v", out.Metadata[activitymap.MetadataKeyDescription])
	}
	if out.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be set when input is zero")
	}
}

func TestNormalizeActorFallbackChain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		event  remito.ActivityEvent
		opts   []activitymap.Option
		expect string
	}{
		{
			name:   "uses actor id when present",
			event:  remito.ActivityEvent{ActorID: "actor-1"},
			expect: "actor-1",
		},
		{
			name:   "uses default fallback when actor missing",
			event:  remito.ActivityEvent{},
			expect: "system",
		},
		{
			name:   "uses configured fallback when actor missing",
			event:  remito.ActivityEvent{},
			opts:   []activitymap.Option{activitymap.WithActorFallback("job")},
			expect: "job",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := activitymap.Normalize(tc.event, tc.opts...)
			if out.ActorID != tc.expect {
				t.Fatalf("expected actor_id %q, got %q", tc.expect, out.ActorID)
			}
		})
	}
}

func TestNormalizeEntries(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	entries := []*remito.AuditEntry{
		{
			ID:             "01HQ0000000000000000000001",
			UserID:         "user-1",
			TenantID:       "tenant-1",
			ImpersonatorID: "admin-1",
			Action:         string(remito.ActionRemitoCreate),
			Description:    "remito created",
			Metadata:       map[string]any{"remito_id": "doc-1"},
			CreatedAt:      ts,
		},
		nil,
	}

	out := activitymap.NormalizeEntries(entries)
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
	if out[0].ID != entries[0].ID || out[0].ObjectID != "doc-1" || !out[0].OccurredAt.Equal(ts) {
		t.Fatalf("unexpected normalized entry %+v", out[0])
	}
	if out[0].Metadata[activitymap.MetadataKeyImpersonatorID] != "admin-1" {
		t.Fatalf("expected impersonator in metadata, got %+v", out[0].Metadata)
	}
	if out[1].ActorID != "system" {
		t.Fatalf("expected nil entry to fall back to system actor, got %q", out[1].ActorID)
	}
}

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Debug(msg string, args ...any) {}
func (l *recordingLogger) Warn(msg string, args ...any) {}
func (l *recordingLogger) Error(msg string, args ...any) {}
func (l *recordingLogger) Info(msg string, args ...any) {
	l.lines = append(l.lines, fmt.Sprint(append([]any{msg}, args...)...))
}

func TestLogSink(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}
	sink := activitymap.LogSink(logger)

	err := sink.Record(context.Background(), remito.ActivityEvent{
		Action:         remito.ActionImpersonationStart,
		ActorID:        "admin-1",
		ImpersonatorID: "",
		Metadata:       map[string]any{"target_id": "user-2"},
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(logger.lines) != 1 {
		t.Fatalf("expected one log line, got %d", len(logger.lines))
	}
	if !strings.Contains(logger.lines[0], "IMPERSONATION_START") || !strings.Contains(logger.lines[0], "user-2") {
		t.Fatalf("unexpected log line %q", logger.lines[0])
	}

	if err := activitymap.LogSink(nil).Record(context.Background(), remito.ActivityEvent{}); err != nil {
		t.Fatalf("expected nil logger sink to be a no-op, got %v", err)
	}
}
