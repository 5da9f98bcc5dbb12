package remito

import (
	"context"
	"errors"
	"time"
)

// ActivityAction names an audited action.
type ActivityAction string

const (
	ActionLogin               ActivityAction = "LOGIN"
	ActionLogout              ActivityAction = "LOGOUT"
	ActionImpersonationStart  ActivityAction = "IMPERSONATION_START"
	ActionImpersonationStop   ActivityAction = "IMPERSONATION_STOP"
	ActionStatusChange        ActivityAction = "STATUS_CHANGE"
	ActionStatusCreate        ActivityAction = "STATUS_CREATE"
	ActionStatusUpdate        ActivityAction = "STATUS_UPDATE"
	ActionStatusDeactivate    ActivityAction = "STATUS_DEACTIVATE"
	ActionStatusReactivate    ActivityAction = "STATUS_REACTIVATE"
	ActionRemitoCreate        ActivityAction = "REMITO_CREATE"
	ActionTenantCreate        ActivityAction = "TENANT_CREATE"
	ActionTenantStatusChanged ActivityAction = "TENANT_STATUS_CHANGE"
)

// ActivityEvent captures who did what, on whose behalf, and when.
type ActivityEvent struct {
	ID             string
	Action         ActivityAction
	ActorID        string
	TenantID       string
	ImpersonatorID string
	Description    string
	Metadata       map[string]any
	OccurredAt     time.Time
}

// Entry converts the event into its persisted form.
func (e ActivityEvent) Entry() *AuditEntry {
	return &AuditEntry{
		ID:             e.ID,
		TenantID:       e.TenantID,
		UserID:         e.ActorID,
		ImpersonatorID: e.ImpersonatorID,
		Action:         string(e.Action),
		Description:    e.Description,
		Metadata:       cloneMetadata(e.Metadata),
		CreatedAt:      e.OccurredAt,
	}
}

// sessionEvent fills the actor fields from the acting identity.
func sessionEvent(session *EffectiveSession, action ActivityAction, description string, metadata map[string]any) ActivityEvent {
	acting := session.Acting()
	return ActivityEvent{
		Action:         action,
		ActorID:        acting.ID,
		TenantID:       acting.TenantID,
		ImpersonatorID: session.ImpersonatorID(),
		Description:    description,
		Metadata:       metadata,
	}
}

// ActivitySink consumes activity events for auditing purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// MultiSink fans an event out to every sink. All sinks are called; their
// errors are joined.
func MultiSink(sinks ...ActivitySink) ActivitySink {
	filtered := make([]ActivitySink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return ActivitySinkFunc(func(ctx context.Context, event ActivityEvent) error {
		var errs []error
		for _, s := range filtered {
			if err := s.Record(ctx, event); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// StoreSink persists events through an AuditStore.
func StoreSink(store AuditStore) ActivitySink {
	return ActivitySinkFunc(func(ctx context.Context, event ActivityEvent) error {
		if store == nil {
			return nil
		}
		return store.Append(ctx, event.Entry())
	})
}

func cloneMetadata(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
