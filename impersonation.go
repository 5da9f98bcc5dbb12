package remito

import (
	"context"
	"time"
)

// ImpersonationBroker lets administrators act as another identity. The
// returned sessions are new values; the input session is never mutated.
type ImpersonationBroker struct {
	identities IdentityStore
	guard      *Guard
	activity   ActivityRecorder
	logger     Logger
	now        func() time.Time
}

// ImpersonationOption configures an ImpersonationBroker.
type ImpersonationOption func(*ImpersonationBroker)

func WithImpersonationActivity(recorder ActivityRecorder) ImpersonationOption {
	return func(b *ImpersonationBroker) {
		b.activity = normalizeRecorder(recorder)
	}
}

func WithImpersonationLogger(logger Logger) ImpersonationOption {
	return func(b *ImpersonationBroker) {
		b.logger = normalizeLogger(logger)
	}
}

func WithImpersonationClock(now func() time.Time) ImpersonationOption {
	return func(b *ImpersonationBroker) {
		if now != nil {
			b.now = now
		}
	}
}

func NewImpersonationBroker(identities IdentityStore, opts ...ImpersonationOption) *ImpersonationBroker {
	b := &ImpersonationBroker{
		identities: identities,
		guard:      NewGuard(),
		activity:   noopRecorder{},
		logger:     defLogger{},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Start returns a session acting as targetID on behalf of the session's
// acting identity.
func (b *ImpersonationBroker) Start(ctx context.Context, session *EffectiveSession, targetID string) (*EffectiveSession, error) {
	initiator, err := b.guard.Resolve(session)
	if err != nil {
		return nil, err
	}

	if targetID == initiator.ID {
		return nil, raise(ErrInvalidTarget, "cannot impersonate yourself", map[string]any{"user_id": initiator.ID})
	}
	if session.IsImpersonating() {
		return nil, raise(ErrForbidden, "impersonation cannot be nested", map[string]any{
			"user_id":         initiator.ID,
			"impersonator_id": session.ImpersonatorID(),
		})
	}
	if !initiator.Role.CanImpersonate() {
		return nil, raise(ErrForbidden, "role cannot impersonate", map[string]any{
			"user_id": initiator.ID,
			"role":    initiator.Role.String(),
		})
	}

	target, err := b.identities.FindIdentity(ctx, targetID)
	if err != nil {
		if IsNotFound(err) {
			return nil, raise(ErrNotFound, "identity not found", map[string]any{"target_id": targetID})
		}
		return nil, err
	}

	if !initiator.Role.IsCrossTenant() && !initiator.BelongsTo(target.TenantID) {
		// reported as missing so tenant membership does not leak
		return nil, raise(ErrNotFound, "identity not found", map[string]any{"target_id": targetID})
	}
	// a superadmin is never a target, not even for another superadmin
	if target.Role.Compare(initiator.Role) > 0 || target.Role == RoleSuperAdmin {
		return nil, raise(ErrInvalidTarget, "cannot impersonate a higher role", map[string]any{
			"target_id":   targetID,
			"target_role": target.Role.String(),
		})
	}

	startedAt := b.now().UTC()
	next := &EffectiveSession{
		Identity: target,
		Impersonating: &Impersonation{
			Active:    true,
			Original:  initiator,
			StartedAt: startedAt,
		},
	}

	b.activity.RecordEvent(ctx, ActivityEvent{
		Action:      ActionImpersonationStart,
		ActorID:     initiator.ID,
		TenantID:    target.TenantID,
		Description: "impersonation started",
		Metadata: map[string]any{
			"target_id":        target.ID,
			"target_email":     target.Email,
			"target_role":      target.Role.String(),
			"target_tenant_id": target.TenantID,
			"initiator_role":   initiator.Role.String(),
		},
		OccurredAt: startedAt,
	})
	b.logger.Info("impersonation started", "user_id", initiator.ID, "target_id", target.ID)

	return next, nil
}

// Stop ends the active impersonation and returns a session acting as the
// original identity.
func (b *ImpersonationBroker) Stop(ctx context.Context, session *EffectiveSession) (*EffectiveSession, error) {
	if _, err := b.guard.Resolve(session); err != nil {
		return nil, err
	}
	if !session.IsImpersonating() {
		return nil, raise(ErrNoActiveImpersonation, "", map[string]any{"user_id": session.Acting().ID})
	}

	original := session.Impersonating.Original
	target := session.Acting()
	stoppedAt := b.now().UTC()

	b.activity.RecordEvent(ctx, ActivityEvent{
		Action:      ActionImpersonationStop,
		ActorID:     original.ID,
		TenantID:    target.TenantID,
		Description: "impersonation stopped",
		Metadata: map[string]any{
			"target_id":  target.ID,
			"started_at": session.Impersonating.StartedAt,
			"duration":   stoppedAt.Sub(session.Impersonating.StartedAt).String(),
		},
		OccurredAt: stoppedAt,
	})
	b.logger.Info("impersonation stopped", "user_id", original.ID, "target_id", target.ID)

	return NewSession(original), nil
}
