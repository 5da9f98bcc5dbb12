package remito

import (
	"fmt"
	"time"
)

// Impersonation is the back-reference held by a session while an
// administrator acts as another identity. Original is a snapshot of the
// initiator and is never itself impersonating.
type Impersonation struct {
	Active    bool      `json:"active"`
	Original  Identity  `json:"original"`
	StartedAt time.Time `json:"started_at"`
}

// EffectiveSession is the explicit, request scoped view of who is acting.
// Identity is always the acting identity; all authorization uses it.
type EffectiveSession struct {
	Identity      Identity       `json:"identity"`
	Impersonating *Impersonation `json:"impersonating,omitempty"`
}

// NewSession returns a session acting as identity with no impersonation.
func NewSession(identity Identity) *EffectiveSession {
	return &EffectiveSession{Identity: identity}
}

// Acting returns the identity whose permissions govern the request.
func (s *EffectiveSession) Acting() Identity {
	if s == nil {
		return Identity{}
	}
	return s.Identity
}

// IsImpersonating reports whether an impersonation is active.
func (s *EffectiveSession) IsImpersonating() bool {
	return s != nil && s.Impersonating != nil && s.Impersonating.Active
}

// Original returns the identity that authenticated. Without an active
// impersonation it is the acting identity.
func (s *EffectiveSession) Original() Identity {
	if s.IsImpersonating() {
		return s.Impersonating.Original
	}
	return s.Acting()
}

// ImpersonatorID returns the initiator id while impersonating, or "".
func (s *EffectiveSession) ImpersonatorID() string {
	if s.IsImpersonating() {
		return s.Impersonating.Original.ID
	}
	return ""
}

// Validate checks the structural invariants of the session.
func (s *EffectiveSession) Validate() error {
	if s == nil || s.Identity.IsZero() {
		return raise(ErrUnauthorized, "session has no identity", nil)
	}
	if err := s.Identity.Validate(); err != nil {
		return raise(ErrUnauthorized, "session identity is invalid", map[string]any{"reason": err.Error()})
	}
	if !s.IsImpersonating() {
		return nil
	}

	original := s.Impersonating.Original
	if err := original.Validate(); err != nil {
		return raise(ErrUnauthorized, "impersonation origin is invalid", map[string]any{"reason": err.Error()})
	}
	if original.ID == s.Identity.ID {
		return raise(ErrInvalidTarget, "session impersonates itself", nil)
	}
	if !original.Role.CanImpersonate() {
		return raise(ErrForbidden, "impersonation origin cannot impersonate", map[string]any{
			"role": original.Role.String(),
		})
	}
	return nil
}

// Clone returns a deep copy so callers can hand sessions across goroutines.
func (s *EffectiveSession) Clone() *EffectiveSession {
	if s == nil {
		return nil
	}
	out := &EffectiveSession{Identity: s.Identity}
	if s.Impersonating != nil {
		imp := *s.Impersonating
		out.Impersonating = &imp
	}
	return out
}

func (s *EffectiveSession) String() string {
	if s == nil {
		return "anonymous"
	}
	if s.IsImpersonating() {
		return fmt.Sprintf(
			"user=%s role=%s tenant=%s impersonated_by=%s since=%s",
			s.Identity.ID,
			s.Identity.Role,
			s.Identity.TenantID,
			s.Impersonating.Original.ID,
			s.Impersonating.StartedAt.Format(time.RFC3339),
		)
	}
	return fmt.Sprintf("user=%s role=%s tenant=%s", s.Identity.ID, s.Identity.Role, s.Identity.TenantID)
}
