package remito

import "context"

var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithSession stores the effective session in ctx.
func WithSession(ctx context.Context, session *EffectiveSession) context.Context {
	return context.WithValue(ctx, sessionCtxKey, session)
}

// SessionFromContext returns the effective session stored in ctx.
func SessionFromContext(ctx context.Context) (*EffectiveSession, bool) {
	session, ok := ctx.Value(sessionCtxKey).(*EffectiveSession)
	return session, ok && session != nil
}
