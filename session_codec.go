package remito

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultSessionTTL is the lifetime of an encoded session.
const DefaultSessionTTL = 8 * time.Hour

type sessionClaims struct {
	jwt.RegisteredClaims
	Identity      Identity       `json:"idn"`
	Impersonation *Impersonation `json:"imp,omitempty"`
}

// SessionCodec signs sessions into HS256 tokens and reads them back. The
// impersonation block travels with the token so it survives requests.
type SessionCodec struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
	logger     Logger
}

// SessionCodecOption configures a SessionCodec.
type SessionCodecOption func(*SessionCodec)

func WithSessionIssuer(issuer string) SessionCodecOption {
	return func(c *SessionCodec) {
		c.issuer = issuer
	}
}

func WithSessionTTL(ttl time.Duration) SessionCodecOption {
	return func(c *SessionCodec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithSessionClock(now func() time.Time) SessionCodecOption {
	return func(c *SessionCodec) {
		if now != nil {
			c.now = now
		}
	}
}

func WithSessionLogger(logger Logger) SessionCodecOption {
	return func(c *SessionCodec) {
		c.logger = normalizeLogger(logger)
	}
}

func NewSessionCodec(signingKey []byte, opts ...SessionCodecOption) *SessionCodec {
	c := &SessionCodec{
		signingKey: signingKey,
		ttl:        DefaultSessionTTL,
		now:        time.Now,
		logger:     defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// TTL returns the token lifetime.
func (c *SessionCodec) TTL() time.Duration {
	return c.ttl
}

// Encode signs session.
func (c *SessionCodec) Encode(session *EffectiveSession) (string, error) {
	if err := session.Validate(); err != nil {
		return "", err
	}
	now := c.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Identity.ID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Identity: session.Identity,
	}
	if session.IsImpersonating() {
		imp := *session.Impersonating
		claims.Impersonation = &imp
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session")
	}
	return signed, nil
}

// Decode verifies token and returns the session it carries. Any failure is
// reported as ErrUnauthorized.
func (c *SessionCodec) Decode(token string) (*EffectiveSession, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(c.issuer))
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.signingKey, nil
	}, parserOptions...)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, jwt.ErrTokenExpired) {
			reason = "expired"
		}
		c.logger.Debug("session token rejected", "reason", reason, "error", err)
		return nil, raise(ErrUnauthorized, "invalid session token", map[string]any{"reason": reason})
	}
	if !parsed.Valid || claims.Subject != claims.Identity.ID {
		return nil, raise(ErrUnauthorized, "invalid session token", map[string]any{"reason": "claims"})
	}

	session := &EffectiveSession{Identity: claims.Identity, Impersonating: claims.Impersonation}
	if err := session.Validate(); err != nil {
		return nil, raise(ErrUnauthorized, "invalid session token", map[string]any{"reason": err.Error()})
	}
	return session, nil
}
