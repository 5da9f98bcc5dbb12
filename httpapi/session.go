package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	remito "github.com/goliatone/go-remito"
)

const (
	// DefaultContextKey is the fiber local holding the *remito.EffectiveSession.
	DefaultContextKey = "session"
	// DefaultCookieName is the cookie the session token is written to.
	DefaultCookieName = "remito_session"
)

// SessionDecoder turns a raw token into a session.
type SessionDecoder interface {
	Decode(token string) (*remito.EffectiveSession, error)
}

// SessionConfig configures SessionMiddleware.
type SessionConfig struct {
	Decoder SessionDecoder
	// Filter skips the middleware when it returns true.
	Filter func(*fiber.Ctx) bool
	// ContextKey is the fiber local the session is stored under.
	ContextKey string
	// TokenLookup lists the token sources tried in order, for example
	// "header:Authorization,cookie:remito_session".
	TokenLookup string
	AuthScheme  string
}

func (cfg SessionConfig) withDefaults() SessionConfig {
	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}
	if cfg.TokenLookup == "" {
		cfg.TokenLookup = "header:" + fiber.HeaderAuthorization + ",cookie:" + DefaultCookieName
	}
	return cfg
}

// SessionMiddleware decodes the session token and stores the session in the
// fiber locals and in the user context. Requests without a valid token fail
// with ErrUnauthorized.
func SessionMiddleware(cfg SessionConfig) fiber.Handler {
	cfg = cfg.withDefaults()
	extractors := tokenExtractors(cfg.TokenLookup, cfg.AuthScheme)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		token := extractToken(c, extractors)
		if token == "" || cfg.Decoder == nil {
			return remito.ErrUnauthorized
		}
		session, err := cfg.Decoder.Decode(token)
		if err != nil {
			return err
		}

		c.Locals(cfg.ContextKey, session)
		c.SetUserContext(remito.WithSession(c.UserContext(), session))
		return c.Next()
	}
}

// SessionFrom returns the session stored by SessionMiddleware.
func SessionFrom(c *fiber.Ctx) *remito.EffectiveSession {
	if session, ok := remito.SessionFromContext(c.UserContext()); ok {
		return session
	}
	session, _ := c.Locals(DefaultContextKey).(*remito.EffectiveSession)
	return session
}

type tokenExtractor func(c *fiber.Ctx) string

// header:Authorization,cookie:remito_session,query:token
func tokenExtractors(tokenLookup, authScheme string) []tokenExtractor {
	extractors := make([]tokenExtractor, 0)
	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}
		source, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		switch source {
		case "header":
			extractors = append(extractors, tokenFromHeader(name, authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(name))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(name))
		}
	}
	return extractors
}

func extractToken(c *fiber.Ctx, extractors []tokenExtractor) string {
	for _, extract := range extractors {
		if token := extract(c); token != "" {
			return token
		}
	}
	return ""
}

func tokenFromHeader(header, authScheme string) tokenExtractor {
	authScheme = strings.TrimSpace(authScheme)
	l := len(authScheme)
	return func(c *fiber.Ctx) string {
		a := c.Get(header)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:])
		}
		return ""
	}
}

func tokenFromQuery(param string) tokenExtractor {
	return func(c *fiber.Ctx) string {
		return c.Query(param)
	}
}

func tokenFromCookie(name string) tokenExtractor {
	return func(c *fiber.Ctx) string {
		return c.Cookies(name)
	}
}
