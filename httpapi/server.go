package httpapi

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	remito "github.com/goliatone/go-remito"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Authenticator verifies credentials. Credential storage lives outside this
// module; when no Authenticator is configured the login route is not mounted.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (remito.Identity, error)
}

// SessionCodec encodes and decodes session tokens.
type SessionCodec interface {
	SessionDecoder
	Encode(session *remito.EffectiveSession) (string, error)
	TTL() time.Duration
}

// Services are the collaborators the handlers call into.
type Services struct {
	Codec         SessionCodec
	Broker        *remito.ImpersonationBroker
	Registry      *remito.StatusRegistry
	Workflow      *remito.StatusWorkflow
	Activity      *remito.ActivityLog
	Tenants       *remito.TenantService
	Guard         *remito.Guard
	Authenticator Authenticator
}

// Server mounts the remito routes on a fiber app.
type Server struct {
	app        *fiber.App
	services   Services
	logger     remito.Logger
	gatherer   prometheus.Gatherer
	cookieName string
	secure     bool
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(logger remito.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer exposes gatherer on GET /metrics.
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

func WithCookieName(name string) Option {
	return func(s *Server) {
		if name != "" {
			s.cookieName = name
		}
	}
}

// WithSecureCookie marks the session cookie as Secure.
func WithSecureCookie(secure bool) Option {
	return func(s *Server) {
		s.secure = secure
	}
}

func New(services Services, opts ...Option) *Server {
	s := &Server{
		services:   services,
		logger:     nopLogger{},
		cookieName: DefaultCookieName,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.services.Guard == nil {
		s.services.Guard = remito.NewGuard()
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "remito",
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(s.logger),
	})
	s.routes()
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	if s.gatherer != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
	if s.services.Authenticator != nil {
		s.app.Post("/login", s.login)
	}

	api := s.app.Group("", SessionMiddleware(SessionConfig{
		Decoder:     s.services.Codec,
		TokenLookup: "header:" + fiber.HeaderAuthorization + ",cookie:" + s.cookieName,
	}))

	api.Post("/logout", s.logout)
	api.Get("/me", s.me)

	api.Post("/impersonation", s.startImpersonation)
	api.Delete("/impersonation", s.stopImpersonation)

	api.Get("/tenants", s.listTenants)
	api.Post("/tenants", s.createTenant)
	api.Post("/tenants/:tenant/activate", s.setTenantActive(true))
	api.Post("/tenants/:tenant/deactivate", s.setTenantActive(false))

	api.Get("/tenants/:tenant/estados", s.listStatuses)
	api.Post("/tenants/:tenant/estados", s.createStatus)
	api.Patch("/estados/:id", s.updateStatus)
	api.Post("/estados/:id/deactivate", s.deactivateStatus)
	api.Post("/estados/:id/reactivate", s.reactivateStatus)

	api.Get("/tenants/:tenant/remitos", s.listDocuments)
	api.Post("/tenants/:tenant/remitos", s.createDocument)
	api.Get("/remitos/:id", s.getDocument)
	api.Post("/remitos/:id/estado", s.transition)
	api.Get("/remitos/:id/historial", s.history)

	api.Get("/activity", s.myActivity)
	api.Get("/tenants/:tenant/activity", s.tenantActivity)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any) {}
func (nopLogger) Warn(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
