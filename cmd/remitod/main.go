package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	remito "github.com/goliatone/go-remito"
	"github.com/goliatone/go-remito/activitymap"
	"github.com/goliatone/go-remito/cache"
	"github.com/goliatone/go-remito/httpapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type loggers struct {
	base *glog.BaseLogger
}

func (l loggers) GetLogger(name string) remito.Logger {
	return l.base.GetLogger(name)
}

type App struct {
	config   remito.Config
	loggers  remito.LoggerProvider
	db       *bun.DB
	repo     remito.RepositoryManager
	registry *prometheus.Registry
	metrics  *remito.Metrics
	activity *remito.ActivityLog
	services httpapi.Services
}

func (a *App) GetLogger(name string) remito.Logger {
	return a.loggers.GetLogger(name)
}

func main() {
	tokenFor := flag.String("token", "", "print a session token for the identity with this email and exit")
	flag.Parse()

	cfg, err := remito.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level := glog.Info
	switch cfg.LogLevel {
	case "trace":
		level = glog.Trace
	case "debug":
		level = glog.Debug
	case "warn":
		level = glog.Warn
	case "error":
		level = glog.Error
	}

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(level),
		glog.WithName("remito"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	app := &App{
		config:  cfg,
		loggers: loggers{base: lgr},
	}
	logger := app.GetLogger("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := WithPersistence(ctx, app); err != nil {
		logger.Error("persistence setup failed", "error", err)
		os.Exit(1)
	}
	defer app.db.Close()

	WithServices(app)

	if err := Bootstrap(ctx, app); err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	if *tokenFor != "" {
		code := PrintToken(ctx, app, *tokenFor)
		_ = app.activity.Close(context.Background())
		os.Exit(code)
	}

	srv := httpapi.New(app.services,
		httpapi.WithLogger(app.GetLogger("http")),
		httpapi.WithGatherer(app.registry),
		httpapi.WithCookieName(cfg.GetCookieName()),
	)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		errCh <- srv.Listen(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if err := app.activity.Close(shutdownCtx); err != nil {
		logger.Warn("activity log did not drain", "error", err)
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	sqldb, err := sql.Open(sqliteshim.ShimName, app.config.DSN)
	if err != nil {
		return err
	}
	// sqlite has no row locks; one connection serializes writers
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if err := remito.CreateSchema(ctx, db); err != nil {
		return err
	}

	repo := remito.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		return err
	}

	app.db = db
	app.repo = repo
	return nil
}

func WithServices(app *App) {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = remito.NewMetrics(app.registry)

	store := cache.New(
		cache.WithCapacity(app.config.CacheCapacity),
		cache.WithDefaultTTL(app.config.CacheTTL),
		cache.WithObserver(app.metrics),
	)

	app.activity = remito.NewActivityLog(app.repo.Audit(),
		remito.WithActivitySink(remito.MultiSink(
			remito.StoreSink(app.repo.Audit()),
			activitymap.LogSink(app.GetLogger("activity")),
		)),
		remito.WithActivityLogger(app.GetLogger("activity")),
		remito.WithActivityMetrics(app.metrics),
		remito.WithActivityQueueSize(app.config.AuditQueue),
	)

	registry := remito.NewStatusRegistry(app.repo.Statuses(),
		remito.WithStatusCache(store),
		remito.WithStatusActivity(app.activity),
		remito.WithStatusLogger(app.GetLogger("statuses")),
		remito.WithStatusTenants(app.repo.Tenants()),
	)

	app.services = httpapi.Services{
		Codec: remito.NewSessionCodec(app.config.GetSigningKey(),
			remito.WithSessionIssuer(app.config.GetIssuer()),
			remito.WithSessionTTL(app.config.GetSessionTTL()),
			remito.WithSessionLogger(app.GetLogger("session")),
		),
		Broker: remito.NewImpersonationBroker(app.repo.Identities(),
			remito.WithImpersonationActivity(app.activity),
			remito.WithImpersonationLogger(app.GetLogger("impersonation")),
		),
		Registry: registry,
		Workflow: remito.NewStatusWorkflow(app.repo.Documents(), registry,
			remito.WithWorkflowCache(store),
			remito.WithWorkflowActivity(app.activity),
			remito.WithWorkflowLogger(app.GetLogger("workflow")),
			remito.WithWorkflowMetrics(app.metrics),
			remito.WithWorkflowTenants(app.repo.Tenants()),
		),
		Activity: app.activity,
		Tenants: remito.NewTenantService(app.repo.Tenants(), registry,
			remito.WithTenantCache(store),
			remito.WithTenantActivity(app.activity),
			remito.WithTenantLogger(app.GetLogger("tenants")),
		),
		Guard: remito.NewGuard(),
	}
}

// Bootstrap registers the SUPERADMIN named by REMITO_BOOTSTRAP_EMAIL when it
// does not exist yet.
func Bootstrap(ctx context.Context, app *App) error {
	email := app.config.BootstrapEmail
	if email == "" {
		return nil
	}

	identities := app.repo.Identities()
	if _, err := identities.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !remito.IsNotFound(err) {
		return err
	}

	record, err := identities.Register(ctx, &remito.IdentityRecord{
		Role:  remito.RoleSuperAdmin.String(),
		Name:  "Administrator",
		Email: email,
	})
	if err != nil {
		return err
	}
	app.GetLogger("main").Info("bootstrap superadmin registered", "user_id", record.ID.String(), "email", record.Email)
	return nil
}

// PrintToken writes a session token for email to stdout and returns the exit code.
func PrintToken(ctx context.Context, app *App, email string) int {
	identity, err := app.repo.Identities().FindByEmail(ctx, email)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	session := remito.NewSession(identity)
	token, err := app.services.Codec.Encode(session)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	app.activity.RecordEvent(ctx, remito.ActivityEvent{
		Action:      remito.ActionLogin,
		ActorID:     identity.ID,
		TenantID:    identity.TenantID,
		Description: "session token issued from the command line",
		Metadata:    map[string]any{"channel": "cli"},
	})

	fmt.Println(token)
	return 0
}
