package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-api/internal/api"
	"github.com/99minutos/accounts-api/internal/api/handler"
	"github.com/99minutos/accounts-api/internal/api/middleware"
	"github.com/99minutos/accounts-api/internal/core/ports"
	"github.com/99minutos/accounts-api/internal/core/service"
	"github.com/99minutos/accounts-api/internal/infrastructure/auditlog"
	"github.com/99minutos/accounts-api/internal/infrastructure/config"
	"github.com/99minutos/accounts-api/internal/infrastructure/db/mongo"
	"github.com/99minutos/accounts-api/internal/infrastructure/db/postgres"
	"github.com/99minutos/accounts-api/internal/infrastructure/db/redis"
	"github.com/99minutos/accounts-api/internal/infrastructure/jobs"
	"github.com/99minutos/accounts-api/internal/infrastructure/queue"
	"github.com/99minutos/accounts-api/internal/infrastructure/security"
	"github.com/99minutos/accounts-api/pkg/logger"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "dev"

// Application owns every long-lived dependency of the service.
type Application struct {
	cfg *config.Config
	log zerolog.Logger

	db    *sql.DB
	store *postgres.Store
	rdb   *goredis.Client
	mongo *mongo.Client

	audit  *queue.Dispatcher
	purger *jobs.SessionPurger

	echo   *echo.Echo
	server *http.Server
}

// New connects to the backing stores, builds the services and the HTTP router.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	a := &Application{
		cfg: cfg,
		log: logger.Init(logger.Options{
			Level:   cfg.LogLevel,
			Pretty:  cfg.Env == "development",
			Service: "accounts-api",
			Version: BuildVersion,
		}),
	}

	if err := a.initPostgres(ctx); err != nil {
		return nil, err
	}

	health := map[string]handler.Pinger{"postgres": a.store}

	var throttle ports.LoginThrottle
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.closeStores(ctx)
			return nil, err
		}
		a.rdb = rdb
		throttle = redis.NewLoginThrottle(rdb, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginLockWindow)
		health["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		a.log.Info().Str("addr", cfg.Redis.Addr).Msg("login throttle enabled")
	}

	var auditRepo ports.AuditRepository = auditlog.NewRepository(a.log)
	if cfg.Mongo.URI != "" {
		mc, err := mongo.Connect(ctx, mongo.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  "accounts-api",
		})
		if err != nil {
			a.closeStores(ctx)
			return nil, err
		}
		a.mongo = mc
		repo := mongo.NewAuditRepository(mc.DB)
		if err := repo.EnsureIndexes(ctx); err != nil {
			a.closeStores(ctx)
			return nil, err
		}
		auditRepo = repo
		health["mongo"] = mc
		a.log.Info().Str("database", cfg.Mongo.Database).Msg("audit events persisted to mongo")
	}

	a.audit = queue.NewDispatcher(cfg.Audit.Workers, cfg.Audit.Buffer, auditRepo, logger.Component("audit"))

	if err := a.initHTTP(ctx, throttle, health); err != nil {
		a.closeStores(ctx)
		return nil, err
	}

	if cfg.Sessions.PurgeInterval > 0 {
		a.purger = jobs.NewSessionPurger(a.store.Sessions(), a.log, cfg.Sessions.PurgeInterval)
	}
	return a, nil
}

func (a *Application) initPostgres(ctx context.Context) error {
	pg := a.cfg.Postgres
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             pg.URL,
		Schema:          pg.Schema,
		MaxConns:        pg.MaxConns,
		MaxIdleConns:    pg.MaxIdleConns,
		ConnMaxIdleTime: pg.ConnMaxIdleTime,
		ConnectTimeout:  pg.ConnectTimeout,
		OpTimeout:       pg.OpTimeout,
	})
	if err != nil {
		return err
	}

	if pg.Migrate {
		if err := postgres.Migrate(db, pg.Schema); err != nil {
			_ = db.Close()
			return err
		}
		a.log.Info().Msg("database migrations applied")
	}

	if err := prometheus.Register(collectors.NewDBStatsCollector(db, "accounts")); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			_ = db.Close()
			return fmt.Errorf("register db stats collector: %w", err)
		}
	}

	a.db = db
	a.store = postgres.NewStore(db, pg.OpTimeout)
	return nil
}

func (a *Application) initHTTP(ctx context.Context, throttle ports.LoginThrottle, health map[string]handler.Pinger) error {
	cfg := a.cfg

	tokens := service.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiresIn, cfg.Auth.JWTIssuer)
	hasher := security.NewBcryptHasher(cfg.Auth.BcryptCost)

	authOpts := []service.AuthOption{
		service.WithAuditSink(a.audit),
		service.WithAdminEmails(cfg.Auth.AdminEmails),
	}
	if throttle != nil {
		authOpts = append(authOpts, service.WithLoginThrottle(throttle))
	}
	authService := service.NewAuthService(a.store, tokens, hasher, logger.Component("auth"), authOpts...)
	authz := service.NewAuthorizer(a.store.Users(), a.store.Groups())
	adminService := service.NewAdminService(a.store, authz, a.audit, logger.Component("admin"))

	if n, err := adminService.PromoteAdmins(ctx, cfg.Auth.AdminEmails); err != nil {
		return fmt.Errorf("promote admins: %w", err)
	} else if n > 0 {
		a.log.Info().Int64("promoted", n).Msg("seeded global admins")
	}

	e, err := api.NewRouter(api.Dependencies{
		Log:               logger.Component("http"),
		Authenticator:     authService,
		Authorizer:        authz,
		AuthService:       authService,
		GroupService:      service.NewGroupService(a.store, a.audit, logger.Component("groups")),
		PreferenceService: service.NewPreferenceService(a.store.Preferences(), authz, a.audit, logger.Component("preferences")),
		AdminService:      adminService,
		Health:            health,
		CORSAllowOrigins:  cfg.HTTP.CORSAllowOrigins,
		RateLimit: middleware.RateLimitConfig{
			RPS:       cfg.RateLimit.RPS,
			Burst:     cfg.RateLimit.Burst,
			ExpiresIn: cfg.RateLimit.ExpiresIn,
		},
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	a.echo = e
	a.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

// Run starts the background workers and the HTTP server, then blocks until
// a shutdown signal arrives or the server fails.
func (a *Application) Run() error {
	a.audit.Start()
	if a.purger != nil {
		a.purger.Start()
	}

	a.log.Info().Str("port", a.cfg.Port).Str("env", a.cfg.Env).Msg("accounts api starting")

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = a.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		a.log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		if err := a.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}
	return nil
}

// Shutdown drains in-flight requests, stops the workers and closes the stores.
func (a *Application) Shutdown() error {
	a.log.Info().Msg("shutting down accounts api")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Error().Err(err).Msg("graceful server shutdown failed")
		errs = append(errs, err)
		_ = a.server.Close()
	}

	if a.purger != nil {
		a.purger.Stop()
	}

	if err := a.audit.Shutdown(ctx); err != nil {
		a.log.Warn().Err(err).Msg("audit queue not fully drained")
		errs = append(errs, err)
	}

	a.closeStores(ctx)
	a.log.Info().Msg("accounts api stopped")
	return errors.Join(errs...)
}

func (a *Application) closeStores(ctx context.Context) {
	if a.mongo != nil {
		if err := a.mongo.Close(ctx); err != nil {
			a.log.Error().Err(err).Msg("error closing mongo")
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Error().Err(err).Msg("error closing redis")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error().Err(err).Msg("error closing database")
		}
	}
}
