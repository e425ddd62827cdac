// Package app wires the server together: configuration, logger, model
// registry, backing stores, REST routes, the HTTP server and the remote CLI.
package app

import (
	"context"
	"crypto/rsa"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ubiquits/ubiquits/internal/cache"
	"github.com/ubiquits/ubiquits/internal/cli/config"
	"github.com/ubiquits/ubiquits/internal/cli/remote"
	"github.com/ubiquits/ubiquits/internal/logging"
	"github.com/ubiquits/ubiquits/internal/models"
	"github.com/ubiquits/ubiquits/internal/orm/schema"
	"github.com/ubiquits/ubiquits/internal/orm/store"
	"github.com/ubiquits/ubiquits/internal/web/middleware"
	"github.com/ubiquits/ubiquits/internal/web/ratelimit"
	"github.com/ubiquits/ubiquits/internal/web/resource"
	"github.com/ubiquits/ubiquits/internal/web/router"
	"github.com/ubiquits/ubiquits/internal/web/server"
)

// App is a fully wired server
type App struct {
	Config *config.Config
	Logger logging.Logger
	Models *models.Classes
	Router *router.Router

	// Stores holds the store of every class by storage key
	Stores map[string]store.Store

	// Shell is nil when the remote CLI is disabled
	Shell *remote.Shell

	api       *server.Server
	remoteCLI *server.Server
	db        *sql.DB
	cache     cache.Cache
	limiter   *ratelimit.TokenBucket
	log       logging.Logger
}

// New builds the application. Nothing listens until Run.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	a := &App{
		Config: cfg,
		Logger: logger,
		Stores: make(map[string]store.Store),
		log:    logger.Source("app"),
	}

	if err := a.wire(ctx); err != nil {
		a.release()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	registry := schema.NewRegistry()
	classes, err := models.Define(registry)
	if err != nil {
		return fmt.Errorf("failed to define models: %w", err)
	}
	registry.Freeze()
	a.Models = classes

	if err := a.openStores(ctx); err != nil {
		return err
	}

	a.Router = router.New(a.Config.APIPrefix)
	a.Router.Use("RequestID", middleware.RequestID())
	a.Router.Use("DebugLog", middleware.DebugLog(a.Logger))
	a.Router.Use("Recovery", middleware.Recovery(a.Logger))

	for _, class := range classes.All() {
		c, err := resource.New(a.Stores[class.StorageKey()], a.Logger)
		if err != nil {
			return err
		}
		c.Register(a.Router)
	}

	apiConfig := server.DefaultConfig("api", a.Config.Addr(), a.Router)
	if a.db != nil {
		apiConfig.Database = server.DefaultDatabaseConfig(a.db)
	}
	if a.api, err = server.New(apiConfig); err != nil {
		return err
	}

	return a.wireRemoteCLI()
}

// openStores creates the backing store of every class, optionally behind
// the redis cache
func (a *App) openStores(ctx context.Context) error {
	cfg := a.Config

	var dialect store.Dialect
	if cfg.DatabaseDriver != "memory" {
		var err error
		if dialect, err = store.DialectFor(cfg.DatabaseDriver); err != nil {
			return err
		}
		if a.db, err = sql.Open(cfg.DatabaseDriver, cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
	}

	if cfg.RedisAddr != "" {
		rc, err := cache.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cache.Options{TTL: cfg.CacheTTL})
		if err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		a.cache = rc
	}

	for _, class := range a.Models.All() {
		var s store.Store
		if a.db != nil {
			sqlStore, err := store.NewSQL(class, a.db, dialect, a.Logger)
			if err != nil {
				return err
			}
			if err := sqlStore.Migrate(ctx); err != nil {
				return err
			}
			s = sqlStore
		} else {
			mem, err := store.NewMemory(class, a.Logger)
			if err != nil {
				return err
			}
			s = mem
		}

		if a.cache != nil {
			cached, err := store.NewCached(s, a.cache, cfg.CacheTTL, a.Logger)
			if err != nil {
				return err
			}
			s = cached
		}
		a.Stores[class.StorageKey()] = s
	}

	a.log.Info("stores ready", "driver", cfg.DatabaseDriver, "cached", a.cache != nil)
	return nil
}

func (a *App) wireRemoteCLI() error {
	cfg := a.Config
	if cfg.RemoteCLIPublicKeyPath == "" && cfg.RemoteCLIPasswordHash == "" {
		a.log.Info("remote cli disabled, set REMOTE_CLI_PUBLIC_KEY_PATH or REMOTE_CLI_PASSWORD_HASH to enable it")
		return nil
	}

	var key *rsa.PublicKey
	if cfg.RemoteCLIPublicKeyPath != "" {
		var err error
		if key, err = remote.LoadPublicKey(cfg.RemoteCLIPublicKeyPath); err != nil {
			return err
		}
	}
	creds, err := remote.NewCredentials(key, cfg.RemoteCLIPasswordHash)
	if err != nil {
		return err
	}

	a.Shell = remote.NewShell(a.Logger.Source("remote-cli"), false)
	a.Shell.MustRegister(remote.RoutesCommand(a.Router, a.Shell))
	a.Shell.MustRegister(remote.ModelsCommand(a.Models.Registry, a.Shell))

	var handler http.Handler = remote.NewServer(creds, a.Shell, a.Logger)
	if cfg.RemoteCLIRateLimit > 0 {
		limits := ratelimit.DefaultConfig()
		limits.Capacity = cfg.RemoteCLIRateLimit
		if a.limiter, err = ratelimit.NewTokenBucket(limits); err != nil {
			return err
		}
		handler = middleware.RateLimit(a.limiter, middleware.RemoteIP, a.Logger)(handler)
	}

	a.remoteCLI, err = server.New(server.DefaultConfig("remote-cli", cfg.RemoteCLIAddr(), handler))
	return err
}

// Servers returns the servers Run starts
func (a *App) Servers() []*server.Server {
	if a.remoteCLI == nil {
		return []*server.Server{a.api}
	}
	return []*server.Server{a.api, a.remoteCLI}
}

// Run serves until ctx is done, then shuts down and releases the database
// and cache connections
func (a *App) Run(ctx context.Context) error {
	gs := server.NewGracefulShutdown(a.Logger, 10*time.Second, a.Servers()...)
	gs.RegisterHook(func(context.Context) error {
		return a.release()
	})
	return gs.Run(ctx)
}

// Close releases the database and cache connections of an app that never ran
func (a *App) Close() error {
	return a.release()
}

func (a *App) release() error {
	var errs []error
	if a.limiter != nil {
		errs = append(errs, a.limiter.Close())
		a.limiter = nil
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
		a.cache = nil
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
		a.db = nil
	}
	return errors.Join(errs...)
}
