package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aussiebroadwan/patchnotes/internal/auth/cache"
	"github.com/aussiebroadwan/patchnotes/internal/auth/cache/drivers/bolt"
	rediscache "github.com/aussiebroadwan/patchnotes/internal/auth/cache/drivers/redis"
	httpapi "github.com/aussiebroadwan/patchnotes/internal/auth/http"
	"github.com/aussiebroadwan/patchnotes/internal/auth/notify"
	redisnotify "github.com/aussiebroadwan/patchnotes/internal/auth/notify/redis"
	"github.com/aussiebroadwan/patchnotes/internal/auth/service"
	"github.com/aussiebroadwan/patchnotes/internal/auth/store"
	"github.com/aussiebroadwan/patchnotes/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/patchnotes/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/patchnotes/pkg/cryptox"
	"github.com/aussiebroadwan/patchnotes/pkg/jwtx"
	"github.com/aussiebroadwan/patchnotes/pkg/slogx"
	goredis "github.com/redis/go-redis/v9"
)

// BuildVersion is overridden at build time via -ldflags "-X ...".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db          store.Store
	cache       cache.Cache
	notifier    notify.Notifier
	redisClient *goredis.Client // owned here only when the cache does not own it

	// Services
	sessionService      *service.SessionService
	qrService           *service.QRService
	telegramService     *service.TelegramService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// NewLogger builds the service logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "auth-service",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// New creates a new Application instance with all dependencies initialized
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg:    cfg,
		logger: NewLogger(cfg),
	}

	// Fail at startup, not on the first login.
	cryptox.SetPepperPath(cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	db, err := OpenStore(ctx, cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.db = db

	if err := app.initCache(ctx); err != nil {
		app.closeAll()
		return nil, err
	}
	if err := app.initNotifier(); err != nil {
		app.closeAll()
		return nil, err
	}

	if err := app.initServices(); err != nil {
		app.closeAll()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// OpenStore connects to the configured database and applies migrations.
func OpenStore(ctx context.Context, cfg Config, logger *slog.Logger) (store.Store, error) {
	var (
		db  store.Store
		err error
	)

	switch strings.ToLower(cfg.Database.Driver) {
	case "postgres":
		db, err = postgres.NewStore(ctx, cfg.Database.DSN)
	default:
		db, err = sqlite.NewStore(fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", cfg.Database.File))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}

	logger.Info("database migrations applied successfully", "driver", cfg.Database.Driver)
	return db, nil
}

func (app *Application) initCache(ctx context.Context) error {
	switch strings.ToLower(app.cfg.Cache.Driver) {
	case "bolt":
		c, err := bolt.New(app.cfg.Cache.BoltFile)
		if err != nil {
			return fmt.Errorf("failed to open bolt cache: %w", err)
		}
		app.cache = c
	default:
		c, err := rediscache.New(ctx, app.cfg.API.RedisURL, app.cfg.Cache.KeyPrefix)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.cache = c
	}

	app.logger.Info("session cache ready", "driver", app.cfg.Cache.Driver)
	return nil
}

func (app *Application) initNotifier() error {
	if strings.ToLower(app.cfg.Notifier.Driver) != "redis" {
		app.notifier = notify.NewBus()
		return nil
	}

	// Share the cache's connection pool when it is already talking to Redis.
	client := app.redisClient
	if rc, ok := app.cache.(*rediscache.Cache); ok {
		client = rc.Client()
	}
	if client == nil {
		opts, err := goredis.ParseURL(app.cfg.API.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid API_REDIS_URL: %w", err)
		}
		client = goredis.NewClient(opts)
		app.redisClient = client
	}

	app.notifier = redisnotify.New(client, app.logger)
	app.logger.Info("redis notifier enabled")
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	scope, err := service.ParseRevocationScope(app.cfg.RevocationScope)
	if err != nil {
		return err
	}

	app.sessionService = &service.SessionService{
		Store:         app.db,
		Cache:         app.cache,
		Codec:         jwtx.NewCodec(),
		AccessSecret:  []byte(app.cfg.JWT.AccessSecret),
		RefreshSecret: []byte(app.cfg.JWT.RefreshSecret),
		AccessTTL:     app.cfg.JWT.AccessTTL,
		RefreshTTL:    app.cfg.JWT.RefreshTTL,
		BlacklistTTL:  app.cfg.JWT.BlacklistTTL,
		Revocation:    scope,
	}
	app.qrService = &service.QRService{
		Store:    app.db,
		Notifier: app.notifier,
		TTL:      app.cfg.QR.CodeTTL,
	}
	app.telegramService = &service.TelegramService{
		Store:       app.db,
		BotToken:    app.cfg.Telegram.BotToken,
		InitDataTTL: app.cfg.Telegram.InitDataTTL,
	}
	app.userService = &service.UserService{Store: app.db}

	if app.cfg.Telegram.BotToken == "" {
		app.logger.Warn("TELEGRAM_BOT_TOKEN is empty, telegram login disabled")
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.cache,
		app.logger,
		app.cfg.HousekeepingEvery,
		app.cfg.QR.Retention,
	)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.cache, app.logger)

	router.SessionService = app.sessionService
	router.QRService = app.qrService
	router.TelegramService = app.telegramService
	router.UserService = app.userService
	router.Cookies = cookieConfig(app.cfg, app.logger)
	router.CORSOrigins = app.cfg.CORSOrigins
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// cookieConfig marks session cookies Secure everywhere but ENV=dev.
func cookieConfig(cfg Config, logger *slog.Logger) httpapi.CookieConfig {
	c := httpapi.CookieConfig{
		Domain: cfg.API.Domain,
		Secure: cfg.Env != "dev",
	}
	if !c.Secure {
		logger.Warn("session cookies are sent without Secure and with SameSite=Lax; set ENV to a non-dev value in production",
			"env", cfg.Env)
	}
	return c
}

// Run starts the application and blocks until ctx ends, a shutdown signal
// arrives or the server fails.
func (app *Application) Run(ctx context.Context) error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.API.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			app.closeAll()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
	case <-ctx.Done():
		app.logger.Info("context cancelled", "err", ctx.Err())
	}

	if err := app.Shutdown(); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	err := app.closeAll()
	app.logger.Info("auth service stopped")
	return err
}

// closeAll releases the notifier, cache and database in reverse order of
// creation. Nil dependencies are skipped.
func (app *Application) closeAll() error {
	var errs []error

	if app.notifier != nil {
		if err := app.notifier.Close(); err != nil {
			app.logger.Error("error closing notifier", "error", err)
			errs = append(errs, err)
		}
	}
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			app.logger.Error("error closing cache", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Handler exposes the configured router, mainly for tests.
func (app *Application) Handler() http.Handler {
	return app.router
}
