package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/lumehq/accountd/internal/account/http"
	"github.com/lumehq/accountd/internal/account/mail"
	"github.com/lumehq/accountd/internal/account/service"
	"github.com/lumehq/accountd/internal/account/store"
	"github.com/lumehq/accountd/internal/account/store/drivers/sqlite"
	"github.com/lumehq/accountd/pkg/cachex"
	memcache "github.com/lumehq/accountd/pkg/cachex/drivers/memory"
	rediscache "github.com/lumehq/accountd/pkg/cachex/drivers/redis"
	"github.com/lumehq/accountd/pkg/jwtx"
	"github.com/lumehq/accountd/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the account service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	cache  cachex.Cache
	signer *jwtx.HS256
	mailer mail.Sender

	authService  *service.AuthService
	sessionSvc   *service.SessionService
	userService  *service.UserService
	rolesService *service.RolesService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "account-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	signer, err := jwtx.NewHS256([]byte(cfg.JWTSecret), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token signer: %w", err)
	}
	app.signer = signer

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initCache(); err != nil {
		return nil, err
	}
	if err := app.initMailer(); err != nil {
		return nil, err
	}

	app.initServices()

	if err := app.rolesService.Seed(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to seed roles: %w", err)
	}

	if err := app.initHTTP(); err != nil {
		return nil, err
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("account service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down account service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.cache.Close(); err != nil {
		app.logger.Error("error closing cache", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("account service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initCache picks redis when configured, otherwise the in-process cache.
func (app *Application) initCache() error {
	if app.cfg.RedisAddr == "" {
		app.cache = memcache.New()
		app.logger.Warn("no REDIS_ADDR configured, using in-process cache; revocation state will not survive restarts")
		return nil
	}

	c := rediscache.New(rediscache.Config{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	app.cache = c
	app.logger.Info("connected to redis", "addr", app.cfg.RedisAddr)
	return nil
}

// initMailer builds the SMTP sender, or the log sender when no relay is
// configured.
func (app *Application) initMailer() error {
	if app.cfg.SMTPHost == "" {
		app.mailer = mail.LogSender{}
		app.logger.Warn("no SMTP_HOST configured, verification emails will be logged instead of sent")
		return nil
	}

	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:           app.cfg.SMTPHost,
		Port:           app.cfg.SMTPPort,
		Username:       app.cfg.SMTPUsername,
		Password:       app.cfg.SMTPPassword,
		From:           app.cfg.SMTPFrom,
		SendsPerSecond: app.cfg.SMTPSendsPerSecond,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize mailer: %w", err)
	}

	app.mailer = sender
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.sessionSvc = service.NewSessionService(app.cache, app.cfg.RefreshTTL)
	app.userService = &service.UserService{Store: app.db}
	app.rolesService = &service.RolesService{Store: app.db}

	app.authService = &service.AuthService{
		Store:         app.db,
		Tokens:        service.NewTokenService(app.signer, app.cfg.Issuer, app.cfg.AccessTTL, app.cfg.RefreshTTL),
		Sessions:      app.sessionSvc,
		Mailer:        app.mailer,
		VerifyBaseURL: app.cfg.VerifyBaseURL,
	}
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() error {
	router, err := httpapi.NewRouter(
		app.signer,
		BuildVersion,
		app.db,
		app.cache,
		app.logger,
		httpapi.Config{
			RateLimitPerMinute:   app.cfg.RateLimitPerMinute,
			MaxConcurrentCalls:   app.cfg.MaxConcurrentCalls,
			ConcurrencyCacheSize: app.cfg.ConcurrencyCacheSize,
			HandlerTimeout:       app.cfg.HandlerTimeout,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	router.AuthService = app.authService
	router.SessionSvc = app.sessionSvc
	router.UserService = app.userService
	router.RolesService = app.rolesService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return nil
}
