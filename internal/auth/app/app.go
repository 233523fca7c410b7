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

	httpapi "github.com/laqq/authd/internal/auth/http"
	"github.com/laqq/authd/internal/auth/service"
	"github.com/laqq/authd/internal/auth/store"
	"github.com/laqq/authd/internal/auth/store/drivers/sqlite"
	"github.com/laqq/authd/pkg/cryptox"
	"github.com/laqq/authd/pkg/jwtx"
	"github.com/laqq/authd/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	signer   jwtx.Signer
	verifier jwtx.Verifier

	tokenService        *service.TokenService
	loginService        *service.LoginService
	userService         *service.UserService
	roleService         *service.RoleService
	permissionService   *service.PermissionService
	totpService         *service.TOTPService
	provisionService    *service.ProvisionService
	housekeepingService *service.HousekeepingService
	gate                *service.Gate

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized: database
// migrated, signing keys loaded, RBAC matrix provisioned.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "authd",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	signer, verifier, err := InitSigningKeys(app.cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.signer = signer
	app.verifier = verifier

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	// Seeding runs on every boot; everything it does is idempotent.
	ctx := context.Background()
	if err := app.provisionService.Run(ctx, app.cfg.AdminEmail, app.cfg.AdminPassword); err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to provision defaults: %w", err)
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

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

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
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

func (app *Application) initServices() error {
	app.tokenService = &service.TokenService{
		Signer:     app.signer,
		Verifier:   app.verifier,
		Store:      app.db,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}

	app.loginService = &service.LoginService{
		Store:  app.db,
		Tokens: app.tokenService,
	}
	app.userService = &service.UserService{Store: app.db}
	app.roleService = &service.RoleService{Store: app.db}
	app.permissionService = &service.PermissionService{Store: app.db}
	app.totpService = &service.TOTPService{
		Store:  app.db,
		Issuer: app.cfg.Issuer,
	}
	app.provisionService = &service.ProvisionService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	// The gate only accepts operations it has rules for, so a route wired
	// to an unmapped operation aborts startup here.
	gate, err := service.NewGate(&service.RBACService{Store: app.db}, httpapi.RegisteredOperations()...)
	if err != nil {
		return err
	}
	app.gate = gate

	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.Gate = app.gate
	router.LoginService = app.loginService
	router.TokenService = app.tokenService
	router.UserService = app.userService
	router.RoleService = app.roleService
	router.PermissionService = app.permissionService
	router.TOTPService = app.totpService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
