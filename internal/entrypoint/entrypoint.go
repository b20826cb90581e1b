package entrypoint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/cors"

	"github.com/mrlokans/catalog/internal/admin"
	"github.com/mrlokans/catalog/internal/audit"
	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/config"
	"github.com/mrlokans/catalog/internal/database"
	auditrepo "github.com/mrlokans/catalog/internal/database/audit"
	"github.com/mrlokans/catalog/internal/database/catalog"
	http_controllers "github.com/mrlokans/catalog/internal/http"
	"github.com/mrlokans/catalog/internal/metrics"
	"github.com/mrlokans/catalog/internal/scheduler"
	"github.com/mrlokans/catalog/internal/tasks"
)

// App is the assembled application: the HTTP handler plus every
// background component that has to be stopped on shutdown.
type App struct {
	Handler http.Handler

	db             *database.Database
	audit          *audit.Service
	authController *auth.AuthController
	tasks          *tasks.Client
	scheduler      *scheduler.AuditCleanupScheduler
	cancel         context.CancelFunc
}

// Build wires the database, auth, audit, task queue, scheduler, admin
// site and router. Background workers start immediately.
func Build(cfg *config.Config, version string) (*App, error) {
	dbConfig := cfg.Database
	if cfg.Demo.Enabled {
		log.Printf("Demo mode enabled: writes are disabled")
		if cfg.Demo.DBPath != "" {
			dbConfig.Driver = config.DriverSQLite
			dbConfig.Path = cfg.Demo.DBPath
		}
	}

	db, err := database.NewDatabase(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app := &App{db: db}
	ok := false
	defer func() {
		if !ok {
			app.Shutdown(context.Background())
		}
	}()

	var store scs.Store
	if db.IsSQLite() {
		sqlDB, err := db.SQLDB()
		if err != nil {
			return nil, err
		}
		if store, err = auth.NewSQLiteStore(sqlDB); err != nil {
			return nil, err
		}
	} else {
		log.Printf("Sessions are kept in memory for the %s driver", db.Driver)
	}
	sessions := auth.NewSessionManager(store, cfg.Auth)

	csrfSecret, err := sessionSecret(cfg.Auth.SessionSecret)
	if err != nil {
		return nil, err
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTTTL)
	if tokens == nil {
		log.Printf("WARNING: JWT_SECRET is not set. Bearer tokens are disabled.")
	}

	authService := auth.NewService(db.DB, cfg.Auth)
	usersRepo := authService.Users()
	catalogRepo := catalog.NewRepository(db.DB)
	app.audit = audit.NewService(auditrepo.NewRepository(db.DB))
	app.authController = auth.NewAuthController(authService, sessions, tokens, app.audit, cfg.Auth, cfg.UI.MediaDir)

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	var enqueuer scheduler.TaskEnqueuer
	if cfg.Tasks.Enabled {
		app.tasks, err = tasks.NewClient(tasks.DBPathFor(dbConfig.Path), cfg.Tasks)
		if err != nil {
			return nil, err
		}
		app.tasks.Register(
			tasks.NewCleanupAuditEventsQueue(app.audit),
			tasks.NewPruneProfilePhotosQueue(usersRepo, cfg.UI.MediaDir),
		)
		app.tasks.Start(ctx)
		enqueuer = app.tasks
	}

	app.scheduler = scheduler.NewAuditCleanupScheduler(enqueuer, app.audit, cfg.Audit)
	if err := app.scheduler.Start(ctx); err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	site := admin.NewDefaultSite(admin.Options{
		Catalog:       catalogRepo,
		Users:         usersRepo,
		Audit:         app.audit,
		Permissions:   authService.Permissions(),
		Roles:         authService,
		OnUserDeleted: app.pruneProfilePhotos(usersRepo, cfg.UI.MediaDir),
	})

	router, err := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:       db,
		Catalog:        catalogRepo,
		Users:          usersRepo,
		Audit:          app.audit,
		AuthService:    authService,
		SessionManager: sessions,
		AuthMiddleware: auth.NewMiddleware(authService, sessions, tokens),
		AuthController: app.authController,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		Tokens:         tokens,
		Admin:          site,
		Metrics:        m,
		DemoMode:       cfg.Demo.Enabled,
		TemplatesPath:  cfg.UI.TemplatesPath,
		StaticPath:     cfg.UI.StaticPath,
		MediaDir:       cfg.UI.MediaDir,
		Version:        version,
	})
	if err != nil {
		return nil, err
	}

	app.Handler = router
	if len(cfg.CORS.AllowedOrigins) > 0 {
		app.Handler = cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", auth.CSRFTokenHeader},
			AllowCredentials: true,
			MaxAge:           300,
		})(router)
		log.Printf("CORS enabled for %v", cfg.CORS.AllowedOrigins)
	}

	ok = true
	return app, nil
}

// sessionSecret decodes the configured hex secret, generating a random one
// when none is set. A generated secret invalidates CSRF tokens on restart.
func sessionSecret(configured string) ([]byte, error) {
	if configured == "" {
		generated, err := auth.GenerateSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		log.Printf("WARNING: AUTH_SESSION_SECRET is not set. Using a random secret for this run.")
		configured = generated
	}
	secret, err := hex.DecodeString(configured)
	if err != nil || len(secret) < 32 {
		return nil, errors.New("AUTH_SESSION_SECRET must be at least 32 bytes, hex encoded")
	}
	return secret, nil
}

// pruneProfilePhotos removes photos left behind by deleted users, through
// the task queue when one is running.
func (a *App) pruneProfilePhotos(index tasks.PhotoIndex, mediaDir string) func(uint) {
	return func(userID uint) {
		if a.tasks != nil {
			if _, err := a.tasks.Enqueue(context.Background(), tasks.PruneProfilePhotosTask{}); err != nil {
				log.Printf("Failed to queue photo cleanup after deleting user %d: %v", userID, err)
			}
			return
		}
		go func() {
			if _, err := tasks.PruneProfilePhotos(index, mediaDir); err != nil {
				log.Printf("Photo cleanup after deleting user %d failed: %v", userID, err)
			}
		}()
	}
}

// Shutdown stops the background components and closes the database.
func (a *App) Shutdown(ctx context.Context) {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.tasks != nil {
		a.tasks.Stop(ctx)
		if err := a.tasks.Close(); err != nil {
			log.Printf("Error closing task database: %v", err)
		}
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.authController != nil {
		a.authController.Stop()
	}
	if a.audit != nil {
		a.audit.Wait()
	}
	if err := a.db.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

// Serve listens until SIGINT or SIGTERM, then shuts the server and the
// application down within the configured timeout.
func Serve(app *App, cfg *config.Config) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Starting server at %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		app.Shutdown(context.Background())
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}
	log.Printf("Shutdown Server, waiting %v before killing", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := srv.Shutdown(ctx)
	app.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Println("Server exiting")
	return nil
}

// Run builds the application and serves it.
func Run(cfg *config.Config, version string) error {
	log.Printf("Starting Catalog v%s", version)
	app, err := Build(cfg, version)
	if err != nil {
		return err
	}
	return Serve(app, cfg)
}
