package http

import (
	"github.com/mrlokans/catalog/internal/admin"
	"github.com/mrlokans/catalog/internal/audit"
	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/database"
	"github.com/mrlokans/catalog/internal/database/catalog"
	"github.com/mrlokans/catalog/internal/database/users"
	"github.com/mrlokans/catalog/internal/metrics"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Catalog  *catalog.Repository
	Users    *users.Repository
	Audit    *audit.Service // optional

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware
	AuthController *auth.AuthController

	// CSRF protection is skipped when the secret is empty (tests only).
	CSRFSecret    []byte
	SecureCookies bool
	Tokens        *auth.TokenManager

	// Admin site, built with admin.NewDefaultSite
	Admin *admin.Site

	// Prometheus metrics (optional)
	Metrics *metrics.Metrics

	// DemoMode rejects every write except logging in and out.
	DemoMode bool

	// UI paths. Empty TemplatesPath and StaticPath use the embedded assets.
	TemplatesPath string
	StaticPath    string
	MediaDir      string

	// Application info
	Version string
}
