package interfaces

// Compile-time interface implementation checks. A missing method on a
// concrete type fails the build here instead of at the wiring site.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/catalog/internal/admin"
	"github.com/mrlokans/catalog/internal/audit"
	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/cli"
	"github.com/mrlokans/catalog/internal/database"
	"github.com/mrlokans/catalog/internal/database/catalog"
	"github.com/mrlokans/catalog/internal/database/users"
	"github.com/mrlokans/catalog/internal/http"
	"github.com/mrlokans/catalog/internal/scheduler"
	"github.com/mrlokans/catalog/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ http.BookStore = (*catalog.Repository)(nil)
var _ http.AuthorStore = (*catalog.Repository)(nil)
var _ http.LibraryStore = (*catalog.Repository)(nil)
var _ http.ShelfStore = (*catalog.Repository)(nil)
var _ http.StatsStore = (*catalog.Repository)(nil)
var _ cli.QueryRunner = (*catalog.Repository)(nil)

var _ http.ProfileLister = (*users.Repository)(nil)
var _ tasks.PhotoIndex = (*users.Repository)(nil)

// =============================================================================
// Services
// =============================================================================

var _ http.PermissionChecker = (*auth.Service)(nil)
var _ admin.RoleSetter = (*auth.Service)(nil)
var _ admin.RoleSetter = (*users.Repository)(nil)
var _ http.Pinger = (*database.Database)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ tasks.AuditEventCleaner = (*audit.Service)(nil)
var _ scheduler.TaskEnqueuer = (*tasks.Client)(nil)
