// Package interfaces documents the abstractions the application is wired
// through and holds compile-time checks that the concrete types satisfy
// them.
//
// # Data Access
//
//   - BookStore, AuthorStore, LibraryStore: catalog reads and writes used by
//     the HTML and JSON controllers (internal/http/stores.go)
//   - ShelfStore: the personal bookshelf (internal/http/stores.go)
//   - StatsStore: counts for the home page (internal/http/stores.go)
//   - ProfileLister: users by role for the admin dashboard
//   - QueryRunner: the sample relationship queries (internal/cli/query.go)
//
// All catalog interfaces are implemented by *catalog.Repository; the user
// interfaces by *users.Repository.
//
// # Authorization
//
//   - PermissionChecker: "app.codename" checks for route guards and admin
//     actions, implemented by *auth.Service through user and group grants
//   - RoleSetter: profile role changes from the admin, implemented by
//     *auth.Service (validating) and *users.Repository
//
// # Background Work
//
//   - TaskEnqueuer: lets the cron scheduler hand work to the backlite queue
//     (internal/scheduler/audit_cleanup.go). A nil enqueuer makes the
//     scheduler run the cleanup inline.
//   - AuditEventCleaner: retention cleanup, implemented by *audit.Service
//   - PhotoIndex: the set of profile photos still referenced by users
//
// # Health
//
//   - Pinger: database reachability for /health, implemented by
//     *database.Database
package interfaces
