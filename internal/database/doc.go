// Package database provides the data access layer for the catalog.
//
// The connection, schema migration and permission seeding live here.
// Domain operations are split into sub-packages, each exposing a
// Repository built from a *gorm.DB:
//
//	database/
//	├── database.go    # Driver selection (sqlite or postgres), migrations
//	├── users/         # Users and their profiles
//	├── catalog/       # Authors, books, libraries, librarians, shelf books
//	├── permissions/   # Permission registry, groups and grants
//	└── audit/         # Audit event log
//
// Typical wiring:
//
//	db, err := database.NewDatabase(cfg.Database)
//	catalogRepo := catalog.NewRepository(db.DB)
//	book, err := catalogRepo.GetBook(42)
//
// Lookups that find nothing return the sub-package's ErrNotFound rather than
// gorm.ErrRecordNotFound so callers do not depend on gorm.
package database
