package config

const (
	// DefaultDatabasePath is the default path for the catalog database
	DefaultDatabasePath = "./catalog.db"

	// DefaultMediaDir holds uploaded files such as profile photos
	DefaultMediaDir = "./media"
)
