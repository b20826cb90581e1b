// Package cli holds the catalog command line: the web server plus the
// maintenance commands that work directly on the database.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/config"
	"github.com/mrlokans/catalog/internal/database"
	"github.com/mrlokans/catalog/internal/database/catalog"
)

// NewRootCommand builds the command tree. Running it without a
// subcommand starts the web server.
func NewRootCommand(version string) *cobra.Command {
	cfg := config.NewConfig()

	root := &cobra.Command{
		Use:           "catalog",
		Short:         "Library catalog web application",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg, version)
		},
	}
	root.PersistentFlags().StringVar(&cfg.Database.Path, "db", cfg.Database.Path, "Path to the SQLite database file")

	root.AddCommand(
		newServeCommand(cfg, version),
		newMigrateCommand(cfg),
		newSeedCommand(cfg),
		newSetupGroupsCommand(cfg),
		newCreateSuperuserCommand(cfg),
		newQueryCommand(cfg),
	)
	return root
}

// stack is what the maintenance commands need from the database.
type stack struct {
	db      *database.Database
	catalog *catalog.Repository
	auth    *auth.Service
}

func openStack(cfg *config.Config) (*stack, error) {
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &stack{
		db:      db,
		catalog: catalog.NewRepository(db.DB),
		auth:    auth.NewService(db.DB, cfg.Auth),
	}, nil
}

func (s *stack) Close() {
	_ = s.db.Close()
}
