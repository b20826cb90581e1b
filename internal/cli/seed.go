package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/catalog/internal/config"
	"github.com/mrlokans/catalog/internal/seed"
)

func newSeedCommand(cfg *config.Config) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the sample authors, books, libraries and librarians",
		Long: `Load the sample catalog. Running it again is safe: existing records
are reused. The sample librarian accounts get the given password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStack(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := seed.New(s.catalog, s.auth, password).Run()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sample data ready: %s\n", result)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", seed.DefaultPassword, "Password for the sample librarian accounts")
	return cmd
}
