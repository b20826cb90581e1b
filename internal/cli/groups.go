package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrlokans/catalog/internal/config"
	"github.com/mrlokans/catalog/internal/entities"
)

func newSetupGroupsCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "setup-groups",
		Short: "Create the default groups and their permissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStack(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			perms := s.auth.Permissions()
			if err := perms.SetupGroups(entities.DefaultGroups); err != nil {
				return fmt.Errorf("failed to set up groups: %w", err)
			}
			groups, err := perms.ListGroups()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, group := range groups {
				keys := make([]string, 0, len(group.Permissions))
				for _, p := range group.Permissions {
					keys = append(keys, p.Key())
				}
				sort.Strings(keys)
				fmt.Fprintf(out, "%s: %s\n", group.Name, strings.Join(keys, ", "))
			}
			return nil
		},
	}
}
