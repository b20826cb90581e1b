package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrlokans/catalog/internal/config"
	"github.com/mrlokans/catalog/internal/entrypoint"
)

func newServeCommand(cfg *config.Config, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg, version)
		},
	}
	cmd.Flags().StringVar(&cfg.HTTP.Host, "host", cfg.HTTP.Host, "Address to listen on")
	cmd.Flags().Int32Var(&cfg.HTTP.Port, "port", cfg.HTTP.Port, "Port to listen on")
	return cmd
}

func runServe(cfg *config.Config, version string) error {
	return entrypoint.Run(cfg, version)
}
