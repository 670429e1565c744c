package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/javelin/internal/service/endpoint"
)

//nolint:gochecknoglobals // Cobra command definition.
var endpointCmd = &cobra.Command{
	Use:   "endpoint",
	Short: "Point the app updater at the manifest gist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		return endpoint.Run(ctx, &endpoint.Options{
			ConfigPath:      configPath,
			ProfilePath:     profilePath,
			ProfileRequired: cmd.Flags().Changed("profile"),
			AppConfigPath:   appConfigPath,
		})
	},
}
