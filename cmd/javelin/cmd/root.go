package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/javelin/internal/config"
	"github.com/oshokin/javelin/internal/prompt"
	"github.com/oshokin/javelin/internal/service/release"
	"github.com/oshokin/javelin/internal/version"
)

//nolint:gochecknoglobals // Flag targets shared by the Cobra commands.
var (
	// configPath to the local JSON config file.
	configPath string

	// profilePath to the YAML project profile.
	profilePath string

	// appConfigPath overrides the application config path from the profile.
	appConfigPath string

	// bump selects the version bump without the menu.
	bump string

	// notes are the release notes; empty means ask.
	notes string

	// logLevel overrides the profile's log level.
	logLevel string

	// platform overrides host platform detection.
	platform string

	// rootCmd builds and publishes a release for the host platform.
	rootCmd = &cobra.Command{
		Use:          "javelin",
		Short:        "Build, sign and publish a Tauri app release",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &release.Options{
				ConfigPath:      configPath,
				ProfilePath:     profilePath,
				ProfileRequired: cmd.Flags().Changed("profile"),
				AppConfigPath:   appConfigPath,
				Bump:            bump,
				Notes:           notes,
				LogLevel:        logLevel,
				Platform:        platform,
				Prompter:        prompt.NewTerminal(os.Stdin, os.Stdout),
				BuildOutput:     os.Stderr,
				Progress:        os.Stderr,
			}

			return release.Run(ctx, options)
		},
	}
)

// Execute runs the javelin CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to local config file")
	flags.StringVarP(&profilePath, "profile", "p", config.DefaultProfileFilename, "path to project profile")
	flags.StringVarP(&appConfigPath, "app-config", "a", "", "path to tauri.conf.json (overrides the profile)")

	rootCmd.Flags().StringVarP(&bump, "bump", "b", "", "version bump: 1|major, 2|minor, 3|patch, 4|current")
	rootCmd.Flags().StringVarP(&notes, "notes", "n", "", "release notes")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (overrides the profile)")
	rootCmd.Flags().StringVar(&platform, "platform", "", "platform key (defaults to the host)")

	rootCmd.AddCommand(endpointCmd, initCmd)
}
