package cmd

import (
	"context"
	"errors"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/oshokin/javelin/internal/config"
	"github.com/oshokin/javelin/internal/logger"
)

//nolint:gochecknoglobals // Cobra command definition.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the default local config and project profile",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		created, err := config.EnsureDefault(configPath)
		if err != nil {
			return err
		}

		if created {
			logger.InfoKV(ctx, "Config created", "path", configPath)
		}

		_, err = os.Stat(profilePath)

		switch {
		case err == nil:
			logger.InfoKV(ctx, "Profile already exists", "path", profilePath)

			return nil
		case !errors.Is(err, os.ErrNotExist):
			return err
		}

		if err = config.SaveProfile(profilePath, config.DefaultProfile(runtime.GOOS)); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Profile created", "path", profilePath)

		return nil
	},
}
