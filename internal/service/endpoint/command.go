package endpoint

import (
	"context"
	"errors"
	"strings"

	"github.com/oshokin/javelin/internal/config"
	"github.com/oshokin/javelin/internal/domain/release"
	"github.com/oshokin/javelin/internal/logger"
	"github.com/oshokin/javelin/internal/remote"
	"github.com/oshokin/javelin/internal/repository/appmanifest"
)

// Options configures the endpoint rewrite.
type Options struct {
	// ConfigPath to the local JSON config, defaults to the standard filename if empty.
	ConfigPath string

	// ProfilePath to the YAML project profile, defaults to the standard filename if empty.
	ProfilePath string

	// ProfileRequired fails when the profile file is missing.
	ProfileRequired bool

	// AppConfigPath overrides the profile's application config path.
	AppConfigPath string
}

var errGistIDMissing = errors.New("no manifest gist recorded yet, publish a release first")

// Run rewrites the updater endpoint to the raw URL of the configured gist.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "javelin-endpoint")

	profile, err := config.LoadProfile(opts.ProfilePath, opts.ProfileRequired)
	if err != nil {
		return release.Wrap(release.KindConfig, "load profile", err)
	}

	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultConfigFilename
	}

	cfg, err := config.Load(path)
	if err != nil {
		return release.Wrap(release.KindConfig, "load config", err)
	}

	id := strings.TrimSpace(cfg.GistID)
	if id == "" {
		return release.Wrap(release.KindConfig, "read gist id", errGistIDMissing)
	}

	if strings.TrimSpace(cfg.GitHubUsername) == "" {
		return release.Wrap(release.KindConfig, "read gist owner", config.Validate(cfg))
	}

	appConfigPath := opts.AppConfigPath
	if appConfigPath == "" {
		appConfigPath = profile.AppConfig
	}

	rawURL := remote.RawURL(profile.Manifest.RawURLTemplate, cfg.GitHubUsername, id)

	if err = appmanifest.NewStore(appConfigPath).SetUpdaterEndpoint(ctx, rawURL); err != nil {
		return release.Wrap(release.KindConfig, "set updater endpoint", err)
	}

	logger.InfoKV(ctx, "Updater endpoint set", "app_config", appConfigPath, "url", rawURL)

	return nil
}
