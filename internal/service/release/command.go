package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oshokin/javelin/internal/artifact"
	"github.com/oshokin/javelin/internal/build"
	"github.com/oshokin/javelin/internal/config"
	domain "github.com/oshokin/javelin/internal/domain/release"
	"github.com/oshokin/javelin/internal/logger"
	"github.com/oshokin/javelin/internal/progress"
	"github.com/oshokin/javelin/internal/prompt"
	"github.com/oshokin/javelin/internal/remote"
	"github.com/oshokin/javelin/internal/repository/appmanifest"
	"github.com/oshokin/javelin/internal/runlock"
	"github.com/oshokin/javelin/internal/vcs"
)

// Options are inputs accepted by the release entry point.
type Options struct {
	// ConfigPath is the local JSON config (defaults to javelin.conf.json).
	ConfigPath string
	// ProfilePath is the YAML project profile (defaults to javelin.yaml).
	ProfilePath string
	// ProfileRequired fails the run when the profile file is missing.
	ProfileRequired bool
	// AppConfigPath overrides the profile's application config path.
	AppConfigPath string
	// LockPath overrides the run lock marker location.
	LockPath string
	// Bump selects the version bump without prompting ("1".."4" or a kind name).
	Bump string
	// Notes are the release notes; empty means ask, then fall back to the profile default.
	Notes string
	// LogLevel overrides the profile's log level.
	LogLevel string
	// Platform overrides host platform detection.
	Platform string
	// Prompter asks the operator for anything not given in options or config.
	Prompter Prompter
	// BuildOutput receives the build's standard output. Nil discards it.
	BuildOutput io.Writer
	// Progress receives upload progress bars. Nil disables them.
	Progress io.Writer
	// Now returns the publish time. Nil means time.Now.
	Now func() time.Time
}

// Prompter is the interactive side of a run.
type Prompter interface {
	ChooseBump(ctx context.Context, current string) (domain.BumpKind, error)
	Notes(ctx context.Context, fallback string) (string, error)
	Value(ctx context.Context, label, placeholder string, secret bool) (string, error)
	Show(text string)
}

type versionStore interface {
	Load(ctx context.Context) (*appmanifest.AppManifest, error)
	Persist(ctx context.Context, version string) error
	Rollback(ctx context.Context, previous string)
	SetUpdaterEndpoint(ctx context.Context, url string) error
}

type publisher interface {
	EnsureRelease(ctx context.Context, version, notes, commitish string) (*domain.Record, error)
	UploadAsset(ctx context.Context, rec *domain.Record, path string) (string, error)
}

type manifestStore interface {
	Create(ctx context.Context, manifest *domain.Manifest, platform domain.PlatformKey) (string, error)
	FetchAndUpdate(ctx context.Context, id string, update domain.ManifestUpdate) error
}

// errNoPrompter is returned when input is needed but the run is non-interactive.
var errNoPrompter = errors.New("input required but no prompter is available")

// runner holds the state of a single release run.
type runner struct {
	opts    *Options
	cfg     *config.Config
	cfgPath string
	profile *config.Profile
	now     func() time.Time
	unlock  runlock.Release

	versions  versionStore
	builder   build.Runner
	locator   *artifact.Locator
	publisher publisher
	manifests manifestStore

	platform  domain.PlatformKey
	product   string
	commitish string
	bump      domain.BumpKind
	notes     string

	stage     Stage
	previous  string
	next      string
	bumped    bool
	paths     artifact.Paths
	signature string
	record    *domain.Record
	assetURL  string
	gistID    string
}

// Run executes the release workflow. Any error means the release did not complete.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "javelin")
	ctx = progress.Open(ctx, opts.Progress)

	r := &runner{
		opts: opts,
		now:  opts.Now,
	}

	if r.now == nil {
		r.now = time.Now
	}

	defer func() {
		if r.unlock != nil {
			r.unlock()
		}
	}()

	return r.Run(ctx)
}

// init prepares everything the later stages need and asks for missing input.
func (r *runner) init(ctx context.Context) error {
	unlock, err := runlock.Acquire(ctx, r.opts.LockPath)
	if err != nil {
		return err
	}

	r.unlock = unlock

	if err = r.loadProfile(ctx); err != nil {
		return err
	}

	if err = r.loadConfig(ctx); err != nil {
		return err
	}

	if err = r.detectPlatform(); err != nil {
		return err
	}

	appConfigPath := r.opts.AppConfigPath
	if appConfigPath == "" {
		appConfigPath = r.profile.AppConfig
	}

	store := appmanifest.NewStore(appConfigPath)

	app, err := store.Load(ctx)
	if err != nil {
		return err
	}

	r.versions = store
	r.product = app.ProductName
	r.previous = app.Version
	r.locator = artifact.NewLocator(r.profile.ProductDir, r.profile.Platforms)
	r.builder = build.NewExecRunner(r.opts.BuildOutput)

	if err = r.connect(store); err != nil {
		return err
	}

	r.inspectCheckout(ctx)
	r.showSummary(store.Path())

	if err = r.chooseBump(ctx); err != nil {
		return err
	}

	return r.chooseNotes(ctx)
}

func (r *runner) loadProfile(ctx context.Context) error {
	profile, err := config.LoadProfile(r.opts.ProfilePath, r.opts.ProfileRequired)
	if err != nil {
		return err
	}

	level := profile.LogLevel
	if r.opts.LogLevel != "" {
		level = r.opts.LogLevel
	}

	parsed, ok := logger.ParseLogLevel(level)
	if !ok {
		return fmt.Errorf("%w: unknown log level %q", config.ErrInvalidProfile, level)
	}

	logger.SetLevel(parsed)

	r.profile = profile

	logger.DebugKV(ctx, "Profile loaded",
		"app_config", profile.AppConfig,
		"product_dir", profile.ProductDir,
		"asset_conflict", profile.Release.OnAssetConflict)

	return nil
}

// loadConfig creates the local config on first use and prompts for missing fields.
func (r *runner) loadConfig(ctx context.Context) error {
	r.cfgPath = r.opts.ConfigPath
	if r.cfgPath == "" {
		r.cfgPath = config.DefaultConfigFilename
	}

	created, err := config.EnsureDefault(r.cfgPath)
	if err != nil {
		return err
	}

	if created {
		logger.InfoKV(ctx, "Created default config", "path", r.cfgPath)
	}

	cfg, err := config.Load(r.cfgPath)
	if err != nil {
		return err
	}

	missing := cfg.Missing()
	if len(missing) > 0 {
		if r.opts.Prompter == nil {
			return fmt.Errorf("%w: %w", errNoPrompter, config.Validate(cfg))
		}

		for _, field := range missing {
			value, promptErr := r.opts.Prompter.Value(ctx, field.Label, "", field.Secret)
			if promptErr != nil {
				return promptErr
			}

			if err = cfg.Set(field.Key, value); err != nil {
				return err
			}
		}

		if err = config.Save(r.cfgPath, cfg); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Config saved", "path", r.cfgPath)
	}

	r.cfg = cfg

	return nil
}

func (r *runner) detectPlatform() error {
	var err error

	if r.opts.Platform != "" {
		r.platform, err = domain.ParsePlatformKey(r.opts.Platform)
	} else {
		r.platform, err = domain.CurrentPlatform()
	}

	return err
}

// connect builds the GitHub collaborators.
func (r *runner) connect(endpoints remote.EndpointWriter) error {
	options := make([]remote.Option, 0, 2) //nolint:mnd // Base and upload URL.

	if r.profile.GitHub.APIURL != "" {
		options = append(options, remote.WithBaseURL(r.profile.GitHub.APIURL))
	}

	if r.profile.GitHub.UploadURL != "" {
		options = append(options, remote.WithUploadURL(r.profile.GitHub.UploadURL))
	}

	client, err := remote.NewClient(r.cfg.GitHubPAT, options...)
	if err != nil {
		return err
	}

	r.publisher = remote.NewPublisher(client, r.cfg.GitHubUsername, r.cfg.GitHubRepo, r.profile.Release.OnAssetConflict)
	r.manifests = remote.NewManifestStore(client, remote.ManifestStoreOptions{
		Owner:          r.cfg.GitHubUsername,
		Repo:           r.cfg.GitHubRepo,
		RawURLTemplate: r.profile.Manifest.RawURLTemplate,
		Endpoints:      endpoints,
		ConflictCheck:  r.profile.ConflictCheckEnabled(),
	})

	return nil
}

// inspectCheckout records the commit the release is built from.
func (r *runner) inspectCheckout(ctx context.Context) {
	rev, err := vcs.Head(r.profile.ProductDir)
	if err != nil {
		logger.WarnKV(ctx, "Unable to inspect git checkout", "error", err)

		return
	}

	if rev == nil {
		logger.Debug(ctx, "Product directory is not a git checkout")

		return
	}

	r.commitish = rev.Commit

	if !rev.Clean {
		logger.WarnKV(ctx, "Building from a checkout with uncommitted changes", "commit", rev.Commit)
	}
}

func (r *runner) showSummary(appConfigPath string) {
	if r.opts.Prompter == nil {
		return
	}

	gist := r.cfg.GistID
	if gist == "" {
		gist = "(created on first release)"
	}

	r.opts.Prompter.Show(prompt.Summary("javelin release", []prompt.Row{
		{Label: "Repository", Value: r.cfg.GitHubUsername + "/" + r.cfg.GitHubRepo},
		{Label: "Token", Value: prompt.Mask(r.cfg.GitHubPAT)},
		{Label: "Signing key", Value: r.cfg.SecretKeyLocation},
		{Label: "Manifest gist", Value: gist},
		{Label: "Platform", Value: string(r.platform)},
		{Label: "Product", Value: r.product},
		{Label: "App config", Value: appConfigPath},
		{Label: "Current version", Value: r.previous},
	}))
}

func (r *runner) chooseBump(ctx context.Context) error {
	if r.opts.Bump != "" {
		kind, err := domain.ParseBumpKind(r.opts.Bump)
		if err != nil {
			return err
		}

		r.bump = kind

		return nil
	}

	if r.opts.Prompter == nil {
		return fmt.Errorf("%w: version bump", errNoPrompter)
	}

	kind, err := r.opts.Prompter.ChooseBump(ctx, r.previous)
	if err != nil {
		return err
	}

	r.bump = kind

	return nil
}

func (r *runner) chooseNotes(ctx context.Context) error {
	notes := r.opts.Notes

	if notes == "" && r.opts.Prompter != nil {
		var err error

		notes, err = r.opts.Prompter.Notes(ctx, r.profile.DefaultNotes)
		if err != nil {
			return err
		}
	}

	notes = strings.TrimSpace(notes)
	if notes == "" {
		notes = r.profile.DefaultNotes
	}

	r.notes = notes

	return nil
}

