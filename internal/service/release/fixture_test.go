package release

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/javelin/internal/config"
	domain "github.com/oshokin/javelin/internal/domain/release"
	"github.com/oshokin/javelin/internal/remote/remotetest"
)

const (
	testOwner    = "octo"
	testRepo     = "app"
	testPlatform = domain.LinuxX8664
	assetName    = "Demo-linux-x86_64.tar.gz"
	manifestFile = "app-javelin-linux-x86_64-manifest.json"

	// buildOK produces the bundle, its signature and a copy of the signing key it saw.
	buildOK = `mkdir -p out && printf bundle > out/Demo.tar.gz && printf SIG > out/Demo.tar.gz.sig && ` +
		`printf '%s:%s' "$TAURI_PRIVATE_KEY" "$TAURI_KEY_PASSWORD" > key.seen`
)

//nolint:gochecknoglobals // Fixed publish time.
var publishedAt = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

const appConfig = `{
  "build": {"distDir": "../dist"},
  "package": {"productName": "Demo", "version": "1.2.3"},
  "tauri": {
    "updater": {
      "active": true,
      "endpoints": ["https://old.example.com/latest.json"],
      "pubkey": "PUBKEY"
    }
  }
}`

// fixture is a throwaway project with a local config, a profile and a fake GitHub.
type fixture struct {
	dir       string
	cfgPath   string
	profile   string
	appConfig string
	lockPath  string
	github    *remotetest.Server
}

func newFixture(t *testing.T, script string) *fixture {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	dir := t.TempDir()
	f := &fixture{
		dir:       dir,
		cfgPath:   filepath.Join(dir, "javelin.conf.json"),
		profile:   filepath.Join(dir, "javelin.yaml"),
		appConfig: filepath.Join(dir, "tauri.conf.json"),
		lockPath:  filepath.Join(dir, ".javelin.lock"),
		github:    remotetest.NewServer(t),
	}

	keyPath := filepath.Join(dir, "app.key")
	require.NoError(t, os.WriteFile(keyPath, []byte("secret-key\n"), 0o600))
	require.NoError(t, os.WriteFile(f.appConfig, []byte(appConfig), 0o600))

	f.writeConfig(t, &config.Config{
		GitHubUsername:    testOwner,
		GitHubRepo:        testRepo,
		GitHubPAT:         "ghp_test",
		SecretKeyLocation: keyPath,
		SecretKeyPassword: "pw",
	})
	f.writeProfile(t, script, config.AssetConflictFail)

	return f
}

func (f *fixture) writeConfig(t *testing.T, cfg *config.Config) {
	t.Helper()

	data, err := json.MarshalIndent(cfg, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.cfgPath, data, 0o600))
}

func (f *fixture) writeProfile(t *testing.T, script string, policy config.AssetConflictPolicy) {
	t.Helper()

	profile := config.DefaultProfile(runtime.GOOS)
	profile.ProductDir = f.dir
	profile.LogLevel = "error"
	profile.Build.Command = []string{"sh", "-c", script}
	profile.Release.OnAssetConflict = policy
	profile.GitHub = config.GitHubProfile{
		APIURL:    f.github.URL(),
		UploadURL: f.github.UploadURL(),
	}
	profile.Platforms = map[domain.PlatformKey]config.PlatformPaths{
		testPlatform: {
			Build:  "out/{product}.tar.gz",
			Upload: "out/{product}-{platform}.tar.gz",
		},
	}

	data, err := yaml.Marshal(profile)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.profile, data, 0o600))
}

func (f *fixture) options(prompter Prompter) *Options {
	return &Options{
		ConfigPath:      f.cfgPath,
		ProfilePath:     f.profile,
		ProfileRequired: true,
		AppConfigPath:   f.appConfig,
		LockPath:        f.lockPath,
		Bump:            "3",
		Notes:           "Bug fixes",
		Platform:        string(testPlatform),
		Prompter:        prompter,
		Now:             func() time.Time { return publishedAt },
	}
}

func (f *fixture) appDocument(t *testing.T) map[string]any {
	t.Helper()

	data, err := os.ReadFile(f.appConfig)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	return doc
}

func (f *fixture) appVersion(t *testing.T) string {
	t.Helper()

	pkg, _ := f.appDocument(t)["package"].(map[string]any)
	version, _ := pkg["version"].(string)

	return version
}

func (f *fixture) endpoints(t *testing.T) []any {
	t.Helper()

	tauri, _ := f.appDocument(t)["tauri"].(map[string]any)
	updater, _ := tauri["updater"].(map[string]any)
	endpoints, _ := updater["endpoints"].([]any)

	return endpoints
}

func (f *fixture) loadConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load(f.cfgPath)
	require.NoError(t, err)

	return cfg
}

// scriptedPrompter answers dialogs from fixed values.
type scriptedPrompter struct {
	bump    domain.BumpKind
	bumpErr error
	notes   string
	values  map[string]string
	asked   []string
	shown   []string
}

func (p *scriptedPrompter) ChooseBump(_ context.Context, _ string) (domain.BumpKind, error) {
	return p.bump, p.bumpErr
}

func (p *scriptedPrompter) Notes(_ context.Context, fallback string) (string, error) {
	if strings.TrimSpace(p.notes) == "" {
		return fallback, nil
	}

	return p.notes, nil
}

func (p *scriptedPrompter) Value(_ context.Context, label, _ string, _ bool) (string, error) {
	p.asked = append(p.asked, label)

	return p.values[label], nil
}

func (p *scriptedPrompter) Show(text string) {
	p.shown = append(p.shown, text)
}
