package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/javelin/internal/domain/release"
	"github.com/oshokin/javelin/internal/logger"
	"github.com/oshokin/javelin/internal/repository/atomicfile"
)

const (
	// DefaultProfileFilename is the default filename of the project profile.
	DefaultProfileFilename = "javelin.yaml"

	// DefaultAppConfig is the application config path relative to the working directory.
	DefaultAppConfig = "../src-tauri/tauri.conf.json"

	// DefaultProductDir is the directory the build runs in and bundle paths are relative to.
	DefaultProductDir = ".."

	// DefaultNotes are the release notes used when the operator enters none.
	DefaultNotes = "Routine bug fixes and performance updates"

	// DefaultRawURLTemplate locates the raw manifest of a gist.
	DefaultRawURLTemplate = "https://gist.github.com/{owner}/{id}/raw"

	// DefaultPrivateKeyEnv is the variable the build reads the signing key from.
	DefaultPrivateKeyEnv = "TAURI_PRIVATE_KEY"

	// DefaultPasswordEnv is the variable the build reads the key password from.
	DefaultPasswordEnv = "TAURI_KEY_PASSWORD"

	profileFilePermissions = 0o644
)

// AssetConflictPolicy decides what happens when the release already has an asset
// with the upload name.
type AssetConflictPolicy string

const (
	// AssetConflictFail aborts the upload.
	AssetConflictFail AssetConflictPolicy = "fail"
	// AssetConflictReplace deletes the existing asset and uploads again.
	AssetConflictReplace AssetConflictPolicy = "replace"
)

var (
	// ErrInvalidProfile is returned by ValidateProfile.
	ErrInvalidProfile = errors.New("invalid profile")
	// errProfileIsNotSet is returned when a nil profile is provided.
	errProfileIsNotSet = errors.New("profile is not set")
)

// PlatformPaths are bundle path templates of one platform, relative to the product
// directory unless absolute. Placeholders: {product}, {version}, {platform}.
type PlatformPaths struct {
	// Build is where the build leaves the bundle.
	Build string `yaml:"build"`
	// Signature is the detached signature; defaults to Build + ".sig".
	Signature string `yaml:"signature,omitempty"`
	// Upload is the platform-qualified name the bundle is renamed to.
	Upload string `yaml:"upload"`
}

// BuildProfile describes the external build invocation.
type BuildProfile struct {
	Command       []string `yaml:"command,flow"`
	PrivateKeyEnv string   `yaml:"private_key_env"`
	PasswordEnv   string   `yaml:"password_env"`
}

// ReleaseProfile tunes the GitHub release step.
type ReleaseProfile struct {
	OnAssetConflict AssetConflictPolicy `yaml:"on_asset_conflict"`
}

// ManifestProfile tunes the manifest gist step.
type ManifestProfile struct {
	// RawURLTemplate supports {owner} and {id}.
	RawURLTemplate string `yaml:"raw_url_template"`
	// ConflictCheck re-reads the manifest before writing it. Unset means enabled.
	ConflictCheck *bool `yaml:"conflict_check,omitempty"`
}

// GitHubProfile overrides API endpoints, for GitHub Enterprise.
type GitHubProfile struct {
	APIURL    string `yaml:"api_url,omitempty"`
	UploadURL string `yaml:"upload_url,omitempty"`
}

// Profile describes the project layout and release behaviour.
type Profile struct {
	AppConfig    string                                `yaml:"app_config"`
	ProductDir   string                                `yaml:"product_dir"`
	LogLevel     string                                `yaml:"log_level"`
	DefaultNotes string                                `yaml:"default_notes"`
	Build        BuildProfile                          `yaml:"build"`
	Release      ReleaseProfile                        `yaml:"release"`
	Manifest     ManifestProfile                       `yaml:"manifest"`
	GitHub       GitHubProfile                         `yaml:"github,omitempty"`
	Platforms    map[release.PlatformKey]PlatformPaths `yaml:"platforms"`
}

// DefaultProfile returns the profile of a stock Tauri project built on goos.
func DefaultProfile(goos string) *Profile {
	command := []string{"tauri", "build"}
	if goos == "windows" {
		command = []string{"cmd", "/C", "npm", "run", "tauri", "build"}
	}

	return &Profile{
		AppConfig:    DefaultAppConfig,
		ProductDir:   DefaultProductDir,
		LogLevel:     "info",
		DefaultNotes: DefaultNotes,
		Build: BuildProfile{
			Command:       command,
			PrivateKeyEnv: DefaultPrivateKeyEnv,
			PasswordEnv:   DefaultPasswordEnv,
		},
		Release: ReleaseProfile{
			OnAssetConflict: AssetConflictFail,
		},
		Manifest: ManifestProfile{
			RawURLTemplate: DefaultRawURLTemplate,
		},
		Platforms: defaultPlatforms(),
	}
}

func defaultPlatforms() map[release.PlatformKey]PlatformPaths {
	const bundleDir = "src-tauri/target/release/bundle/"

	macos := PlatformPaths{
		Build:     bundleDir + "macos/{product}.app.tar.gz",
		Signature: bundleDir + "macos/{product}.app.tar.gz.sig",
		Upload:    bundleDir + "macos/{product}-{platform}.app.tar.gz",
	}

	return map[release.PlatformKey]PlatformPaths{
		release.DarwinAArch64: macos,
		release.DarwinX8664:   macos,
		release.LinuxX8664: {
			Build:     bundleDir + "appimage/{product}.AppImage.tar.gz",
			Signature: bundleDir + "appimage/{product}.AppImage.tar.gz.sig",
			Upload:    bundleDir + "appimage/{product}-{platform}.AppImage.tar.gz",
		},
		release.WindowsX8664: {
			Build:     bundleDir + "msi/{product}_{version}_x64_en-US.msi.zip",
			Signature: bundleDir + "msi/{product}_{version}_x64_en-US.msi.zip.sig",
			Upload:    bundleDir + "msi/{product}-{platform}.msi.zip",
		},
	}
}

// LoadProfile reads the profile at path over the defaults for the running OS.
// A missing file yields the defaults unless mustExist is set.
func LoadProfile(path string, mustExist bool) (*Profile, error) {
	if path == "" {
		path = DefaultProfileFilename
	}

	profile := DefaultProfile(runtime.GOOS)

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !mustExist {
			return profile, nil
		}

		return nil, fmt.Errorf("read profile: %w", err)
	}

	defaults := profile.Platforms
	profile.Platforms = nil

	if err = yaml.Unmarshal(contents, profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile %s: %w", path, err)
	}

	profile.Platforms = mergePlatforms(defaults, profile.Platforms)
	profile.fillDefaults()

	if err = ValidateProfile(profile); err != nil {
		return nil, err
	}

	return profile, nil
}

// SaveProfile writes p to path as YAML.
func SaveProfile(path string, p *Profile) error {
	if p == nil {
		return errProfileIsNotSet
	}

	if path == "" {
		path = DefaultProfileFilename
	}

	if err := ValidateProfile(p); err != nil {
		return err
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	if err = atomicfile.Write(filepath.Clean(path), data, profileFilePermissions); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}

	return nil
}

// ValidateProfile checks values that cannot be defaulted.
func ValidateProfile(p *Profile) error {
	if p == nil {
		return errProfileIsNotSet
	}

	if len(p.Build.Command) == 0 || strings.TrimSpace(p.Build.Command[0]) == "" {
		return fmt.Errorf("%w: build.command is empty", ErrInvalidProfile)
	}

	if _, ok := logger.ParseLogLevel(p.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidProfile, p.LogLevel)
	}

	switch p.Release.OnAssetConflict {
	case AssetConflictFail, AssetConflictReplace:
	default:
		return fmt.Errorf("%w: release.on_asset_conflict must be %q or %q, got %q",
			ErrInvalidProfile, AssetConflictFail, AssetConflictReplace, p.Release.OnAssetConflict)
	}

	if !strings.Contains(p.Manifest.RawURLTemplate, "{id}") {
		return fmt.Errorf("%w: manifest.raw_url_template must contain {id}", ErrInvalidProfile)
	}

	for key, paths := range p.Platforms {
		if _, err := release.ParsePlatformKey(string(key)); err != nil {
			return fmt.Errorf("%w: platforms: %w", ErrInvalidProfile, err)
		}

		if paths.Build == "" || paths.Upload == "" {
			return fmt.Errorf("%w: platforms.%s needs build and upload paths", ErrInvalidProfile, key)
		}
	}

	return nil
}

// ConflictCheckEnabled reports whether the manifest is re-read before writing.
func (p *Profile) ConflictCheckEnabled() bool {
	return p.Manifest.ConflictCheck == nil || *p.Manifest.ConflictCheck
}

func (p *Profile) fillDefaults() {
	defaults := DefaultProfile(runtime.GOOS)

	if p.AppConfig == "" {
		p.AppConfig = defaults.AppConfig
	}

	if p.ProductDir == "" {
		p.ProductDir = defaults.ProductDir
	}

	if p.LogLevel == "" {
		p.LogLevel = defaults.LogLevel
	}

	if strings.TrimSpace(p.DefaultNotes) == "" {
		p.DefaultNotes = defaults.DefaultNotes
	}

	if len(p.Build.Command) == 0 {
		p.Build.Command = defaults.Build.Command
	}

	if p.Build.PrivateKeyEnv == "" {
		p.Build.PrivateKeyEnv = defaults.Build.PrivateKeyEnv
	}

	if p.Build.PasswordEnv == "" {
		p.Build.PasswordEnv = defaults.Build.PasswordEnv
	}

	if p.Release.OnAssetConflict == "" {
		p.Release.OnAssetConflict = defaults.Release.OnAssetConflict
	}

	if p.Manifest.RawURLTemplate == "" {
		p.Manifest.RawURLTemplate = defaults.Manifest.RawURLTemplate
	}
}

// mergePlatforms overlays non-empty fields of overrides onto base.
func mergePlatforms(base, overrides map[release.PlatformKey]PlatformPaths) map[release.PlatformKey]PlatformPaths {
	merged := make(map[release.PlatformKey]PlatformPaths, len(base)+len(overrides))

	for key, paths := range base {
		merged[key] = paths
	}

	for key, override := range overrides {
		paths := merged[key]

		if override.Build != "" {
			paths.Build = override.Build
			// A relocated bundle carries its signature along unless told otherwise.
			paths.Signature = override.Build + ".sig"
		}

		if override.Signature != "" {
			paths.Signature = override.Signature
		}

		if override.Upload != "" {
			paths.Upload = override.Upload
		}

		merged[key] = paths
	}

	return merged
}
