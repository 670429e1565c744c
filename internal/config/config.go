package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/javelin/internal/repository/atomicfile"
)

// Config holds the operator's credentials and the remote manifest reference.
type Config struct {
	// GitHubUsername owns the repository and the manifest gist.
	GitHubUsername string `json:"github_username"`
	// GitHubRepo is the repository name releases are published to.
	GitHubRepo string `json:"github_repo"`
	// GitHubPAT is the personal access token used for every API call.
	GitHubPAT string `json:"github_pat"`
	// SecretKeyLocation is the path of the updater signing key file.
	SecretKeyLocation string `json:"secret_key_location"`
	// SecretKeyPassword unlocks the signing key. It may be empty.
	SecretKeyPassword string `json:"secret_key_password"`
	// GistID is set after the first successful manifest creation.
	GistID string `json:"gist_id"`
}

const (
	// DefaultConfigFilename is the default filename of the local config.
	DefaultConfigFilename = "javelin.conf.json"

	// DefaultFilePermissions is the file mode of files holding secrets.
	DefaultFilePermissions = 0o600
)

// Keys of the fields Missing reports and Set accepts.
const (
	KeyGitHubUsername    = "github_username"
	KeyGitHubRepo        = "github_repo"
	KeyGitHubPAT         = "github_pat"
	KeySecretKeyLocation = "secret_key_location"
	KeySecretKeyPassword = "secret_key_password"
	KeyGistID            = "gist_id"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// ErrFieldRequired is returned by Validate for each empty required field.
	ErrFieldRequired = errors.New("field is required")
	// ErrUnknownField is returned by Set for keys outside the schema.
	ErrUnknownField = errors.New("unknown config field")
)

// Field describes a config value that can be prompted for.
type Field struct {
	Key    string
	Label  string
	Secret bool
}

// requiredFields are prompted for in this order when empty.
//
//nolint:gochecknoglobals // Static schema description.
var requiredFields = []Field{
	{Key: KeyGitHubUsername, Label: "GitHub username"},
	{Key: KeyGitHubRepo, Label: "GitHub repository"},
	{Key: KeyGitHubPAT, Label: "GitHub personal access token", Secret: true},
	{Key: KeySecretKeyLocation, Label: "Signing key location"},
}

// EnsureDefault creates an empty config at path if none exists.
// It reports whether the file was created.
func EnsureDefault(path string) (bool, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	path = filepath.Clean(path)

	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}

	if err := write(path, new(Config)); err != nil {
		return false, err
	}

	return true, nil
}

// Load reads the config at path. It does not validate required fields,
// callers use Missing to prompt for them.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err = json.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}

	return &cfg, nil
}

// Save validates cfg and writes it to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	return write(filepath.Clean(path), cfg)
}

// Validate checks that every required field is set.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	missing := cfg.Missing()
	if len(missing) == 0 {
		return nil
	}

	keys := make([]string, 0, len(missing))
	for _, f := range missing {
		keys = append(keys, f.Key)
	}

	return fmt.Errorf("%s: %w", strings.Join(keys, ", "), ErrFieldRequired)
}

// Missing lists required fields that are empty, in prompt order.
func (c *Config) Missing() []Field {
	var missing []Field

	for _, f := range requiredFields {
		if strings.TrimSpace(c.Get(f.Key)) == "" {
			missing = append(missing, f)
		}
	}

	return missing
}

// Get returns the value stored under key, or "" for unknown keys.
func (c *Config) Get(key string) string {
	if p := c.field(key); p != nil {
		return *p
	}

	return ""
}

// Set stores value under key.
func (c *Config) Set(key, value string) error {
	p := c.field(key)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}

	*p = strings.TrimSpace(value)

	return nil
}

func (c *Config) field(key string) *string {
	switch key {
	case KeyGitHubUsername:
		return &c.GitHubUsername
	case KeyGitHubRepo:
		return &c.GitHubRepo
	case KeyGitHubPAT:
		return &c.GitHubPAT
	case KeySecretKeyLocation:
		return &c.SecretKeyLocation
	case KeySecretKeyPassword:
		return &c.SecretKeyPassword
	case KeyGistID:
		return &c.GistID
	default:
		return nil
	}
}

func write(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err = atomicfile.Write(path, append(data, '\n'), DefaultFilePermissions); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}
