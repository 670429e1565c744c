package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/javelin/internal/config"
	"github.com/oshokin/javelin/internal/domain/release"
)

var (
	// ErrBundleNotFound is returned when the build output is missing.
	ErrBundleNotFound = errors.New("bundle not found")
	// ErrSignatureNotFound is returned when the detached signature is missing.
	ErrSignatureNotFound = errors.New("signature not found")
)

// Paths are the resolved locations of one platform's bundle.
type Paths struct {
	Build     string
	Upload    string
	Signature string
}

// Locator resolves bundle paths from a platform table.
type Locator struct {
	dir   string
	table map[release.PlatformKey]config.PlatformPaths
}

// NewLocator creates a locator resolving relative templates against dir.
func NewLocator(dir string, table map[release.PlatformKey]config.PlatformPaths) *Locator {
	return &Locator{
		dir:   dir,
		table: table,
	}
}

// Locate expands the templates of platform for product and version.
func (l *Locator) Locate(platform release.PlatformKey, product, version string) (Paths, error) {
	entry, ok := l.table[platform]
	if !ok {
		return Paths{}, release.Wrap(release.KindUnsupportedPlatform, "locate bundle",
			fmt.Errorf("%w: no bundle layout for %s", release.ErrUnsupportedPlatform, platform))
	}

	replacer := strings.NewReplacer(
		"{product}", product,
		"{version}", version,
		"{platform}", string(platform),
	)

	signature := entry.Signature
	if signature == "" {
		signature = entry.Build + ".sig"
	}

	return Paths{
		Build:     l.resolve(replacer.Replace(entry.Build)),
		Upload:    l.resolve(replacer.Replace(entry.Upload)),
		Signature: l.resolve(replacer.Replace(signature)),
	}, nil
}

func (l *Locator) resolve(template string) string {
	path := filepath.FromSlash(template)
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(l.dir, path)
}

// Verify checks that the build left the bundle in place.
func Verify(paths Paths) error {
	info, err := os.Stat(paths.Build)
	if err != nil {
		return release.Wrap(release.KindArtifactNotFound, "verify bundle",
			fmt.Errorf("%w: %s: %w", ErrBundleNotFound, paths.Build, err))
	}

	if info.IsDir() {
		return release.Wrap(release.KindArtifactNotFound, "verify bundle",
			fmt.Errorf("%w: %s is a directory", ErrBundleNotFound, paths.Build))
	}

	return nil
}

// Rename moves the bundle to its upload name, replacing an earlier upload file.
func Rename(paths Paths) error {
	if paths.Build == paths.Upload {
		return nil
	}

	if err := os.Rename(paths.Build, paths.Upload); err != nil {
		kind := release.KindUnknown
		if errors.Is(err, os.ErrNotExist) {
			kind = release.KindArtifactNotFound
		}

		return release.Wrap(kind, "rename bundle", err)
	}

	return nil
}

// ReadSignature returns the signature file contents verbatim.
func ReadSignature(paths Paths) (string, error) {
	data, err := os.ReadFile(paths.Signature)
	if err != nil {
		return "", release.Wrap(release.KindArtifactNotFound, "read signature",
			fmt.Errorf("%w: %s: %w", ErrSignatureNotFound, paths.Signature, err))
	}

	return string(data), nil
}
