package release

import (
	"errors"
	"fmt"
	"runtime"
)

// PlatformKey identifies an OS and CPU architecture target in the update manifest
// and in uploaded asset names.
type PlatformKey string

const (
	// DarwinAArch64 is Apple Silicon macOS.
	DarwinAArch64 PlatformKey = "darwin-aarch64"
	// DarwinX8664 is Intel macOS.
	DarwinX8664 PlatformKey = "darwin-x86_64"
	// LinuxX8664 is 64-bit Linux on x86.
	LinuxX8664 PlatformKey = "linux-x86_64"
	// WindowsX8664 is 64-bit Windows on x86.
	WindowsX8664 PlatformKey = "windows-x86_64"
)

// ErrUnsupportedPlatform is returned for OS/architecture pairs without a platform key.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// platformRule maps a GOOS/GOARCH pair to a key. An empty goarch matches any architecture.
type platformRule struct {
	goos   string
	goarch string
	key    PlatformKey
}

// platformRules are evaluated in order; the first match wins.
//
//nolint:gochecknoglobals // Static lookup table.
var platformRules = []platformRule{
	{goos: "darwin", goarch: "arm64", key: DarwinAArch64},
	{goos: "darwin", goarch: "", key: DarwinX8664},
	{goos: "linux", goarch: "amd64", key: LinuxX8664},
	{goos: "windows", goarch: "amd64", key: WindowsX8664},
}

// Platforms returns every known platform key.
func Platforms() []PlatformKey {
	return []PlatformKey{DarwinAArch64, DarwinX8664, LinuxX8664, WindowsX8664}
}

// ParsePlatformKey validates s against the known keys.
func ParsePlatformKey(s string) (PlatformKey, error) {
	for _, key := range Platforms() {
		if string(key) == s {
			return key, nil
		}
	}

	return "", Wrap(KindUnsupportedPlatform, "parse platform", fmt.Errorf("%w: %q", ErrUnsupportedPlatform, s))
}

// DetectPlatform maps a GOOS/GOARCH pair to its platform key.
func DetectPlatform(goos, goarch string) (PlatformKey, error) {
	for _, rule := range platformRules {
		if rule.goos != goos {
			continue
		}

		if rule.goarch == "" || rule.goarch == goarch {
			return rule.key, nil
		}
	}

	return "", Wrap(KindUnsupportedPlatform, "detect platform",
		fmt.Errorf("%w: %s-%s", ErrUnsupportedPlatform, goos, goarch))
}

// CurrentPlatform returns the platform key of the running binary.
func CurrentPlatform() (PlatformKey, error) {
	return DetectPlatform(runtime.GOOS, runtime.GOARCH)
}
