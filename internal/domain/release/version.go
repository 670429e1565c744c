package release

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// BumpKind selects which version segment a release increments.
// The numeric values match the interactive menu entries.
type BumpKind int

const (
	// BumpMajor increments major and zeroes minor and patch.
	BumpMajor BumpKind = iota + 1
	// BumpMinor increments minor and zeroes patch.
	BumpMinor
	// BumpPatch increments patch.
	BumpPatch
	// BumpCurrent republishes the current version unchanged.
	BumpCurrent
)

var (
	// ErrInvalidVersion is returned for versions that are not exactly MAJOR.MINOR.PATCH.
	ErrInvalidVersion = errors.New("version must be MAJOR.MINOR.PATCH with non-negative integers")
	// ErrUnknownBumpKind is returned for bump kinds outside the menu.
	ErrUnknownBumpKind = errors.New("unknown bump kind")
)

// BumpKinds lists the kinds in menu order.
func BumpKinds() []BumpKind {
	return []BumpKind{BumpMajor, BumpMinor, BumpPatch, BumpCurrent}
}

// ParseBumpKind accepts a menu number (1-4) or a kind name.
func ParseBumpKind(s string) (BumpKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "major":
		return BumpMajor, nil
	case "2", "minor":
		return BumpMinor, nil
	case "3", "patch":
		return BumpPatch, nil
	case "4", "current":
		return BumpCurrent, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownBumpKind, s)
	}
}

// String returns the kind name.
func (k BumpKind) String() string {
	switch k {
	case BumpMajor:
		return "Major"
	case BumpMinor:
		return "Minor"
	case BumpPatch:
		return "Patch"
	case BumpCurrent:
		return "Current"
	default:
		return fmt.Sprintf("BumpKind(%d)", int(k))
	}
}

// Version is a strict three-segment semantic version without prerelease or build metadata.
type Version struct {
	sv *semver.Version
}

// ParseVersion parses s as MAJOR.MINOR.PATCH.
func ParseVersion(s string) (Version, error) {
	sv, err := semver.StrictNewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: %s", ErrInvalidVersion, s, err.Error())
	}

	if sv.Prerelease() != "" || sv.Metadata() != "" {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	return Version{sv: sv}, nil
}

// Bump returns the version incremented by kind. BumpCurrent returns v itself.
func (v Version) Bump(kind BumpKind) (Version, error) {
	if v.sv == nil {
		return Version{}, ErrInvalidVersion
	}

	var next semver.Version

	switch kind {
	case BumpMajor:
		next = v.sv.IncMajor()
	case BumpMinor:
		next = v.sv.IncMinor()
	case BumpPatch:
		next = v.sv.IncPatch()
	case BumpCurrent:
		return v, nil
	default:
		return Version{}, fmt.Errorf("%w: %d", ErrUnknownBumpKind, int(kind))
	}

	return Version{sv: &next}, nil
}

// Major returns the major segment.
func (v Version) Major() uint64 {
	if v.sv == nil {
		return 0
	}

	return v.sv.Major()
}

// Minor returns the minor segment.
func (v Version) Minor() uint64 {
	if v.sv == nil {
		return 0
	}

	return v.sv.Minor()
}

// Patch returns the patch segment.
func (v Version) Patch() uint64 {
	if v.sv == nil {
		return 0
	}

	return v.sv.Patch()
}

// String renders the version as MAJOR.MINOR.PATCH.
func (v Version) String() string {
	if v.sv == nil {
		return ""
	}

	return v.sv.String()
}

// Bump parses current and returns it incremented by kind.
func Bump(current string, kind BumpKind) (string, error) {
	v, err := ParseVersion(current)
	if err != nil {
		return "", err
	}

	next, err := v.Bump(kind)
	if err != nil {
		return "", err
	}

	return next.String(), nil
}
