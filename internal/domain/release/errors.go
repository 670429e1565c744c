package release

import (
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// Kind classifies a release failure.
type Kind int

const (
	// KindUnknown is any failure that was not classified.
	KindUnknown Kind = iota
	// KindConfig covers missing or invalid configuration and version files.
	KindConfig
	// KindUnsupportedPlatform is reported when the host has no platform key.
	KindUnsupportedPlatform
	// KindBuild is a failing or unlaunchable build command.
	KindBuild
	// KindArtifactNotFound is a missing bundle or signature after the build.
	KindArtifactNotFound
	// KindRemoteAPI is a failed GitHub call.
	KindRemoteAPI
	// KindPartialRemoteState means remote resources were created but local state
	// could not record them.
	KindPartialRemoteState
	// KindConflict means the manifest changed remotely during the update.
	KindConflict
	// KindAborted is a run cancelled by the operator.
	KindAborted
)

var kindNames = map[Kind]string{ //nolint:gochecknoglobals // Static lookup table.
	KindUnknown:             "unknown",
	KindConfig:              "config",
	KindUnsupportedPlatform: "unsupported_platform",
	KindBuild:               "build",
	KindArtifactNotFound:    "artifact_not_found",
	KindRemoteAPI:           "remote_api",
	KindPartialRemoteState:  "partial_remote_state",
	KindConflict:            "conflict",
	KindAborted:             "aborted",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// RequiresRollback reports whether a failure of this kind, once the version was bumped,
// must restore the previous version.
func (k Kind) RequiresRollback() bool {
	switch k {
	case KindBuild, KindArtifactNotFound, KindRemoteAPI, KindPartialRemoteState, KindConflict:
		return true
	default:
		return false
	}
}

// Error is a classified release failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}

	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap classifies err. The call site of Wrap is recorded as the failure origin.
// A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}

	return errors.WithStackDepth(&Error{Kind: kind, Op: op, Err: err}, 1)
}

// KindOf returns the outermost kind found in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}

// WithHint attaches an operator-facing hint to err.
func WithHint(err error, hint string) error {
	return errors.WithHint(err, hint)
}

// Hints returns every hint attached to err, one per line.
func Hints(err error) string {
	return errors.FlattenHints(err)
}

// Source returns "file:line (function)" of the innermost recorded call site, or "".
func Source(err error) string {
	file, line, fn, ok := errors.GetOneLineSource(err)
	if !ok {
		return ""
	}

	return fmt.Sprintf("%s:%d (%s)", filepath.Base(file), line, fn)
}
