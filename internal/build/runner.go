package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/oshokin/javelin/internal/domain/release"
	"github.com/oshokin/javelin/internal/logger"
)

// stderrTail bounds how much build stderr is kept in the error.
const stderrTail = 4096

var (
	// ErrEmptyCommand is returned when no build command is configured.
	ErrEmptyCommand = errors.New("build command is empty")
	// ErrEmptyKey is returned when the signing key file is empty.
	ErrEmptyKey = errors.New("signing key file is empty")
)

// Request describes one build invocation.
type Request struct {
	// Dir is the working directory of the build.
	Dir string
	// Command is the program and its arguments.
	Command []string
	// Env is appended to the current process environment.
	Env []string
}

// Runner executes a build.
type Runner interface {
	Run(ctx context.Context, req Request) error
}

// ExecRunner runs the build as a child process.
type ExecRunner struct {
	// Stdout receives the build's standard output. Nil discards it.
	Stdout io.Writer
}

// NewExecRunner creates a runner streaming build output to stdout.
func NewExecRunner(stdout io.Writer) *ExecRunner {
	return &ExecRunner{
		Stdout: stdout,
	}
}

// Run starts the build and waits for it. A non-zero exit is a build failure
// carrying the tail of stderr.
func (r *ExecRunner) Run(ctx context.Context, req Request) error {
	if len(req.Command) == 0 || req.Command[0] == "" {
		return release.Wrap(release.KindBuild, "run build", ErrEmptyCommand)
	}

	//nolint:gosec // The command comes from the operator's own profile.
	cmd := exec.CommandContext(ctx, req.Command[0], req.Command[1:]...)
	cmd.Dir = req.Dir
	cmd.Env = append(os.Environ(), req.Env...)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if r.Stdout != nil {
		cmd.Stdout = r.Stdout
	}

	logger.InfoKV(ctx, "Running build",
		"command", strings.Join(req.Command, " "),
		"dir", req.Dir)

	if err := cmd.Run(); err != nil {
		output := strings.TrimSpace(tail(stderr.String(), stderrTail))
		if output != "" {
			err = fmt.Errorf("%w: %s", err, output)
		}

		return release.Wrap(release.KindBuild, "run build", err)
	}

	logger.Info(ctx, "Build finished")

	return nil
}

// SigningEnv reads the signing key and returns the environment entries
// the build expects. A leading "~" in keyLocation is expanded.
func SigningEnv(keyLocation, password, keyEnv, passwordEnv string) ([]string, error) {
	path, err := homedir.Expand(keyLocation)
	if err != nil {
		return nil, release.Wrap(release.KindConfig, "expand key location", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, release.Wrap(release.KindConfig, "read signing key", err)
	}

	key := strings.TrimSpace(string(data))
	if key == "" {
		return nil, release.Wrap(release.KindConfig, "read signing key", fmt.Errorf("%w: %s", ErrEmptyKey, path))
	}

	return []string{
		keyEnv + "=" + key,
		passwordEnv + "=" + password,
	}, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[len(s)-n:]
}
