package runlock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/javelin/internal/logger"
)

// DefaultFilename is the marker created in the working directory.
const DefaultFilename = ".javelin.lock"

const markerPermissions = 0o600

// ErrAlreadyRunning is returned when a live process holds the marker.
var ErrAlreadyRunning = errors.New("another release is already running")

// Release removes the marker.
type Release func()

// Acquire creates the marker at path. A stale marker is removed and acquisition retried once.
func Acquire(ctx context.Context, path string) (Release, error) {
	if path == "" {
		path = DefaultFilename
	}

	path = filepath.Clean(path)

	for attempt := 0; ; attempt++ {
		err := create(path)
		if err == nil {
			logger.DebugKV(ctx, "Run lock acquired", "path", path)

			return func() {
				if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
					logger.WarnKV(ctx, "Failed to remove run lock", "path", path, "error", removeErr)
				}
			}, nil
		}

		if !errors.Is(err, os.ErrExist) || attempt > 0 {
			return nil, fmt.Errorf("create run lock %s: %w", path, err)
		}

		holder, alive := holderAlive(path)
		if alive {
			return nil, fmt.Errorf("%w: pid %d holds %s", ErrAlreadyRunning, holder, path)
		}

		logger.InfoKV(ctx, "Removing stale run lock", "path", path, "pid", holder)

		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale run lock: %w", err)
		}
	}
}

func create(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, markerPermissions)
	if err != nil {
		return err
	}

	_, err = f.WriteString(strconv.Itoa(os.Getpid()))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(path)

		return err
	}

	return nil
}

// holderAlive reads the marker's PID and reports whether another live process owns it.
func holderAlive(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 || pid == os.Getpid() {
		return pid, false
	}

	process, err := ps.FindProcess(pid)
	if err != nil || process == nil {
		return pid, false
	}

	return pid, true
}
