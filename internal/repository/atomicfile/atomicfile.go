package atomicfile

import (
	"bytes"
	"crypto"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
)

// ErrEmptyPath is returned when no target path is given.
var ErrEmptyPath = errors.New("target path is empty")

// Write replaces the file at path with data and sets its mode.
// A missing target is created first. Parent directories must exist.
func Write(path string, data []byte, mode os.FileMode) error {
	if path == "" {
		return ErrEmptyPath
	}

	path = filepath.Clean(path)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		f, createErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, mode)
		if createErr != nil {
			return fmt.Errorf("create %s: %w", path, createErr)
		}

		_ = f.Close()
	}

	checksum := sha256.Sum256(data)

	//nolint:exhaustruct // Signature verification is not used for local files.
	options := goupdate.Options{
		TargetPath: path,
		TargetMode: mode,
		Checksum:   checksum[:],
		Hash:       crypto.SHA256,
	}

	if err := goupdate.Apply(bytes.NewReader(data), options); err != nil {
		if rollbackErr := goupdate.RollbackError(err); rollbackErr != nil {
			return fmt.Errorf("replace %s: %w (rollback failed: %s)", path, err, rollbackErr.Error())
		}

		return fmt.Errorf("replace %s: %w", path, err)
	}

	// Windows may keep the previous file hidden instead of removing it.
	oldPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".old")
	if _, err := os.Stat(oldPath); err == nil {
		_ = os.Remove(oldPath)
	}

	return nil
}
