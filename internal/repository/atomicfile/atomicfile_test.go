package atomicfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestWrite_CreatesAndReplaces checks a missing file is created and an existing one replaced.
func TestWrite_CreatesAndReplaces(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tauri.conf.json")

	require.NoError(t, Write(path, []byte(`{"a":1}`), 0o600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(data))

	require.NoError(t, Write(path, []byte(`{"a":2}`), 0o600))

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":2}`, string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no staging leftovers")
}

// TestWrite_Errors covers an empty path and a missing parent directory.
func TestWrite_Errors(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Write("", []byte("x"), 0o600), ErrEmptyPath)
	require.Error(t, Write(filepath.Join(t.TempDir(), "missing", "f.json"), []byte("x"), 0o600))
}
