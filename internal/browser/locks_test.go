// internal/browser/locks_test.go
package browser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileProfileLocks_RemovesArtifacts(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "SingletonLock"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SingletonCookie"), []byte("1234"), 0o644))
	// Chromium leaves the socket as a dangling symlink.
	require.NoError(t, os.Symlink("dead-target", filepath.Join(dir, "SingletonSocket")))
	// Unrelated profile state must survive.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Preferences"), []byte("{}"), 0o644))

	ReconcileProfileLocks(dir, newTestLogger(t))

	for _, name := range []string{"SingletonLock", "SingletonCookie", "SingletonSocket"} {
		_, err := os.Lstat(filepath.Join(dir, name))
		assert.True(t, os.IsNotExist(err), "%s should be removed", name)
	}
	assert.FileExists(t, filepath.Join(dir, "Preferences"))
}

func TestReconcileProfileLocks_CleanDirIsNoOp(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	ReconcileProfileLocks(dir, newTestLogger(t))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
