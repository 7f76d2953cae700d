// internal/browser/registry_test.go
package browser

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*SessionRegistry, *fakeContext) {
	t.Helper()
	bctx := newFakeContext(false)
	return newSessionRegistry(bctx, newTestLogger(t)), bctx
}

func TestRegistry_NamedSessionSurvivesRelease(t *testing.T) {
	t.Parallel()
	reg, bctx := newTestRegistry(t)

	lease, err := reg.Acquire(t.Context(), "research")
	require.NoError(t, err)
	assert.False(t, lease.AdHoc)
	assert.Equal(t, "research", lease.SessionID)

	lease.Release(t.Context())
	assert.Equal(t, 1, bctx.openPages(), "named sessions must stay open after release")

	again, err := reg.Acquire(t.Context(), "research")
	require.NoError(t, err)
	assert.Same(t, lease.Page, again.Page, "same id must yield the same page")
}

func TestRegistry_AdHocReleaseClosesPage(t *testing.T) {
	t.Parallel()
	reg, bctx := newTestRegistry(t)

	lease, err := reg.Acquire(t.Context(), "")
	require.NoError(t, err)
	assert.True(t, lease.AdHoc)

	_, err = uuid.Parse(lease.SessionID)
	assert.NoError(t, err, "ad-hoc sessions get generated ids")

	lease.Release(t.Context())
	lease.Release(t.Context()) // second release is a no-op

	assert.Equal(t, 0, bctx.openPages())
	assert.Empty(t, reg.SessionIDs())
}

func TestRegistry_StaleSessionIsHealed(t *testing.T) {
	t.Parallel()
	reg, _ := newTestRegistry(t)

	first, err := reg.Acquire(t.Context(), "tab")
	require.NoError(t, err)

	// The page dies out from under the registry.
	first.Page.(*fakePage).markClosed()

	second, err := reg.Acquire(t.Context(), "tab")
	require.NoError(t, err)
	assert.NotSame(t, first.Page, second.Page, "a dead page must be replaced")
	assert.False(t, second.Page.IsClosed())
	assert.Equal(t, []string{"tab"}, reg.SessionIDs())
}

func TestRegistry_StartAndEndSession(t *testing.T) {
	t.Parallel()
	reg, bctx := newTestRegistry(t)

	id, err := reg.StartSession(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, []string{id}, reg.SessionIDs())

	assert.True(t, reg.EndSession(t.Context(), id))
	assert.Equal(t, 0, bctx.openPages())

	assert.False(t, reg.EndSession(t.Context(), id), "ending twice reports the session as gone")
	assert.False(t, reg.EndSession(t.Context(), "never-existed"))
}

func TestRegistry_CloseAllEmptiesRegistry(t *testing.T) {
	t.Parallel()
	reg, bctx := newTestRegistry(t)

	for _, id := range []string{"a", "b", "c"} {
		_, err := reg.Acquire(t.Context(), id)
		require.NoError(t, err)
	}
	require.Equal(t, 3, bctx.openPages())

	require.NoError(t, reg.CloseAll(t.Context()))
	assert.Equal(t, 0, bctx.openPages())
	assert.Empty(t, reg.SessionIDs())
}

func TestRegistry_ReleaseAfterEndSessionDoesNotCloseReplacement(t *testing.T) {
	t.Parallel()
	reg, _ := newTestRegistry(t)

	lease, err := reg.Acquire(t.Context(), "")
	require.NoError(t, err)

	// The session ends through the registry first; by the time the lease is
	// released the id may be taken by a different page.
	require.True(t, reg.EndSession(t.Context(), lease.SessionID))

	replacement, err := reg.Acquire(t.Context(), lease.SessionID)
	require.NoError(t, err)

	lease.Release(t.Context())
	assert.False(t, replacement.Page.IsClosed(), "release must only close its own page")
}
