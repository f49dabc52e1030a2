// internal/leader/leader_test.go
package leader

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openGate(t *testing.T, path string) *Gate {
	t.Helper()
	gate, err := Open(path, DefaultWindow)
	require.NoError(t, err)
	t.Cleanup(func() { gate.Close() })
	return gate
}

func TestOwnerRefreshesOwnHeartbeat(t *testing.T) {
	gate := openGate(t, filepath.Join(t.TempDir(), "leader.db"))
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	ok, err := gate.TryAcquire("reconcile", now)
	require.NoError(t, err)
	assert.True(t, ok)

	// same owner may go again inside the window
	ok, err = gate.TryAcquire("reconcile", now.Add(500*time.Millisecond))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRivalBlockedUntilStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leader.db")
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	first := openGate(t, path)
	ok, err := first.TryAcquire("reconcile", now)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, first.Close())

	second := openGate(t, path)
	ok, err = second.TryAcquire("reconcile", now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = second.TryAcquire("reconcile", now.Add(3*time.Second))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTasksAreIndependent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leader.db")
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	first := openGate(t, path)
	ok, err := first.TryAcquire("reconcile", now)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, first.Close())

	second := openGate(t, path)
	ok, err = second.TryAcquire("locator", now)
	require.NoError(t, err)
	assert.True(t, ok)
}
