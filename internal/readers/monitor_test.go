// internal/readers/monitor_test.go
package readers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelftrack/internal/clock"
	"shelftrack/internal/store"
)

func TestStatuses(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	all := map[string]Reader{
		"r1": {LastUpdate: "2024-01-10T08:59:50Z"}, // 10s stale
		"r2": {LastUpdate: "2024-01-10T08:58:00Z"}, // 2min stale
		"r3": {LastUpdate: ""},
		"r4": {LastUpdate: "banana"},
		"r5": {LastUpdate: "2024-01-10T08:59:30Z"}, // exactly at threshold
	}

	got := Statuses(all, now)
	assert.Equal(t, StatusOnline, got["r1"])
	assert.Equal(t, StatusOffline, got["r2"])
	assert.Equal(t, StatusOffline, got["r3"])
	assert.Equal(t, StatusOffline, got["r4"])
	assert.Equal(t, StatusOnline, got["r5"]) // threshold is exclusive
}

func TestMonitorRunWritesDeltasOnly(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Set(ctx, clock.Path, "2024-01-10T09:00:00Z"))
	require.NoError(t, st.Set(ctx, BasePath+"/r1", map[string]any{
		"location":    "2nd Floor",
		"status":      StatusOffline,
		"last_update": "2024-01-10T08:59:55Z",
	}))
	require.NoError(t, st.Set(ctx, BasePath+"/r2", map[string]any{
		"location":    "Entrance",
		"status":      StatusOffline,
		"last_update": "",
	}))

	m := NewMonitor(st, clock.NewSource(st, nil))
	changed, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed) // only r1 flips

	snap, err := st.Get(ctx, BasePath+"/r1/status")
	require.NoError(t, err)
	assert.Equal(t, StatusOnline, snap.Text())

	// second pass at the same instant is quiescent
	changed, err = m.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestMonitorRunMissingClockIsNoOp(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Set(ctx, BasePath+"/r1", map[string]any{
		"location":    "Entrance",
		"status":      StatusOnline,
		"last_update": "",
	}))

	m := NewMonitor(st, clock.NewSource(st, nil))
	changed, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, changed)

	snap, err := st.Get(ctx, BasePath+"/r1/status")
	require.NoError(t, err)
	assert.Equal(t, StatusOnline, snap.Text())
}
