// internal/circulation/history_test.go
package circulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelftrack/internal/catalog"
	"shelftrack/internal/store"
)

func seedRow(t *testing.T, st store.Store, bookUID, historyID, returnDate string) {
	t.Helper()
	require.NoError(t, st.Set(context.Background(), catalog.HistoryPath+"/"+bookUID+"/"+historyID, map[string]any{
		"borrower_id": "CARD-1",
		"borrow_date": "2024-03-04T09:00:00Z",
		"return_date": returnDate,
		"location":    "Inside",
		"status":      "Returned",
	}))
}

func pointerOf(t *testing.T, st store.Store, bookUID string) int {
	t.Helper()
	snap, err := st.Get(context.Background(), catalog.HistoryPath+"/"+bookUID+"/latest_history")
	require.NoError(t, err)
	var n int
	require.NoError(t, snap.Decode(&n))
	return n
}

func TestIndexerOpenRowWins(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seedRow(t, st, "BK-1", "history_1", "")
	seedRow(t, st, "BK-1", "history_2", "2024-03-05T09:00:00Z")

	changed, err := NewIndexer(st).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.Equal(t, 1, pointerOf(t, st, "BK-1"))
}

func TestIndexerHighestSettledRow(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seedRow(t, st, "BK-1", "history_1", "2024-03-05T09:00:00Z")
	seedRow(t, st, "BK-1", "history_3", "2024-03-06T09:00:00Z")

	_, err := NewIndexer(st).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, pointerOf(t, st, "BK-1"))
}

func TestIndexerRepairsCreationStub(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Set(ctx, catalog.HistoryPath+"/BK-1/latest_history", ""))

	changed, err := NewIndexer(st).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.Zero(t, pointerOf(t, st, "BK-1"))
}

func TestIndexerSecondPassQuiescent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seedRow(t, st, "BK-1", "history_1", "")
	seedRow(t, st, "BK-2", "history_1", "2024-03-05T09:00:00Z")

	ix := NewIndexer(st)
	_, err := ix.Run(ctx)
	require.NoError(t, err)

	changed, err := ix.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, changed)
}
