// internal/readers/implementation_test.go
package readers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelftrack/internal/store"
)

func TestAddAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory())

	id, err := svc.Add(ctx, "Entrance", ScanSingle)
	require.NoError(t, err)
	assert.Equal(t, "r1", id)

	id, err = svc.Add(ctx, "2nd Floor", ScanMulti)
	require.NoError(t, err)
	assert.Equal(t, "r2", id)
}

func TestAddFillsGaps(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory())

	_, err := svc.Add(ctx, "Entrance", ScanSingle)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "2nd Floor", ScanSingle)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "r1"))

	id, err := svc.Add(ctx, "Archives", ScanSingle)
	require.NoError(t, err)
	assert.Equal(t, "r1", id)
}

func TestAddRequiresLocation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory())

	_, err := svc.Add(ctx, "", ScanSingle)
	assert.ErrorIs(t, err, ErrMissingLocation)
}

func TestScanMethodShapes(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory())

	single, err := svc.Add(ctx, "Entrance", ScanSingle)
	require.NoError(t, err)
	multi, err := svc.Add(ctx, "Gate", ScanMulti)
	require.NoError(t, err)

	reader, err := svc.Get(ctx, single)
	require.NoError(t, err)
	assert.Equal(t, ScanSingle, reader.ScanMethod())

	reader, err = svc.Get(ctx, multi)
	require.NoError(t, err)
	assert.Equal(t, ScanMulti, reader.ScanMethod())
}

func TestUpdateSwapsScanMethod(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st)

	id, err := svc.Add(ctx, "Entrance", ScanSingle)
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, id, "Entrance", ScanMulti))

	reader, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ScanMulti, reader.ScanMethod())

	// tag_uid shape removed entirely
	snap, err := st.Get(ctx, BasePath+"/"+id+"/tag_uid")
	require.NoError(t, err)
	assert.False(t, snap.Exists())
}

func TestUpdateMissingReader(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory())

	err := svc.Update(ctx, "r9", "Anywhere", ScanSingle)
	assert.ErrorIs(t, err, ErrNotFound)
}
