// internal/catalog/implementation_test.go
package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelftrack/internal/store"
)

func addTitle(t *testing.T, svc Service) string {
	t.Helper()
	id, err := svc.AddBook(context.Background(), Metadata{
		Title:             "The Pearl",
		Author:            "John Steinbeck",
		PreferredLocation: "2nd Floor",
		SecurityPass:      "P-1",
	})
	require.NoError(t, err)
	return id
}

func TestAddBookRequiresTitleAndAuthor(t *testing.T) {
	svc := NewService(store.NewMemory())

	_, err := svc.AddBook(context.Background(), Metadata{Title: "Untitled"})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestAddUnitWritesIndexAndHistoryStub(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st)
	metaID := addTitle(t, svc)

	require.NoError(t, svc.AddUnit(ctx, "BK-1", metaID, "TAG-1", "P-1"))

	unit, err := svc.GetUnit(ctx, "BK-1")
	require.NoError(t, err)
	assert.Equal(t, UnitAvailable, unit.Status)
	assert.Equal(t, "2nd Floor", unit.LastSeen)

	snap, err := st.Get(ctx, TagIndexPath+"/TAG-1")
	require.NoError(t, err)
	assert.Equal(t, "BK-1", snap.Text())

	snap, err = st.Get(ctx, HistoryPath+"/BK-1/latest_history")
	require.NoError(t, err)
	assert.True(t, snap.Exists())
}

func TestAddUnitRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory())
	metaID := addTitle(t, svc)

	require.NoError(t, svc.AddUnit(ctx, "BK-1", metaID, "TAG-1", ""))

	err := svc.AddUnit(ctx, "BK-1", metaID, "TAG-2", "")
	assert.ErrorIs(t, err, ErrDuplicateUnit)
	err = svc.AddUnit(ctx, "BK-2", metaID, "TAG-1", "")
	assert.ErrorIs(t, err, ErrDuplicateTag)
}

func TestUpdateBookFansSecurityPassToUnits(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory())
	metaID := addTitle(t, svc)
	require.NoError(t, svc.AddUnit(ctx, "BK-1", metaID, "TAG-1", "P-1"))
	require.NoError(t, svc.AddUnit(ctx, "BK-2", metaID, "TAG-2", "P-1"))

	meta, err := svc.GetBook(ctx, metaID)
	require.NoError(t, err)
	meta.SecurityPass = "P-2"
	require.NoError(t, svc.UpdateBook(ctx, metaID, *meta))

	for _, uid := range []string{"BK-1", "BK-2"} {
		unit, err := svc.GetUnit(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, "P-2", unit.SecurityPass)
	}
}

func TestDeleteUnitOnlyWhenAvailable(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st)
	metaID := addTitle(t, svc)
	require.NoError(t, svc.AddUnit(ctx, "BK-1", metaID, "TAG-1", ""))

	require.NoError(t, st.Set(ctx, UnitPath+"/BK-1/status", UnitNotAvailable))
	assert.ErrorIs(t, svc.DeleteUnit(ctx, "BK-1"), ErrUnitNotOnShelf)

	require.NoError(t, st.Set(ctx, UnitPath+"/BK-1/status", UnitAvailable))
	require.NoError(t, svc.DeleteUnit(ctx, "BK-1"))

	snap, err := st.Get(ctx, TagIndexPath+"/TAG-1")
	require.NoError(t, err)
	assert.False(t, snap.Exists())
}

func TestDeleteBookCascades(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(st)
	metaID := addTitle(t, svc)
	require.NoError(t, svc.AddUnit(ctx, "BK-1", metaID, "TAG-1", ""))

	require.NoError(t, svc.DeleteBook(ctx, metaID))

	for _, path := range []string{
		MetadataPath + "/" + metaID,
		UnitPath + "/BK-1",
		TagIndexPath + "/TAG-1",
		HistoryPath + "/BK-1",
	} {
		snap, err := st.Get(ctx, path)
		require.NoError(t, err)
		assert.False(t, snap.Exists(), path)
	}
}
