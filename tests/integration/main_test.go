// tests/integration/main_test.go
package integration

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelftrack/internal/borrowers"
	"shelftrack/internal/catalog"
	"shelftrack/internal/circulation"
	"shelftrack/internal/clients"
	"shelftrack/internal/clock"
	"shelftrack/internal/reconcile"
	"shelftrack/internal/store"
)

// testConsole is the full HTTP surface over an in-memory store, with a
// steerable shared clock.
type testConsole struct {
	client     *clients.ConsoleClient
	store      store.Store
	src        *clock.Source
	reconciler *reconcile.Reconciler
	now        time.Time
}

func newTestConsole(t *testing.T) *testConsole {
	t.Helper()
	st := store.NewMemory()
	tc := &testConsole{
		store: st,
		now:   time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
	}
	tc.src = clock.NewSource(st, func() time.Time { return tc.now })
	require.NoError(t, tc.src.Tick(context.Background()))

	policy := reconcile.DefaultPolicy()
	tc.reconciler = reconcile.NewReconciler(st, tc.src, policy)

	catalogHandler := catalog.NewHandler(catalog.NewService(st))
	router := chi.NewRouter()
	router.Route("/api/v1/books", catalogHandler.BookRoutes)
	router.Route("/api/v1/units", catalogHandler.UnitRoutes)
	router.Route("/api/v1/loans", circulation.NewHandler(circulation.NewService(st, tc.src, policy)).Routes)
	router.Route("/api/v1/borrowers", borrowers.NewHandler(borrowers.NewService(st)).Routes)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	tc.client = clients.NewConsoleClient(server.URL)
	return tc
}

// advance moves the shared clock forward and republishes it.
func (tc *testConsole) advance(t *testing.T, d time.Duration) {
	t.Helper()
	tc.now = tc.now.Add(d)
	require.NoError(t, tc.src.Tick(context.Background()))
}

func TestBorrowLifecycleOverHTTP(t *testing.T) {
	ctx := context.Background()
	tc := newTestConsole(t)

	metaID, err := tc.client.AddBook(ctx, catalog.Metadata{
		Title:             "The Pearl",
		Author:            "John Steinbeck",
		PreferredLocation: "2nd Floor",
	})
	require.NoError(t, err)
	require.NoError(t, tc.client.AddUnit(ctx, "BK-1", metaID, "TAG-1", ""))
	require.NoError(t, tc.client.RegisterBorrower(ctx, borrowers.Borrower{
		TagUID:    "CARD-1",
		FirstName: "Ana",
		LastName:  "Reyes",
		Email:     "ana@example.com",
	}))

	loan, err := tc.client.Checkout(ctx, "BK-1", "CARD-1", reconcile.LocationOutside)
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusBorrowed, loan.Status)

	unit, err := tc.client.GetUnit(ctx, "BK-1")
	require.NoError(t, err)
	assert.Equal(t, catalog.UnitNotAvailable, unit.Status)

	active, err := tc.client.ActiveLoans(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	// nine days out, past the seven-day allowance
	tc.advance(t, 9*24*time.Hour)
	changed, err := tc.reconciler.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	active, err = tc.client.ActiveLoans(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, reconcile.StatusOverdue, active[0].Status)

	returned, err := tc.client.Return(ctx, "BK-1")
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusLate, returned.Status)

	unit, err = tc.client.GetUnit(ctx, "BK-1")
	require.NoError(t, err)
	assert.Equal(t, catalog.UnitAvailable, unit.Status)

	active, err = tc.client.ActiveLoans(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestCheckoutConflictsOverHTTP(t *testing.T) {
	ctx := context.Background()
	tc := newTestConsole(t)

	metaID, err := tc.client.AddBook(ctx, catalog.Metadata{
		Title:  "Noli Me Tangere",
		Author: "Jose Rizal",
	})
	require.NoError(t, err)
	require.NoError(t, tc.client.AddUnit(ctx, "BK-1", metaID, "TAG-1", ""))
	require.NoError(t, tc.client.RegisterBorrower(ctx, borrowers.Borrower{
		TagUID:    "CARD-1",
		FirstName: "Ana",
		LastName:  "Reyes",
		Email:     "ana@example.com",
	}))

	_, err = tc.client.Checkout(ctx, "BK-1", "CARD-1", reconcile.LocationInside)
	require.NoError(t, err)

	// the same unit cannot go out twice
	_, err = tc.client.Checkout(ctx, "BK-1", "CARD-1", reconcile.LocationInside)
	assert.Error(t, err)

	// an unregistered card is rejected
	_, err = tc.client.Checkout(ctx, "BK-1", "CARD-404", reconcile.LocationInside)
	assert.Error(t, err)
}
