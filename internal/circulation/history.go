// internal/circulation/history.go
package circulation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"shelftrack/internal/catalog"
	"shelftrack/internal/store"
)

// Indexer keeps each book's latest_history pointer pointing at the row the
// console should show: the open row if one exists, otherwise the
// highest-numbered settled row, otherwise 0. Unit creation leaves an empty
// string stub behind, so the pointer is read leniently and rewritten as a
// number.
type Indexer struct {
	store  store.Store
	tracer trace.Tracer
}

func NewIndexer(st store.Store) *Indexer {
	return &Indexer{
		store:  st,
		tracer: otel.Tracer("shelftrack.circulation.indexer"),
	}
}

// Run recomputes every pointer and writes back only the ones that differ.
func (ix *Indexer) Run(ctx context.Context) (int, error) {
	ctx, span := ix.tracer.Start(ctx, "indexer.run")
	defer span.End()

	snap, err := ix.store.Get(ctx, catalog.HistoryPath)
	if err != nil {
		return 0, fmt.Errorf("read borrow history: %w", err)
	}

	updates := make(map[string]any)
	for bookUID, bookSnap := range snap.Children() {
		want := latestRow(decodeRows(bookUID, bookSnap))
		if pointerNumber(bookSnap.Child("latest_history")) != want {
			updates[catalog.HistoryPath+"/"+bookUID+"/latest_history"] = want
		}
	}
	if len(updates) == 0 {
		return 0, nil
	}
	if err := ix.store.Update(ctx, updates); err != nil {
		return 0, fmt.Errorf("write latest_history pointers: %w", err)
	}
	span.SetAttributes(attribute.Int("indexer.changed", len(updates)))
	return len(updates), nil
}

// latestRow picks the row number the pointer should hold.
func latestRow(rows []Loan) int {
	latest := 0
	for _, loan := range rows {
		n, ok := historyNumber(loan.HistoryID)
		if !ok {
			continue
		}
		if loan.Open() {
			return n
		}
		if n > latest {
			latest = n
		}
	}
	return latest
}

// pointerNumber reads the stored pointer. The creation-time "" stub and
// anything else non-numeric report -1 so the next run rewrites them.
func pointerNumber(snap store.Snapshot) int {
	var n int
	if err := snap.Decode(&n); err != nil {
		return -1
	}
	return n
}
