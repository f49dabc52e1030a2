// internal/catalog/locator.go
package catalog

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"shelftrack/internal/store"
)

// Locator keeps unit locations in line with reader tag scans. Like the borrow
// reconciler it is a convergent pass: pure derivation from durable state,
// delta-only batched writes, safe to run from any number of nodes.
type Locator struct {
	store  store.Store
	tracer trace.Tracer
}

// NewLocator wires a locator against the shared store.
func NewLocator(st store.Store) *Locator {
	return &Locator{
		store:  st,
		tracer: otel.Tracer("shelftrack/catalog"),
	}
}

type readerScan struct {
	Location string            `json:"location"`
	TagUID   string            `json:"tag_uid"`
	TagUIDs  map[string]string `json:"tag_uids"`
}

// Run derives each unit's location. A tag seen by a reader puts the unit at
// that reader's location; an unseen tag means Borrowed for units that are
// checked out and Not Found for shelved ones, with last_seen falling back to
// the title's preferred shelf.
func (l *Locator) Run(ctx context.Context) (int, error) {
	ctx, span := l.tracer.Start(ctx, "catalog.locate_cycle")
	defer span.End()

	unitsSnap, err := l.store.Get(ctx, UnitPath)
	if err != nil {
		return 0, fmt.Errorf("read units: %w", err)
	}
	if !unitsSnap.Exists() {
		return 0, nil
	}
	readersSnap, err := l.store.Get(ctx, "readers")
	if err != nil {
		return 0, fmt.Errorf("read readers: %w", err)
	}
	metasSnap, err := l.store.Get(ctx, MetadataPath)
	if err != nil {
		return 0, fmt.Errorf("read metadata: %w", err)
	}

	tagLocation := make(map[string]string)
	for id, child := range readersSnap.Children() {
		var scan readerScan
		if err := child.Decode(&scan); err != nil {
			continue
		}
		location := scan.Location
		if location == "" {
			location = id
		}
		if scan.TagUID != "" {
			tagLocation[scan.TagUID] = location
		}
		for _, tag := range scan.TagUIDs {
			if tag != "" {
				tagLocation[tag] = location
			}
		}
	}

	updates := make(map[string]any)
	for bookUID, child := range unitsSnap.Children() {
		var unit Unit
		if err := child.Decode(&unit); err != nil {
			continue
		}

		location, found := tagLocation[unit.TagUID]
		if found {
			if unit.Location != location {
				updates[UnitPath+"/"+bookUID+"/location"] = location
				updates[UnitPath+"/"+bookUID+"/last_seen"] = location
			}
			continue
		}

		if unit.Status == UnitNotAvailable {
			location = LocationBorrowed
		} else {
			location = LocationNotFound
		}
		if unit.Location != location {
			updates[UnitPath+"/"+bookUID+"/location"] = location
		}
		lastSeen := unit.LastSeen
		if lastSeen == "" {
			var meta Metadata
			if err := metasSnap.Child(unit.MetadataID).Decode(&meta); err == nil {
				lastSeen = meta.PreferredLocation
			}
		}
		if lastSeen != "" && lastSeen != unit.LastSeen {
			updates[UnitPath+"/"+bookUID+"/last_seen"] = lastSeen
		}
	}

	span.SetAttributes(attribute.Int("catalog.location_changes", len(updates)))
	if len(updates) == 0 {
		return 0, nil
	}
	if err := l.store.Update(ctx, updates); err != nil {
		return 0, fmt.Errorf("apply unit locations: %w", err)
	}
	return len(updates), nil
}

// ReleaseReturned flips units whose latest borrow row settled as Returned or
// Late back to Available, so they can circulate again.
func (l *Locator) ReleaseReturned(ctx context.Context) (int, error) {
	ctx, span := l.tracer.Start(ctx, "catalog.release_cycle")
	defer span.End()

	historySnap, err := l.store.Get(ctx, HistoryPath)
	if err != nil {
		return 0, fmt.Errorf("read borrow history: %w", err)
	}
	unitsSnap, err := l.store.Get(ctx, UnitPath)
	if err != nil {
		return 0, fmt.Errorf("read units: %w", err)
	}
	if !historySnap.Exists() || !unitsSnap.Exists() {
		return 0, nil
	}

	updates := make(map[string]any)
	for bookUID, bookSnap := range historySnap.Children() {
		unitStatus := unitsSnap.Child(bookUID).Child("status").Text()
		if unitStatus != UnitNotAvailable {
			continue
		}
		// A checked-out unit whose every history row is closed has been
		// returned; the open row is what keeps it off the shelf.
		hasRows, open := false, false
		for key, row := range bookSnap.Children() {
			if !strings.HasPrefix(key, "history_") {
				continue
			}
			hasRows = true
			if strings.TrimSpace(row.Child("return_date").Text()) == "" {
				open = true
				break
			}
		}
		if hasRows && !open {
			updates[UnitPath+"/"+bookUID+"/status"] = UnitAvailable
		}
	}

	span.SetAttributes(attribute.Int("catalog.released", len(updates)))
	if len(updates) == 0 {
		return 0, nil
	}
	if err := l.store.Update(ctx, updates); err != nil {
		return 0, fmt.Errorf("release returned units: %w", err)
	}
	return len(updates), nil
}
