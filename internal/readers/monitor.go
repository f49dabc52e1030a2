// internal/readers/monitor.go
package readers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"shelftrack/internal/clock"
	"shelftrack/internal/store"
)

// OfflineThreshold is how stale last_update may get, relative to the shared
// clock, before a reader counts as Offline.
const OfflineThreshold = 30 * time.Second

// Monitor derives reader statuses from last_update staleness each cycle.
type Monitor struct {
	store  store.Store
	clock  *clock.Source
	tracer trace.Tracer
}

// NewMonitor wires a monitor against the shared store and clock.
func NewMonitor(st store.Store, clk *clock.Source) *Monitor {
	return &Monitor{
		store:  st,
		clock:  clk,
		tracer: otel.Tracer("shelftrack/readers"),
	}
}

// Statuses computes the status of every reader at instant now. Missing,
// blank or unparseable last_update means Offline. Pure function of its
// inputs and the threshold constant.
func Statuses(all map[string]Reader, now time.Time) map[string]string {
	out := make(map[string]string, len(all))
	for id, reader := range all {
		out[id] = derive(reader, now)
	}
	return out
}

func derive(reader Reader, now time.Time) string {
	raw := strings.TrimSpace(reader.LastUpdate)
	if raw == "" {
		return StatusOffline
	}
	lastSeen, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return StatusOffline
	}
	if now.Sub(lastSeen) > OfflineThreshold {
		return StatusOffline
	}
	return StatusOnline
}

// Run executes one monitor cycle: same discipline as the borrow reconciler,
// an absent shared clock no-ops the cycle and only changed statuses are
// written, in one batch.
func (m *Monitor) Run(ctx context.Context) (int, error) {
	ctx, span := m.tracer.Start(ctx, "readers.monitor_cycle")
	defer span.End()

	now, err := m.clock.Read(ctx)
	if errors.Is(err, clock.ErrAbsent) {
		span.SetAttributes(attribute.Bool("clock.absent", true))
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	snap, err := m.store.Get(ctx, BasePath)
	if err != nil {
		return 0, fmt.Errorf("read readers: %w", err)
	}
	if !snap.Exists() {
		return 0, nil
	}

	all := make(map[string]Reader)
	for id, child := range snap.Children() {
		var reader Reader
		if err := child.Decode(&reader); err != nil {
			continue
		}
		all[id] = reader
	}

	updates := make(map[string]any)
	for id, status := range Statuses(all, now) {
		if all[id].Status != status {
			updates[BasePath+"/"+id+"/status"] = status
		}
	}
	span.SetAttributes(
		attribute.Int("readers.total", len(all)),
		attribute.Int("readers.changed", len(updates)),
	)
	if len(updates) == 0 {
		return 0, nil
	}
	if err := m.store.Update(ctx, updates); err != nil {
		return 0, fmt.Errorf("apply reader statuses: %w", err)
	}
	return len(updates), nil
}
