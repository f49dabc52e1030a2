// internal/clock/clock.go
package clock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shelftrack/internal/store"
)

// Path is the top-level key holding the shared timestamp.
const Path = "zulu_time"

var ErrAbsent = errors.New("clock: shared time absent or unparseable")

// Source maintains the shared clock record every connected node reconciles
// against, instead of trusting its own wall clock. The value is wall-clock
// based; nothing enforces monotonicity, so a node with a badly skewed clock
// can briefly move it backwards. Known weakness, accepted: every consumer is
// idempotent against re-derivation from an earlier instant.
type Source struct {
	store store.Store
	now   func() time.Time
}

// NewSource creates a clock source. now is injectable for tests; nil means
// time.Now.
func NewSource(st store.Store, now func() time.Time) *Source {
	if now == nil {
		now = time.Now
	}
	return &Source{store: st, now: now}
}

// Tick publishes the current UTC instant.
func (s *Source) Tick(ctx context.Context) error {
	value := s.now().UTC().Format(time.RFC3339)
	if err := s.store.Set(ctx, Path, value); err != nil {
		return fmt.Errorf("publish shared time: %w", err)
	}
	return nil
}

// Read returns the shared instant, or ErrAbsent when the record is missing or
// malformed. Callers must treat ErrAbsent as "skip this cycle", never as a
// reason to fall back to local time.
func (s *Source) Read(ctx context.Context) (time.Time, error) {
	snap, err := s.store.Get(ctx, Path)
	if err != nil {
		return time.Time{}, fmt.Errorf("read shared time: %w", err)
	}
	if !snap.Exists() {
		return time.Time{}, ErrAbsent
	}
	parsed, err := time.Parse(time.RFC3339, snap.Text())
	if err != nil {
		return time.Time{}, ErrAbsent
	}
	return parsed.UTC(), nil
}
