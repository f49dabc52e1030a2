// internal/store/store.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyPath   = errors.New("store: empty path")
	ErrInvalidPath = errors.New("store: invalid path segment")
)

// Store is a hierarchical key-value tree. Paths are slash-separated, e.g.
// "borrow_history/BK-001/history_1/status". Update applies a sparse multi-path
// write atomically across the given paths only; there are no guarantees across
// separate calls. Watch delivers change notifications at least once, with no
// ordering guarantee between independent top-level keys.
type Store interface {
	Get(ctx context.Context, path string) (Snapshot, error)
	Set(ctx context.Context, path string, value any) error
	Update(ctx context.Context, updates map[string]any) error
	Delete(ctx context.Context, path string) error
	Watch(ctx context.Context, path string, fn func(Snapshot)) (cancel func(), err error)
}

// Snapshot is an immutable view of a subtree at the moment it was read.
// Interior nodes are map[string]any, leaves are JSON scalar or array values.
type Snapshot struct {
	value any
}

// NewSnapshot wraps an already-normalized tree value. Implementations must not
// mutate the value after handing it out.
func NewSnapshot(v any) Snapshot {
	return Snapshot{value: v}
}

// Exists reports whether anything was present at the path.
func (s Snapshot) Exists() bool {
	return s.value != nil
}

// Value returns the raw tree value.
func (s Snapshot) Value() any {
	return s.value
}

// Decode unmarshals the subtree into v via JSON.
func (s Snapshot) Decode(v any) error {
	if s.value == nil {
		return fmt.Errorf("store: decode of absent snapshot")
	}
	raw, err := json.Marshal(s.value)
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}
	return json.Unmarshal(raw, v)
}

// Children returns the named child snapshots of an interior node. Leaves have
// no children.
func (s Snapshot) Children() map[string]Snapshot {
	node, ok := s.value.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]Snapshot, len(node))
	for k, v := range node {
		out[k] = Snapshot{value: v}
	}
	return out
}

// Child returns the named child, absent if missing or if the node is a leaf.
func (s Snapshot) Child(key string) Snapshot {
	node, ok := s.value.(map[string]any)
	if !ok {
		return Snapshot{}
	}
	return Snapshot{value: node[key]}
}

// Text returns a string leaf value, or "" for anything else.
func (s Snapshot) Text() string {
	str, _ := s.value.(string)
	return str
}

// splitPath validates and splits a slash-separated path.
func splitPath(path string) ([]string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, ErrEmptyPath
	}
	segments := strings.Split(trimmed, "/")
	for _, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return segments, nil
}

// normalize converts an arbitrary Go value into the tree's canonical form
// (map[string]any / []any / string / float64 / bool) via a JSON round trip.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("store: encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("store: decode value: %w", err)
	}
	return out, nil
}

// prefixed reports whether a written path affects a watched path or vice versa.
func prefixed(a, b string) bool {
	a, b = strings.Trim(a, "/"), strings.Trim(b, "/")
	if a == b {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}
