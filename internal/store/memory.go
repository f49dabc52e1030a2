// internal/store/memory.go
package store

import (
	"context"
	"sync"
)

// Memory is an in-process tree store. It backs tests and single-node
// deployments that do not need durability.
type Memory struct {
	mu       sync.RWMutex
	root     map[string]any
	watchers map[int]*memWatcher
	nextID   int
}

type memWatcher struct {
	path string
	fn   func(Snapshot)
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		root:     make(map[string]any),
		watchers: make(map[int]*memWatcher),
	}
}

func (m *Memory) Get(ctx context.Context, path string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	segments, err := splitPath(path)
	if err != nil {
		return Snapshot{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return NewSnapshot(clone(descend(m.root, segments))), nil
}

func (m *Memory) Set(ctx context.Context, path string, value any) error {
	return m.Update(ctx, map[string]any{path: value})
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	return m.Update(ctx, map[string]any{path: nil})
}

// Update applies every path under a single lock; concurrent readers observe
// either none or all of the writes.
func (m *Memory) Update(ctx context.Context, updates map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	type pending struct {
		segments []string
		value    any
	}
	batch := make([]pending, 0, len(updates))
	for path, value := range updates {
		segments, err := splitPath(path)
		if err != nil {
			return err
		}
		normalized, err := normalize(value)
		if err != nil {
			return err
		}
		batch = append(batch, pending{segments: segments, value: normalized})
	}

	m.mu.Lock()
	for _, p := range batch {
		write(m.root, p.segments, p.value)
	}
	notifications := make([]func(), 0)
	for path := range updates {
		written := path
		for _, w := range m.watchers {
			if !prefixed(written, w.path) {
				continue
			}
			segments, err := splitPath(w.path)
			if err != nil {
				continue
			}
			snap := NewSnapshot(clone(descend(m.root, segments)))
			fn := w.fn
			notifications = append(notifications, func() { fn(snap) })
		}
	}
	m.mu.Unlock()

	for _, notify := range notifications {
		notify()
	}
	return nil
}

func (m *Memory) Watch(ctx context.Context, path string, fn func(Snapshot)) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := splitPath(path); err != nil {
		return nil, err
	}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = &memWatcher{path: path, fn: fn}
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}, nil
}

// descend walks the tree, returning nil when the path does not exist.
func descend(node map[string]any, segments []string) any {
	var current any = node
	for _, seg := range segments {
		interior, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = interior[seg]
	}
	return current
}

// write places value at the path, creating interior nodes as needed and
// pruning empty ones on delete. A leaf in the way of a deeper write is
// replaced, matching last-writer-wins on individual fields.
func write(node map[string]any, segments []string, value any) {
	key := segments[0]
	if len(segments) == 1 {
		if value == nil {
			delete(node, key)
		} else {
			node[key] = value
		}
		return
	}

	child, ok := node[key].(map[string]any)
	if !ok {
		if value == nil {
			return
		}
		child = make(map[string]any)
		node[key] = child
	}
	write(child, segments[1:], value)
	if len(child) == 0 {
		delete(node, key)
	}
}

// clone deep-copies a tree value so snapshots stay stable under later writes.
func clone(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, child := range typed {
			out[k] = clone(child)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, child := range typed {
			out[i] = clone(child)
		}
		return out
	default:
		return v
	}
}
