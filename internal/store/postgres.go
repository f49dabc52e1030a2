// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const notifyChannel = "shelftrack_tree"

// Postgres stores the tree as leaf rows in a single table. Interior nodes are
// implicit in the path prefixes. Multi-path updates run in one transaction,
// which gives Update its atomicity across the given paths. Change
// notifications ride on LISTEN/NOTIFY.
type Postgres struct {
	db       *sql.DB
	listener *pq.Listener
	tracer   trace.Tracer

	mu       sync.Mutex
	watchers map[int]*pgWatcher
	nextID   int
	done     chan struct{}
}

type pgWatcher struct {
	path string
	fn   func(Snapshot)
}

// NewPostgres wraps an open database handle. conninfo is needed for the
// LISTEN connection; pass "" to disable Watch.
func NewPostgres(db *sql.DB, conninfo string) *Postgres {
	p := &Postgres{
		db:       db,
		tracer:   otel.Tracer("shelftrack/store"),
		watchers: make(map[int]*pgWatcher),
		done:     make(chan struct{}),
	}
	if conninfo != "" {
		p.listener = pq.NewListener(conninfo, 2*time.Second, time.Minute, nil)
		go p.dispatchLoop()
	}
	return p
}

// Migrate creates the backing table.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tree (
			path  TEXT PRIMARY KEY,
			value JSONB NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate tree table: %w", err)
	}
	return nil
}

// Close stops the notification listener.
func (p *Postgres) Close() error {
	close(p.done)
	if p.listener != nil {
		return p.listener.Close()
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, path string) (Snapshot, error) {
	if _, err := splitPath(path); err != nil {
		return Snapshot{}, err
	}
	prefix := strings.Trim(path, "/")

	ctx, span := p.tracer.Start(ctx, "store.get",
		trace.WithAttributes(attribute.String("tree.path", prefix)),
	)
	defer span.End()

	rows, err := p.db.QueryContext(ctx, `
		SELECT path, value
		FROM tree
		WHERE path = $1 OR path LIKE $1 || '/%'
	`, prefix)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query subtree %q: %w", prefix, err)
	}
	defer rows.Close()

	root := make(map[string]any)
	var exact any
	count := 0
	for rows.Next() {
		var leafPath string
		var raw []byte
		if err := rows.Scan(&leafPath, &raw); err != nil {
			return Snapshot{}, fmt.Errorf("scan leaf: %w", err)
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return Snapshot{}, fmt.Errorf("decode leaf %q: %w", leafPath, err)
		}
		count++
		if leafPath == prefix {
			exact = value
			continue
		}
		relative := strings.Split(strings.TrimPrefix(leafPath, prefix+"/"), "/")
		write(root, relative, value)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate subtree %q: %w", prefix, err)
	}
	span.SetAttributes(attribute.Int("tree.leaves", count))

	if len(root) > 0 {
		return NewSnapshot(root), nil
	}
	return NewSnapshot(exact), nil
}

func (p *Postgres) Set(ctx context.Context, path string, value any) error {
	return p.Update(ctx, map[string]any{path: value})
}

func (p *Postgres) Delete(ctx context.Context, path string) error {
	return p.Update(ctx, map[string]any{path: nil})
}

func (p *Postgres) Update(ctx context.Context, updates map[string]any) error {
	ctx, span := p.tracer.Start(ctx, "store.update",
		trace.WithAttributes(attribute.Int("tree.paths", len(updates))),
	)
	defer span.End()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for path, value := range updates {
		if err := p.applyPath(ctx, tx, path, value); err != nil {
			return err
		}
	}
	for path := range updates {
		if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, strings.Trim(path, "/")); err != nil {
			return fmt.Errorf("notify %q: %w", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	return nil
}

func (p *Postgres) applyPath(ctx context.Context, tx *sql.Tx, path string, value any) error {
	segments, err := splitPath(path)
	if err != nil {
		return err
	}
	normalized, err := normalize(value)
	if err != nil {
		return err
	}
	prefix := strings.Join(segments, "/")

	// Replace the subtree and any leaf row sitting on an ancestor path.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM tree WHERE path = $1 OR path LIKE $1 || '/%'
	`, prefix); err != nil {
		return fmt.Errorf("clear subtree %q: %w", prefix, err)
	}
	for i := 1; i < len(segments); i++ {
		ancestor := strings.Join(segments[:i], "/")
		if _, err := tx.ExecContext(ctx, `DELETE FROM tree WHERE path = $1`, ancestor); err != nil {
			return fmt.Errorf("clear ancestor %q: %w", ancestor, err)
		}
	}
	if normalized == nil {
		return nil
	}

	leaves := make(map[string]any)
	flatten(prefix, normalized, leaves)
	for leafPath, leafValue := range leaves {
		raw, err := json.Marshal(leafValue)
		if err != nil {
			return fmt.Errorf("encode leaf %q: %w", leafPath, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tree (path, value)
			VALUES ($1, $2)
			ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value
		`, leafPath, raw); err != nil {
			return fmt.Errorf("write leaf %q: %w", leafPath, err)
		}
	}
	return nil
}

func (p *Postgres) Watch(ctx context.Context, path string, fn func(Snapshot)) (func(), error) {
	if p.listener == nil {
		return nil, fmt.Errorf("store: watch requires a listener connection")
	}
	if _, err := splitPath(path); err != nil {
		return nil, err
	}
	if err := p.listener.Listen(notifyChannel); err != nil && err != pq.ErrChannelAlreadyOpen {
		return nil, fmt.Errorf("listen %q: %w", notifyChannel, err)
	}

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.watchers[id] = &pgWatcher{path: strings.Trim(path, "/"), fn: fn}
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.watchers, id)
		p.mu.Unlock()
	}, nil
}

func (p *Postgres) dispatchLoop() {
	for {
		select {
		case notification := <-p.listener.Notify:
			if notification == nil {
				continue // reconnect; listeners re-deliver on next change
			}
			p.dispatch(notification.Extra)
		case <-p.done:
			return
		}
	}
}

func (p *Postgres) dispatch(changed string) {
	p.mu.Lock()
	matched := make([]*pgWatcher, 0, len(p.watchers))
	for _, w := range p.watchers {
		if prefixed(changed, w.path) {
			matched = append(matched, w)
		}
	}
	p.mu.Unlock()

	for _, w := range matched {
		snap, err := p.Get(context.Background(), w.path)
		if err != nil {
			continue
		}
		w.fn(snap)
	}
}

// flatten decomposes a tree value into leaf rows.
func flatten(prefix string, value any, out map[string]any) {
	node, ok := value.(map[string]any)
	if !ok {
		out[prefix] = value
		return
	}
	for key, child := range node {
		flatten(prefix+"/"+key, child, out)
	}
}
