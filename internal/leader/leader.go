// internal/leader/leader.go
package leader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

// DefaultWindow is how long a heartbeat suppresses other runners. It is a
// throttle, not a lock: two runners that slip past it at once are harmless
// because every pass they gate is idempotent.
const DefaultWindow = 2 * time.Second

var bucketName = []byte("heartbeats")

// Heartbeat is the marker one runner leaves for a named task.
type Heartbeat struct {
	Owner     string    `json:"owner"`
	Timestamp time.Time `json:"timestamp"`
}

// Gate throttles scheduled passes across runners sharing one machine. Each
// process gets a random owner id; the bbolt file is the shared ground.
type Gate struct {
	db     *bbolt.DB
	owner  string
	window time.Duration
}

// Open creates a gate backed by the bbolt file at path. An empty path puts
// the file in the OS temp dir, which is enough when every runner is local.
func Open(path string, window time.Duration) (*Gate, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), "shelftrack-leader.db")
	}
	if window <= 0 {
		window = DefaultWindow
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open leader db %s: %w", path, err)
	}
	return &Gate{db: db, owner: uuid.NewString(), window: window}, nil
}

func (g *Gate) Close() error {
	return g.db.Close()
}

// TryAcquire reports whether this runner may execute the named task now. It
// claims the heartbeat when the previous one is stale or its own, and
// refreshes the timestamp on success.
func (g *Gate) TryAcquire(task string, now time.Time) (bool, error) {
	acquired := false
	err := g.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}

		if raw := bucket.Get([]byte(task)); raw != nil {
			var hb Heartbeat
			if err := json.Unmarshal(raw, &hb); err == nil {
				fresh := now.Sub(hb.Timestamp) < g.window
				if fresh && hb.Owner != g.owner {
					return nil
				}
			}
		}

		raw, err := json.Marshal(Heartbeat{Owner: g.owner, Timestamp: now})
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(task), raw); err != nil {
			return err
		}
		acquired = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("heartbeat %s: %w", task, err)
	}
	return acquired, nil
}
