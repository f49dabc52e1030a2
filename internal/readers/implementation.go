// internal/readers/implementation.go
package readers

import (
	"context"
	"errors"
	"fmt"

	"shelftrack/internal/store"
)

// BasePath is the top-level key holding all reader records.
const BasePath = "readers"

var (
	ErrNotFound        = errors.New("readers: reader not found")
	ErrMissingLocation = errors.New("readers: location is required")
)

// service implements the Service interface.
type service struct {
	store store.Store
}

// NewService creates a new reader registry over the shared store.
func NewService(st store.Store) Service {
	return &service{store: st}
}

// Add provisions a reader under the first free rN id, Offline until the
// hardware bridge reports in.
func (s *service) Add(ctx context.Context, location, scanMethod string) (string, error) {
	if location == "" {
		return "", ErrMissingLocation
	}

	snap, err := s.store.Get(ctx, BasePath)
	if err != nil {
		return "", fmt.Errorf("read readers: %w", err)
	}
	existing := snap.Children()
	id := ""
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("r%d", n)
		if _, taken := existing[candidate]; !taken {
			id = candidate
			break
		}
	}

	record := map[string]any{
		"location": location,
		"status":   StatusOffline,
	}
	if scanMethod == ScanMulti {
		record["tag_uids"] = map[string]any{"1": ""}
	} else {
		record["tag_uid"] = ""
	}

	if err := s.store.Set(ctx, BasePath+"/"+id, record); err != nil {
		return "", fmt.Errorf("write reader %s: %w", id, err)
	}
	return id, nil
}

// Update changes a reader's location and, when the scan method flips, swaps
// the tag field shape without touching the bridge-owned fields.
func (s *service) Update(ctx context.Context, id, location, scanMethod string) error {
	if location == "" {
		return ErrMissingLocation
	}
	reader, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	updates := map[string]any{
		BasePath + "/" + id + "/location": location,
	}
	if scanMethod != "" && scanMethod != reader.ScanMethod() {
		if scanMethod == ScanMulti {
			updates[BasePath+"/"+id+"/tag_uid"] = nil
			updates[BasePath+"/"+id+"/tag_uids"] = map[string]any{"1": ""}
		} else {
			updates[BasePath+"/"+id+"/tag_uids"] = nil
			updates[BasePath+"/"+id+"/tag_uid"] = ""
		}
	}
	if err := s.store.Update(ctx, updates); err != nil {
		return fmt.Errorf("update reader %s: %w", id, err)
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, BasePath+"/"+id); err != nil {
		return fmt.Errorf("delete reader %s: %w", id, err)
	}
	return nil
}

func (s *service) Get(ctx context.Context, id string) (*Reader, error) {
	snap, err := s.store.Get(ctx, BasePath+"/"+id)
	if err != nil {
		return nil, fmt.Errorf("read reader %s: %w", id, err)
	}
	if !snap.Exists() {
		return nil, ErrNotFound
	}
	reader := &Reader{}
	if err := snap.Decode(reader); err != nil {
		return nil, fmt.Errorf("decode reader %s: %w", id, err)
	}
	return reader, nil
}

func (s *service) List(ctx context.Context) (map[string]Reader, error) {
	snap, err := s.store.Get(ctx, BasePath)
	if err != nil {
		return nil, fmt.Errorf("read readers: %w", err)
	}
	out := make(map[string]Reader)
	for id, child := range snap.Children() {
		var reader Reader
		if err := child.Decode(&reader); err != nil {
			continue
		}
		out[id] = reader
	}
	return out, nil
}
