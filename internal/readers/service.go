// internal/readers/service.go
package readers

import (
	"context"
)

// Service defines the interface for the reader registry.
type Service interface {
	Add(ctx context.Context, location, scanMethod string) (string, error)
	Update(ctx context.Context, id, location, scanMethod string) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Reader, error)
	List(ctx context.Context) (map[string]Reader, error)
}
