// internal/catalog/service.go
package catalog

import (
	"context"
)

// Service defines the interface for the catalog.
type Service interface {
	AddBook(ctx context.Context, meta Metadata) (string, error)
	UpdateBook(ctx context.Context, id string, meta Metadata) error
	DeleteBook(ctx context.Context, id string) error
	GetBook(ctx context.Context, id string) (*Metadata, error)
	ListBooks(ctx context.Context) (map[string]Metadata, error)

	AddUnit(ctx context.Context, bookUID, metadataID, tagUID, securityPass string) error
	DeleteUnit(ctx context.Context, bookUID string) error
	GetUnit(ctx context.Context, bookUID string) (*Unit, error)
	ListUnits(ctx context.Context) (map[string]Unit, error)
}
