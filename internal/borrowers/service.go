// internal/borrowers/service.go
package borrowers

import (
	"context"
)

// Service defines the interface for patron registration.
type Service interface {
	Register(ctx context.Context, b Borrower) error
	Update(ctx context.Context, tagUID string, b Borrower) error
	Delete(ctx context.Context, tagUID string) error
	Get(ctx context.Context, tagUID string) (*Borrower, error)
	List(ctx context.Context) ([]Borrower, error)
}
