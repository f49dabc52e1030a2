// internal/circulation/service.go
package circulation

import (
	"context"
)

// Service defines the interface for the borrow-history lifecycle.
type Service interface {
	Checkout(ctx context.Context, bookUID, borrowerTag, location string) (*Loan, error)
	Return(ctx context.Context, bookUID string) (*Loan, error)
	ListActive(ctx context.Context) ([]Loan, error)
	BorrowerHistory(ctx context.Context, borrowerTag string) ([]Loan, error)
}
