// internal/circulation/domain.go
package circulation

import (
	"shelftrack/internal/reconcile"
)

// Loan is one borrow-history row together with the ids that address it in
// the tree.
type Loan struct {
	BookUID   string `json:"book_uid"`
	HistoryID string `json:"history_id"`
	reconcile.Record
}

// Open reports whether the loan has not been returned yet.
func (l Loan) Open() bool {
	return l.ReturnDate == ""
}
