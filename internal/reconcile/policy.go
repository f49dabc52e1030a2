// internal/reconcile/policy.go
package reconcile

import (
	"fmt"
	"strings"
	"time"
)

// Borrow statuses. Status is the only field the reconciler ever rewrites.
const (
	StatusBorrowed = "Borrowed"
	StatusOverdue  = "Overdue"
	StatusReturned = "Returned"
	StatusLate     = "Late"
)

// Borrow locations. Inside loans are due the same day, outside loans get the
// multi-day allowance.
const (
	LocationInside  = "Inside"
	LocationOutside = "Outside"
)

// Record is the wire shape of one borrow-history row at
// borrow_history/{book_uid}/{history_N}.
type Record struct {
	BorrowerID string `json:"borrower_id"`
	BorrowDate string `json:"borrow_date"`
	ReturnDate string `json:"return_date"`
	Location   string `json:"location"`
	Status     string `json:"status"`
}

// Policy holds the library's lending rules. Due dates are computed in
// TimeZone; the shared clock itself is always UTC, and this is the single
// place any local-time offset is applied.
type Policy struct {
	ClosingHour  int
	LoanDays     int
	FreezeWindow time.Duration
	TimeZone     *time.Location
}

// DefaultPolicy: closing at 18:00, 7-day outside loans, 30-day freeze, UTC.
func DefaultPolicy() Policy {
	return Policy{
		ClosingHour:  18,
		LoanDays:     7,
		FreezeWindow: 30 * 24 * time.Hour,
		TimeZone:     time.UTC,
	}
}

// DueDate computes when a loan must be back: closing hour on the borrow day
// for inside loans, closing hour LoanDays later for everything else.
func (p Policy) DueDate(borrowed time.Time, location string) time.Time {
	local := borrowed.In(p.TimeZone)
	due := time.Date(local.Year(), local.Month(), local.Day(), p.ClosingHour, 0, 0, 0, p.TimeZone)
	if !strings.EqualFold(location, LocationInside) {
		due = due.AddDate(0, 0, p.LoanDays)
	}
	return due
}

// Derive returns the status a record should carry at instant now. ok is false
// when the record must be left alone: unparseable dates, or an archived
// Returned/Late row whose return date is still inside the freeze window. The
// freeze is what keeps concurrent writers from flapping a settled record.
func (p Policy) Derive(rec Record, now time.Time) (status string, ok bool) {
	borrowed, err := parseInstant(rec.BorrowDate)
	if err != nil {
		return "", false
	}

	var returned time.Time
	hasReturn := strings.TrimSpace(rec.ReturnDate) != ""
	if hasReturn {
		returned, err = parseInstant(rec.ReturnDate)
		if err != nil {
			return "", false
		}
	}

	if hasReturn && (rec.Status == StatusReturned || rec.Status == StatusLate) {
		cutoff := now.Add(-p.FreezeWindow)
		if !returned.Before(cutoff) {
			return "", false
		}
	}

	due := p.DueDate(borrowed, rec.Location)
	if !hasReturn {
		if now.After(due) {
			return StatusOverdue, true
		}
		return StatusBorrowed, true
	}
	if returned.After(due) {
		return StatusLate, true
	}
	return StatusReturned, true
}

// Reconcile derives the correct status for every record and emits a sparse
// path→status map holding only the rows whose stored status differs. Applying
// the result and reconciling again at the same instant yields an empty map.
func Reconcile(history map[string]map[string]Record, now time.Time, p Policy) map[string]any {
	updates := make(map[string]any)
	for bookID, rows := range history {
		for historyID, rec := range rows {
			status, ok := p.Derive(rec, now)
			if !ok || status == rec.Status {
				continue
			}
			updates[fmt.Sprintf("borrow_history/%s/%s/status", bookID, historyID)] = status
		}
	}
	return updates
}

func parseInstant(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(value))
}
