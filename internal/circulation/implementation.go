// internal/circulation/implementation.go
package circulation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"shelftrack/internal/catalog"
	"shelftrack/internal/clock"
	"shelftrack/internal/reconcile"
	"shelftrack/internal/store"
)

var (
	ErrUnitUnavailable  = errors.New("circulation: unit is not available")
	ErrUnknownBorrower  = errors.New("circulation: borrower not found")
	ErrUnknownLocation  = errors.New("circulation: location must be Inside or Outside")
	ErrNoOpenLoan       = errors.New("circulation: no open loan for this unit")
	ErrClockUnavailable = errors.New("circulation: shared clock unavailable")
)

// service implements the Service interface. Timestamps come from the shared
// clock, never local wall time, so every node stamps loans against the same
// instant the reconciler will later compare them to.
type service struct {
	store  store.Store
	clock  *clock.Source
	policy reconcile.Policy
}

// NewService creates a new circulation service.
func NewService(st store.Store, clk *clock.Source, policy reconcile.Policy) Service {
	return &service{store: st, clock: clk, policy: policy}
}

// Checkout opens a borrow-history row and takes the unit off the shelf, in
// one batched write.
func (s *service) Checkout(ctx context.Context, bookUID, borrowerTag, location string) (*Loan, error) {
	if location != reconcile.LocationInside && location != reconcile.LocationOutside {
		return nil, ErrUnknownLocation
	}
	now, err := s.clock.Read(ctx)
	if errors.Is(err, clock.ErrAbsent) {
		return nil, ErrClockUnavailable
	}
	if err != nil {
		return nil, err
	}

	unitSnap, err := s.store.Get(ctx, catalog.UnitPath+"/"+bookUID)
	if err != nil {
		return nil, fmt.Errorf("read unit %s: %w", bookUID, err)
	}
	if !unitSnap.Exists() {
		return nil, catalog.ErrUnitNotFound
	}
	if unitSnap.Child("status").Text() != catalog.UnitAvailable {
		return nil, ErrUnitUnavailable
	}

	borrowerSnap, err := s.store.Get(ctx, "borrower/"+borrowerTag)
	if err != nil {
		return nil, fmt.Errorf("read borrower %s: %w", borrowerTag, err)
	}
	if !borrowerSnap.Exists() {
		return nil, ErrUnknownBorrower
	}

	rows, err := s.bookRows(ctx, bookUID)
	if err != nil {
		return nil, err
	}
	next := 1
	for _, loan := range rows {
		if n, ok := historyNumber(loan.HistoryID); ok && n >= next {
			next = n + 1
		}
	}

	loan := &Loan{
		BookUID:   bookUID,
		HistoryID: fmt.Sprintf("history_%d", next),
		Record: reconcile.Record{
			BorrowerID: borrowerTag,
			BorrowDate: now.Format(time.RFC3339),
			ReturnDate: "",
			Location:   location,
			Status:     reconcile.StatusBorrowed,
		},
	}

	err = s.store.Update(ctx, map[string]any{
		historyRowPath(bookUID, loan.HistoryID):                 loan.Record,
		catalog.UnitPath + "/" + bookUID + "/status":            catalog.UnitNotAvailable,
		catalog.HistoryPath + "/" + bookUID + "/latest_history": next,
	})
	if err != nil {
		return nil, fmt.Errorf("write checkout %s/%s: %w", bookUID, loan.HistoryID, err)
	}
	return loan, nil
}

// Return closes the unit's open loan. The settled status comes from the same
// derivation the reconciler uses, so a return never fights the next cycle.
func (s *service) Return(ctx context.Context, bookUID string) (*Loan, error) {
	now, err := s.clock.Read(ctx)
	if errors.Is(err, clock.ErrAbsent) {
		return nil, ErrClockUnavailable
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.bookRows(ctx, bookUID)
	if err != nil {
		return nil, err
	}
	var open *Loan
	for i := range rows {
		if rows[i].Open() {
			open = &rows[i]
			break
		}
	}
	if open == nil {
		return nil, ErrNoOpenLoan
	}

	open.ReturnDate = now.Format(time.RFC3339)
	status, ok := s.policy.Derive(open.Record, now)
	if !ok {
		// Unparseable borrow date on a live row; settle it as returned
		// rather than leaving the unit stuck off-shelf.
		status = reconcile.StatusReturned
	}
	open.Status = status

	err = s.store.Update(ctx, map[string]any{
		historyRowPath(bookUID, open.HistoryID) + "/return_date": open.ReturnDate,
		historyRowPath(bookUID, open.HistoryID) + "/status":      open.Status,
		catalog.UnitPath + "/" + bookUID + "/status":             catalog.UnitAvailable,
	})
	if err != nil {
		return nil, fmt.Errorf("write return %s/%s: %w", bookUID, open.HistoryID, err)
	}
	return open, nil
}

// ListActive returns every open loan, ordered by book and row number.
func (s *service) ListActive(ctx context.Context) ([]Loan, error) {
	all, err := s.allRows(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]Loan, 0, len(all))
	for _, loan := range all {
		if loan.Open() {
			active = append(active, loan)
		}
	}
	return active, nil
}

// BorrowerHistory returns every loan, open or settled, for one borrower.
func (s *service) BorrowerHistory(ctx context.Context, borrowerTag string) ([]Loan, error) {
	all, err := s.allRows(ctx)
	if err != nil {
		return nil, err
	}
	history := make([]Loan, 0)
	for _, loan := range all {
		if loan.BorrowerID == borrowerTag {
			history = append(history, loan)
		}
	}
	return history, nil
}

func (s *service) bookRows(ctx context.Context, bookUID string) ([]Loan, error) {
	snap, err := s.store.Get(ctx, catalog.HistoryPath+"/"+bookUID)
	if err != nil {
		return nil, fmt.Errorf("read history %s: %w", bookUID, err)
	}
	return decodeRows(bookUID, snap), nil
}

func (s *service) allRows(ctx context.Context) ([]Loan, error) {
	snap, err := s.store.Get(ctx, catalog.HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("read borrow history: %w", err)
	}
	var all []Loan
	for bookUID, bookSnap := range snap.Children() {
		all = append(all, decodeRows(bookUID, bookSnap)...)
	}
	sortLoans(all)
	return all, nil
}

func decodeRows(bookUID string, bookSnap store.Snapshot) []Loan {
	var rows []Loan
	for historyID, rowSnap := range bookSnap.Children() {
		if !strings.HasPrefix(historyID, "history_") {
			continue
		}
		var rec reconcile.Record
		if err := rowSnap.Decode(&rec); err != nil {
			continue
		}
		rows = append(rows, Loan{BookUID: bookUID, HistoryID: historyID, Record: rec})
	}
	sortLoans(rows)
	return rows
}

func sortLoans(loans []Loan) {
	sort.Slice(loans, func(i, j int) bool {
		if loans[i].BookUID != loans[j].BookUID {
			return loans[i].BookUID < loans[j].BookUID
		}
		ni, _ := historyNumber(loans[i].HistoryID)
		nj, _ := historyNumber(loans[j].HistoryID)
		return ni < nj
	})
}

func historyNumber(historyID string) (int, bool) {
	raw, found := strings.CutPrefix(historyID, "history_")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func historyRowPath(bookUID, historyID string) string {
	return catalog.HistoryPath + "/" + bookUID + "/" + historyID
}
