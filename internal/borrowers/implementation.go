// internal/borrowers/implementation.go
package borrowers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"shelftrack/internal/catalog"
	"shelftrack/internal/store"
)

const BasePath = "borrower"

var (
	ErrNotFound       = errors.New("borrowers: borrower not found")
	ErrDuplicateTag   = errors.New("borrowers: card already registered")
	ErrDuplicateEmail = errors.New("borrowers: email already registered")
	ErrMissingField   = errors.New("borrowers: tag_uid, fname, lname and email are required")
	ErrOpenLoan       = errors.New("borrowers: borrower still has an open loan")
)

type service struct {
	store store.Store
}

// NewService creates a new borrower registry.
func NewService(st store.Store) Service {
	return &service{store: st}
}

func (s *service) Register(ctx context.Context, b Borrower) error {
	if b.TagUID == "" || b.FirstName == "" || b.LastName == "" || b.Email == "" {
		return ErrMissingField
	}

	existing, err := s.store.Get(ctx, BasePath+"/"+b.TagUID)
	if err != nil {
		return fmt.Errorf("read borrower %s: %w", b.TagUID, err)
	}
	if existing.Exists() {
		return ErrDuplicateTag
	}
	if err := s.checkEmailFree(ctx, b.Email, b.TagUID); err != nil {
		return err
	}

	if err := s.store.Set(ctx, BasePath+"/"+b.TagUID, b); err != nil {
		return fmt.Errorf("write borrower %s: %w", b.TagUID, err)
	}
	return nil
}

func (s *service) Update(ctx context.Context, tagUID string, b Borrower) error {
	existing, err := s.store.Get(ctx, BasePath+"/"+tagUID)
	if err != nil {
		return fmt.Errorf("read borrower %s: %w", tagUID, err)
	}
	if !existing.Exists() {
		return ErrNotFound
	}
	if b.FirstName == "" || b.LastName == "" || b.Email == "" {
		return ErrMissingField
	}
	if err := s.checkEmailFree(ctx, b.Email, tagUID); err != nil {
		return err
	}

	b.TagUID = tagUID
	if err := s.store.Set(ctx, BasePath+"/"+tagUID, b); err != nil {
		return fmt.Errorf("write borrower %s: %w", tagUID, err)
	}
	return nil
}

// Delete removes a borrower. A patron with a book still out cannot be
// deleted, or the open row would point at nobody.
func (s *service) Delete(ctx context.Context, tagUID string) error {
	existing, err := s.store.Get(ctx, BasePath+"/"+tagUID)
	if err != nil {
		return fmt.Errorf("read borrower %s: %w", tagUID, err)
	}
	if !existing.Exists() {
		return ErrNotFound
	}

	open, err := s.hasOpenLoan(ctx, tagUID)
	if err != nil {
		return err
	}
	if open {
		return ErrOpenLoan
	}

	if err := s.store.Delete(ctx, BasePath+"/"+tagUID); err != nil {
		return fmt.Errorf("delete borrower %s: %w", tagUID, err)
	}
	return nil
}

func (s *service) Get(ctx context.Context, tagUID string) (*Borrower, error) {
	snap, err := s.store.Get(ctx, BasePath+"/"+tagUID)
	if err != nil {
		return nil, fmt.Errorf("read borrower %s: %w", tagUID, err)
	}
	if !snap.Exists() {
		return nil, ErrNotFound
	}
	var b Borrower
	if err := snap.Decode(&b); err != nil {
		return nil, fmt.Errorf("decode borrower %s: %w", tagUID, err)
	}
	b.TagUID = tagUID
	return &b, nil
}

func (s *service) List(ctx context.Context) ([]Borrower, error) {
	snap, err := s.store.Get(ctx, BasePath)
	if err != nil {
		return nil, fmt.Errorf("read borrowers: %w", err)
	}
	all := make([]Borrower, 0)
	for tagUID, child := range snap.Children() {
		var b Borrower
		if err := child.Decode(&b); err != nil {
			continue
		}
		b.TagUID = tagUID
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].TagUID < all[j].TagUID })
	return all, nil
}

func (s *service) checkEmailFree(ctx context.Context, email, selfTag string) error {
	snap, err := s.store.Get(ctx, BasePath)
	if err != nil {
		return fmt.Errorf("read borrowers: %w", err)
	}
	for tagUID, child := range snap.Children() {
		if tagUID == selfTag {
			continue
		}
		if strings.EqualFold(child.Child("email").Text(), email) {
			return ErrDuplicateEmail
		}
	}
	return nil
}

func (s *service) hasOpenLoan(ctx context.Context, tagUID string) (bool, error) {
	snap, err := s.store.Get(ctx, catalog.HistoryPath)
	if err != nil {
		return false, fmt.Errorf("read borrow history: %w", err)
	}
	for _, bookSnap := range snap.Children() {
		for historyID, rowSnap := range bookSnap.Children() {
			if !strings.HasPrefix(historyID, "history_") {
				continue
			}
			if rowSnap.Child("borrower_id").Text() != tagUID {
				continue
			}
			if strings.TrimSpace(rowSnap.Child("return_date").Text()) == "" {
				return true, nil
			}
		}
	}
	return false, nil
}
