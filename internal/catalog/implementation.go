// internal/catalog/implementation.go
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"shelftrack/internal/store"
)

// Top-level keys owned by the catalog.
const (
	MetadataPath = "book_metadata"
	UnitPath     = "book_unit"
	TagIndexPath = "tag_index"
	HistoryPath  = "borrow_history"
)

var (
	ErrBookNotFound   = errors.New("catalog: book not found")
	ErrUnitNotFound   = errors.New("catalog: unit not found")
	ErrDuplicateUnit  = errors.New("catalog: book uid already exists")
	ErrDuplicateTag   = errors.New("catalog: tag uid already exists")
	ErrMissingField   = errors.New("catalog: required field missing")
	ErrUnitNotOnShelf = errors.New("catalog: unit is not Available")
)

// service implements the Service interface.
type service struct {
	store store.Store
}

// NewService creates a new catalog service over the shared store.
func NewService(st store.Store) Service {
	return &service{store: st}
}

// AddBook creates a metadata record and returns its id.
func (s *service) AddBook(ctx context.Context, meta Metadata) (string, error) {
	if meta.Title == "" || meta.Author == "" {
		return "", fmt.Errorf("%w: title and author", ErrMissingField)
	}
	id := "BOOK-" + uuid.NewString()
	if err := s.store.Set(ctx, MetadataPath+"/"+id, meta); err != nil {
		return "", fmt.Errorf("write metadata %s: %w", id, err)
	}
	return id, nil
}

// UpdateBook rewrites a metadata record and fans the security pass out to
// every unit of that title, so gate readers check one consistent value.
func (s *service) UpdateBook(ctx context.Context, id string, meta Metadata) error {
	if _, err := s.GetBook(ctx, id); err != nil {
		return err
	}

	updates := map[string]any{
		MetadataPath + "/" + id: meta,
	}
	units, err := s.ListUnits(ctx)
	if err != nil {
		return err
	}
	for bookUID, unit := range units {
		if unit.MetadataID == id && unit.SecurityPass != meta.SecurityPass {
			updates[UnitPath+"/"+bookUID+"/security_pass"] = meta.SecurityPass
		}
	}
	if err := s.store.Update(ctx, updates); err != nil {
		return fmt.Errorf("update metadata %s: %w", id, err)
	}
	return nil
}

// DeleteBook removes a title and cascades over its units, their borrow
// history and their tag index entries.
func (s *service) DeleteBook(ctx context.Context, id string) error {
	if _, err := s.GetBook(ctx, id); err != nil {
		return err
	}
	units, err := s.ListUnits(ctx)
	if err != nil {
		return err
	}

	updates := map[string]any{
		MetadataPath + "/" + id: nil,
	}
	for bookUID, unit := range units {
		if unit.MetadataID != id {
			continue
		}
		updates[UnitPath+"/"+bookUID] = nil
		updates[HistoryPath+"/"+bookUID] = nil
		if unit.TagUID != "" {
			updates[TagIndexPath+"/"+unit.TagUID] = nil
		}
	}
	if err := s.store.Update(ctx, updates); err != nil {
		return fmt.Errorf("delete book %s: %w", id, err)
	}
	return nil
}

func (s *service) GetBook(ctx context.Context, id string) (*Metadata, error) {
	snap, err := s.store.Get(ctx, MetadataPath+"/"+id)
	if err != nil {
		return nil, fmt.Errorf("read metadata %s: %w", id, err)
	}
	if !snap.Exists() {
		return nil, ErrBookNotFound
	}
	meta := &Metadata{}
	if err := snap.Decode(meta); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", id, err)
	}
	return meta, nil
}

func (s *service) ListBooks(ctx context.Context) (map[string]Metadata, error) {
	snap, err := s.store.Get(ctx, MetadataPath)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	out := make(map[string]Metadata)
	for id, child := range snap.Children() {
		var meta Metadata
		if err := child.Decode(&meta); err != nil {
			continue
		}
		out[id] = meta
	}
	return out, nil
}

// AddUnit registers a physical copy: the unit record, its tag index entry and
// an empty borrow-history stub, in one batch.
func (s *service) AddUnit(ctx context.Context, bookUID, metadataID, tagUID, securityPass string) error {
	if bookUID == "" || metadataID == "" || tagUID == "" {
		return fmt.Errorf("%w: book uid, metadata id and tag uid", ErrMissingField)
	}
	meta, err := s.GetBook(ctx, metadataID)
	if err != nil {
		return err
	}

	units, err := s.ListUnits(ctx)
	if err != nil {
		return err
	}
	if _, taken := units[bookUID]; taken {
		return ErrDuplicateUnit
	}
	for _, unit := range units {
		if unit.TagUID == tagUID {
			return ErrDuplicateTag
		}
	}

	unit := Unit{
		MetadataID:   metadataID,
		TagUID:       tagUID,
		Status:       UnitAvailable,
		Location:     LocationNotFound,
		LastSeen:     meta.PreferredLocation,
		SecurityPass: securityPass,
	}
	err = s.store.Update(ctx, map[string]any{
		UnitPath + "/" + bookUID:                      unit,
		TagIndexPath + "/" + tagUID:                   bookUID,
		HistoryPath + "/" + bookUID + "/latest_history": "",
	})
	if err != nil {
		return fmt.Errorf("write unit %s: %w", bookUID, err)
	}
	return nil
}

// DeleteUnit retires a copy. Only shelved (Available) units can go; the tag
// index entry and the unit's whole borrow history go with it.
func (s *service) DeleteUnit(ctx context.Context, bookUID string) error {
	unit, err := s.GetUnit(ctx, bookUID)
	if err != nil {
		return err
	}
	if unit.Status != UnitAvailable {
		return ErrUnitNotOnShelf
	}

	updates := map[string]any{
		UnitPath + "/" + bookUID:    nil,
		HistoryPath + "/" + bookUID: nil,
	}
	if unit.TagUID != "" {
		updates[TagIndexPath+"/"+unit.TagUID] = nil
	}
	if err := s.store.Update(ctx, updates); err != nil {
		return fmt.Errorf("delete unit %s: %w", bookUID, err)
	}
	return nil
}

func (s *service) GetUnit(ctx context.Context, bookUID string) (*Unit, error) {
	snap, err := s.store.Get(ctx, UnitPath+"/"+bookUID)
	if err != nil {
		return nil, fmt.Errorf("read unit %s: %w", bookUID, err)
	}
	if !snap.Exists() {
		return nil, ErrUnitNotFound
	}
	unit := &Unit{}
	if err := snap.Decode(unit); err != nil {
		return nil, fmt.Errorf("decode unit %s: %w", bookUID, err)
	}
	return unit, nil
}

func (s *service) ListUnits(ctx context.Context) (map[string]Unit, error) {
	snap, err := s.store.Get(ctx, UnitPath)
	if err != nil {
		return nil, fmt.Errorf("read units: %w", err)
	}
	out := make(map[string]Unit)
	for bookUID, child := range snap.Children() {
		var unit Unit
		if err := child.Decode(&unit); err != nil {
			continue
		}
		out[bookUID] = unit
	}
	return out, nil
}
