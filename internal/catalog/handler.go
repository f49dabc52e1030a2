// internal/catalog/handler.go
package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// BookRoutes mounts the title metadata endpoints.
func (h *Handler) BookRoutes(r chi.Router) {
	r.Get("/", h.handleListBooks)
	r.Post("/", h.handleAddBook)
	r.Get("/{id}", h.handleGetBook)
	r.Put("/{id}", h.handleUpdateBook)
	r.Delete("/{id}", h.handleDeleteBook)
}

// UnitRoutes mounts the physical copy endpoints.
func (h *Handler) UnitRoutes(r chi.Router) {
	r.Get("/", h.handleListUnits)
	r.Post("/", h.handleAddUnit)
	r.Get("/{uid}", h.handleGetUnit)
	r.Delete("/{uid}", h.handleDeleteUnit)
}

func (h *Handler) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(books)
}

func (h *Handler) handleAddBook(w http.ResponseWriter, r *http.Request) {
	var meta Metadata
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := h.service.AddBook(r.Context(), meta)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": id})
}

func (h *Handler) handleGetBook(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	json.NewEncoder(w).Encode(meta)
}

func (h *Handler) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	var meta Metadata
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.service.UpdateBook(r.Context(), chi.URLParam(r, "id"), meta); err != nil {
		writeCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteBook(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.service.ListUnits(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(units)
}

func (h *Handler) handleAddUnit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookUID      string `json:"book_uid"`
		MetadataID   string `json:"metadata_id"`
		TagUID       string `json:"tag_uid"`
		SecurityPass string `json:"security_pass"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.service.AddUnit(r.Context(), req.BookUID, req.MetadataID, req.TagUID, req.SecurityPass)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) handleGetUnit(w http.ResponseWriter, r *http.Request) {
	unit, err := h.service.GetUnit(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	json.NewEncoder(w).Encode(unit)
}

func (h *Handler) handleDeleteUnit(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUnit(r.Context(), chi.URLParam(r, "uid")); err != nil {
		writeCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBookNotFound), errors.Is(err, ErrUnitNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrDuplicateUnit), errors.Is(err, ErrDuplicateTag), errors.Is(err, ErrUnitNotOnShelf):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrMissingField):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
