// internal/borrowers/handler.go
package borrowers

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

// Routes mounts the patron registry endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleRegister)
	r.Get("/{tag}", h.handleGet)
	r.Put("/{tag}", h.handleUpdate)
	r.Delete("/{tag}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(all)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TagUID string `json:"tag_uid"`
		Borrower
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b := req.Borrower
	b.TagUID = req.TagUID
	if err := h.service.Register(r.Context(), b); err != nil {
		writeBorrowerError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Get(r.Context(), chi.URLParam(r, "tag"))
	if err != nil {
		writeBorrowerError(w, err)
		return
	}
	json.NewEncoder(w).Encode(b)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var b Borrower
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.service.Update(r.Context(), chi.URLParam(r, "tag"), b); err != nil {
		writeBorrowerError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "tag")); err != nil {
		writeBorrowerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeBorrowerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrDuplicateTag), errors.Is(err, ErrDuplicateEmail), errors.Is(err, ErrOpenLoan):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrMissingField):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
