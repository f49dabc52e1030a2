// internal/circulation/handler.go
package circulation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"shelftrack/internal/catalog"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the loan lifecycle endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/checkout", h.handleCheckout)
	r.Post("/{uid}/return", h.handleReturn)
	r.Get("/active", h.handleListActive)
	r.Get("/borrowers/{tag}", h.handleBorrowerHistory)
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookUID     string `json:"book_uid"`
		BorrowerTag string `json:"borrower_tag"`
		Location    string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loan, err := h.service.Checkout(r.Context(), req.BookUID, req.BorrowerTag, req.Location)
	if err != nil {
		writeCirculationError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(loan)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.Return(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeCirculationError(w, err)
		return
	}
	json.NewEncoder(w).Encode(loan)
}

func (h *Handler) handleListActive(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.ListActive(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(loans)
}

func (h *Handler) handleBorrowerHistory(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.BorrowerHistory(r.Context(), chi.URLParam(r, "tag"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(loans)
}

func writeCirculationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrUnitNotFound), errors.Is(err, ErrNoOpenLoan), errors.Is(err, ErrUnknownBorrower):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrUnitUnavailable):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrUnknownLocation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrClockUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
