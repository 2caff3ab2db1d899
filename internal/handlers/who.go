package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListAgents returns the address -> name map of claimed agents.
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	dir, err := h.directory.ListClaimed(r.Context())
	if err != nil {
		h.ClaimError(w, r, err, "db error")
		return
	}
	h.JSON(w, http.StatusOK, dir)
}

// Who handles agent lookup by address.
func (h *Handler) Who(w http.ResponseWriter, r *http.Request) {
	record, err := h.directory.GetByAddress(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.ClaimError(w, r, err, "db error")
		return
	}
	h.JSON(w, http.StatusOK, record)
}
