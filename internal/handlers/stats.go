package handlers

import (
	"net/http"
)

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	TotalAgents   int64  `json:"total_agents"`
	PendingAgents int64  `json:"pending_agents"`
	ClaimedAgents int64  `json:"claimed_agents"`
	ProofPolicy   string `json:"proof_policy"`
}

// Stats returns registration totals by claim status.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.directory.Stats(r.Context())
	if err != nil {
		h.ClaimError(w, r, err, "failed to count agents")
		return
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		TotalAgents:   counts.Total,
		PendingAgents: counts.Pending,
		ClaimedAgents: counts.Claimed,
		ProofPolicy:   string(h.verifier.Policy()),
	})
}
