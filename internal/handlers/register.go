package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/claim"
)

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Name string `json:"name"`
}

// RegisterResponse represents the registration response.
type RegisterResponse struct {
	Success bool `json:"success"`
	claim.ClaimArtifact
}

// Register handles agent name registration.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	artifact, err := h.registry.Register(r.Context(), req.Name)
	if err != nil {
		h.ClaimError(w, r, err, "registration failed")
		return
	}

	h.JSON(w, http.StatusOK, RegisterResponse{
		Success:       true,
		ClaimArtifact: *artifact,
	})
}
