package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/claim"
)

// VerifyRequest represents the claim verification request body.
type VerifyRequest struct {
	TweetURL string `json:"tweet_url"`
	Address  string `json:"address"`
}

// VerifyResponse represents a successful claim.
type VerifyResponse struct {
	Success bool `json:"success"`
	claim.ClaimResult
	Message string `json:"message"`
}

// GetClaim returns the state of a claim by token.
func (h *Handler) GetClaim(w http.ResponseWriter, r *http.Request) {
	view, err := h.registry.GetClaimStatus(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.ClaimError(w, r, err, "db error")
		return
	}
	h.JSON(w, http.StatusOK, view)
}

// VerifyClaim checks the submitted post and completes the claim.
func (h *Handler) VerifyClaim(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.verifier.Verify(r.Context(), chi.URLParam(r, "token"), req.TweetURL, req.Address)
	if err != nil {
		h.ClaimError(w, r, err, "claim failed")
		return
	}

	h.JSON(w, http.StatusOK, VerifyResponse{
		Success:     true,
		ClaimResult: *result,
		Message:     fmt.Sprintf("Welcome to Agent Ponzi, %s!", result.Name),
	})
}
