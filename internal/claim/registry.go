// Package claim implements agent name registration and the social-proof
// claim workflow that binds a name to an address exactly once.
package claim

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/crypto"
	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/metrics"
	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/models"
	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/store"
)

const (
	registerInstructions = "Have your human post the text above, then paste the post URL at the claim link."
	pendingInstructions  = "Post the text above, then submit your post URL with your address."
	claimedMessage       = "This agent has already been claimed."
)

// ClaimArtifact is handed to the registering agent. ClaimToken is the only
// credential for completing the claim.
type ClaimArtifact struct {
	Name             string `json:"name"`
	ClaimToken       string `json:"claim_token"`
	ClaimURL         string `json:"claim_url"`
	VerificationCode string `json:"verification_code"`
	AttestationText  string `json:"tweet_text"`
	Instructions     string `json:"instructions"`
}

// ClaimView is the read-only state of a claim. Pending views carry the
// code and text to post; claimed views carry the bound address only.
type ClaimView struct {
	Status           models.ClaimStatus `json:"status"`
	Name             string             `json:"name"`
	Address          string             `json:"address,omitempty"`
	VerificationCode string             `json:"verification_code,omitempty"`
	AttestationText  string             `json:"tweet_text,omitempty"`
	Message          string             `json:"message,omitempty"`
}

// Registry creates agent identities and reports their claim state.
type Registry struct {
	store       store.DataStore
	frontendURL string
	logger      zerolog.Logger
}

// NewRegistry creates a Registry. frontendURL is embedded in claim links
// and in the text agents are asked to post.
func NewRegistry(s store.DataStore, frontendURL string, logger zerolog.Logger) *Registry {
	return &Registry{
		store:       s,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger.With().Str("component", "registry").Logger(),
	}
}

// AttestationText is the exact text an agent's human should publish.
func (r *Registry) AttestationText(name, code string) string {
	return fmt.Sprintf("Claiming my Agent Ponzi agent %s %s %s", name, code, r.frontendURL)
}

// Register reserves a sanitized name and issues its claim artifact.
func (r *Registry) Register(ctx context.Context, rawName string) (*ClaimArtifact, error) {
	name, err := validateName(rawName)
	if err != nil {
		return nil, err
	}

	token, err := crypto.NewClaimToken()
	if err != nil {
		return nil, fmt.Errorf("generating claim token: %w", err)
	}
	code, err := crypto.NewVerificationCode()
	if err != nil {
		return nil, fmt.Errorf("generating verification code: %w", err)
	}

	agent := &models.Agent{
		ID:               crypto.NewAgentID(),
		Name:             name,
		ClaimToken:       token,
		VerificationCode: code,
		Status:           models.StatusPending,
	}

	if err := r.store.CreateAgent(ctx, agent); err != nil {
		if errors.Is(err, store.ErrNameTaken) {
			return nil, newError(NameTaken, "name already taken")
		}
		return nil, storeError(err)
	}

	metrics.AgentsRegistered.Inc()
	r.logger.Info().
		Str("agent_id", agent.ID.String()).
		Str("name", name).
		Msg("agent registered")

	return &ClaimArtifact{
		Name:             name,
		ClaimToken:       token,
		ClaimURL:         fmt.Sprintf("%s/claim/%s", r.frontendURL, token),
		VerificationCode: code,
		AttestationText:  r.AttestationText(name, code),
		Instructions:     registerInstructions,
	}, nil
}

// GetClaimStatus looks up a claim by token. It never regenerates codes.
func (r *Registry) GetClaimStatus(ctx context.Context, claimToken string) (*ClaimView, error) {
	agent, err := r.lookup(ctx, claimToken)
	if err != nil {
		return nil, err
	}

	if agent.IsClaimed() {
		view := &ClaimView{
			Status:  models.StatusClaimed,
			Name:    agent.Name,
			Message: claimedMessage,
		}
		if agent.Address != nil {
			view.Address = *agent.Address
		}
		return view, nil
	}

	return &ClaimView{
		Status:           models.StatusPending,
		Name:             agent.Name,
		VerificationCode: agent.VerificationCode,
		AttestationText:  r.AttestationText(agent.Name, agent.VerificationCode),
		Message:          pendingInstructions,
	}, nil
}

func (r *Registry) lookup(ctx context.Context, claimToken string) (*models.Agent, error) {
	if claimToken == "" {
		return nil, newError(NotFound, "invalid claim token")
	}
	agent, err := r.store.GetAgentByClaimToken(ctx, claimToken)
	if err != nil {
		return nil, storeError(err)
	}
	if agent == nil {
		return nil, newError(NotFound, "invalid claim token")
	}
	return agent, nil
}
