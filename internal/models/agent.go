package models

import (
	"time"

	"github.com/google/uuid"
)

// ClaimStatus is the lifecycle state of an agent identity.
type ClaimStatus string

const (
	StatusPending ClaimStatus = "pending"
	StatusClaimed ClaimStatus = "claimed"
)

// Agent represents a registered agent name and its claim state.
// Address is nil until the claim is verified.
type Agent struct {
	ID               uuid.UUID   `json:"id"`
	Name             string      `json:"name"`
	Address          *string     `json:"address,omitempty"`
	ClaimToken       string      `json:"-"`
	VerificationCode string      `json:"-"`
	Status           ClaimStatus `json:"status"`
	CreatedAt        time.Time   `json:"created_at"`
}

// IsClaimed reports whether the agent has completed its claim.
func (a *Agent) IsClaimed() bool {
	return a.Status == StatusClaimed
}

// StatusCounts holds agent totals grouped by claim status.
type StatusCounts struct {
	Total   int64 `json:"total"`
	Pending int64 `json:"pending"`
	Claimed int64 `json:"claimed"`
}
