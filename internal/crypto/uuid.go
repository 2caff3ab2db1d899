package crypto

import (
	"github.com/google/uuid"
)

// NewAgentID generates a time-ordered UUID v7 used as the agent surrogate key.
func NewAgentID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
