package store

import (
	"context"
	"errors"

	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/models"
)

// ErrNameTaken is returned by CreateAgent when the name unique constraint rejects the insert.
var ErrNameTaken = errors.New("agent name already taken")

// DataStore defines the interface for persistent storage of agent identities.
// Both PostgresStore and SQLiteStore implement this interface.
//
// Lookups return (nil, nil) when no row matches.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// CreateAgent inserts a pending agent. Name uniqueness is enforced by
	// the database and surfaces as ErrNameTaken.
	CreateAgent(ctx context.Context, agent *models.Agent) error
	GetAgentByClaimToken(ctx context.Context, claimToken string) (*models.Agent, error)
	GetAgentByName(ctx context.Context, name string) (*models.Agent, error)
	GetClaimedAgentByAddress(ctx context.Context, address string) (*models.Agent, error)

	// ClaimAgent moves a pending agent to claimed and records its address.
	// It reports false when no pending agent holds the token, which is how
	// a lost race between two claims shows up.
	ClaimAgent(ctx context.Context, claimToken, address string) (bool, error)

	// Directory
	ListClaimedAgents(ctx context.Context) ([]models.Agent, error)
	CountAgentsByStatus(ctx context.Context) (*models.StatusCounts, error)
}
