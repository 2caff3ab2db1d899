package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/metrics"
	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/models"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS agents (
	id UUID PRIMARY KEY,
	name VARCHAR(50) NOT NULL,
	address VARCHAR(42),
	claim_token VARCHAR(64) NOT NULL,
	verification_code VARCHAR(20) NOT NULL,
	claim_status VARCHAR(20) NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT agents_name_key UNIQUE (name),
	CONSTRAINT agents_claim_token_key UNIQUE (claim_token),
	CONSTRAINT agents_claimed_has_address CHECK (claim_status <> 'claimed' OR address IS NOT NULL)
);

CREATE INDEX IF NOT EXISTS idx_agents_address ON agents(address);
CREATE INDEX IF NOT EXISTS idx_agents_claim_status ON agents(claim_status);
`

const agentColumns = `id, name, address, claim_token, verification_code, claim_status, created_at`

// RunMigrations creates the agents table and its indexes if they do not exist.
func RunMigrations(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, postgresSchema)
	return err
}

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func observePostgres(start time.Time) {
	metrics.PostgresLatency.Observe(time.Since(start).Seconds())
}

// CreateAgent inserts a new pending agent.
func (s *PostgresStore) CreateAgent(ctx context.Context, agent *models.Agent) error {
	defer observePostgres(time.Now())

	err := s.pool.QueryRow(ctx, `
		INSERT INTO agents (id, name, claim_token, verification_code, claim_status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, agent.ID, agent.Name, agent.ClaimToken, agent.VerificationCode, string(agent.Status)).Scan(&agent.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "agents_name_key" {
			return ErrNameTaken
		}
		return err
	}
	return nil
}

// GetAgentByClaimToken retrieves an agent by claim token.
func (s *PostgresStore) GetAgentByClaimToken(ctx context.Context, claimToken string) (*models.Agent, error) {
	return s.getAgent(ctx, `SELECT `+agentColumns+` FROM agents WHERE claim_token = $1`, claimToken)
}

// GetAgentByName retrieves an agent by its sanitized name.
func (s *PostgresStore) GetAgentByName(ctx context.Context, name string) (*models.Agent, error) {
	return s.getAgent(ctx, `SELECT `+agentColumns+` FROM agents WHERE name = $1`, name)
}

// GetClaimedAgentByAddress retrieves the claimed agent bound to a canonical address.
func (s *PostgresStore) GetClaimedAgentByAddress(ctx context.Context, address string) (*models.Agent, error) {
	return s.getAgent(ctx, `
		SELECT `+agentColumns+` FROM agents
		WHERE address = $1 AND claim_status = 'claimed'
		ORDER BY created_at
		LIMIT 1
	`, address)
}

func (s *PostgresStore) getAgent(ctx context.Context, query string, arg any) (*models.Agent, error) {
	defer observePostgres(time.Now())

	agent, err := scanAgent(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return agent, nil
}

// ClaimAgent performs the pending -> claimed compare-and-set.
func (s *PostgresStore) ClaimAgent(ctx context.Context, claimToken, address string) (bool, error) {
	defer observePostgres(time.Now())

	tag, err := s.pool.Exec(ctx, `
		UPDATE agents
		SET claim_status = 'claimed', address = $1
		WHERE claim_token = $2 AND claim_status = 'pending'
	`, address, claimToken)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListClaimedAgents returns every claimed agent ordered by registration time.
func (s *PostgresStore) ListClaimedAgents(ctx context.Context) ([]models.Agent, error) {
	defer observePostgres(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT `+agentColumns+` FROM agents
		WHERE claim_status = 'claimed' AND address IS NOT NULL
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []models.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *agent)
	}
	return agents, rows.Err()
}

// CountAgentsByStatus returns agent totals grouped by claim status.
func (s *PostgresStore) CountAgentsByStatus(ctx context.Context) (*models.StatusCounts, error) {
	defer observePostgres(time.Now())

	counts := &models.StatusCounts{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE claim_status = 'pending'),
			COUNT(*) FILTER (WHERE claim_status = 'claimed')
		FROM agents
	`).Scan(&counts.Total, &counts.Pending, &counts.Claimed)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// rowScanner is satisfied by pgx.Row, pgx.Rows and *sql.Row/*sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*models.Agent, error) {
	agent := &models.Agent{}
	var status string
	err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Address,
		&agent.ClaimToken,
		&agent.VerificationCode,
		&status,
		&agent.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	agent.Status = models.ClaimStatus(status)
	return agent, nil
}
