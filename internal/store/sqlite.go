package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/agents.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/agents.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// One writer at a time; concurrent claims queue on the connection
	// and the conditional update decides the winner.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		address TEXT,
		claim_token TEXT NOT NULL UNIQUE,
		verification_code TEXT NOT NULL,
		claim_status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		CHECK (claim_status <> 'claimed' OR address IS NOT NULL)
	);

	CREATE INDEX IF NOT EXISTS idx_agents_address ON agents(address);
	CREATE INDEX IF NOT EXISTS idx_agents_claim_status ON agents(claim_status);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateAgent inserts a new pending agent.
func (s *SQLiteStore) CreateAgent(ctx context.Context, agent *models.Agent) error {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agents (id, name, claim_token, verification_code, claim_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, agent.ID.String(), agent.Name, agent.ClaimToken, agent.VerificationCode, string(agent.Status), now)
	if err != nil {
		if isUniqueViolation(err, "agents.name") {
			return ErrNameTaken
		}
		return err
	}

	agent.CreatedAt = now
	return nil
}

func isUniqueViolation(err error, column string) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique && strings.Contains(sqliteErr.Error(), column)
}

// GetAgentByClaimToken retrieves an agent by claim token.
func (s *SQLiteStore) GetAgentByClaimToken(ctx context.Context, claimToken string) (*models.Agent, error) {
	return s.getAgent(ctx, `SELECT `+agentColumns+` FROM agents WHERE claim_token = ?`, claimToken)
}

// GetAgentByName retrieves an agent by its sanitized name.
func (s *SQLiteStore) GetAgentByName(ctx context.Context, name string) (*models.Agent, error) {
	return s.getAgent(ctx, `SELECT `+agentColumns+` FROM agents WHERE name = ?`, name)
}

// GetClaimedAgentByAddress retrieves the claimed agent bound to a canonical address.
func (s *SQLiteStore) GetClaimedAgentByAddress(ctx context.Context, address string) (*models.Agent, error) {
	return s.getAgent(ctx, `
		SELECT `+agentColumns+` FROM agents
		WHERE address = ? AND claim_status = 'claimed'
		ORDER BY created_at
		LIMIT 1
	`, address)
}

func (s *SQLiteStore) getAgent(ctx context.Context, query string, arg any) (*models.Agent, error) {
	agent, err := scanAgent(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return agent, nil
}

// ClaimAgent performs the pending -> claimed compare-and-set.
func (s *SQLiteStore) ClaimAgent(ctx context.Context, claimToken, address string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE agents
		SET claim_status = 'claimed', address = ?
		WHERE claim_token = ? AND claim_status = 'pending'
	`, address, claimToken)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListClaimedAgents returns every claimed agent ordered by registration time.
func (s *SQLiteStore) ListClaimedAgents(ctx context.Context) ([]models.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `
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
func (s *SQLiteStore) CountAgentsByStatus(ctx context.Context) (*models.StatusCounts, error) {
	counts := &models.StatusCounts{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN claim_status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN claim_status = 'claimed' THEN 1 ELSE 0 END), 0)
		FROM agents
	`).Scan(&counts.Total, &counts.Pending, &counts.Claimed)
	if err != nil {
		return nil, err
	}
	return counts, nil
}
