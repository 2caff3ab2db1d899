package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/claim"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	SQLitePath  string
	RedisURL    string

	FrontendURL string

	// Attestation fetching
	AttestationBaseURL string
	FetchTimeout       time.Duration
	ProofPolicy        claim.ProofPolicy

	DirectoryCacheTTL time.Duration
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "3001"),
		Env:                getEnv("ENV", "development"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SQLitePath:         getEnv("SQLITE_PATH", "./data/agents.db"),
		RedisURL:           os.Getenv("REDIS_URL"),
		FrontendURL:        getEnv("FRONTEND_URL", "https://agentponzi.xyz"),
		AttestationBaseURL: getEnv("ATTESTATION_BASE_URL", "https://cdn.syndication.twimg.com"),
	}

	var err error
	if cfg.FetchTimeout, err = getDuration("FETCH_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.DirectoryCacheTTL, err = getDuration("DIRECTORY_CACHE_TTL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.ProofPolicy, err = claim.ParseProofPolicy(os.Getenv("PROOF_POLICY")); err != nil {
		return nil, fmt.Errorf("PROOF_POLICY: %w", err)
	}

	// In production, require a real database
	if cfg.IsProduction() && cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required in production")
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", key, value)
	}
	return d, nil
}
