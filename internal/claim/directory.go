package claim

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/models"
	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/store"
)

// AgentRecord is the public projection of a claimed agent.
type AgentRecord struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// Directory answers read-only queries over claimed agents.
type Directory struct {
	store  store.DataStore
	cache  DirectoryCache
	logger zerolog.Logger
}

// NewDirectory creates a Directory. cache may be nil.
func NewDirectory(s store.DataStore, cache DirectoryCache, logger zerolog.Logger) *Directory {
	return &Directory{
		store:  s,
		cache:  cache,
		logger: logger.With().Str("component", "directory").Logger(),
	}
}

// ListClaimed returns address -> name for every claimed agent.
func (d *Directory) ListClaimed(ctx context.Context) (map[string]string, error) {
	var (
		version  int64
		canCache bool
	)
	if d.cache != nil {
		dir, err := d.cache.GetDirectory(ctx)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, store.ErrCacheMiss) {
			d.logger.Warn().Err(err).Msg("directory cache read failed")
		} else if version, err = d.cache.DirectoryVersion(ctx); err != nil {
			d.logger.Warn().Err(err).Msg("directory cache version read failed")
		} else {
			canCache = true
		}
	}

	agents, err := d.store.ListClaimedAgents(ctx)
	if err != nil {
		return nil, storeError(err)
	}

	dir := make(map[string]string, len(agents))
	for _, a := range agents {
		if a.Address != nil {
			dir[*a.Address] = a.Name
		}
	}

	if canCache {
		stored, err := d.cache.SetDirectory(ctx, dir, version)
		if err != nil {
			d.logger.Warn().Err(err).Msg("directory cache write failed")
		} else if !stored {
			d.logger.Debug().Int64("version", version).Msg("directory changed during load, not cached")
		}
	}
	return dir, nil
}

// GetByAddress returns the claimed agent bound to address. The address is
// lowercased first, so any casing of the same address resolves identically.
func (d *Directory) GetByAddress(ctx context.Context, address string) (*AgentRecord, error) {
	canonical := strings.ToLower(strings.TrimSpace(address))
	if canonical == "" {
		return nil, newError(NotFound, "not found")
	}

	agent, err := d.store.GetClaimedAgentByAddress(ctx, canonical)
	if err != nil {
		return nil, storeError(err)
	}
	if agent == nil {
		return nil, newError(NotFound, "not found")
	}
	return &AgentRecord{Address: canonical, Name: agent.Name}, nil
}

// Stats returns agent totals by claim status.
func (d *Directory) Stats(ctx context.Context) (*models.StatusCounts, error) {
	counts, err := d.store.CountAgentsByStatus(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return counts, nil
}
