package claim

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/attestation"
	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/metrics"
	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/models"
	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/store"
)

// DirectoryCache caches the address -> name directory. *store.RedisStore implements it.
//
// SetDirectory must discard the write when InvalidateDirectory ran after
// the version passed to it was read.
type DirectoryCache interface {
	GetDirectory(ctx context.Context) (map[string]string, error)
	DirectoryVersion(ctx context.Context) (int64, error)
	SetDirectory(ctx context.Context, directory map[string]string, version int64) (bool, error)
	InvalidateDirectory(ctx context.Context) error
}

// ClaimResult is returned after a successful claim.
type ClaimResult struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Verifier checks social proofs and commits claims.
type Verifier struct {
	store   store.DataStore
	fetcher attestation.Fetcher
	policy  ProofPolicy
	cache   DirectoryCache
	logger  zerolog.Logger
}

// NewVerifier creates a Verifier. cache may be nil.
func NewVerifier(s store.DataStore, fetcher attestation.Fetcher, policy ProofPolicy, cache DirectoryCache, logger zerolog.Logger) *Verifier {
	if policy == "" {
		policy = PolicyCodeMatch
	}
	return &Verifier{
		store:   s,
		fetcher: fetcher,
		policy:  policy,
		cache:   cache,
		logger:  logger.With().Str("component", "verifier").Str("policy", string(policy)).Logger(),
	}
}

// Policy returns the proof policy in force.
func (v *Verifier) Policy() ProofPolicy {
	return v.policy
}

// Verify validates the post behind reference and, on success, binds address
// to the agent holding claimToken. Nothing is written unless every check
// passes, and the final write only succeeds while the agent is still pending.
func (v *Verifier) Verify(ctx context.Context, claimToken, reference, address string) (*ClaimResult, error) {
	result, err := v.verify(ctx, claimToken, reference, address)
	outcome := "success"
	if err != nil {
		outcome = KindOf(err).String()
	}
	metrics.ClaimsVerified.WithLabelValues(outcome).Inc()
	return result, err
}

func (v *Verifier) verify(ctx context.Context, claimToken, reference, address string) (*ClaimResult, error) {
	canonical, ok := CanonicalAddress(address)
	if !ok {
		return nil, newError(InvalidAddress, "valid address required")
	}

	if claimToken == "" {
		return nil, newError(NotFound, "invalid claim token")
	}
	agent, err := v.store.GetAgentByClaimToken(ctx, claimToken)
	if err != nil {
		return nil, storeError(err)
	}
	if agent == nil {
		return nil, newError(NotFound, "invalid claim token")
	}

	if agent.Status != models.StatusPending {
		return nil, newError(AlreadyClaimed, "already claimed")
	}

	postID, err := attestation.ExtractPostID(reference)
	if err != nil {
		return nil, &Error{Kind: InvalidReference, Message: "invalid post URL", Err: err}
	}

	text, err := v.fetcher.FetchContent(ctx, postID)
	if err != nil {
		v.logger.Warn().Err(err).Str("post_id", postID).Str("name", agent.Name).Msg("attestation fetch failed")
		return nil, &Error{Kind: FetchFailed, Message: "could not fetch post", Err: err}
	}

	if !v.policy.Satisfied(text, agent, canonical) {
		return nil, newError(ProofNotFound, v.policy.missingProofMessage(agent, canonical))
	}

	claimed, err := v.store.ClaimAgent(ctx, claimToken, canonical)
	if err != nil {
		return nil, storeError(err)
	}
	if !claimed {
		return nil, newError(AlreadyClaimed, "already claimed")
	}

	v.logger.Info().
		Str("agent_id", agent.ID.String()).
		Str("name", agent.Name).
		Str("address", canonical).
		Str("post_id", postID).
		Msg("agent claimed")

	if v.cache != nil {
		// The claim is committed; a disconnected caller must not leave the cache stale.
		if err := v.cache.InvalidateDirectory(context.WithoutCancel(ctx)); err != nil {
			v.logger.Warn().Err(err).Str("name", agent.Name).Msg("directory cache invalidation failed")
		}
	}

	return &ClaimResult{Name: agent.Name, Address: canonical}, nil
}
