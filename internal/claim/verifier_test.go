package claim

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/attestation"
	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/crypto"
	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/models"
	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/store"
)

const (
	testAddress      = "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01"
	testAddressLower = "0xabcdef0123456789abcdef0123456789abcdef01"
	testPostURL      = "https://x.com/human/status/1790000000000000001"
	testPostID       = "1790000000000000001"
)

func registerPending(t *testing.T, env *testEnv, name string) *ClaimArtifact {
	t.Helper()
	art, err := env.registry.Register(context.Background(), name)
	require.NoError(t, err)
	return art
}

func requirePending(t *testing.T, env *testEnv, token string) {
	t.Helper()
	agent, err := env.store.GetAgentByClaimToken(context.Background(), token)
	require.NoError(t, err)
	require.NotNil(t, agent)
	assert.Equal(t, models.StatusPending, agent.Status)
	assert.Nil(t, agent.Address)
}

func TestVerify_Success(t *testing.T) {
	env := newTestEnv(t, PolicyCodeMatch)
	art := registerPending(t, env, "winner")
	env.fetcher.setPost(testPostID, art.AttestationText)

	res, err := env.verifier.Verify(context.Background(), art.ClaimToken, testPostURL, testAddress)
	require.NoError(t, err)
	assert.Equal(t, &ClaimResult{Name: "winner", Address: testAddressLower}, res)

	agent, err := env.store.GetAgentByClaimToken(context.Background(), art.ClaimToken)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClaimed, agent.Status)
	require.NotNil(t, agent.Address)
	assert.Equal(t, testAddressLower, *agent.Address)
}

func TestVerify_InvalidAddress(t *testing.T) {
	env := newTestEnv(t, PolicyCodeMatch)
	art := registerPending(t, env, "bot1")

	for _, addr := range []string{
		"",
		"0x123",
		"abcdef0123456789abcdef0123456789abcdef0123",
		"0xZZcdef0123456789abcdef0123456789abcdef01",
		testAddressLower + "00",
	} {
		_, err := env.verifier.Verify(context.Background(), art.ClaimToken, testPostURL, addr)
		requireKind(t, err, InvalidAddress)
	}
	assert.Zero(t, env.fetcher.calls.Load())
	requirePending(t, env, art.ClaimToken)
}

func TestVerify_AddressCheckedBeforeToken(t *testing.T) {
	env := newTestEnv(t, PolicyCodeMatch)

	_, err := env.verifier.Verify(context.Background(), "unknown", testPostURL, "bad")
	requireKind(t, err, InvalidAddress)
}

func TestVerify_UnknownToken(t *testing.T) {
	env := newTestEnv(t, PolicyCodeMatch)

	_, err := env.verifier.Verify(context.Background(), "unknown", testPostURL, testAddress)
	requireKind(t, err, NotFound)

	_, err = env.verifier.Verify(context.Background(), "", testPostURL, testAddress)
	requireKind(t, err, NotFound)
	assert.Zero(t, env.fetcher.calls.Load())
}

func TestVerify_InvalidReferenceSkipsFetch(t *testing.T) {
	env := newTestEnv(t, PolicyCodeMatch)
	art := registerPending(t, env, "bot1")

	for _, ref := range []string{"https://example.com/no-id-here", ""} {
		_, err := env.verifier.Verify(context.Background(), art.ClaimToken, ref, testAddress)
		requireKind(t, err, InvalidReference)
		assert.ErrorIs(t, err, attestation.ErrInvalidReference)
	}
	assert.Zero(t, env.fetcher.calls.Load())
	requirePending(t, env, art.ClaimToken)
}

func TestVerify_FetchFailed(t *testing.T) {
	env := newTestEnv(t, PolicyCodeMatch)
	art := registerPending(t, env, "bot1")
	env.fetcher.err = fmt.Errorf("%w: upstream status 404", attestation.ErrFetchFailed)

	_, err := env.verifier.Verify(context.Background(), art.ClaimToken, testPostURL, testAddress)
	requireKind(t, err, FetchFailed)
	assert.ErrorIs(t, err, attestation.ErrFetchFailed)
	assert.EqualValues(t, 1, env.fetcher.calls.Load(), "fetch must not be retried")
	requirePending(t, env, art.ClaimToken)
}

func TestVerify_ProofNotFound(t *testing.T) {
	env := newTestEnv(t, PolicyCodeMatch)
	art := registerPending(t, env, "bot1")
	env.fetcher.setPost(testPostID, "just vibes, no code here")

	_, err := env.verifier.Verify(context.Background(), art.ClaimToken, testPostURL, testAddress)
	requireKind(t, err, ProofNotFound)

	var claimErr *Error
	require.True(t, errors.As(err, &claimErr))
	assert.Contains(t, claimErr.Message, art.VerificationCode)
	requirePending(t, env, art.ClaimToken)
}

func TestVerify_CodeMatchIsCaseSensitive(t *testing.T) {
	env := newTestEnv(t, PolicyCodeMatch)
	art := registerPending(t, env, "bot1")
	env.fetcher.setPost(testPostID, strings.ToLower(art.VerificationCode))

	_, err := env.verifier.Verify(context.Background(), art.ClaimToken, testPostURL, testAddress)
	requireKind(t, err, ProofNotFound)
}

func TestVerify_AlreadyClaimed(t *testing.T) {
	env := newTestEnv(t, PolicyCodeMatch)
	art := registerPending(t, env, "bot1")
	env.fetcher.setPost(testPostID, art.VerificationCode)

	_, err := env.verifier.Verify(context.Background(), art.ClaimToken, testPostURL, testAddress)
	require.NoError(t, err)

	_, err = env.verifier.Verify(context.Background(), art.ClaimToken, testPostURL, "0x1111111111111111111111111111111111111111")
	requireKind(t, err, AlreadyClaimed)
	assert.EqualValues(t, 1, env.fetcher.calls.Load())

	agent, err := env.store.GetAgentByClaimToken(context.Background(), art.ClaimToken)
	require.NoError(t, err)
	assert.Equal(t, testAddressLower, *agent.Address)
}

func TestVerify_ConcurrentSingleWinner(t *testing.T) {
	env := newTestEnv(t, PolicyCodeMatch)
	art := registerPending(t, env, "contested")
	env.fetcher.setPost(testPostID, art.AttestationText)

	addrs := []string{
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222",
	}
	results := make([]*ClaimResult, len(addrs))
	errs := make([]error, len(addrs))

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, addr := range addrs {
		wg.Add(1)
		go func(i int, addr string) {
			defer wg.Done()
			<-start
			results[i], errs[i] = env.verifier.Verify(context.Background(), art.ClaimToken, testPostURL, addr)
		}(i, addr)
	}
	close(start)
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "more than one claim succeeded")
			winner = i
			continue
		}
		requireKind(t, err, AlreadyClaimed)
	}
	require.NotEqual(t, -1, winner, "no claim succeeded")

	agent, err := env.store.GetAgentByClaimToken(context.Background(), art.ClaimToken)
	require.NoError(t, err)
	assert.Equal(t, addrs[winner], *agent.Address)
	assert.Equal(t, addrs[winner], results[winner].Address)
}

func TestVerify_AddressPrefixPolicy(t *testing.T) {
	env := newTestEnv(t, PolicyAddressPrefix)
	art := registerPending(t, env, "prefix")

	env.fetcher.setPost(testPostID, "my wallet 0XABCDEF01 says hi")
	res, err := env.verifier.Verify(context.Background(), art.ClaimToken, testPostURL, testAddress)
	require.NoError(t, err)
	assert.Equal(t, testAddressLower, res.Address)
}

func TestVerify_AddressPrefixPolicyIgnoresCode(t *testing.T) {
	env := newTestEnv(t, PolicyAddressPrefix)
	art := registerPending(t, env, "prefix")

	env.fetcher.setPost(testPostID, art.AttestationText)
	_, err := env.verifier.Verify(context.Background(), art.ClaimToken, testPostURL, testAddress)
	requireKind(t, err, ProofNotFound)
	assert.Contains(t, err.Error(), "0xabcdef01")
}

func TestVerify_InvalidatesDirectoryCache(t *testing.T) {
	env := newTestEnv(t, PolicyCodeMatch)
	mr := miniredis.RunT(t)
	cache, err := store.NewRedisStore(context.Background(), "redis://"+mr.Addr(), 0)
	require.NoError(t, err)
	defer cache.Close()

	logger := zerolog.Nop()
	verifier := NewVerifier(env.store, env.fetcher, PolicyCodeMatch, cache, logger)
	dir := NewDirectory(env.store, cache, logger)
	ctx := context.Background()

	list, err := dir.ListClaimed(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	art := registerPending(t, env, "cached")
	env.fetcher.setPost(testPostID, art.VerificationCode)
	_, err = verifier.Verify(ctx, art.ClaimToken, testPostURL, testAddress)
	require.NoError(t, err)

	list, err = dir.ListClaimed(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{testAddressLower: "cached"}, list)
}

// racingStore runs afterList once, after ListClaimedAgents has read its rows.
type racingStore struct {
	store.DataStore
	once      sync.Once
	afterList func()
}

func (s *racingStore) ListClaimedAgents(ctx context.Context) ([]models.Agent, error) {
	agents, err := s.DataStore.ListClaimedAgents(ctx)
	s.once.Do(s.afterList)
	return agents, err
}

func TestVerify_ClaimDuringDirectoryRefill(t *testing.T) {
	env := newTestEnv(t, PolicyCodeMatch)
	mr := miniredis.RunT(t)
	cache, err := store.NewRedisStore(context.Background(), "redis://"+mr.Addr(), 0)
	require.NoError(t, err)
	defer cache.Close()

	logger := zerolog.Nop()
	ctx := context.Background()
	verifier := NewVerifier(env.store, env.fetcher, PolicyCodeMatch, cache, logger)

	art := registerPending(t, env, "late")
	env.fetcher.setPost(testPostID, art.VerificationCode)

	racing := &racingStore{DataStore: env.store}
	racing.afterList = func() {
		_, err := verifier.Verify(ctx, art.ClaimToken, testPostURL, testAddress)
		require.NoError(t, err)
	}
	dir := NewDirectory(racing, cache, logger)

	// Loaded before the claim committed.
	list, err := dir.ListClaimed(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = dir.ListClaimed(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{testAddressLower: "late"}, list)
}

func TestVerify_InvalidatesCacheAfterCallerCancels(t *testing.T) {
	env := newTestEnv(t, PolicyCodeMatch)
	mr := miniredis.RunT(t)
	cache, err := store.NewRedisStore(context.Background(), "redis://"+mr.Addr(), 0)
	require.NoError(t, err)
	defer cache.Close()

	logger := zerolog.Nop()
	dir := NewDirectory(env.store, cache, logger)
	_, err = dir.ListClaimed(context.Background())
	require.NoError(t, err)

	art := registerPending(t, env, "gone")
	env.fetcher.setPost(testPostID, art.VerificationCode)

	ctx, cancel := context.WithCancel(context.Background())
	verifier := NewVerifier(&cancelOnClaimStore{DataStore: env.store, cancel: cancel}, env.fetcher, PolicyCodeMatch, cache, logger)
	_, err = verifier.Verify(ctx, art.ClaimToken, testPostURL, testAddress)
	require.NoError(t, err)

	list, err := dir.ListClaimed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{testAddressLower: "gone"}, list)
}

// cancelOnClaimStore cancels the caller's context right after the claim commits.
type cancelOnClaimStore struct {
	store.DataStore
	cancel context.CancelFunc
}

func (s *cancelOnClaimStore) ClaimAgent(ctx context.Context, claimToken, address string) (bool, error) {
	ok, err := s.DataStore.ClaimAgent(ctx, claimToken, address)
	s.cancel()
	return ok, err
}

func TestVerify_NonPendingStatusSkipsFetch(t *testing.T) {
	env := newTestEnv(t, PolicyCodeMatch)
	agent := &models.Agent{
		ID:               crypto.NewAgentID(),
		Name:             "frozen",
		ClaimToken:       "frozen-token",
		VerificationCode: "PONZI-ABCDEF",
		Status:           models.ClaimStatus("suspended"),
	}
	require.NoError(t, env.store.CreateAgent(context.Background(), agent))
	env.fetcher.setPost(testPostID, agent.VerificationCode)

	_, err := env.verifier.Verify(context.Background(), "frozen-token", testPostURL, testAddress)
	requireKind(t, err, AlreadyClaimed)
	assert.EqualValues(t, 0, env.fetcher.calls.Load())
}

func TestParseProofPolicy(t *testing.T) {
	p, err := ParseProofPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyCodeMatch, p)

	p, err = ParseProofPolicy(" Address_Prefix ")
	require.NoError(t, err)
	assert.Equal(t, PolicyAddressPrefix, p)

	_, err = ParseProofPolicy("both")
	assert.Error(t, err)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "already_claimed", AlreadyClaimed.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}
