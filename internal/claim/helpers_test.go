package claim

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/store"
)

const testFrontendURL = "https://agentponzi.test"

// fakeFetcher serves canned post text and counts calls.
type fakeFetcher struct {
	mu    sync.Mutex
	posts map[string]string
	err   error
	calls atomic.Int32
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{posts: make(map[string]string)}
}

func (f *fakeFetcher) setPost(id, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[id] = text
}

func (f *fakeFetcher) FetchContent(ctx context.Context, postID string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts[postID], nil
}

type testEnv struct {
	store    *store.SQLiteStore
	fetcher  *fakeFetcher
	registry *Registry
	verifier *Verifier
	dir      *Directory
}

func newTestEnv(t *testing.T, policy ProofPolicy) *testEnv {
	t.Helper()
	s, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "agents.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	f := newFakeFetcher()
	logger := zerolog.Nop()
	return &testEnv{
		store:    s,
		fetcher:  f,
		registry: NewRegistry(s, testFrontendURL, logger),
		verifier: NewVerifier(s, f, policy, nil, logger),
		dir:      NewDirectory(s, nil, logger),
	}
}

func requireKind(t *testing.T, err error, want Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, KindOf(err), "error: %v", err)
}
