package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), "redis://"+mr.Addr(), 30*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func storeDirectory(t *testing.T, s *RedisStore, dir map[string]string) {
	t.Helper()
	ctx := context.Background()
	version, err := s.DirectoryVersion(ctx)
	require.NoError(t, err)
	stored, err := s.SetDirectory(ctx, dir, version)
	require.NoError(t, err)
	require.True(t, stored)
}

func TestRedisStore_DirectoryMiss(t *testing.T) {
	s, _ := newTestRedisStore(t)

	_, err := s.GetDirectory(context.Background())
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisStore_DirectoryRoundTrip(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	dir := map[string]string{
		"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa": "alpha",
		"0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb": "beta",
	}
	storeDirectory(t, s, dir)

	got, err := s.GetDirectory(ctx)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	assert.Equal(t, 30*time.Second, mr.TTL(claimedDirectoryKey))

	mr.FastForward(31 * time.Second)
	_, err = s.GetDirectory(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisStore_EmptyDirectoryIsCached(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	storeDirectory(t, s, map[string]string{})

	got, err := s.GetDirectory(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisStore_SetReplacesStaleEntries(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	storeDirectory(t, s, map[string]string{"0xold": "old"})
	storeDirectory(t, s, map[string]string{"0xnew": "new"})

	got, err := s.GetDirectory(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"0xnew": "new"}, got)
}

func TestRedisStore_Invalidate(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	storeDirectory(t, s, map[string]string{"0xaa": "alpha"})
	require.NoError(t, s.InvalidateDirectory(ctx))

	_, err := s.GetDirectory(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisStore_StaleRefillDiscarded(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	version, err := s.DirectoryVersion(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, version)

	// A claim commits while the directory is being loaded.
	require.NoError(t, s.InvalidateDirectory(ctx))

	stored, err := s.SetDirectory(ctx, map[string]string{"0xaa": "alpha"}, version)
	require.NoError(t, err)
	assert.False(t, stored)

	_, err = s.GetDirectory(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)

	current, err := s.DirectoryVersion(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, current)

	stored, err = s.SetDirectory(ctx, map[string]string{"0xbb": "beta"}, current)
	require.NoError(t, err)
	assert.True(t, stored)
}

func TestNewRedisStoreFromClient_DefaultTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreFromClient(client, 0)
	defer s.Close()

	assert.Equal(t, defaultDirectoryTTL, s.ttl)
	assert.NoError(t, s.Ping(context.Background()))
}
