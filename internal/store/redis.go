package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/metrics"
)

const (
	// claimedDirectoryKey holds the address -> name hash of claimed agents.
	claimedDirectoryKey = "directory:claimed"

	// claimedDirectoryVersionKey is bumped on every invalidation. A refill
	// only lands if the version it read before loading is still current.
	claimedDirectoryVersionKey = "directory:claimed:version"

	// claimedDirectoryMarker is stored alongside real entries so an empty
	// directory can still be cached. It can never collide with an address.
	claimedDirectoryMarker = "_cached"

	defaultDirectoryTTL = time.Minute
)

// ErrCacheMiss is returned when the directory is not cached.
var ErrCacheMiss = errors.New("directory not cached")

// setDirectoryScript replaces the directory hash only when the version key
// still equals ARGV[1]. ARGV[2] is the TTL in milliseconds and the rest are
// field/value pairs.
var setDirectoryScript = redis.NewScript(`
local current = redis.call("GET", KEYS[2])
if not current then
	current = "0"
end
if current ~= ARGV[1] then
	return 0
end
redis.call("DEL", KEYS[1])
redis.call("HSET", KEYS[1], unpack(ARGV, 3))
redis.call("PEXPIRE", KEYS[1], ARGV[2])
return 1
`)

// RedisStore caches the claimed-agent directory in Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return NewRedisStoreFromClient(client, ttl), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultDirectoryTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func observeRedis(start time.Time) {
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
}

// GetDirectory returns the cached address -> name map or ErrCacheMiss.
func (s *RedisStore) GetDirectory(ctx context.Context) (map[string]string, error) {
	defer observeRedis(time.Now())

	entries, err := s.client.HGetAll(ctx, claimedDirectoryKey).Result()
	if err != nil {
		return nil, err
	}
	if _, ok := entries[claimedDirectoryMarker]; !ok {
		return nil, ErrCacheMiss
	}
	delete(entries, claimedDirectoryMarker)
	return entries, nil
}

// DirectoryVersion returns the current directory version. Read it before
// loading the directory from the store and pass it to SetDirectory.
func (s *RedisStore) DirectoryVersion(ctx context.Context) (int64, error) {
	defer observeRedis(time.Now())

	v, err := s.client.Get(ctx, claimedDirectoryVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// SetDirectory replaces the cached directory and sets its TTL, unless the
// directory was invalidated after version was read. It reports whether the
// directory was stored.
func (s *RedisStore) SetDirectory(ctx context.Context, directory map[string]string, version int64) (bool, error) {
	defer observeRedis(time.Now())

	args := make([]any, 0, 2*len(directory)+4)
	args = append(args, strconv.FormatInt(version, 10), s.ttl.Milliseconds(), claimedDirectoryMarker, "1")
	for address, name := range directory {
		args = append(args, address, name)
	}

	stored, err := setDirectoryScript.Run(ctx, s.client,
		[]string{claimedDirectoryKey, claimedDirectoryVersionKey}, args...).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

// InvalidateDirectory drops the cached directory and bumps its version so
// refills that loaded before the change are discarded.
func (s *RedisStore) InvalidateDirectory(ctx context.Context) error {
	defer observeRedis(time.Now())

	pipe := s.client.TxPipeline()
	pipe.Incr(ctx, claimedDirectoryVersionKey)
	pipe.Del(ctx, claimedDirectoryKey)
	_, err := pipe.Exec(ctx)
	return err
}
