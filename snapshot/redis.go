package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/patternsec/engine/cache"
)

// DefaultRedisKey is the key snapshots are stored under when none is given.
const DefaultRedisKey = "patternsec:cache:snapshot"

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string

	// Key is the Redis key the snapshot is stored under.
	// Defaults to DefaultRedisKey.
	Key string

	// ConnectTimeout is the maximum time to wait for connection establishment.
	ConnectTimeout time.Duration
}

// RedisStore persists snapshots as a JSON blob under a single Redis key.
// It lets multiple scanner processes on different hosts share one accuracy
// ledger across runs.
type RedisStore struct {
	client *redis.Client
	key    string
	owned  bool
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.Key == "" {
		opts.Key = DefaultRedisKey
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("snapshot: parse Redis URL: %w", err)
	}
	redisOpts.DialTimeout = opts.ConnectTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("snapshot: connect to Redis: %w", err)
	}

	return &RedisStore{client: client, key: opts.Key, owned: true}, nil
}

// NewRedisStoreFromClient wraps an existing Redis client. The caller retains
// ownership of the client; Close becomes a no-op for the connection.
func NewRedisStoreFromClient(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Load fetches and decodes the snapshot blob.
func (s *RedisStore) Load(ctx context.Context) (*cache.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("snapshot: get %s: %w", s.key, err)
	}

	var snap cache.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: key %s: %v", ErrCorrupt, s.key, err)
	}
	return &snap, nil
}

// Save encodes and stores the snapshot blob with no expiry.
func (s *RedisStore) Save(ctx context.Context, snap *cache.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("snapshot: set %s: %w", s.key, err)
	}
	return nil
}

// Close releases the Redis connection when this store created it.
// Stores built with NewRedisStoreFromClient leave the connection open.
func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
