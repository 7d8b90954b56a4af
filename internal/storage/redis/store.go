package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"driftmail/internal/config"
	"driftmail/internal/storage"
)

// Store implements storage.KV on top of Redis. Per-key expiry maps onto
// Redis's native TTL: SET ... EXAT at creation, SET ... KEEPTTL on
// subsequent writes.
type Store struct {
	rdb *goredis.Client
}

// New connects to Redis and verifies the connection.
func New(cfg *config.RedisConfig) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{rdb: rdb}, nil
}

// Get returns the value at key, or storage.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", storage.ErrKeyNotFound
		}
		return "", err
	}
	return value, nil
}

// Set stores value at key. A non-zero expiresAt becomes an absolute Redis
// expiry; a zero one keeps the TTL already present on the key.
func (s *Store) Set(ctx context.Context, key, value string, expiresAt time.Time) error {
	if expiresAt.IsZero() {
		return s.rdb.Set(ctx, key, value, goredis.KeepTTL).Err()
	}
	return s.rdb.SetArgs(ctx, key, value, goredis.SetArgs{ExpireAt: expiresAt}).Err()
}

// Delete removes key. Redis DEL on a missing key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}
