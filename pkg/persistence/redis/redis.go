// Package redis provides Redis-backed persistence for the sandbox notebook
// service. Every bucket is a hash whose fields are record keys.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dukex/nbctl/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "nbctl:"

type Store struct {
	client *redis.Client
}

// NewPersistence connects to the Redis server at redisURL (redis://...).
func NewPersistence(ctx context.Context, redisURL string) (persistence.Persistence, error) {
	store, err := NewStore(ctx, redisURL)
	if err != nil {
		return nil, err
	}

	return persistence.New(store), nil
}

func NewStore(ctx context.Context, redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	return NewStoreFromClient(ctx, redis.NewClient(opts))
}

// NewStoreFromClient wraps an existing client after checking the connection.
func NewStoreFromClient(ctx context.Context, client *redis.Client) (*Store, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{client: client}, nil
}

func hashKey(bucket string) string {
	return keyPrefix + bucket
}

func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	data, err := s.client.HGet(ctx, hashKey(bucket), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.ErrNotFound
		}

		return nil, err
	}

	return data, nil
}

func (s *Store) Put(ctx context.Context, bucket, key string, value []byte) error {
	return s.client.HSet(ctx, hashKey(bucket), key, value).Err()
}

func (s *Store) PutIfAbsent(ctx context.Context, bucket, key string, value []byte) (bool, error) {
	return s.client.HSetNX(ctx, hashKey(bucket), key, value).Result()
}

func (s *Store) Delete(ctx context.Context, bucket, key string) (bool, error) {
	removed, err := s.client.HDel(ctx, hashKey(bucket), key).Result()
	if err != nil {
		return false, err
	}

	return removed > 0, nil
}

// Values returns every record of bucket ordered by key.
func (s *Store) Values(ctx context.Context, bucket string) ([][]byte, error) {
	all, err := s.client.HGetAll(ctx, hashKey(bucket)).Result()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(all))
	for key := range all {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	items := make([][]byte, 0, len(keys))
	for _, key := range keys {
		items = append(items, []byte(all[key]))
	}

	return items, nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close(_ context.Context) error {
	return s.client.Close()
}
