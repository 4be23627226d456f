// Package redisstore implements the cache.Store contract on Redis.
package redisstore

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/entitymap/entitymap/mapper/cache"
)

const (
	fieldData   = "data"
	fieldFormat = "format"
)

// Store provides a Redis-backed cache.Store implementation.
type Store struct {
	client redis.UniversalClient
}

// NewStore constructs a store around an existing redis client.
func NewStore(client redis.UniversalClient) (*Store, error) {
	if client == nil {
		return nil, errors.New("redisstore: client is nil")
	}
	return &Store{client: client}, nil
}

// NewStoreWithOptions creates a Redis client using go-redis options and
// wraps it with Store.
func NewStoreWithOptions(options *redis.Options) (*Store, error) {
	if options == nil {
		return nil, errors.New("redisstore: redis options are required")
	}
	return NewStore(redis.NewClient(options))
}

// Set stores the payload in Redis, expiring it after ttl when positive.
func (s *Store) Set(ctx context.Context, key string, payload cache.Payload, ttl time.Duration) error {
	fields := map[string]any{
		fieldData:   payload.Data,
		fieldFormat: payload.Format,
	}
	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return err
	}

	if ttl > 0 {
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves the payload from Redis.
func (s *Store) Get(ctx context.Context, key string) (cache.Payload, error) {
	result, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return cache.Payload{}, err
	}
	if len(result) == 0 {
		return cache.Payload{}, cache.ErrNotFound
	}

	payload := cache.Payload{}
	if data, ok := result[fieldData]; ok {
		payload.Data = []byte(data)
	}
	if format, ok := result[fieldFormat]; ok {
		payload.Format = format
	}
	return payload, nil
}

// Delete removes a key from Redis.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Client exposes the underlying redis client.
func (s *Store) Client() redis.UniversalClient {
	return s.client
}
