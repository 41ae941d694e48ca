package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by GetJSON when the key is absent.
var ErrMiss = errors.New("cache: miss")

// Store wraps a Redis client with JSON helpers. A nil Store or a Store without
// a client behaves as an always-empty cache.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore instantiates the cache helper. ttl applies to FetchJSON and SetJSON.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Enabled reports whether a Redis client is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// FetchJSON loads a cached value or populates it using the loader.
func (s *Store) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if !s.Enabled() {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	payload, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// FetchBytes is FetchJSON for payloads that are already encoded.
func (s *Store) FetchBytes(ctx context.Context, key string, loader func(context.Context) ([]byte, error)) ([]byte, error) {
	if !s.Enabled() {
		return loader(ctx)
	}
	payload, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		return payload, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, err
	}
	payload, err = loader(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return nil, err
	}
	return payload, nil
}

// GetJSON decodes the value at key into dest, returning ErrMiss when absent.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) error {
	if !s.Enabled() {
		return ErrMiss
	}
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, dest)
}

// SetJSON stores value at key. A zero ttl uses the store default.
func (s *Store) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl == 0 {
		ttl = s.ttl
	}
	return s.client.Set(ctx, key, raw, ttl).Err()
}

// Delete removes keys.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if !s.Enabled() || len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
