package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps entries in redis under a common key prefix, letting
// several clients on one machine share the player's state.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend wraps an existing redis client. Keys are stored as
// prefix+key.
//
// Example:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	backend := NewRedisBackend(client, "clicker:")
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{
		client: client,
		prefix: prefix,
	}
}

// Get implements Backend.
func (b *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := b.client.Get(ctx, b.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("redis get error: %w", err)
	}

	return val, true, nil
}

// Set implements Backend.
func (b *RedisBackend) Set(ctx context.Context, key, value string) error {
	if err := b.client.Set(ctx, b.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}

	return nil
}

// SetIfAbsent implements Backend using SETNX.
func (b *RedisBackend) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	stored, err := b.client.SetNX(ctx, b.prefix+key, value, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx error: %w", err)
	}

	return stored, nil
}

// Close implements Backend. It closes the underlying client.
func (b *RedisBackend) Close() error {
	err := b.client.Close()
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}

	return err
}
