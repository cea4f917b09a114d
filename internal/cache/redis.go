package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

// KeyNamespace prefixes every persisted cart key.
const KeyNamespace = "persist:cart:"

func NewRedisCartStore(client *redis.Client, ttl time.Duration) *RedisCartStore {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisCartStore{
		client:  client,
		baseTTL: ttl,
	}
}

type RedisCartStore struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCartStore) Get(ctx context.Context, owner string) ([]domain.CartLine, error) {
	data, err := r.client.Get(ctx, cartKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var lines []domain.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return lines, nil
}

// Set stores lines as a JSON array. An empty cart is stored as [] so it is not a miss.
func (r *RedisCartStore) Set(ctx context.Context, owner string, lines []domain.CartLine) error {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	jitter := time.Duration(rand.IntN(60)) * time.Minute
	if err := r.client.Set(ctx, cartKey(owner), data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCartStore) Delete(ctx context.Context, owner string) error {
	if err := r.client.Del(ctx, cartKey(owner)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cartKey(owner string) string {
	return KeyNamespace + owner
}
