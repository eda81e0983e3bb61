package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Cheertaboi/esim-catalog-service/internal/models"
)

// RedisCache shares bundle listings between service replicas.
type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: ttl,
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]models.RawBundle, error) {
	data, err := r.client.Get(ctx, cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var bundles []models.RawBundle
	if err := json.Unmarshal(data, &bundles); err != nil {
		return nil, fmt.Errorf("unmarshal bundles failed: %w", err)
	}
	return bundles, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, bundles []models.RawBundle) error {
	data, err := json.Marshal(bundles)
	if err != nil {
		return fmt.Errorf("marshal bundles failed: %w", err)
	}

	// spread expiry so replicas do not refetch in lockstep
	jitter := time.Duration(rand.Int63n(int64(r.baseTTL/10) + 1))
	if err := r.client.Set(ctx, cacheKey(key), data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, cacheKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(key string) string {
	return fmt.Sprintf("catalog:%s", key)
}
