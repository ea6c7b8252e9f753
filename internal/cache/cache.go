package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"nusapos/internal/database/models"
)

// PromotionCache holds the priority-sorted active promotion list per branch.
// A miss or a cache failure is never fatal; callers fall through to the store.
type PromotionCache interface {
	Get(ctx context.Context, key string) ([]models.Promotion, bool, error)
	Set(ctx context.Context, key string, promos []models.Promotion, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

type NoopPromotionCache struct{}

func (NoopPromotionCache) Get(_ context.Context, _ string) ([]models.Promotion, bool, error) {
	return nil, false, nil
}

func (NoopPromotionCache) Set(_ context.Context, _ string, _ []models.Promotion, _ time.Duration) error {
	return nil
}

func (NoopPromotionCache) Invalidate(_ context.Context, _ string) error {
	return nil
}

type RedisPromotionCache struct {
	client *redis.Client
}

func NewRedisPromotionCache(client *redis.Client) *RedisPromotionCache {
	return &RedisPromotionCache{client: client}
}

func (c *RedisPromotionCache) Get(ctx context.Context, key string) ([]models.Promotion, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var promos []models.Promotion
	if err := json.Unmarshal([]byte(val), &promos); err != nil {
		return nil, false, err
	}
	return promos, true, nil
}

func (c *RedisPromotionCache) Set(ctx context.Context, key string, promos []models.Promotion, ttl time.Duration) error {
	payload, err := json.Marshal(promos)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *RedisPromotionCache) Invalidate(ctx context.Context, pattern string) error {
	keys, err := c.client.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
