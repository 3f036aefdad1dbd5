package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mkazantsev/tablebook/config"
	"github.com/mkazantsev/tablebook/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client     *redis.Client
	listingTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, listingTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		listingTTL: listingTTL,
	}
}

// AcquireSlotLock takes the per-(restaurant, date, time) advisory lock that
// serializes concurrent booking attempts for one slot window. The version
// check on the availability row remains the correctness guarantee.
func (c *RedisCache) AcquireSlotLock(ctx context.Context, restaurantID string, date time.Time, timeStr string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, slotLockKey(restaurantID, date, timeStr), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseSlotLock(ctx context.Context, restaurantID string, date time.Time, timeStr string) error {
	return c.client.Del(ctx, slotLockKey(restaurantID, date, timeStr)).Err()
}

func (c *RedisCache) GetListing(ctx context.Context) ([]domain.Restaurant, error) {
	data, err := c.client.Get(ctx, listingKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var restaurants []domain.Restaurant
	if err := json.Unmarshal(data, &restaurants); err != nil {
		return nil, err
	}
	return restaurants, nil
}

func (c *RedisCache) SetListing(ctx context.Context, restaurants []domain.Restaurant) error {
	payload, err := json.Marshal(restaurants)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, listingKey(), payload, c.listingTTL).Err()
}

func listingKey() string {
	return "cache:restaurants:approved"
}

func slotLockKey(restaurantID string, date time.Time, timeStr string) string {
	return fmt.Sprintf("lock:restaurant:%s:%s:%s", restaurantID, domain.NormalizeDate(date).Format("2006-01-02"), timeStr)
}
