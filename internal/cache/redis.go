package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/bookingservice/config"
	"github.com/redis/go-redis/v9"
)

// RedisCache keeps short-lived seat holds taken while a booking request is in
// flight. Holds are a best-effort guard in front of the store-level conflict
// check, not the source of truth; they expire on their own.
type RedisCache struct {
	client  *redis.Client
	holdTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, holdTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:  redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		holdTTL: holdTTL,
	}
}

func (c *RedisCache) AcquireSeatHold(ctx context.Context, flightID int64, seatNumber string) (bool, error) {
	return c.client.SetNX(ctx, seatHoldKey(flightID, seatNumber), "held", c.holdTTL).Result()
}

func (c *RedisCache) ReleaseSeatHolds(ctx context.Context, flightID int64, seatNumbers []string) error {
	if len(seatNumbers) == 0 {
		return nil
	}
	keys := make([]string, 0, len(seatNumbers))
	for _, seat := range seatNumbers {
		keys = append(keys, seatHoldKey(flightID, seat))
	}
	return c.client.Del(ctx, keys...).Err()
}

func seatHoldKey(flightID int64, seatNumber string) string {
	return fmt.Sprintf("hold:flight:%d:seat:%s", flightID, seatNumber)
}
