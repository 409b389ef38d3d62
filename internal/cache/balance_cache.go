// Package cache keeps computed party balances close to the API.
package cache

import (
	"context"
	"errors"
	"log"
	"time"

	"billbook/internal/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	balanceKeyPrefix = "khata:balance:"
	defaultTTL       = 5 * time.Minute
)

// BalanceCache stores a party's khata balance. A miss returns ok == false.
type BalanceCache interface {
	Get(ctx context.Context, partyID uuid.UUID) (balance decimal.Decimal, ok bool, err error)
	Set(ctx context.Context, partyID uuid.UUID, balance decimal.Decimal) error
	Invalidate(ctx context.Context, partyID uuid.UUID) error
}

// RedisBalanceCache implements BalanceCache on redis.
type RedisBalanceCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewBalanceCache returns a redis backed cache, or a no-op cache when no
// redis address is configured.
func NewBalanceCache(cfg config.RedisConfig) BalanceCache {
	if cfg.Addr == "" {
		log.Println("Redis not configured, party balances are not cached")
		return NoopBalanceCache{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisBalanceCache(client, cfg.TTL)
}

func NewRedisBalanceCache(client redis.Cmdable, ttl time.Duration) *RedisBalanceCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisBalanceCache{client: client, ttl: ttl}
}

func (c *RedisBalanceCache) Get(ctx context.Context, partyID uuid.UUID) (decimal.Decimal, bool, error) {
	raw, err := c.client.Get(ctx, balanceKeyPrefix+partyID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		// Corrupt entry, treat as a miss and let the caller overwrite it.
		return decimal.Zero, false, nil
	}
	return balance, true, nil
}

func (c *RedisBalanceCache) Set(ctx context.Context, partyID uuid.UUID, balance decimal.Decimal) error {
	return c.client.Set(ctx, balanceKeyPrefix+partyID.String(), balance.String(), c.ttl).Err()
}

func (c *RedisBalanceCache) Invalidate(ctx context.Context, partyID uuid.UUID) error {
	return c.client.Del(ctx, balanceKeyPrefix+partyID.String()).Err()
}

// Ping checks the redis connection.
func (c *RedisBalanceCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// NoopBalanceCache never stores anything.
type NoopBalanceCache struct{}

func (NoopBalanceCache) Get(context.Context, uuid.UUID) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, nil
}

func (NoopBalanceCache) Set(context.Context, uuid.UUID, decimal.Decimal) error { return nil }

func (NoopBalanceCache) Invalidate(context.Context, uuid.UUID) error { return nil }
