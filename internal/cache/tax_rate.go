// Package cache keeps hot, rarely-changing lookups in redis in front of the
// ledger.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dinendash-system/internal/database/models"
)

const (
	TAX_RATE_CACHE_PREFIX = "dining:restaurant:"
	CACHE_TTL_MEDIUM      = 30 * time.Minute
)

type RestaurantLoader interface {
	GetRestaurant(ctx context.Context, restaurantID string) (*models.Restaurant, error)
}

// TaxRates resolves a restaurant's tax rate through redis. A restaurant with
// no rate configured gets the fallback rate. Redis failures degrade to a
// direct ledger read.
type TaxRates struct {
	redis    *redis.Client
	loader   RestaurantLoader
	fallback decimal.Decimal
	ttl      time.Duration
	log      *zap.Logger
}

func NewTaxRates(client *redis.Client, loader RestaurantLoader, fallback decimal.Decimal, ttl time.Duration, log *zap.Logger) *TaxRates {
	if ttl <= 0 {
		ttl = CACHE_TTL_MEDIUM
	}
	return &TaxRates{redis: client, loader: loader, fallback: fallback, ttl: ttl, log: log}
}

func taxRateKey(restaurantID string) string {
	return fmt.Sprintf("%s%s:tax_rate", TAX_RATE_CACHE_PREFIX, restaurantID)
}

func (c *TaxRates) TaxRate(ctx context.Context, restaurantID string) (decimal.Decimal, error) {
	key := taxRateKey(restaurantID)

	cached, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		if rate, perr := decimal.NewFromString(cached); perr == nil {
			return rate, nil
		}
		c.log.Warn("discarding malformed cached tax rate", zap.String("key", key), zap.String("value", cached))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("tax rate cache unavailable", zap.String("restaurant_id", restaurantID), zap.Error(err))
	}

	restaurant, err := c.loader.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return decimal.Zero, err
	}

	rate := restaurant.TaxRate
	if rate.IsZero() {
		rate = c.fallback
	}

	if err := c.redis.Set(ctx, key, rate.String(), c.ttl).Err(); err != nil {
		c.log.Warn("failed to cache tax rate", zap.String("restaurant_id", restaurantID), zap.Error(err))
	}
	return rate, nil
}

// Invalidate drops the cached rate after a restaurant's settings change.
func (c *TaxRates) Invalidate(ctx context.Context, restaurantID string) error {
	if err := c.redis.Del(ctx, taxRateKey(restaurantID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate tax rate for %s: %w", restaurantID, err)
	}
	return nil
}
