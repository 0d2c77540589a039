// Package cache provides an optional Redis read-through cache in front of the
// discount catalog. Quotes are recomputed on every cart edit, so the global
// rule list is by far the hottest read in the service.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aurelia-shop/pricing-engine/internal/domain/pricing"
)

const activeDiscountsKey = "pricing:discounts:active"

// DiscountCache decorates a pricing.Repository with a TTL-bound Redis cache
// for the active rule list. Entitlement lookups are per-user and cheap, so
// they always go to the underlying repository.
//
// Cache failures are never fatal: reads fall through to the repository and
// write failures are logged and dropped.
type DiscountCache struct {
	next pricing.Repository
	rdb  *redis.Client
	ttl  time.Duration
}

var _ pricing.Repository = (*DiscountCache)(nil)

// NewDiscountCache wraps next with a Redis cache using the given TTL.
func NewDiscountCache(next pricing.Repository, rdb *redis.Client, ttl time.Duration) *DiscountCache {
	return &DiscountCache{next: next, rdb: rdb, ttl: ttl}
}

// cachedDiscount is the JSON shape stored in Redis. Decimal values are kept
// as strings to survive the round trip exactly.
type cachedDiscount struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Value       string     `json:"value"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Active      bool       `json:"active"`
	MinQuantity int        `json:"min_quantity"`
	MaxQuantity int        `json:"max_quantity"`
	Items       []string   `json:"items,omitempty"`
}

// ListActive returns the cached rule list when present, otherwise loads it
// from the underlying repository and stores it with the configured TTL.
func (c *DiscountCache) ListActive(ctx context.Context) ([]pricing.Discount, error) {
	payload, err := c.rdb.Get(ctx, activeDiscountsKey).Bytes()
	if err == nil {
		discounts, decodeErr := decodeDiscounts(payload)
		if decodeErr == nil {
			return discounts, nil
		}
		zctx.From(ctx).Warn("Discarding undecodable discount cache entry", zap.Error(decodeErr))
	} else if !errors.Is(err, redis.Nil) {
		zctx.From(ctx).Warn("Discount cache read failed", zap.Error(err))
	}

	discounts, err := c.next.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if payload, err := encodeDiscounts(discounts); err == nil {
		if err := c.rdb.Set(ctx, activeDiscountsKey, payload, c.ttl).Err(); err != nil {
			zctx.From(ctx).Warn("Discount cache write failed", zap.Error(err))
		}
	}

	return discounts, nil
}

// ListEntitlements passes straight through to the underlying repository.
func (c *DiscountCache) ListEntitlements(ctx context.Context, userID string) ([]string, error) {
	return c.next.ListEntitlements(ctx, userID)
}

// Invalidate drops the cached rule list. Called after admin catalog changes.
func (c *DiscountCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Del(ctx, activeDiscountsKey).Err(); err != nil {
		return errors.Wrap(err, "invalidate discount cache")
	}
	return nil
}

func encodeDiscounts(discounts []pricing.Discount) ([]byte, error) {
	cached := make([]cachedDiscount, len(discounts))
	for i, d := range discounts {
		cached[i] = cachedDiscount{
			ID:          d.ID,
			Type:        string(d.Type),
			Value:       d.Value.String(),
			StartDate:   d.StartDate,
			EndDate:     d.EndDate,
			Active:      d.Active,
			MinQuantity: d.MinQuantity,
			MaxQuantity: d.MaxQuantity,
			Items:       d.Items,
		}
	}
	return json.Marshal(cached)
}

func decodeDiscounts(payload []byte) ([]pricing.Discount, error) {
	var cached []cachedDiscount
	if err := json.Unmarshal(payload, &cached); err != nil {
		return nil, errors.Wrap(err, "unmarshal cached discounts")
	}

	discounts := make([]pricing.Discount, len(cached))
	for i, c := range cached {
		value, err := decimal.NewFromString(c.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "parse cached value for discount %s", c.ID)
		}
		discounts[i] = pricing.Discount{
			ID:          c.ID,
			Type:        pricing.DiscountType(c.Type),
			Value:       value,
			StartDate:   c.StartDate,
			EndDate:     c.EndDate,
			Active:      c.Active,
			MinQuantity: c.MinQuantity,
			MaxQuantity: c.MaxQuantity,
			Items:       c.Items,
		}
	}
	return discounts, nil
}
