package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/aurelia-shop/pricing-engine/internal/domain/pricing"
)

const (
	listActiveDiscountsSQL = `SELECT id, discount_type, value, start_date, end_date,
		active, min_quantity, max_quantity, items
		FROM discounts WHERE active = TRUE ORDER BY id`

	listEntitlementsSQL = `SELECT discount_id FROM user_discounts WHERE user_id = $1 ORDER BY discount_id`

	upsertDiscountSQL = `INSERT INTO discounts (id, discount_type, value, start_date, end_date,
		active, min_quantity, max_quantity, items)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			value = EXCLUDED.value,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			active = EXCLUDED.active,
			min_quantity = EXCLUDED.min_quantity,
			max_quantity = EXCLUDED.max_quantity,
			items = EXCLUDED.items`

	upsertEntitlementSQL = `INSERT INTO user_discounts (user_id, discount_id)
		VALUES ($1, $2) ON CONFLICT (user_id, discount_id) DO NOTHING`
)

var _ pricing.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements pricing.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// ListActive returns every rule flagged active, ordered by ID. Temporal
// eligibility is left to the pricing engine so that quotes stay reproducible
// for an injected reference instant.
func (r *DiscountRepository) ListActive(ctx context.Context) ([]pricing.Discount, error) {
	rows, err := r.pool.Query(ctx, listActiveDiscountsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active discounts: %w", err)
	}
	return pgx.CollectRows(rows, scanDiscount)
}

// ListEntitlements returns the discount IDs granted to the given user.
func (r *DiscountRepository) ListEntitlements(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, listEntitlementsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing entitlements for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
}

// Upsert creates or replaces a discount rule.
func (r *DiscountRepository) Upsert(ctx context.Context, d pricing.Discount) error {
	_, err := r.pool.Exec(ctx, upsertDiscountSQL,
		d.ID, string(d.Type), d.Value, d.StartDate, d.EndDate,
		d.Active, int32(d.MinQuantity), int32(d.MaxQuantity), d.Items,
	)
	if err != nil {
		return fmt.Errorf("upserting discount %q: %w", d.ID, err)
	}
	return nil
}

// GrantEntitlement records that the user may redeem the given discount.
// Duplicate grants are ignored.
func (r *DiscountRepository) GrantEntitlement(ctx context.Context, userID, discountID string) error {
	_, err := r.pool.Exec(ctx, upsertEntitlementSQL, userID, discountID)
	if err != nil {
		return fmt.Errorf("granting discount %q to user %q: %w", discountID, userID, err)
	}
	return nil
}

func scanDiscount(row pgx.CollectableRow) (pricing.Discount, error) {
	var (
		d            pricing.Discount
		discountType string
		value        decimal.Decimal
		endDate      *time.Time
		minQuantity  int32
		maxQuantity  int32
		items        []string
	)
	err := row.Scan(
		&d.ID, &discountType, &value, &d.StartDate, &endDate,
		&d.Active, &minQuantity, &maxQuantity, &items,
	)
	d.Type = pricing.DiscountType(discountType)
	d.Value = value
	d.EndDate = endDate
	d.MinQuantity = int(minQuantity)
	d.MaxQuantity = int(maxQuantity)
	d.Items = items
	return d, err
}
