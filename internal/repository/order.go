package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurelia-shop/pricing-engine/internal/domain/order"
	"github.com/aurelia-shop/pricing-engine/internal/domain/pricing"
)

const createOrderSQL = `INSERT INTO orders (id, user_id, lines, original_amount,
	discount_amount, final_amount, applied_discounts, selected_discount_id, pricing_mode)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// appliedDiscountRecord is the JSONB shape stored for each applied discount.
// It mirrors pricing.AppliedDiscount so the order record is a faithful audit
// of the engine output.
type appliedDiscountRecord struct {
	DiscountID      string `json:"discount_id"`
	ProductID       string `json:"product_id"`
	Type            string `json:"type"`
	Value           string `json:"value"`
	DiscountApplied string `json:"discount_applied"`
	OriginalPrice   string `json:"original_price"`
	FinalPrice      string `json:"final_price"`
	Message         string `json:"message,omitempty"`
}

// Create persists a new order. Lines and the applied discount summaries are
// serialized to JSON for storage in JSONB columns.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshaling order lines: %w", err)
	}

	appliedJSON, err := json.Marshal(toAppliedRecords(o.AppliedDiscounts))
	if err != nil {
		return fmt.Errorf("marshaling applied discounts: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, linesJSON,
		o.OriginalAmount, o.DiscountAmount, o.FinalAmount,
		appliedJSON, o.SelectedDiscountID, o.PricingMode,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return nil
}

func toAppliedRecords(applied []pricing.AppliedDiscount) []appliedDiscountRecord {
	records := make([]appliedDiscountRecord, len(applied))
	for i, ad := range applied {
		records[i] = appliedDiscountRecord{
			DiscountID:      ad.DiscountID,
			ProductID:       ad.ProductID,
			Type:            string(ad.Type),
			Value:           ad.Value.String(),
			DiscountApplied: ad.DiscountApplied.String(),
			OriginalPrice:   ad.OriginalPrice.String(),
			FinalPrice:      ad.FinalPrice.String(),
			Message:         ad.Message,
		}
	}
	return records
}
