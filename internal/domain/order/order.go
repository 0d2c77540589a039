package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aurelia-shop/pricing-engine/internal/domain/pricing"
)

// Order is a completed checkout with the full pricing audit trail: every
// per-line discount and the headline discount are persisted exactly as the
// engine produced them.
type Order struct {
	ID     string
	UserID string
	Lines  []Line
	// OriginalAmount, DiscountAmount and FinalAmount are the engine's
	// cart-level totals at the moment of checkout.
	OriginalAmount decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
	// AppliedDiscounts holds one entry per discounted line.
	AppliedDiscounts []pricing.AppliedDiscount
	// SelectedDiscountID is the headline discount, empty when none applied.
	SelectedDiscountID string
	PricingMode        string
	CreatedAt          time.Time
}

// Line is a single ordered product.
type Line struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
}
