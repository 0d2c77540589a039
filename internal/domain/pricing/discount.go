// Package pricing implements the discount resolution engine for the
// storefront: given a set of cart lines and a pool of candidate promotional
// rules, it decides per line which single rule yields the customer the best
// price and aggregates the outcome into cart-level totals.
//
// The engine is a pure, synchronous, in-memory computation. All I/O (loading
// the discount catalog, loading user entitlements) happens in the Calculator
// service before the engine runs.
package pricing

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported promotional rule kinds.
type DiscountType string

const (
	// DiscountPercentage takes a percentage off the line subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a flat amount off the line subtotal, capped at the
	// subtotal so the line price never goes negative.
	DiscountFixed DiscountType = "fixed"
	// DiscountBuyXGetY grants free units for every X units purchased.
	DiscountBuyXGetY DiscountType = "buy_x_get_y"
)

// ErrCatalogUnavailable is returned by the Calculator when the discount
// catalog could not be loaded. The accompanying result is still valid: it is
// the identity outcome (no discounts applied).
var ErrCatalogUnavailable = errors.New("discount catalog unavailable")

// Discount is a single promotional rule. The numeric meaning of Value depends
// on Type: a percentage for DiscountPercentage, a monetary amount for
// DiscountFixed, unused for DiscountBuyXGetY (the threshold and free-unit
// count are carried by MinQuantity/MaxQuantity).
//
// Discounts are immutable during a calculation; their lifecycle is owned by
// the catalog storage.
type Discount struct {
	ID        string
	Type      DiscountType
	Value     decimal.Decimal
	StartDate time.Time
	// EndDate is the last instant the discount is valid. Nil means no expiry.
	EndDate *time.Time
	Active  bool
	// MinQuantity is the minimum line quantity for the discount to apply.
	// For DiscountBuyXGetY it is the purchase threshold X instead.
	MinQuantity int
	// MaxQuantity is the maximum line quantity for the discount to apply
	// (0 = unbounded). For DiscountBuyXGetY it encodes the free-unit count:
	// Y = MaxQuantity - MinQuantity when MaxQuantity > MinQuantity, else 1.
	MaxQuantity int
	// Items restricts the discount to the listed product IDs.
	// Empty means store-wide.
	Items []string
}

// StoreWide reports whether the discount applies to every product.
func (d Discount) StoreWide() bool {
	return len(d.Items) == 0
}

// CartLine is one product entry in the cart. Lines are supplied fresh on
// every calculation and never persisted by the engine.
type CartLine struct {
	ProductID string
	Name      string
	// Price is the unit price.
	Price    decimal.Decimal
	Quantity int
}

// Subtotal returns the undiscounted line total (unit price times quantity).
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// AppliedDiscount records the outcome of applying a single rule to a single
// line. A line carries at most one AppliedDiscount: discounts never stack.
type AppliedDiscount struct {
	DiscountID string
	ProductID  string
	Type       DiscountType
	Value      decimal.Decimal
	// DiscountApplied is the amount saved on this line.
	DiscountApplied decimal.Decimal
	// OriginalPrice is the line subtotal before the discount.
	OriginalPrice decimal.Decimal
	FinalPrice    decimal.Decimal
	// Message carries optional advisory text (e.g. progress toward a
	// buy-X-get-Y threshold). It never affects the numeric outcome.
	Message string
}

// Mode identifies which resolution path produced a CalculationResult.
type Mode string

const (
	// ModeUser means the calculation used the caller-supplied entitlement
	// allow-list. This path is terminal: global discounts are not consulted.
	ModeUser Mode = "user"
	// ModeGlobal means store-wide promotional rules were used.
	ModeGlobal Mode = "global"
	// ModeIdentity means no discounts were eligible; totals pass through.
	ModeIdentity Mode = "identity"
)

// CalculationResult is the cart-level outcome of a pricing run.
//
// Invariants: FinalAmount == OriginalAmount - DiscountAmount, and
// 0 <= DiscountAmount <= OriginalAmount.
type CalculationResult struct {
	Mode           Mode
	OriginalAmount decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
	// AppliedDiscounts holds one entry per discounted line, in line order.
	// A rule used on several lines appears once per line.
	AppliedDiscounts []AppliedDiscount
	// SelectedDiscount is the single headline entry with the largest
	// DiscountApplied (ties broken by line order), or nil when no line
	// carries a discount.
	SelectedDiscount *AppliedDiscount
}

// Options tunes valuation behavior.
type Options struct {
	// FixedPerUnit interprets a fixed discount's Value as a per-unit amount
	// (multiplied by the line quantity before capping) instead of the default
	// per-line-subtotal amount.
	FixedPerUnit bool
}

// Repository loads the discount catalog and per-user entitlements.
type Repository interface {
	// ListActive returns all rules flagged active, regardless of date window.
	// Temporal eligibility is the engine's job, not the storage's.
	ListActive(ctx context.Context) ([]Discount, error)
	// ListEntitlements returns the IDs of the discounts granted to the user.
	ListEntitlements(ctx context.Context, userID string) ([]string, error)
}
