package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Valuate prices a single line under a single rule. It is pure and
// deterministic. The second return value is false when the rule is not
// applicable to the line (wrong product, quantity out of bounds, malformed
// rule, unknown type) — never an error condition, the rule is simply not a
// candidate for this line.
func Valuate(d Discount, line CartLine, opts Options) (AppliedDiscount, bool) {
	if line.Quantity <= 0 {
		return AppliedDiscount{}, false
	}
	if !d.appliesTo(line) {
		return AppliedDiscount{}, false
	}

	original := line.Subtotal()

	switch d.Type {
	case DiscountPercentage:
		return applied(d, line, valuatePercentage(d, original), ""), true
	case DiscountFixed:
		return applied(d, line, valuateFixed(d, line, original, opts), ""), true
	case DiscountBuyXGetY:
		return valuateBuyXGetY(d, line, original)
	default:
		return AppliedDiscount{}, false
	}
}

// valuatePercentage takes Value percent off the subtotal, clamped to
// [0, subtotal].
func valuatePercentage(d Discount, original decimal.Decimal) decimal.Decimal {
	amount := original.Mul(d.Value).Div(hundred).Round(2)
	return clamp(amount, zero, original)
}

// valuateFixed takes a flat amount off the line subtotal, never exceeding it.
// The default treats Value as a per-line amount; Options.FixedPerUnit switches
// to per-unit semantics (Value times quantity, then capped).
func valuateFixed(d Discount, line CartLine, original decimal.Decimal, opts Options) decimal.Decimal {
	value := d.Value
	if opts.FixedPerUnit {
		value = value.Mul(decimal.NewFromInt(int64(line.Quantity)))
	}
	return clamp(value.Round(2), zero, original)
}

// valuateBuyXGetY grants free units for every MinQuantity units purchased.
// The free-unit count per threshold is MaxQuantity - MinQuantity when both
// are set, defaulting to 1. A rule without a positive threshold is malformed
// and skipped.
//
// When the line has not reached the first threshold the rule still produces
// a zero-amount result carrying an advisory message, so the storefront can
// nudge the customer toward the free item.
func valuateBuyXGetY(d Discount, line CartLine, original decimal.Decimal) (AppliedDiscount, bool) {
	x := d.MinQuantity
	if x <= 0 {
		return AppliedDiscount{}, false
	}

	y := 1
	if d.MaxQuantity > d.MinQuantity {
		y = d.MaxQuantity - d.MinQuantity
	}

	thresholdsMet := line.Quantity / x
	if thresholdsMet == 0 {
		remaining := x - line.Quantity%x
		msg := fmt.Sprintf("Add %d more to unlock a free item", remaining)
		return applied(d, line, zero, msg), true
	}

	freeUnits := thresholdsMet * y
	if freeUnits > line.Quantity {
		freeUnits = line.Quantity
	}
	amount := line.Price.Mul(decimal.NewFromInt(int64(freeUnits))).Round(2)

	return applied(d, line, clamp(amount, zero, original), ""), true
}

func applied(d Discount, line CartLine, amount decimal.Decimal, msg string) AppliedDiscount {
	original := line.Subtotal()
	return AppliedDiscount{
		DiscountID:      d.ID,
		ProductID:       line.ProductID,
		Type:            d.Type,
		Value:           d.Value,
		DiscountApplied: amount,
		OriginalPrice:   original,
		FinalPrice:      original.Sub(amount),
		Message:         msg,
	}
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
