package pricing

import "time"

// Calculate runs the full resolution pipeline over the cart:
//
//	mode selection -> eligibility filter -> per-line valuation ->
//	best-candidate selection -> aggregation
//
// When allowed is non-empty the user-scoped path runs and is terminal:
// only allow-listed discounts are considered, and global rules are not
// consulted as a fallback. With an empty allow-list the global path runs
// against every temporally eligible rule; if none exists the identity
// outcome is returned (totals pass through undiscounted).
//
// Identical inputs always yield identical output.
func Calculate(lines []CartLine, pool []Discount, now time.Time, allowed map[string]struct{}, opts Options) CalculationResult {
	var (
		mode     Mode
		eligible []Discount
	)
	if len(allowed) > 0 {
		mode = ModeUser
		eligible = FilterEligible(pool, now, allowed)
	} else {
		eligible = FilterEligible(pool, now, nil)
		if len(eligible) > 0 {
			mode = ModeGlobal
		} else {
			return Identity(lines)
		}
	}

	result := CalculationResult{
		Mode:           mode,
		OriginalAmount: zero,
		DiscountAmount: zero,
	}

	for _, line := range lines {
		result.OriginalAmount = result.OriginalAmount.Add(line.Subtotal())

		// Lines with a non-positive quantity still contribute their subtotal
		// but never carry a discount.
		if line.Quantity <= 0 {
			continue
		}

		candidates := make([]AppliedDiscount, 0, len(eligible))
		for _, d := range eligible {
			if ad, ok := Valuate(d, line, opts); ok {
				candidates = append(candidates, ad)
			}
		}

		best, ok := selectBest(candidates)
		if !ok {
			continue
		}

		result.DiscountAmount = result.DiscountAmount.Add(best.DiscountApplied)
		result.AppliedDiscounts = append(result.AppliedDiscounts, best)
	}

	result.OriginalAmount = result.OriginalAmount.Round(2)
	result.DiscountAmount = result.DiscountAmount.Round(2)
	// The final amount is derived, never computed independently.
	result.FinalAmount = result.OriginalAmount.Sub(result.DiscountAmount)
	result.SelectedDiscount = headline(result.AppliedDiscounts)

	return result
}

// Identity builds the pass-through outcome: original totals, no discounts.
// It is the terminal state when no rules are eligible and the degraded
// outcome when the catalog cannot be loaded.
func Identity(lines []CartLine) CalculationResult {
	original := zero
	for _, line := range lines {
		original = original.Add(line.Subtotal())
	}
	original = original.Round(2)

	return CalculationResult{
		Mode:           ModeIdentity,
		OriginalAmount: original,
		DiscountAmount: zero,
		FinalAmount:    original,
	}
}

// headline returns a copy of the per-line entry with the maximum saving.
// Ties keep the first entry in line order.
func headline(applied []AppliedDiscount) *AppliedDiscount {
	if len(applied) == 0 {
		return nil
	}

	best := applied[0]
	for _, ad := range applied[1:] {
		if ad.DiscountApplied.GreaterThan(best.DiscountApplied) {
			best = ad
		}
	}
	return &best
}
