package pricing

// selectBest picks the candidate with the strictly greatest saving for a
// single line. Ties are broken by the lowest discount ID, which keeps the
// output deterministic regardless of catalog iteration order. The second
// return value is false when the candidate set is empty (the line stays
// undiscounted).
func selectBest(candidates []AppliedDiscount) (AppliedDiscount, bool) {
	if len(candidates) == 0 {
		return AppliedDiscount{}, false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		switch {
		case c.DiscountApplied.GreaterThan(best.DiscountApplied):
			best = c
		case c.DiscountApplied.Equal(best.DiscountApplied) && c.DiscountID < best.DiscountID:
			best = c
		}
	}
	return best, true
}
