package pricing

import "time"

// FilterEligible returns the discounts that are currently valid. A discount is
// temporally eligible when it is active, its start date has passed, and its
// end date (if any) has not. When allowed is non-nil the discount's ID must
// additionally be present in the allow-list; a nil allowed map skips that
// check entirely (global mode).
func FilterEligible(discounts []Discount, now time.Time, allowed map[string]struct{}) []Discount {
	eligible := make([]Discount, 0, len(discounts))
	for _, d := range discounts {
		if !d.EligibleAt(now) {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[d.ID]; !ok {
				continue
			}
		}
		eligible = append(eligible, d)
	}
	return eligible
}

// EligibleAt reports whether the discount is temporally valid at the given
// instant.
func (d Discount) EligibleAt(now time.Time) bool {
	if !d.Active {
		return false
	}
	if now.Before(d.StartDate) {
		return false
	}
	if d.EndDate != nil && now.After(*d.EndDate) {
		return false
	}
	return true
}

// appliesTo reports whether the discount is a candidate for the given line:
// the line's product must be covered by the discount's item set (empty set =
// store-wide) and, for percentage and fixed rules, the line quantity must sit
// within the rule's quantity bounds. Buy-X-get-Y rules reinterpret the bounds
// as threshold/free-unit encoding, so only the item check applies to them;
// their quantity handling lives in the valuation strategy.
//
// A line failing these checks is simply not a candidate — never an error.
func (d Discount) appliesTo(line CartLine) bool {
	if !d.StoreWide() && !d.coversProduct(line.ProductID) {
		return false
	}
	if d.Type == DiscountBuyXGetY {
		return true
	}
	if line.Quantity < d.MinQuantity {
		return false
	}
	if d.MaxQuantity > 0 && line.Quantity > d.MaxQuantity {
		return false
	}
	return true
}

func (d Discount) coversProduct(productID string) bool {
	for _, id := range d.Items {
		if id == productID {
			return true
		}
	}
	return false
}
