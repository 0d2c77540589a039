package pricing

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Calculator loads the discount catalog and user entitlements, then runs the
// pure Calculate pipeline. It holds no mutable state between calls, so
// concurrent quotes are safe.
type Calculator struct {
	repo Repository
	opts Options
	now  func() time.Time
}

// NewCalculator creates a Calculator backed by the given catalog repository.
func NewCalculator(repo Repository, opts Options) *Calculator {
	return &Calculator{
		repo: repo,
		opts: opts,
		now:  time.Now,
	}
}

// Quote prices the cart. With a non-empty userID the user-scoped path runs
// against the user's entitlement allow-list; otherwise store-wide rules apply.
//
// When the catalog or entitlement lookup fails, Quote degrades instead of
// aborting: it returns the identity outcome together with an error wrapping
// ErrCatalogUnavailable. The result is always usable; the caller decides how
// to surface the failure.
func (c *Calculator) Quote(ctx context.Context, userID string, lines []CartLine) (*CalculationResult, error) {
	now := c.now()

	var allowed map[string]struct{}
	if userID != "" {
		ids, err := c.repo.ListEntitlements(ctx, userID)
		if err != nil {
			res := Identity(lines)
			return &res, errors.Wrapf(ErrCatalogUnavailable, "list entitlements for user %s: %s", userID, err)
		}
		allowed = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			allowed[id] = struct{}{}
		}
	}

	pool, err := c.repo.ListActive(ctx)
	if err != nil {
		res := Identity(lines)
		return &res, errors.Wrapf(ErrCatalogUnavailable, "list active discounts: %s", err)
	}

	res := Calculate(lines, pool, now, allowed, c.opts)
	return &res, nil
}
