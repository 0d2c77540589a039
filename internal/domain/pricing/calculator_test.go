package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCatalogRepo struct {
	discounts       []Discount
	listErr         error
	entitlements    map[string][]string
	entitlementsErr error
}

func (m *mockCatalogRepo) ListActive(_ context.Context) ([]Discount, error) {
	return m.discounts, m.listErr
}

func (m *mockCatalogRepo) ListEntitlements(_ context.Context, userID string) ([]string, error) {
	if m.entitlementsErr != nil {
		return nil, m.entitlementsErr
	}
	return m.entitlements[userID], nil
}

func fixedClock(c *Calculator) {
	c.now = func() time.Time { return testNow }
}

func TestCalculatorQuoteGlobal(t *testing.T) {
	repo := &mockCatalogRepo{
		discounts: []Discount{activeDiscount("pct10", DiscountPercentage, "10")},
	}
	calc := NewCalculator(repo, Options{})
	fixedClock(calc)

	res, err := calc.Quote(context.Background(), "", []CartLine{
		{ProductID: "ring-1", Price: d("1000"), Quantity: 1},
	})

	require.NoError(t, err)
	assert.Equal(t, ModeGlobal, res.Mode)
	assert.True(t, d("100").Equal(res.DiscountAmount))
}

func TestCalculatorQuoteUserScoped(t *testing.T) {
	repo := &mockCatalogRepo{
		discounts: []Discount{
			activeDiscount("global50", DiscountPercentage, "50"),
			activeDiscount("vip20", DiscountPercentage, "20"),
		},
		entitlements: map[string][]string{"user-7": {"vip20"}},
	}
	calc := NewCalculator(repo, Options{})
	fixedClock(calc)

	res, err := calc.Quote(context.Background(), "user-7", []CartLine{
		{ProductID: "ring-1", Price: d("1000"), Quantity: 1},
	})

	require.NoError(t, err)
	assert.Equal(t, ModeUser, res.Mode)
	require.Len(t, res.AppliedDiscounts, 1)
	assert.Equal(t, "vip20", res.AppliedDiscounts[0].DiscountID)
}

func TestCalculatorQuoteUserWithoutEntitlementsFallsToGlobal(t *testing.T) {
	repo := &mockCatalogRepo{
		discounts:    []Discount{activeDiscount("pct10", DiscountPercentage, "10")},
		entitlements: map[string][]string{},
	}
	calc := NewCalculator(repo, Options{})
	fixedClock(calc)

	res, err := calc.Quote(context.Background(), "user-9", []CartLine{
		{ProductID: "ring-1", Price: d("1000"), Quantity: 1},
	})

	require.NoError(t, err)
	assert.Equal(t, ModeGlobal, res.Mode)
}

func TestCalculatorQuoteDegradesOnCatalogFailure(t *testing.T) {
	repo := &mockCatalogRepo{listErr: errors.New("connection refused")}
	calc := NewCalculator(repo, Options{})
	fixedClock(calc)

	lines := []CartLine{{ProductID: "ring-1", Price: d("1000"), Quantity: 2}}
	res, err := calc.Quote(context.Background(), "", lines)

	require.ErrorIs(t, err, ErrCatalogUnavailable)
	require.NotNil(t, res)
	assert.Equal(t, ModeIdentity, res.Mode)
	assert.True(t, d("2000").Equal(res.OriginalAmount))
	assert.True(t, res.DiscountAmount.IsZero())
	assert.True(t, res.OriginalAmount.Equal(res.FinalAmount))
}

func TestCalculatorQuoteDegradesOnEntitlementFailure(t *testing.T) {
	repo := &mockCatalogRepo{
		discounts:       []Discount{activeDiscount("pct10", DiscountPercentage, "10")},
		entitlementsErr: errors.New("timeout"),
	}
	calc := NewCalculator(repo, Options{})
	fixedClock(calc)

	res, err := calc.Quote(context.Background(), "user-7", []CartLine{
		{ProductID: "ring-1", Price: d("1000"), Quantity: 1},
	})

	require.ErrorIs(t, err, ErrCatalogUnavailable)
	assert.Equal(t, ModeIdentity, res.Mode)
}
