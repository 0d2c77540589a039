package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurelia-shop/pricing-engine/internal/domain/catalog"
	"github.com/aurelia-shop/pricing-engine/internal/domain/order"
	"github.com/aurelia-shop/pricing-engine/internal/domain/pricing"
)

type mockDiscountRepo struct {
	discounts []pricing.Discount
	listErr   error
}

func (m *mockDiscountRepo) ListActive(_ context.Context) ([]pricing.Discount, error) {
	return m.discounts, m.listErr
}

func (m *mockDiscountRepo) ListEntitlements(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

type mockProductRepo struct {
	products []catalog.Product
}

func (m *mockProductRepo) List(_ context.Context) ([]catalog.Product, error) {
	return m.products, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, id := range ids {
		if p, err := m.GetByID(context.Background(), id); err == nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

// quoteResponse mirrors the wire shape for assertions.
type quoteResponse struct {
	Mode             string          `json:"mode"`
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	FinalAmount      decimal.Decimal `json:"final_amount"`
	AppliedDiscounts []struct {
		DiscountID      string          `json:"discount_id"`
		ProductID       string          `json:"product_id"`
		DiscountApplied decimal.Decimal `json:"discount_applied"`
		Message         string          `json:"message"`
	} `json:"applied_discounts"`
	SelectedDiscount *struct {
		DiscountID string `json:"discount_id"`
	} `json:"selected_discount"`
	CatalogWarning string `json:"catalog_warning"`
}

func newQuoteHandler(repo pricing.Repository) *Handler {
	calc := pricing.NewCalculator(repo, pricing.Options{})
	return NewHandler(Config{}, &mockProductRepo{}, calc, nil, nil, nil)
}

func postQuote(t *testing.T, h *Handler, body string) (*httptest.ResponseRecorder, quoteResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/cart/quote", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.QuoteCart(rec, req)

	var resp quoteResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestQuoteCart(t *testing.T) {
	repo := &mockDiscountRepo{
		discounts: []pricing.Discount{
			{
				ID:        "spring15",
				Type:      pricing.DiscountPercentage,
				Value:     decimal.NewFromInt(15),
				Active:    true,
				StartDate: time.Now().Add(-time.Hour),
			},
		},
	}
	h := newQuoteHandler(repo)

	rec, resp := postQuote(t, h, `{
		"lines": [{"product_id": "ring-1", "name": "Ring", "price": 10000, "quantity": 2}]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "global", resp.Mode)
	assert.True(t, decimal.NewFromInt(20000).Equal(resp.OriginalAmount))
	assert.True(t, decimal.NewFromInt(3000).Equal(resp.DiscountAmount))
	assert.True(t, decimal.NewFromInt(17000).Equal(resp.FinalAmount))
	require.NotNil(t, resp.SelectedDiscount)
	assert.Equal(t, "spring15", resp.SelectedDiscount.DiscountID)
	assert.Empty(t, resp.CatalogWarning)
}

func TestQuoteCartStringPrices(t *testing.T) {
	repo := &mockDiscountRepo{}
	h := newQuoteHandler(repo)

	rec, resp := postQuote(t, h, `{
		"lines": [{"product_id": "ring-1", "price": "1249.00", "quantity": 1}]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "identity", resp.Mode)
	assert.True(t, decimal.RequireFromString("1249.00").Equal(resp.FinalAmount))
}

func TestQuoteCartDegradesOnCatalogFailure(t *testing.T) {
	repo := &mockDiscountRepo{listErr: errors.New("connection refused")}
	h := newQuoteHandler(repo)

	rec, resp := postQuote(t, h, `{
		"lines": [{"product_id": "ring-1", "price": 500, "quantity": 2}]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "identity", resp.Mode)
	assert.True(t, decimal.NewFromInt(1000).Equal(resp.FinalAmount))
	assert.NotEmpty(t, resp.CatalogWarning)
}

func TestQuoteCartRejectsEmptyLines(t *testing.T) {
	h := newQuoteHandler(&mockDiscountRepo{})

	rec, _ := postQuote(t, h, `{"lines": []}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuoteCartRejectsMalformedBody(t *testing.T) {
	h := newQuoteHandler(&mockDiscountRepo{})

	rec, _ := postQuote(t, h, `{"lines": [{`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuoteCartBuyXGetYMessage(t *testing.T) {
	repo := &mockDiscountRepo{
		discounts: []pricing.Discount{
			{
				ID:          "bxgy3",
				Type:        pricing.DiscountBuyXGetY,
				Active:      true,
				StartDate:   time.Now().Add(-time.Hour),
				MinQuantity: 3,
			},
		},
	}
	h := newQuoteHandler(repo)

	rec, resp := postQuote(t, h, `{
		"lines": [{"product_id": "stud-1", "price": 1000, "quantity": 2}]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.AppliedDiscounts, 1)
	assert.True(t, resp.AppliedDiscounts[0].DiscountApplied.IsZero())
	assert.Contains(t, resp.AppliedDiscounts[0].Message, "Add 1 more")
	// advisory only: totals unchanged
	assert.True(t, resp.OriginalAmount.Equal(resp.FinalAmount))
}

type mockOrderRepo struct {
	lastOrder *order.Order
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.lastOrder = o
	return nil
}

func TestPlaceOrderEndpoint(t *testing.T) {
	products := &mockProductRepo{products: []catalog.Product{
		{ID: "ring-1", SKU: "AUR-1", Name: "Ring", Price: decimal.NewFromInt(10000)},
	}}
	repo := &mockDiscountRepo{
		discounts: []pricing.Discount{
			{
				ID:        "spring15",
				Type:      pricing.DiscountPercentage,
				Value:     decimal.NewFromInt(15),
				Active:    true,
				StartDate: time.Now().Add(-time.Hour),
			},
		},
	}
	calc := pricing.NewCalculator(repo, pricing.Options{})
	orders := &mockOrderRepo{}
	svc := order.NewService(products, calc, orders)
	h := NewHandler(Config{}, products, calc, svc, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{
		"lines": [{"product_id": "ring-1", "quantity": 2}]
	}`))
	rec := httptest.NewRecorder()
	h.PlaceOrder(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, orders.lastOrder)
	assert.Equal(t, "spring15", orders.lastOrder.SelectedDiscountID)

	var resp struct {
		ID          string          `json:"id"`
		FinalAmount decimal.Decimal `json:"final_amount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.True(t, decimal.NewFromInt(17000).Equal(resp.FinalAmount))
}

func TestPlaceOrderEndpointUnknownProduct(t *testing.T) {
	products := &mockProductRepo{}
	calc := pricing.NewCalculator(&mockDiscountRepo{}, pricing.Options{})
	svc := order.NewService(products, calc, &mockOrderRepo{})
	h := NewHandler(Config{}, products, calc, svc, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{
		"lines": [{"product_id": "ghost", "quantity": 1}]
	}`))
	rec := httptest.NewRecorder()
	h.PlaceOrder(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
