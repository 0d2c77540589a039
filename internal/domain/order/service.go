package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aurelia-shop/pricing-engine/internal/domain/catalog"
	"github.com/aurelia-shop/pricing-engine/internal/domain/pricing"
)

// ErrEmptyLines is returned when an order carries no lines at all.
var ErrEmptyLines = fmt.Errorf("order lines required")

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	UserID string
	Lines  []Line
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order    *Order
	Products []catalog.Product
}

// Service encapsulates order placement: it validates lines, resolves products,
// prices the cart through the discount engine, and persists the order with
// its pricing audit trail.
type Service struct {
	products   catalog.Repository
	calculator *pricing.Calculator
	orders     Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products catalog.Repository,
	calculator *pricing.Calculator,
	orders Repository,
) *Service {
	return &Service{
		products:   products,
		calculator: calculator,
		orders:     orders,
	}
}

// PlaceOrder validates lines, fetches products in a single batch, prices the
// cart, persists the order, and returns the result. Unlike a cart quote, a
// checkout refuses to proceed when the discount catalog is unavailable: the
// stored audit trail must reflect the real entitlements, not a degraded run.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}

	ids := make([]string, len(req.Lines))
	for i, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: line.ProductID}
		}
		ids[i] = line.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	productMap := make(map[string]catalog.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	products := make([]catalog.Product, 0, len(req.Lines))
	cartLines := make([]pricing.CartLine, len(req.Lines))
	for i, line := range req.Lines {
		p, ok := productMap[line.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: line.ProductID}
		}
		products = append(products, p)
		cartLines[i] = pricing.CartLine{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  line.Quantity,
		}
	}

	result, err := s.calculator.Quote(ctx, req.UserID, cartLines)
	if err != nil {
		return nil, fmt.Errorf("price cart: %w", err)
	}

	o := &Order{
		ID:               uuid.New().String(),
		UserID:           req.UserID,
		Lines:            req.Lines,
		OriginalAmount:   result.OriginalAmount,
		DiscountAmount:   result.DiscountAmount,
		FinalAmount:      result.FinalAmount,
		AppliedDiscounts: result.AppliedDiscounts,
		PricingMode:      string(result.Mode),
	}
	if result.SelectedDiscount != nil {
		o.SelectedDiscountID = result.SelectedDiscount.DiscountID
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return &PlaceOrderResult{
		Order:    o,
		Products: products,
	}, nil
}
