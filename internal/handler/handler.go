// Package handler exposes the storefront API over HTTP: cart quotes, the
// product catalog, order placement, and discount administration.
package handler

import (
	"context"
	"net/http"

	"github.com/aurelia-shop/pricing-engine/internal/domain/auth"
	"github.com/aurelia-shop/pricing-engine/internal/domain/catalog"
	"github.com/aurelia-shop/pricing-engine/internal/domain/order"
	"github.com/aurelia-shop/pricing-engine/internal/domain/pricing"
)

// DiscountStore persists discount rules for the admin surface.
type DiscountStore interface {
	Upsert(ctx context.Context, d pricing.Discount) error
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
	// APIKeyPepper is the HMAC pepper used to hash incoming API keys.
	APIKeyPepper []byte
}

// Handler wires the HTTP surface to the domain services.
type Handler struct {
	products     catalog.Repository
	calculator   *pricing.Calculator
	orderService *order.Service
	discounts    DiscountStore
	apikeys      auth.Repository
	// invalidateCatalog drops any cached discount state after an admin
	// change. Nil when no cache is configured.
	invalidateCatalog func(ctx context.Context) error
	imageBaseURL      string
	pepper            []byte
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	products catalog.Repository,
	calculator *pricing.Calculator,
	orderService *order.Service,
	discounts DiscountStore,
	apikeys auth.Repository,
) *Handler {
	return &Handler{
		products:     products,
		calculator:   calculator,
		orderService: orderService,
		discounts:    discounts,
		apikeys:      apikeys,
		imageBaseURL: cfg.ImageBaseURL,
		pepper:       cfg.APIKeyPepper,
	}
}

// SetCatalogInvalidator installs the cache invalidation hook used after
// admin catalog changes.
func (h *Handler) SetCatalogInvalidator(fn func(ctx context.Context) error) {
	h.invalidateCatalog = fn
}

// Register mounts all API routes on the given mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/cart/quote", h.QuoteCart)
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("POST /api/orders", h.requireAPIKey(auth.ScopePlaceOrder, h.PlaceOrder))
	mux.HandleFunc("POST /api/admin/discounts", h.requireAPIKey(auth.ScopeManageCatalog, h.UpsertDiscount))
}
