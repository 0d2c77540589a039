package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aurelia-shop/pricing-engine/internal/domain/pricing"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// discountPayload is the admin upsert body. Validation mirrors what the
// engine tolerates: the engine skips malformed rules at valuation time, but
// the admin surface rejects them up front so bad rules never reach storage.
type discountPayload struct {
	ID          string     `json:"id" validate:"required"`
	Type        string     `json:"type" validate:"required,oneof=percentage fixed buy_x_get_y"`
	Value       string     `json:"value" validate:"omitempty"`
	StartDate   time.Time  `json:"start_date" validate:"required"`
	EndDate     *time.Time `json:"end_date"`
	Active      bool       `json:"active"`
	MinQuantity int        `json:"min_quantity" validate:"gte=0"`
	MaxQuantity int        `json:"max_quantity" validate:"gte=0"`
	Items       []string   `json:"items" validate:"dive,required"`
}

// UpsertDiscount creates or replaces a discount rule and invalidates any
// cached catalog state.
func (h *Handler) UpsertDiscount(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxQuoteBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "read request body")
		return
	}

	var payload discountPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "malformed discount payload")
		return
	}
	if err := validate.Struct(payload); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	value := decimal.Zero
	if payload.Value != "" {
		value, err = decimal.NewFromString(payload.Value)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, "value must be a decimal string")
			return
		}
	}

	disc := pricing.Discount{
		ID:          payload.ID,
		Type:        pricing.DiscountType(payload.Type),
		Value:       value,
		StartDate:   payload.StartDate,
		EndDate:     payload.EndDate,
		Active:      payload.Active,
		MinQuantity: payload.MinQuantity,
		MaxQuantity: payload.MaxQuantity,
		Items:       payload.Items,
	}

	if disc.Type == pricing.DiscountBuyXGetY && disc.MinQuantity <= 0 {
		respondError(w, http.StatusUnprocessableEntity, "buy_x_get_y requires a positive min_quantity")
		return
	}

	if err := h.discounts.Upsert(r.Context(), disc); err != nil {
		respondInternal(w, r, err)
		return
	}

	// The rule is already stored; a failed invalidation only means the
	// cached list ages out on its TTL instead of immediately.
	if h.invalidateCatalog != nil {
		if err := h.invalidateCatalog(r.Context()); err != nil {
			zctx.From(r.Context()).Warn("Catalog cache invalidation failed", zap.Error(err))
		}
	}

	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("id")
	e.Str(disc.ID)
	e.FieldStart("status")
	e.Str("stored")
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e)
}
