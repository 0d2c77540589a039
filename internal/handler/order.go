package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/aurelia-shop/pricing-engine/internal/domain/order"
	"github.com/aurelia-shop/pricing-engine/internal/domain/pricing"
)

// PlaceOrder validates and prices the posted lines, persists the order with
// its discount audit trail, and returns the stored totals.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxQuoteBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "read request body")
		return
	}

	req, err := decodeOrderRequest(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.orderService.PlaceOrder(r.Context(), req)
	if err != nil {
		h.respondOrderError(w, r, err)
		return
	}

	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("id")
	e.Str(result.Order.ID)
	encodeAmount(e, "original_amount", result.Order.OriginalAmount)
	encodeAmount(e, "discount_amount", result.Order.DiscountAmount)
	encodeAmount(e, "final_amount", result.Order.FinalAmount)
	e.FieldStart("pricing_mode")
	e.Str(result.Order.PricingMode)

	e.FieldStart("lines")
	e.ArrStart()
	for _, line := range result.Order.Lines {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(line.ProductID)
		e.FieldStart("quantity")
		e.Int(line.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("applied_discounts")
	e.ArrStart()
	for _, ad := range result.Order.AppliedDiscounts {
		encodeAppliedDiscount(e, ad)
	}
	e.ArrEnd()

	e.FieldStart("selected_discount_id")
	e.Str(result.Order.SelectedDiscountID)

	e.FieldStart("products")
	e.ArrStart()
	for _, p := range result.Products {
		h.encodeProduct(e, p)
	}
	e.ArrEnd()
	e.ObjEnd()

	writeJSON(w, http.StatusCreated, e)
}

// respondOrderError maps domain errors to HTTP responses.
func (h *Handler) respondOrderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrEmptyLines):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pricing.ErrCatalogUnavailable):
		// Checkout refuses degraded pricing; the client should retry.
		respondError(w, http.StatusServiceUnavailable, "discount catalog unavailable, try again")
	default:
		var iq *order.InvalidQuantityError
		var pnf *order.ProductNotFoundError
		if errors.As(err, &iq) {
			respondError(w, http.StatusUnprocessableEntity, iq.Error())
			return
		}
		if errors.As(err, &pnf) {
			respondError(w, http.StatusUnprocessableEntity, pnf.Error())
			return
		}
		respondInternal(w, r, err)
	}
}

func decodeOrderRequest(body []byte) (order.PlaceOrderRequest, error) {
	var req order.PlaceOrderRequest
	d := jx.DecodeBytes(body)

	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "user_id":
			v, err := d.Str()
			req.UserID = v
			return err
		case "lines":
			return d.Arr(func(d *jx.Decoder) error {
				var line order.Line
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					switch key {
					case "product_id":
						v, err := d.Str()
						line.ProductID = v
						return err
					case "quantity":
						v, err := d.Int()
						line.Quantity = v
						return err
					default:
						return d.Skip()
					}
				}); err != nil {
					return err
				}
				req.Lines = append(req.Lines, line)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return order.PlaceOrderRequest{}, errors.Wrap(err, "malformed order request")
	}

	return req, nil
}
