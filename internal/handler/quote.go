package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/aurelia-shop/pricing-engine/internal/domain/pricing"
)

// maxQuoteBody caps the request size for cart quotes.
const maxQuoteBody = 1 << 20

type quoteRequest struct {
	UserID string
	Lines  []pricing.CartLine
}

// QuoteCart prices the posted cart and returns the full calculation result.
// When the discount catalog is unavailable the response is the identity
// outcome with a catalog_warning field, and the status stays 200: a degraded
// quote is still a usable quote.
func (h *Handler) QuoteCart(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxQuoteBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "read request body")
		return
	}

	req, err := decodeQuoteRequest(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Lines) == 0 {
		respondError(w, http.StatusBadRequest, "lines required")
		return
	}

	res, err := h.calculator.Quote(r.Context(), req.UserID, req.Lines)

	warning := ""
	if err != nil {
		if !errors.Is(err, pricing.ErrCatalogUnavailable) {
			respondInternal(w, r, err)
			return
		}
		warning = "discount catalog unavailable, no discounts applied"
	}

	e := &jx.Encoder{}
	encodeCalculation(e, res, warning)
	writeJSON(w, http.StatusOK, e)
}

func decodeQuoteRequest(body []byte) (quoteRequest, error) {
	var req quoteRequest
	d := jx.DecodeBytes(body)

	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "user_id":
			v, err := d.Str()
			req.UserID = v
			return err
		case "lines":
			return d.Arr(func(d *jx.Decoder) error {
				line, err := decodeCartLine(d)
				if err != nil {
					return err
				}
				req.Lines = append(req.Lines, line)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return quoteRequest{}, errors.Wrap(err, "malformed quote request")
	}

	return req, nil
}

func decodeCartLine(d *jx.Decoder) (pricing.CartLine, error) {
	var line pricing.CartLine
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "product_id":
			v, err := d.Str()
			line.ProductID = v
			return err
		case "name":
			v, err := d.Str()
			line.Name = v
			return err
		case "price":
			price, err := decodeDecimal(d)
			if err != nil {
				return errors.Wrap(err, "parse price")
			}
			line.Price = price
			return nil
		case "quantity":
			v, err := d.Int()
			line.Quantity = v
			return err
		default:
			return d.Skip()
		}
	})
	return line, err
}
