package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aurelia-shop/pricing-engine/internal/domain/pricing"
)

// writeJSON writes an encoded body with the given status code.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// respondError writes the standard {code, message} error body.
func respondError(w http.ResponseWriter, status int, message string) {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, status, e)
}

// respondInternal logs the error and hides the detail from the client.
func respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal error")
}

// decodeDecimal reads a JSON number or string-encoded number as a decimal.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	raw := n.String()
	if len(raw) >= 2 && raw[0] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	return decimal.NewFromString(raw)
}

// encodeAmount writes a decimal as a JSON number.
func encodeAmount(e *jx.Encoder, field string, v interface{ String() string }) {
	e.FieldStart(field)
	e.Num(jx.Num(v.String()))
}

// encodeAppliedDiscount writes one per-line discount summary.
func encodeAppliedDiscount(e *jx.Encoder, ad pricing.AppliedDiscount) {
	e.ObjStart()
	e.FieldStart("discount_id")
	e.Str(ad.DiscountID)
	e.FieldStart("product_id")
	e.Str(ad.ProductID)
	e.FieldStart("type")
	e.Str(string(ad.Type))
	encodeAmount(e, "value", ad.Value)
	encodeAmount(e, "discount_applied", ad.DiscountApplied)
	encodeAmount(e, "original_price", ad.OriginalPrice)
	encodeAmount(e, "final_price", ad.FinalPrice)
	if ad.Message != "" {
		e.FieldStart("message")
		e.Str(ad.Message)
	}
	e.ObjEnd()
}

// encodeCalculation writes the full engine result. catalogWarning, when
// non-empty, signals that the result is the degraded identity outcome.
func encodeCalculation(e *jx.Encoder, res *pricing.CalculationResult, catalogWarning string) {
	e.ObjStart()
	e.FieldStart("mode")
	e.Str(string(res.Mode))
	encodeAmount(e, "original_amount", res.OriginalAmount)
	encodeAmount(e, "discount_amount", res.DiscountAmount)
	encodeAmount(e, "final_amount", res.FinalAmount)

	e.FieldStart("applied_discounts")
	e.ArrStart()
	for _, ad := range res.AppliedDiscounts {
		encodeAppliedDiscount(e, ad)
	}
	e.ArrEnd()

	e.FieldStart("selected_discount")
	if res.SelectedDiscount != nil {
		encodeAppliedDiscount(e, *res.SelectedDiscount)
	} else {
		e.Null()
	}

	if catalogWarning != "" {
		e.FieldStart("catalog_warning")
		e.Str(catalogWarning)
	}
	e.ObjEnd()
}
