package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/aurelia-shop/pricing-engine/internal/domain/catalog"
)

// ListProducts returns the full jewelry catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	e := &jx.Encoder{}
	e.ArrStart()
	for _, p := range products {
		h.encodeProduct(e, p)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, e)
}

// GetProduct returns a single product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		respondInternal(w, r, err)
		return
	}

	e := &jx.Encoder{}
	h.encodeProduct(e, *p)
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) encodeProduct(e *jx.Encoder, p catalog.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("sku")
	e.Str(p.SKU)
	e.FieldStart("name")
	e.Str(p.Name)
	encodeAmount(e, "price", p.Price)
	e.FieldStart("metal")
	e.Str(p.Metal)
	e.FieldStart("collection")
	e.Str(p.Collection)
	e.FieldStart("image")
	e.ObjStart()
	e.FieldStart("thumbnail")
	e.Str(h.imageURL(p.Image.Thumbnail))
	e.FieldStart("mobile")
	e.Str(h.imageURL(p.Image.Mobile))
	e.FieldStart("desktop")
	e.Str(h.imageURL(p.Image.Desktop))
	e.ObjEnd()
	e.ObjEnd()
}

// imageURL prepends the configured base URL to relative image paths.
func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || path == "" || strings.HasPrefix(path, "http") {
		return path
	}
	return strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}
