package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/mkamel/storefront-core/internal/domain/catalog"
	"github.com/mkamel/storefront-core/internal/domain/translation"
	"github.com/mkamel/storefront-core/pkg/httpmiddleware"
)

// ListProducts returns the catalog with names and descriptions resolved to
// the request locale.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	locale := httpmiddleware.LocaleFromContext(ctx)

	products, err := h.products.List(ctx)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for i := range products {
		if err := h.encodeProduct(&e, r, &products[i], locale); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

// GetProduct returns a single product with its variants, localized to the
// request locale.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	locale := httpmiddleware.LocaleFromContext(ctx)

	p, err := h.products.GetByID(ctx, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var e jx.Encoder
	if err := h.encodeProduct(&e, r, p, locale); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &e)
}

// encodeProduct writes one product, preferring the localized name over the
// stored one and attaching a localized description when present.
func (h *Handler) encodeProduct(e *jx.Encoder, r *http.Request, p *catalog.Product, locale string) error {
	entity := translation.EntityRef{Kind: "product", ID: p.ID}

	name := p.Name
	if localized, ok, err := h.resolver.Resolve(r.Context(), entity, "name", locale); err != nil {
		return err
	} else if ok {
		name = localized
	}
	description, _, err := h.resolver.Resolve(r.Context(), entity, "description", locale)
	if err != nil {
		return err
	}

	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(name)
	if description != "" {
		e.FieldStart("description")
		e.Str(description)
	}
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("price")
	e.Str(p.Price.StringFixed(2))
	e.FieldStart("stock")
	e.Int(p.Stock)

	e.FieldStart("variants")
	e.ArrStart()
	for _, v := range p.Variants {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(v.ID)
		e.FieldStart("sku")
		e.Str(v.SKU)
		e.FieldStart("price")
		e.Str(v.Price.StringFixed(2))
		e.FieldStart("stock")
		e.Int(v.Stock)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	return nil
}
