// Package handler exposes the storefront core over HTTP. Routes decode with
// jx, delegate to the domain services, and map domain errors to the shared
// error envelope.
package handler

import (
	"net/http"

	"github.com/mkamel/storefront-core/internal/domain/catalog"
	"github.com/mkamel/storefront-core/internal/domain/order"
	"github.com/mkamel/storefront-core/internal/domain/translation"
)

// Handler serves the storefront API. It owns no business logic; everything is
// delegated to the injected collaborators.
type Handler struct {
	products  catalog.Repository
	orders    order.Repository
	lifecycle *order.Lifecycle
	resolver  *translation.Resolver
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products catalog.Repository,
	orders order.Repository,
	lifecycle *order.Lifecycle,
	resolver *translation.Resolver,
) *Handler {
	return &Handler{
		products:  products,
		orders:    orders,
		lifecycle: lifecycle,
		resolver:  resolver,
	}
}

// Register mounts all API routes on mux under /api.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)

	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("POST /api/orders/{id}/status", h.UpdateOrderStatus)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.CancelOrder)

	mux.HandleFunc("GET /api/content/{kind}/{id}", h.GetContent)
	mux.HandleFunc("PUT /api/content/{kind}/{id}/translations/{locale}", h.PutTranslation)
}

// actorID extracts the acting user from the X-Actor-ID header. nil means a
// system-initiated action.
func actorID(r *http.Request) *string {
	if v := r.Header.Get("X-Actor-ID"); v != "" {
		return &v
	}
	return nil
}
