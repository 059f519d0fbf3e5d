// Package api exposes the storefront state to a front end as JSON over HTTP.
// There is a single shopper: every request operates on the same state.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/sun8-storefront/internal/admin"
	"github.com/xenking/sun8-storefront/internal/concierge"
	"github.com/xenking/sun8-storefront/internal/shop"
	"github.com/xenking/sun8-storefront/internal/studio"
)

// maxBodyBytes caps JSON request bodies. Studio uploads carry base64 images.
const maxBodyBytes = 16 << 20

// Handler serves the storefront API.
type Handler struct {
	shop      *shop.Shop
	admin     *admin.Panel
	concierge *concierge.Session
	studio    *studio.Studio
}

// NewHandler constructs a Handler over the application components.
func NewHandler(s *shop.Shop, panel *admin.Panel, chat *concierge.Session, st *studio.Studio) *Handler {
	return &Handler{
		shop:      s,
		admin:     panel,
		concierge: chat,
		studio:    st,
	}
}

// Mount registers the API routes under /api.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/language", h.getLanguage)
		r.Post("/language", h.setLanguage)
		r.Get("/translations", h.translations)

		r.Get("/products", h.listProducts)
		r.Get("/products/selected", h.selectedProduct)
		r.Get("/products/{id}", h.getProduct)
		r.Post("/products/{id}/view", h.viewProduct)
		r.Delete("/products/{id}/view", h.closeProduct)

		r.Get("/cart", h.getCart)
		r.Post("/cart/open", h.openCart)
		r.Delete("/cart/open", h.closeCart)
		r.Post("/cart/items", h.addToCart)
		r.Patch("/cart/items/{id}", h.updateQty)
		r.Delete("/cart/items/{id}", h.removeFromCart)

		r.Get("/wishlist", h.getWishlist)
		r.Post("/wishlist/{id}", h.toggleWishlist)
		r.Post("/wishlist/{id}/move-to-cart", h.moveToCart)

		r.Get("/compare", h.getCompare)
		r.Delete("/compare", h.clearCompare)
		r.Post("/compare/{id}", h.toggleCompare)
		r.Delete("/compare/{id}", h.removeFromCompare)

		r.Post("/checkout", h.startCheckout)
		r.Get("/checkout", h.getCheckout)
		r.Delete("/checkout", h.closeCheckout)
		r.Post("/checkout/shipping", h.submitShipping)
		r.Post("/checkout/payment", h.submitPayment)
		r.Post("/checkout/back", h.checkoutBack)
		r.Post("/checkout/order", h.placeOrder)

		r.Post("/admin/draft", h.newDraft)
		r.Get("/admin/draft", h.getDraft)
		r.Patch("/admin/draft", h.updateDraft)
		r.Delete("/admin/draft", h.cancelDraft)
		r.Post("/admin/draft/images", h.addImage)
		r.Delete("/admin/draft/images/{index}", h.removeImage)
		r.Post("/admin/draft/save", h.saveDraft)
		r.Post("/admin/draft/{id}", h.editProduct)
		r.Delete("/admin/products/{id}", h.deleteProduct)

		r.Get("/concierge/messages", h.getMessages)
		r.Post("/concierge/messages", h.sendMessage)

		r.Get("/studio/credential", h.getCredential)
		r.Post("/studio/credential", h.selectCredential)
		r.Post("/studio/job", h.startJob)
		r.Get("/studio/job", h.getJob)
		r.Delete("/studio/job", h.cancelJob)
		r.Get("/studio/job/video", h.downloadVideo)
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Warn("Failed to write response", zap.Error(err))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return &badRequestError{err: errors.Wrap(err, "decode request")}
	}
	return nil
}
