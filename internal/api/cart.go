package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/sun8-storefront/internal/domain/product"
)

type addToCartRequest struct {
	ProductID string `json:"productId"`
}

type updateQtyRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.shop.Cart())
}

func (h *Handler) openCart(w http.ResponseWriter, r *http.Request) {
	h.shop.SetCartOpen(true)
	writeJSON(w, r, http.StatusOK, h.shop.Cart())
}

func (h *Handler) closeCart(w http.ResponseWriter, r *http.Request) {
	h.shop.SetCartOpen(false)
	writeJSON(w, r, http.StatusOK, h.shop.Cart())
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.shop.AddToCart(r.Context(), req.ProductID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, h.shop.Cart())
}

func (h *Handler) updateQty(w http.ResponseWriter, r *http.Request) {
	var req updateQtyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, ok := h.shop.UpdateQty(r.Context(), chi.URLParam(r, "id"), req.Delta); !ok {
		h.writeError(w, r, product.ErrNotFound)
		return
	}
	writeJSON(w, r, http.StatusOK, h.shop.Cart())
}

func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	h.shop.RemoveFromCart(r.Context(), chi.URLParam(r, "id"))
	writeJSON(w, r, http.StatusOK, h.shop.Cart())
}

type wishlistResponse struct {
	IDs      []string          `json:"ids"`
	Products []product.Product `json:"products"`
}

type toggleResponse struct {
	ID       string `json:"id"`
	Selected bool   `json:"selected"`
}

func (h *Handler) getWishlist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, wishlistResponse{
		IDs:      h.shop.WishlistIDs(),
		Products: h.shop.Wishlist(),
	})
}

func (h *Handler) toggleWishlist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, err := h.shop.ToggleWishlist(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toggleResponse{ID: id, Selected: in})
}

func (h *Handler) moveToCart(w http.ResponseWriter, r *http.Request) {
	if _, err := h.shop.MoveToCart(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.getWishlist(w, r)
}

type compareResponse struct {
	IDs      []string          `json:"ids"`
	Products []product.Product `json:"products"`
}

func (h *Handler) getCompare(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, compareResponse{
		IDs:      h.shop.CompareIDs(),
		Products: h.shop.Compare(),
	})
}

func (h *Handler) toggleCompare(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	selected, err := h.shop.ToggleCompare(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toggleResponse{ID: id, Selected: selected})
}

func (h *Handler) removeFromCompare(w http.ResponseWriter, r *http.Request) {
	h.shop.RemoveFromCompare(chi.URLParam(r, "id"))
	h.getCompare(w, r)
}

func (h *Handler) clearCompare(w http.ResponseWriter, r *http.Request) {
	h.shop.ClearCompare()
	h.getCompare(w, r)
}
