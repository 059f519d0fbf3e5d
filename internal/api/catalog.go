package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/sun8-storefront/internal/domain/product"
	"github.com/xenking/sun8-storefront/internal/i18n"
)

type languageRequest struct {
	Language string `json:"language"`
}

type languageResponse struct {
	Language  i18n.Language   `json:"language"`
	Available []i18n.Language `json:"available"`
	// Suggested is the best match for the client Accept-Language header.
	Suggested i18n.Language `json:"suggested"`
}

func (h *Handler) getLanguage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, languageResponse{
		Language:  h.shop.Language(),
		Available: i18n.Languages,
		Suggested: i18n.Negotiate(r.Header.Get("Accept-Language")),
	})
}

func (h *Handler) setLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	lang, err := i18n.ParseLanguage(req.Language)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.shop.SetLanguage(r.Context(), lang); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.getLanguage(w, r)
}

type translationsResponse struct {
	Language i18n.Language     `json:"language"`
	Messages map[string]string `json:"messages"`
}

// translations returns the flattened table of the requested or active
// language.
func (h *Handler) translations(w http.ResponseWriter, r *http.Request) {
	lang := h.shop.Language()
	if q := r.URL.Query().Get("lang"); q != "" {
		parsed, err := i18n.ParseLanguage(q)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		lang = parsed
	}
	writeJSON(w, r, http.StatusOK, translationsResponse{
		Language: lang,
		Messages: h.shop.Bundle().Table(lang),
	})
}

type productsResponse struct {
	Category product.Filter    `json:"category"`
	Products []product.Product `json:"products"`
}

// listProducts returns the catalog projected onto the active category. A
// category query parameter changes the active category first.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query(); q.Has("category") {
		f, err := product.ParseFilter(q.Get("category"))
		if err != nil {
			h.writeError(w, r, &badRequestError{err: err})
			return
		}
		h.shop.SetCategory(f)
	}
	writeJSON(w, r, http.StatusOK, productsResponse{
		Category: h.shop.Category(),
		Products: h.shop.Visible(),
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.shop.Product(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

// selectedProduct returns the product open in the detail view, or 204.
func (h *Handler) selectedProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := h.shop.Selected()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (h *Handler) viewProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.shop.SelectProduct(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (h *Handler) closeProduct(w http.ResponseWriter, _ *http.Request) {
	h.shop.CloseProduct()
	w.WriteHeader(http.StatusNoContent)
}
