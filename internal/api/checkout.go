package api

import (
	"net/http"

	"github.com/xenking/sun8-storefront/internal/domain/checkout"
	"github.com/xenking/sun8-storefront/internal/i18n"
)

type checkoutResponse struct {
	checkout.State
	StepIndex int `json:"stepIndex"`
	// Confirmation lines are set once the order is placed.
	Reference string `json:"reference,omitempty"`
	Message   string `json:"message,omitempty"`
	Email     string `json:"email,omitempty"`
}

type paymentRequest struct {
	Method  checkout.PaymentMethod  `json:"method"`
	Details checkout.PaymentDetails `json:"details"`
}

func (h *Handler) machine() (*checkout.Machine, error) {
	m, ok := h.shop.Checkout()
	if !ok {
		return nil, errNoCheckout
	}
	return m, nil
}

func (h *Handler) writeCheckout(w http.ResponseWriter, r *http.Request, status int, m *checkout.Machine) {
	st := m.State()
	resp := checkoutResponse{State: st, StepIndex: st.Step.Index()}
	if st.Order != nil {
		resp.Reference = st.Order.Reference()
		resp.Message = h.shop.T("checkout.success.message", i18n.Vars{"id": st.Order.ID})
		resp.Email = h.shop.T("checkout.success.email", i18n.Vars{"email": st.Order.Shipping.Email})
	}
	writeJSON(w, r, status, resp)
}

func (h *Handler) startCheckout(w http.ResponseWriter, r *http.Request) {
	m, err := h.shop.StartCheckout()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeCheckout(w, r, http.StatusCreated, m)
}

func (h *Handler) getCheckout(w http.ResponseWriter, r *http.Request) {
	m, err := h.machine()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeCheckout(w, r, http.StatusOK, m)
}

func (h *Handler) closeCheckout(w http.ResponseWriter, _ *http.Request) {
	h.shop.CloseCheckout()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) submitShipping(w http.ResponseWriter, r *http.Request) {
	m, err := h.machine()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req checkout.ShippingDetails
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := m.SubmitShipping(req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeCheckout(w, r, http.StatusOK, m)
}

// submitPayment selects the method, when given, and advances to review.
func (h *Handler) submitPayment(w http.ResponseWriter, r *http.Request) {
	m, err := h.machine()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Method != "" {
		if err := m.SelectPayment(req.Method); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	if err := m.SubmitPayment(req.Details); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeCheckout(w, r, http.StatusOK, m)
}

func (h *Handler) checkoutBack(w http.ResponseWriter, r *http.Request) {
	m, err := h.machine()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := m.Back(); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeCheckout(w, r, http.StatusOK, m)
}

// placeOrder blocks for the processing delay. A disconnecting client cancels
// the order and the session returns to review.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	m, err := h.machine()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := m.PlaceOrder(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeCheckout(w, r, http.StatusOK, m)
}
