package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/sun8-storefront/internal/admin"
	"github.com/xenking/sun8-storefront/internal/concierge"
	"github.com/xenking/sun8-storefront/internal/domain/checkout"
	"github.com/xenking/sun8-storefront/internal/domain/product"
	"github.com/xenking/sun8-storefront/internal/domain/selection"
	"github.com/xenking/sun8-storefront/internal/genai"
	"github.com/xenking/sun8-storefront/internal/i18n"
	"github.com/xenking/sun8-storefront/internal/studio"
)

// errNoCheckout is returned by checkout routes before a session is started.
var errNoCheckout = errors.New("no checkout in progress")

type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }

func (e *badRequestError) Unwrap() error { return e.err }

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	// Fields lists missing form fields for validation failures.
	Fields []string `json:"fields,omitempty"`
}

// errorMapping binds a domain error to a status and an optional translation
// key used as the user-facing message.
type errorMapping struct {
	target error
	status int
	key    string
}

var errorMappings = []errorMapping{
	{target: product.ErrNotFound, status: http.StatusNotFound},
	{target: i18n.ErrUnsupportedLanguage, status: http.StatusBadRequest},
	{target: selection.ErrCompareLimit, status: http.StatusConflict, key: "compare.limit"},

	{target: errNoCheckout, status: http.StatusNotFound},
	{target: checkout.ErrEmptyCart, status: http.StatusConflict, key: "cart.empty"},
	{target: checkout.ErrIncompleteShipping, status: http.StatusUnprocessableEntity, key: "checkout.errors.required"},
	{target: checkout.ErrUnknownPayment, status: http.StatusBadRequest},
	{target: checkout.ErrOrderInProgress, status: http.StatusConflict, key: "checkout.errors.processing"},
	{target: checkout.ErrInvalidTransition, status: http.StatusConflict},

	{target: admin.ErrTitleRequired, status: http.StatusUnprocessableEntity, key: "admin.errors.titleRequired"},
	{target: admin.ErrNegativeValue, status: http.StatusUnprocessableEntity, key: "admin.errors.negative"},
	{target: admin.ErrInvalidCategory, status: http.StatusUnprocessableEntity},
	{target: admin.ErrNotImage, status: http.StatusUnprocessableEntity, key: "admin.errors.invalidImage"},
	{target: admin.ErrImageTooLarge, status: http.StatusRequestEntityTooLarge},
	{target: admin.ErrNoDraft, status: http.StatusConflict},
	{target: admin.ErrImageIndex, status: http.StatusNotFound},

	{target: concierge.ErrEmptyMessage, status: http.StatusBadRequest},
	{target: concierge.ErrBusy, status: http.StatusConflict},

	{target: studio.ErrCredentialRequired, status: http.StatusConflict, key: "veo.apiKeyRequired"},
	{target: studio.ErrBusy, status: http.StatusConflict, key: "veo.generating"},
	{target: studio.ErrNoJob, status: http.StatusNotFound},
	{target: studio.ErrNotReady, status: http.StatusConflict},
	{target: studio.ErrNotImage, status: http.StatusUnprocessableEntity, key: "veo.errors.invalidImage"},
	{target: studio.ErrImageTooLarge, status: http.StatusRequestEntityTooLarge},
	{target: genai.ErrInvalidAspectRatio, status: http.StatusBadRequest},
}

// writeError maps err to a JSON error response. Unknown errors are logged and
// reported as 500; remote GenAI failures as 502.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := h.mapError(err)
	if resp.Code >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}
	writeJSON(w, r, resp.Code, resp)
}

func (h *Handler) mapError(err error) errorResponse {
	var badReq *badRequestError
	if errors.As(err, &badReq) {
		return errorResponse{Code: http.StatusBadRequest, Message: badReq.Error()}
	}

	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		resp := errorResponse{Code: m.status, Message: err.Error()}
		if m.key != "" {
			resp.Message = h.shop.T(m.key)
		}
		var missing *checkout.MissingFieldsError
		if errors.As(err, &missing) {
			resp.Fields = missing.Fields
		}
		return resp
	}

	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return errorResponse{Code: http.StatusBadGateway, Message: apiErr.Error()}
	}
	return errorResponse{Code: http.StatusInternalServerError, Message: "internal server error"}
}
