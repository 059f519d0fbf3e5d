package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/sun8-storefront/internal/admin"
	"github.com/xenking/sun8-storefront/internal/concierge"
	"github.com/xenking/sun8-storefront/internal/domain/checkout"
	"github.com/xenking/sun8-storefront/internal/domain/product"
	"github.com/xenking/sun8-storefront/internal/genai"
	"github.com/xenking/sun8-storefront/internal/i18n"
	"github.com/xenking/sun8-storefront/internal/persist"
	"github.com/xenking/sun8-storefront/internal/shop"
	"github.com/xenking/sun8-storefront/internal/storage/memory"
	"github.com/xenking/sun8-storefront/internal/studio"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

// --- Mock implementations ---

type mockGenerator struct {
	reply string
	err   error
}

func (m *mockGenerator) GenerateText(_ context.Context, _ genai.TextRequest) (string, error) {
	return m.reply, m.err
}

type idleVideo struct{}

func (idleVideo) StartVideo(context.Context, genai.VideoRequest) (genai.Operation, error) {
	return genai.Operation{Name: "operations/1"}, nil
}

func (idleVideo) PollVideo(_ context.Context, name string) (genai.Operation, error) {
	return genai.Operation{Name: name}, nil
}

func (idleVideo) DownloadVideo(context.Context, string) ([]byte, string, error) {
	return nil, "", nil
}

// --- Helpers ---

type testEnv struct {
	router http.Handler
	shop   *shop.Shop
	bundle *i18n.Bundle
}

func newTestEnv(t *testing.T, gen concierge.Generator) *testEnv {
	t.Helper()
	ctx := context.Background()
	bundle := i18n.MustLoad()

	s, err := shop.New(ctx, bundle, persist.New(memory.New(), nil), shop.Options{
		Checkout: checkout.Options{
			ProcessingDelay: -1,
			NewOrderID:      func() string { return "4242" },
		},
	})
	require.NoError(t, err)

	panel, err := admin.New(s, admin.Options{})
	require.NoError(t, err)

	chat := concierge.NewSession(gen, s, bundle, s.Language(), concierge.Options{})
	st := studio.New(idleVideo{}, genai.NewKeyRing(""), bundle, studio.Options{})
	t.Cleanup(st.Close)

	r := chi.NewRouter()
	NewHandler(s, panel, chat, st).Mount(r)
	return &testEnv{router: r, shop: s, bundle: bundle}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

func productIDs(products []product.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

// --- Tests ---

func TestProducts(t *testing.T) {
	env := newTestEnv(t, &mockGenerator{})

	w := env.do(t, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[productsResponse](t, w)
	assert.Equal(t, product.FilterAll, all.Category)
	assert.Equal(t, []string{"w1", "w2", "j1", "j2", "w3", "j3"}, productIDs(all.Products))

	w = env.do(t, http.MethodGet, "/api/products?category=watches", nil)
	require.Equal(t, http.StatusOK, w.Code)
	watches := decode[productsResponse](t, w)
	assert.Equal(t, []string{"w1", "w2", "w3"}, productIDs(watches.Products))

	w = env.do(t, http.MethodGet, "/api/products?category=shoes", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/products/w1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[product.Product](t, w)
	assert.True(t, decimal.NewFromInt(12500).Equal(p.Price))

	w = env.do(t, http.MethodGet, "/api/products/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	errResp := decode[errorResponse](t, w)
	assert.Equal(t, http.StatusNotFound, errResp.Code)
}

func TestLanguage(t *testing.T) {
	env := newTestEnv(t, &mockGenerator{})

	w := env.do(t, http.MethodPost, "/api/language", languageRequest{Language: "de"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/language", languageRequest{Language: "FR"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, i18n.French, decode[languageResponse](t, w).Language)

	w = env.do(t, http.MethodGet, "/api/translations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tr := decode[translationsResponse](t, w)
	assert.Equal(t, "Vous pouvez comparer jusqu'à 3 produits", tr.Messages["compare.limit"])

	w = env.do(t, http.MethodGet, "/api/products/w1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Le Chronographe Aurora", decode[product.Product](t, w).Title)
}

func TestLanguage_Suggested(t *testing.T) {
	env := newTestEnv(t, &mockGenerator{})

	req := httptest.NewRequest(http.MethodGet, "/api/language", nil)
	req.Header.Set("Accept-Language", "fr-CA,fr;q=0.9,en;q=0.5")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[languageResponse](t, w)
	assert.Equal(t, i18n.Spanish, resp.Language)
	assert.Equal(t, i18n.French, resp.Suggested)
}

func TestProductDetailView(t *testing.T) {
	env := newTestEnv(t, &mockGenerator{})

	w := env.do(t, http.MethodGet, "/api/products/selected", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodPost, "/api/products/w2/view", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/products/selected", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "w2", decode[product.Product](t, w).ID)

	w = env.do(t, http.MethodDelete, "/api/products/w2/view", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodGet, "/api/products/selected", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCartOpenFlag(t *testing.T) {
	env := newTestEnv(t, &mockGenerator{})

	w := env.do(t, http.MethodPost, "/api/cart/open", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[shop.CartView](t, w).Open)

	w = env.do(t, http.MethodDelete, "/api/cart/open", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[shop.CartView](t, w).Open)
}

func TestCartFlow(t *testing.T) {
	env := newTestEnv(t, &mockGenerator{})

	env.do(t, http.MethodPost, "/api/cart/items", addToCartRequest{ProductID: "j2"})
	w := env.do(t, http.MethodPost, "/api/cart/items", addToCartRequest{ProductID: "j2"})
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[shop.CartView](t, w)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Count)
	assert.True(t, view.Open)

	w = env.do(t, http.MethodPatch, "/api/cart/items/j2", updateQtyRequest{Delta: -10})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[shop.CartView](t, w).Items[0].Qty)

	w = env.do(t, http.MethodPatch, "/api/cart/items/zz", updateQtyRequest{Delta: 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/cart/items", addToCartRequest{ProductID: "zz"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/cart/items/j2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[shop.CartView](t, w).Items)
}

func TestWishlistMoveToCart(t *testing.T) {
	env := newTestEnv(t, &mockGenerator{})

	w := env.do(t, http.MethodPost, "/api/wishlist/w2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[toggleResponse](t, w).Selected)

	w = env.do(t, http.MethodPost, "/api/wishlist/w2/move-to-cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[wishlistResponse](t, w).IDs)
	assert.Equal(t, 1, env.shop.Cart().Count)
}

func TestCompareLimit(t *testing.T) {
	env := newTestEnv(t, &mockGenerator{})

	for _, id := range []string{"w1", "w2", "j1"} {
		w := env.do(t, http.MethodPost, "/api/compare/"+id, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := env.do(t, http.MethodPost, "/api/compare/j2", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Puedes comparar hasta 3 productos", decode[errorResponse](t, w).Message)

	w = env.do(t, http.MethodGet, "/api/compare", nil)
	assert.Equal(t, []string{"w1", "w2", "j1"}, decode[compareResponse](t, w).IDs)

	w = env.do(t, http.MethodDelete, "/api/compare", nil)
	assert.Empty(t, decode[compareResponse](t, w).IDs)
}

func TestCheckoutFlow(t *testing.T) {
	env := newTestEnv(t, &mockGenerator{})

	w := env.do(t, http.MethodPost, "/api/checkout", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "empty cart")

	w = env.do(t, http.MethodGet, "/api/checkout", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	env.do(t, http.MethodPost, "/api/cart/items", addToCartRequest{ProductID: "j2"})
	w = env.do(t, http.MethodPost, "/api/checkout", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, checkout.StepShipping, decode[checkoutResponse](t, w).Step)
	assert.False(t, env.shop.Cart().Open)

	shipping := checkout.ShippingDetails{
		FirstName: "Ana", LastName: "Gómez", Email: "ana@example.com",
		Address: "Calle 1", City: "Bogotá", Country: "CO", Zip: "110111",
	}
	w = env.do(t, http.MethodPost, "/api/checkout/shipping", shipping)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	missing := decode[errorResponse](t, w)
	assert.Equal(t, []string{"phone"}, missing.Fields)
	assert.Equal(t, "Este campo es obligatorio", missing.Message)

	shipping.Phone = "3001234567"
	w = env.do(t, http.MethodPost, "/api/checkout/shipping", shipping)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, checkout.StepPayment, decode[checkoutResponse](t, w).Step)

	w = env.do(t, http.MethodPost, "/api/checkout/payment", paymentRequest{Method: "cash"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/checkout/payment", paymentRequest{
		Method:  checkout.PaymentNequi,
		Details: checkout.PaymentDetails{PhoneNumber: "3001234567"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	review := decode[checkoutResponse](t, w)
	assert.Equal(t, checkout.StepReview, review.Step)
	assert.Equal(t, 2, review.StepIndex)

	w = env.do(t, http.MethodPost, "/api/checkout/order", nil)
	require.Equal(t, http.StatusOK, w.Code)
	done := decode[checkoutResponse](t, w)
	assert.Equal(t, checkout.StepSuccess, done.Step)
	assert.Equal(t, "SUN8-4242", done.Reference)
	assert.Contains(t, done.Message, "#SUN8-4242")
	assert.Contains(t, done.Email, "ana@example.com")
	assert.Empty(t, env.shop.Cart().Items)

	w = env.do(t, http.MethodPost, "/api/checkout/back", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdminFlow(t *testing.T) {
	env := newTestEnv(t, &mockGenerator{})

	w := env.do(t, http.MethodPatch, "/api/admin/draft", admin.Patch{})
	assert.Equal(t, http.StatusConflict, w.Code, "no draft")

	w = env.do(t, http.MethodPost, "/api/admin/draft", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	draft := decode[draftResponse](t, w)
	assert.Contains(t, draft.ID, "new_")

	w = env.do(t, http.MethodPost, "/api/admin/draft/save", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "El título del producto es obligatorio", decode[errorResponse](t, w).Message)

	title, features := "Vega", "Steel, Sapphire"
	price := decimal.NewFromInt(900)
	w = env.do(t, http.MethodPatch, "/api/admin/draft", admin.Patch{Title: &title, Price: &price, Features: &features})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Steel, Sapphire", decode[draftResponse](t, w).FeaturesText)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/draft/images", bytes.NewReader(pngHeader))
	req.Header.Set("Content-Type", "image/png")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[draftResponse](t, rec).Images, 1)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/draft/images", bytes.NewReader([]byte("plain text")))
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	w = env.do(t, http.MethodPost, "/api/admin/draft/save", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	saved := decode[saveResponse](t, w)
	assert.True(t, saved.Created)
	assert.Equal(t, []string{"Steel", "Sapphire"}, saved.Product.Features)
	assert.Equal(t, saved.Product.ID, env.shop.Products()[0].ID)

	w = env.do(t, http.MethodPost, "/api/admin/draft/"+saved.Product.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[draftResponse](t, w).Existing)

	w = env.do(t, http.MethodDelete, "/api/admin/products/"+saved.Product.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodGet, "/api/admin/draft", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "draft discarded with its product")
	w = env.do(t, http.MethodDelete, "/api/admin/products/"+saved.Product.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConcierge(t *testing.T) {
	env := newTestEnv(t, &mockGenerator{reply: "Le sugiero el Cronógrafo Aurora."})

	w := env.do(t, http.MethodPost, "/api/concierge/messages", sendRequest{Text: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/concierge/messages", sendRequest{Text: "Un regalo"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[sendResponse](t, w)
	assert.Equal(t, "Le sugiero el Cronógrafo Aurora.", resp.Reply.Text)
	require.Len(t, resp.Messages, 3)
	assert.Contains(t, resp.Messages[2].HTML, `href="#product/w1"`)
}

func TestConcierge_MissingKeyIsFlaggedReply(t *testing.T) {
	env := newTestEnv(t, &mockGenerator{err: genai.ErrMissingCredential})

	w := env.do(t, http.MethodPost, "/api/concierge/messages", sendRequest{Text: "hola"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[sendResponse](t, w)
	assert.True(t, resp.Reply.IsError)
}

func TestStudio_CredentialGate(t *testing.T) {
	env := newTestEnv(t, &mockGenerator{})

	w := env.do(t, http.MethodGet, "/api/studio/credential", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cred := decode[credentialResponse](t, w)
	assert.False(t, cred.Selected)
	assert.NotEmpty(t, cred.Message)

	w = env.do(t, http.MethodPost, "/api/studio/job", jobRequest{Image: pngHeader})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/api/studio/credential", credentialRequest{Key: "k"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[credentialResponse](t, w).Selected)

	w = env.do(t, http.MethodPost, "/api/studio/job", jobRequest{Image: []byte("text"), AspectRatio: genai.Portrait})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, http.MethodPost, "/api/studio/job", jobRequest{Image: pngHeader, AspectRatio: genai.Portrait})
	require.Equal(t, http.StatusAccepted, w.Code)
	snap := decode[studio.Snapshot](t, w)
	assert.Equal(t, studio.StatusGenerating, snap.Status)
	assert.Equal(t, "Animación cinematográfica del objeto", snap.Prompt)

	w = env.do(t, http.MethodGet, "/api/studio/job/video", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodDelete, "/api/studio/job", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodDelete, "/api/studio/job", nil)
	assert.Equal(t, http.StatusNoContent, w.Code, "dismiss cancelled job")
	w = env.do(t, http.MethodGet, "/api/studio/job", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
