package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/sun8-storefront/internal/domain/cart"
	"github.com/xenking/sun8-storefront/internal/domain/product"
)

// --- Mock implementations ---

type mockCart struct {
	mu      sync.Mutex
	items   []cart.Item
	cleared int
}

func (m *mockCart) CartItems() []cart.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]cart.Item(nil), m.items...)
}

func (m *mockCart) ClearCart(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
	m.cleared++
}

type mockOrderLog struct {
	orders []Order
	ctxErr error
	err    error
}

func (m *mockOrderLog) Record(ctx context.Context, o Order) error {
	m.orders = append(m.orders, o)
	m.ctxErr = ctx.Err()
	return m.err
}

// --- Helpers ---

func newItem(id string, price string, qty int) cart.Item {
	return cart.Item{
		Product: product.Product{
			ID:       id,
			Title:    "Product " + id,
			Price:    decimal.RequireFromString(price),
			Category: product.CategoryWatches,
			Stock:    5,
		},
		Qty: qty,
	}
}

func validShipping() ShippingDetails {
	return ShippingDetails{
		FirstName: "Ana",
		LastName:  "Gómez",
		Email:     "ana@example.com",
		Address:   "Calle 10 #5-20",
		City:      "Medellín",
		Country:   "Colombia",
		Zip:       "050021",
		Phone:     "+57 300 000 0000",
	}
}

func newTestMachine(c Cart, log OrderLog) *Machine {
	return NewMachine(c, Options{
		ProcessingDelay: -1,
		NewOrderID:      func() string { return "4242" },
		Log:             log,
	})
}

func advanceToReview(t *testing.T, m *Machine) {
	t.Helper()
	require.NoError(t, m.SubmitShipping(validShipping()))
	require.NoError(t, m.SubmitPayment(PaymentDetails{}))
	require.Equal(t, StepReview, m.Step())
}

// --- Tests ---

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		items    []cart.Item
		subtotal string
		tax      string
		total    string
	}{
		{name: "empty", subtotal: "0", tax: "0", total: "0"},
		{
			name:     "single",
			items:    []cart.Item{newItem("w1", "12500", 1)},
			subtotal: "12500",
			tax:      "1250",
			total:    "13750",
		},
		{
			name:     "multiple with quantities",
			items:    []cart.Item{newItem("w1", "100", 2), newItem("j1", "45.50", 1)},
			subtotal: "245.5",
			tax:      "24.55",
			total:    "270.05",
		},
		{
			name:     "tax is not rounded",
			items:    []cart.Item{newItem("x", "0.15", 1)},
			subtotal: "0.15",
			tax:      "0.015",
			total:    "0.165",
		},
		{
			name:     "fractional cent total",
			items:    []cart.Item{newItem("x", "99.99", 1)},
			subtotal: "99.99",
			tax:      "9.999",
			total:    "109.989",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(tt.items)
			assert.True(t, s.Subtotal.Equal(decimal.RequireFromString(tt.subtotal)), "subtotal %s", s.Subtotal)
			assert.True(t, s.Tax.Equal(decimal.RequireFromString(tt.tax)), "tax %s", s.Tax)
			assert.True(t, s.Total.Equal(decimal.RequireFromString(tt.total)), "total %s", s.Total)
			assert.True(t, s.Shipping.IsZero())
		})
	}
}

func TestSubmitShipping_MissingFieldBlocksAdvance(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ShippingDetails)
		field  string
	}{
		{name: "first name", mutate: func(d *ShippingDetails) { d.FirstName = "" }, field: "firstName"},
		{name: "email", mutate: func(d *ShippingDetails) { d.Email = "" }, field: "email"},
		{name: "zip whitespace", mutate: func(d *ShippingDetails) { d.Zip = "   " }, field: "zip"},
		{name: "phone", mutate: func(d *ShippingDetails) { d.Phone = "" }, field: "phone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(&mockCart{items: []cart.Item{newItem("w1", "100", 1)}}, nil)
			d := validShipping()
			tt.mutate(&d)

			err := m.SubmitShipping(d)
			require.ErrorIs(t, err, ErrIncompleteShipping)

			var mfErr *MissingFieldsError
			require.ErrorAs(t, err, &mfErr)
			assert.Equal(t, []string{tt.field}, mfErr.Fields)
			assert.Equal(t, StepShipping, m.Step())
		})
	}
}

func TestSubmitShipping_AllFieldsAdvance(t *testing.T) {
	m := newTestMachine(&mockCart{}, nil)

	d := validShipping()
	d.City = "  Medellín  "
	require.NoError(t, m.SubmitShipping(d))

	st := m.State()
	assert.Equal(t, StepPayment, st.Step)
	assert.Equal(t, "Medellín", st.Shipping.City)
	assert.Equal(t, PaymentCreditCard, st.Method)
}

func TestSelectPayment(t *testing.T) {
	m := newTestMachine(&mockCart{}, nil)

	require.ErrorIs(t, m.SelectPayment(PaymentNequi), ErrInvalidTransition)

	require.NoError(t, m.SubmitShipping(validShipping()))
	require.ErrorIs(t, m.SelectPayment("cash"), ErrUnknownPayment)
	for _, method := range PaymentMethods {
		require.NoError(t, m.SelectPayment(method))
		assert.Equal(t, method, m.State().Method)
	}
}

func TestBack(t *testing.T) {
	m := newTestMachine(&mockCart{}, nil)
	require.ErrorIs(t, m.Back(), ErrInvalidTransition)

	advanceToReview(t, m)
	require.NoError(t, m.Back())
	assert.Equal(t, StepPayment, m.Step())
	require.NoError(t, m.Back())
	assert.Equal(t, StepShipping, m.Step())
}

func TestPlaceOrder_ReachesSuccessAndClearsCart(t *testing.T) {
	c := &mockCart{items: []cart.Item{newItem("w1", "100", 2)}}
	log := &mockOrderLog{}
	m := newTestMachine(c, log)
	advanceToReview(t, m)

	o, err := m.PlaceOrder(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "4242", o.ID)
	assert.Equal(t, "SUN8-4242", o.Reference())
	assert.True(t, o.Summary.Total.Equal(decimal.NewFromInt(220)))
	assert.Equal(t, 1, c.cleared)
	assert.Empty(t, c.CartItems())

	st := m.State()
	assert.Equal(t, StepSuccess, st.Step)
	assert.False(t, st.Processing)
	require.NotNil(t, st.Order)
	assert.True(t, st.Summary.Subtotal.Equal(decimal.NewFromInt(200)))

	require.Len(t, log.orders, 1)
	assert.Equal(t, "4242", log.orders[0].ID)

	require.ErrorIs(t, m.Back(), ErrInvalidTransition)
	_, err = m.PlaceOrder(context.Background())
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPlaceOrder_JournalFailureDoesNotFailOrder(t *testing.T) {
	c := &mockCart{items: []cart.Item{newItem("w1", "100", 1)}}
	m := newTestMachine(c, &mockOrderLog{err: errors.New("disk full")})
	advanceToReview(t, m)

	_, err := m.PlaceOrder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StepSuccess, m.Step())
}

func TestPlaceOrder_NotOnReview(t *testing.T) {
	m := newTestMachine(&mockCart{}, nil)
	_, err := m.PlaceOrder(context.Background())
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPlaceOrder_InProgressRejectsConcurrentCalls(t *testing.T) {
	c := &mockCart{items: []cart.Item{newItem("w1", "100", 1)}}
	m := NewMachine(c, Options{ProcessingDelay: 200 * time.Millisecond})
	advanceToReview(t, m)

	errCh := make(chan error, 1)
	go func() {
		_, err := m.PlaceOrder(context.Background())
		errCh <- err
	}()

	require.Eventually(t, func() bool { return m.State().Processing }, time.Second, time.Millisecond)

	_, err := m.PlaceOrder(context.Background())
	require.ErrorIs(t, err, ErrOrderInProgress)
	require.ErrorIs(t, m.Back(), ErrOrderInProgress)

	require.NoError(t, <-errCh)
	assert.Equal(t, StepSuccess, m.Step())
}

func TestPlaceOrder_CancelledCallerStillCompletes(t *testing.T) {
	c := &mockCart{items: []cart.Item{newItem("w1", "100", 1)}}
	log := &mockOrderLog{}
	m := NewMachine(c, Options{ProcessingDelay: time.Millisecond, NewOrderID: func() string { return "7" }, Log: log})
	advanceToReview(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o, err := m.PlaceOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, "7", o.ID)

	st := m.State()
	assert.Equal(t, StepSuccess, st.Step)
	assert.False(t, st.Processing)
	assert.Equal(t, 1, c.cleared)
	assert.Empty(t, c.CartItems())
	require.Len(t, log.orders, 1)
	assert.NoError(t, log.ctxErr, "journal must not see the cancellation")
}

func TestPlaceOrder_RandomOrderIDInRange(t *testing.T) {
	for range 50 {
		id := randomOrderID()
		require.NotEmpty(t, id)
		require.LessOrEqual(t, len(id), 5)
	}
}
