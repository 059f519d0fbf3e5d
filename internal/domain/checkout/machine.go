// Package checkout implements the linear checkout wizard:
// shipping -> payment -> review -> success.
package checkout

import (
	"context"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xenking/sun8-storefront/internal/domain/cart"
)

// DefaultProcessingDelay is the simulated order submission latency.
const DefaultProcessingDelay = 2 * time.Second

// Cart is the cart state machine as seen by checkout: the live items and the
// side effect of clearing them once the order is placed.
type Cart interface {
	CartItems() []cart.Item
	ClearCart(ctx context.Context)
}

// Options tune the machine. Zero values select defaults.
type Options struct {
	// ProcessingDelay is the simulated latency of PlaceOrder. Negative values
	// disable the delay.
	ProcessingDelay time.Duration
	// NewOrderID generates order identifiers.
	NewOrderID func() string
	// Log journals placed orders.
	Log    OrderLog
	Logger *zap.Logger
}

// State is a snapshot of the wizard for display.
type State struct {
	Step       Step            `json:"step"`
	Processing bool            `json:"processing"`
	Shipping   ShippingDetails `json:"shipping"`
	Method     PaymentMethod   `json:"paymentMethod"`
	Payment    PaymentDetails  `json:"payment"`
	Summary    Summary         `json:"summary"`
	Order      *Order          `json:"order,omitempty"`
}

// Machine drives one checkout session. It is safe for concurrent use.
type Machine struct {
	mu         sync.Mutex
	step       Step
	processing bool
	shipping   ShippingDetails
	method     PaymentMethod
	payment    PaymentDetails
	order      *Order

	cart  Cart
	delay time.Duration
	newID func() string
	log   OrderLog
	lg    *zap.Logger
	now   func() time.Time
}

// NewMachine creates a machine positioned on the shipping step with credit
// card preselected.
func NewMachine(c Cart, opts Options) *Machine {
	m := &Machine{
		step:   StepShipping,
		method: PaymentCreditCard,
		cart:   c,
		delay:  opts.ProcessingDelay,
		newID:  opts.NewOrderID,
		log:    opts.Log,
		lg:     opts.Logger,
		now:    time.Now,
	}
	if m.delay == 0 {
		m.delay = DefaultProcessingDelay
	}
	if m.newID == nil {
		m.newID = randomOrderID
	}
	if m.lg == nil {
		m.lg = zap.NewNop()
	}
	return m
}

func randomOrderID() string {
	return strconv.Itoa(rand.IntN(100000))
}

// State returns the current snapshot. Before success the summary reflects the
// live cart; afterwards it is the placed order's summary.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := State{
		Step:       m.step,
		Processing: m.processing,
		Shipping:   m.shipping,
		Method:     m.method,
		Payment:    m.payment,
	}
	if m.order != nil {
		o := *m.order
		s.Order = &o
		s.Summary = o.Summary
	} else {
		s.Summary = Summarize(m.cart.CartItems())
	}
	return s
}

// Step returns the current step.
func (m *Machine) Step() Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step
}

// SubmitShipping records the details and advances to payment when every field
// is present. On a missing field the step does not change.
func (m *Machine) SubmitShipping(d ShippingDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.step != StepShipping {
		return ErrInvalidTransition
	}
	m.shipping = d
	if err := d.Validate(); err != nil {
		return err
	}
	m.shipping = d.Trimmed()
	m.step = StepPayment
	return nil
}

// SelectPayment chooses the payment method while on the payment step.
func (m *Machine) SelectPayment(method PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.step != StepPayment {
		return ErrInvalidTransition
	}
	if !method.Valid() {
		return ErrUnknownPayment
	}
	m.method = method
	return nil
}

// SubmitPayment advances to review. Method-specific details are stored as
// given without validation.
func (m *Machine) SubmitPayment(details PaymentDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.step != StepPayment {
		return ErrInvalidTransition
	}
	m.payment = details
	m.step = StepReview
	return nil
}

// Back moves from payment to shipping or from review to payment. Success is
// terminal.
func (m *Machine) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.processing {
		return ErrOrderInProgress
	}
	switch m.step {
	case StepPayment:
		m.step = StepShipping
	case StepReview:
		m.step = StepPayment
	default:
		return ErrInvalidTransition
	}
	return nil
}

// PlaceOrder simulates order submission from the review step: the machine is
// marked processing for the configured delay, an order id is generated, the
// step moves to success and the cart is cleared. Once processing has begun
// the placement completes even if ctx is cancelled.
func (m *Machine) PlaceOrder(ctx context.Context) (Order, error) {
	m.mu.Lock()
	if m.step != StepReview {
		m.mu.Unlock()
		return Order{}, ErrInvalidTransition
	}
	if m.processing {
		m.mu.Unlock()
		return Order{}, ErrOrderInProgress
	}
	m.processing = true
	m.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	m.wait()

	items := m.cart.CartItems()

	m.mu.Lock()
	o := Order{
		ID:       m.newID(),
		Items:    items,
		Shipping: m.shipping,
		Method:   m.method,
		Summary:  Summarize(items),
		PlacedAt: m.now(),
	}
	m.order = &o
	m.step = StepSuccess
	m.processing = false
	m.mu.Unlock()

	m.cart.ClearCart(ctx)

	m.lg.Info("Order placed",
		zap.String("order_id", o.ID),
		zap.Int("items", o.Summary.Items),
		zap.String("payment_method", string(o.Method)),
		zap.String("total", o.Summary.Total.StringFixed(2)),
	)
	if m.log != nil {
		if err := m.log.Record(ctx, o); err != nil {
			m.lg.Warn("Order journal write failed", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	return o, nil
}

func (m *Machine) wait() {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
}
