package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/sun8-storefront/internal/domain/cart"
)

// Step is a state of the checkout wizard.
type Step string

const (
	StepShipping Step = "shipping"
	StepPayment  Step = "payment"
	StepReview   Step = "review"
	StepSuccess  Step = "success"
)

// Index returns the zero-based position of the step, used for progress display.
func (s Step) Index() int {
	switch s {
	case StepShipping:
		return 0
	case StepPayment:
		return 1
	case StepReview:
		return 2
	case StepSuccess:
		return 3
	default:
		return -1
	}
}

// PaymentMethod enumerates the accepted payment instruments.
type PaymentMethod string

const (
	PaymentCreditCard  PaymentMethod = "credit_card"
	PaymentPayPal      PaymentMethod = "paypal"
	PaymentCrypto      PaymentMethod = "crypto"
	PaymentNequi       PaymentMethod = "nequi"
	PaymentBancolombia PaymentMethod = "bancolombia"
)

// PaymentMethods lists every accepted method in display order.
var PaymentMethods = []PaymentMethod{
	PaymentCreditCard,
	PaymentPayPal,
	PaymentCrypto,
	PaymentNequi,
	PaymentBancolombia,
}

// Valid reports whether m is an accepted payment method.
func (m PaymentMethod) Valid() bool {
	for _, v := range PaymentMethods {
		if v == m {
			return true
		}
	}
	return false
}

// Sentinel errors for checkout transitions.
var (
	ErrInvalidTransition  = errors.New("invalid checkout transition")
	ErrIncompleteShipping = errors.New("shipping details incomplete")
	ErrUnknownPayment     = errors.New("unknown payment method")
	ErrOrderInProgress    = errors.New("order is already being processed")
	ErrEmptyCart          = errors.New("cart is empty")
)

// TaxRate is the estimated tax applied to the subtotal.
var TaxRate = decimal.RequireFromString("0.10")

// ShippingCost is fixed: shipping is free.
var ShippingCost = decimal.Zero

// PaymentDetails holds method-specific fields. They are retained on the
// session for display but never validated or transmitted.
type PaymentDetails struct {
	CardName      string `json:"cardName,omitempty"`
	CardNumber    string `json:"cardNumber,omitempty"`
	Expiry        string `json:"expiry,omitempty"`
	CVC           string `json:"cvc,omitempty"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
	AccountType   string `json:"accountType,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
}

// Summary is the price breakdown shown on the review step.
type Summary struct {
	Items    int             `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Summarize computes subtotal, free shipping, 10% tax and total for items.
// Amounts are exact; rounding to cents happens only when they are displayed.
func Summarize(items []cart.Item) Summary {
	subtotal := cart.Subtotal(items)
	tax := subtotal.Mul(TaxRate)
	return Summary{
		Items:    cart.Count(items),
		Subtotal: subtotal,
		Shipping: ShippingCost,
		Tax:      tax,
		Total:    subtotal.Add(ShippingCost).Add(tax),
	}
}

// Order is a locally simulated purchase.
type Order struct {
	ID       string          `json:"id"`
	Items    []cart.Item     `json:"items"`
	Shipping ShippingDetails `json:"shipping"`
	Method   PaymentMethod   `json:"paymentMethod"`
	Summary  Summary         `json:"summary"`
	PlacedAt time.Time       `json:"placedAt"`
}

// Reference returns the customer-facing order reference.
func (o Order) Reference() string {
	return "SUN8-" + o.ID
}

// OrderLog journals placed orders. Journal failures never fail the order.
type OrderLog interface {
	Record(ctx context.Context, o Order) error
}
