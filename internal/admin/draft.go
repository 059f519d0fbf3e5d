package admin

import (
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/xenking/sun8-storefront/internal/domain/product"
)

// Validation errors reported by Save.
var (
	ErrTitleRequired   = errors.New("product title is required")
	ErrNegativeValue   = errors.New("price and stock cannot be negative")
	ErrInvalidCategory = errors.New("invalid product category")
)

// Draft is the product being edited. Every field is optional until Save.
type Draft struct {
	ID          string           `json:"id"`
	Title       string           `json:"title" validate:"required"`
	Description string           `json:"description"`
	Price       decimal.Decimal  `json:"price" validate:"gte=0"`
	Category    product.Category `json:"category" validate:"oneof=watches jewelry"`
	Stock       int              `json:"stock" validate:"gte=0"`
	Images      []string         `json:"images"`
	Features    []string         `json:"features"`
	// Existing is true when the draft was opened from a catalog product.
	Existing bool `json:"existing"`
}

// Patch updates selected draft fields. Nil fields are left untouched.
type Patch struct {
	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	Price       *decimal.Decimal  `json:"price,omitempty"`
	Category    *product.Category `json:"category,omitempty"`
	Stock       *int              `json:"stock,omitempty"`
	// Features is the comma separated list as typed in the form.
	Features *string `json:"features,omitempty"`
}

func (d *Draft) apply(p Patch) {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Price != nil {
		d.Price = *p.Price
	}
	if p.Category != nil {
		d.Category = *p.Category
	}
	if p.Stock != nil {
		d.Stock = *p.Stock
	}
	if p.Features != nil {
		d.Features = ParseFeatures(*p.Features)
	}
}

func (d Draft) clone() Draft {
	d.Images = append([]string(nil), d.Images...)
	d.Features = append([]string(nil), d.Features...)
	return d
}

// Product converts the draft into a catalog product, substituting the
// placeholder image when none was uploaded.
func (d Draft) Product() product.Product {
	return product.Product{
		ID:          d.ID,
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		Price:       d.Price,
		Category:    d.Category,
		Stock:       d.Stock,
		Images:      append([]string(nil), d.Images...),
		Features:    append([]string(nil), d.Features...),
	}.WithFallbackImage()
}

// ParseFeatures splits a comma separated list, trimming blanks.
func ParseFeatures(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FormatFeatures joins features back into the form representation.
func FormatFeatures(features []string) string {
	return strings.Join(features, ", ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// Validate checks the save-time rules and maps failures to sentinel errors.
func (d Draft) Validate() error {
	d.Title = strings.TrimSpace(d.Title)
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate draft")
	}
	switch fe := verrs[0]; fe.StructField() {
	case "Title":
		return ErrTitleRequired
	case "Category":
		return errors.Wrapf(ErrInvalidCategory, "%q", d.Category)
	default:
		return errors.Wrapf(ErrNegativeValue, "%s", strings.ToLower(fe.StructField()))
	}
}
