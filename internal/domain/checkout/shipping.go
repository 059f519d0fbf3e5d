package checkout

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
)

// ShippingDetails are the contact and address fields collected on the first
// step. Every field must be non-empty; no format validation is applied.
type ShippingDetails struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	Country   string `json:"country" validate:"required"`
	Zip       string `json:"zip" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
}

// Trimmed returns d with surrounding whitespace removed from every field.
func (d ShippingDetails) Trimmed() ShippingDetails {
	return ShippingDetails{
		FirstName: strings.TrimSpace(d.FirstName),
		LastName:  strings.TrimSpace(d.LastName),
		Email:     strings.TrimSpace(d.Email),
		Address:   strings.TrimSpace(d.Address),
		City:      strings.TrimSpace(d.City),
		Country:   strings.TrimSpace(d.Country),
		Zip:       strings.TrimSpace(d.Zip),
		Phone:     strings.TrimSpace(d.Phone),
	}
}

// MissingFieldsError lists the shipping fields that were left empty.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("shipping details incomplete: missing %s", strings.Join(e.Fields, ", "))
}

// Is makes the error match ErrIncompleteShipping.
func (e *MissingFieldsError) Is(target error) bool {
	return target == ErrIncompleteShipping
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks presence of every field after trimming whitespace.
func (d ShippingDetails) Validate() error {
	err := validate.Struct(d.Trimmed())
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate shipping details")
	}
	fields := make([]string, len(verrs))
	for i, fe := range verrs {
		fields[i] = fe.Field()
	}
	return &MissingFieldsError{Fields: fields}
}
