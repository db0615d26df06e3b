package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator is a wrapper around the validator library.
type Validator struct {
	validate *validator.Validate
}

// New creates a new Validator instance with the listing rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// "trimmed" rejects surrounding whitespace so canonical lines re-parse to the same value.
	_ = v.RegisterValidation("trimmed", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == strings.TrimSpace(s)
	})
	return &Validator{validate: v}
}

// ValidateStruct validates a struct based on its tags.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// ValidateVar validates a single value against a tag expression such as
// "required,excludes=0x7C". The library reads a bare | as "or", so a literal
// pipe parameter is written as 0x7C.
func (v *Validator) ValidateVar(field interface{}, tag string) error {
	if err := v.validate.Var(field, tag); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
