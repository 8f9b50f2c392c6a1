package models

import (
	"github.com/dukex/nbctl/pkg/identifier"
	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator that knows the template_name tag.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	_ = validate.RegisterValidation("template_name", func(fl validator.FieldLevel) bool {
		return identifier.IsName(fl.Field().String())
	})

	return validate
}
