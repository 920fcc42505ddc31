package configx

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"go.eggybyte.com/settings/core/errors"
)

// ValidatorOption configures the validator.
type ValidatorOption func(*validator.Validate)

var (
	defaultValidator     *validator.Validate
	defaultValidatorOnce sync.Once
)

// NewValidator creates a new validator instance.
func NewValidator(opts ...ValidatorOption) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateStruct checks target's `validate` tags. A nil v uses a shared validator.
func ValidateStruct(v *validator.Validate, target any) error {
	if v == nil {
		defaultValidatorOnce.Do(func() { defaultValidator = NewValidator() })
		v = defaultValidator
	}
	if err := v.Struct(target); err != nil {
		return errors.Wrap(errors.CodeInvalidArgument, "configx.validate", err)
	}
	return nil
}
