package pipeline

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// IsInvalidProfile reports whether err came from profile validation.
func IsInvalidProfile(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}
