package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/automation-exposure/internal/decomposition"
	"github.com/jonathan/automation-exposure/internal/llm"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		reqErr   *ErrValidation
		verrs    validator.ValidationErrors
		invalid  *decomposition.InvalidDecompositionError
		genErr   *llm.GenerationError
		maxBytes *http.MaxBytesError
	)
	switch {
	case errors.As(err, &reqErr), errors.As(err, &verrs), errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &genErr) && genErr.Kind == llm.KindTimeout:
		return http.StatusGatewayTimeout
	case errors.As(err, &genErr):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage returns the text shown to API callers. Internal failures are
// not echoed verbatim.
func publicMessage(err error) string {
	var (
		reqErr  *ErrValidation
		verrs   validator.ValidationErrors
		invalid *decomposition.InvalidDecompositionError
	)
	switch {
	case errors.As(err, &reqErr):
		return reqErr.Error()
	case errors.As(err, &verrs):
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return "invalid profile: " + strings.Join(fields, ", ")
	case errors.As(err, &invalid):
		return "insufficient input: " + invalid.Error()
	}

	switch HTTPStatus(err) {
	case http.StatusRequestEntityTooLarge:
		return "request body too large"
	case http.StatusGatewayTimeout:
		return "generation service timed out"
	case http.StatusBadGateway:
		return "generation service failed"
	case http.StatusServiceUnavailable:
		return "request cancelled"
	default:
		return "internal error"
	}
}
