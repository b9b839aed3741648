package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/automation-exposure/internal/decomposition"
	"github.com/jonathan/automation-exposure/internal/llm"
	"github.com/jonathan/automation-exposure/internal/types"
)

func TestHTTPStatus(t *testing.T) {
	invalidProfile := (&types.Profile{}).Validate()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"request validation", &ErrValidation{Field: "body", Message: "bad"}, http.StatusBadRequest},
		{"invalid profile", fmt.Errorf("invalid profile: %w", invalidProfile), http.StatusBadRequest},
		{"invalid decomposition", fmt.Errorf("decomposition: %w", &decomposition.InvalidDecompositionError{
			Kind: decomposition.KindTasks, Message: "weights sum to 0.6",
			Cause: &llm.GenerationError{Kind: llm.KindSchema},
		}), http.StatusBadRequest},
		{"generation transport", &llm.GenerationError{Kind: llm.KindTransport}, http.StatusBadGateway},
		{"generation timeout", &llm.GenerationError{Kind: llm.KindTimeout, Cause: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"cancelled", fmt.Errorf("scoring: %w", context.Canceled), http.StatusServiceUnavailable},
		{"body too large", fmt.Errorf("decode: %w", &http.MaxBytesError{Limit: 10}), http.StatusRequestEntityTooLarge},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "body", Message: "invalid format"}
	assert.Equal(t, "validation error: body - invalid format", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestPublicMessage(t *testing.T) {
	profile := types.Profile{Age: "25"}
	msg := publicMessage(fmt.Errorf("invalid profile: %w", profile.Validate()))
	assert.Contains(t, msg, "invalid profile:")
	assert.Contains(t, msg, "JobTitle (required)")

	assert.Equal(t, "internal error", publicMessage(errors.New("secret detail")))
	assert.Equal(t, "generation service failed", publicMessage(&llm.GenerationError{Kind: llm.KindTransport, Message: "key leaked"}))
}
