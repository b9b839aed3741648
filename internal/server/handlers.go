package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/automation-exposure/internal/pipeline"
	"github.com/jonathan/automation-exposure/internal/server/middleware"
	"github.com/jonathan/automation-exposure/internal/types"
)

// maxProfileBytes caps the request body; seven fields of at most 4000 characters fit easily.
const maxProfileBytes = 64 << 10

// handleAnalyze runs one analysis synchronously and returns the full result.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r)

	var profile types.Profile
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProfileBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&profile); err != nil {
		var reqErr error = &ErrValidation{Field: "body", Message: err.Error()}
		if HTTPStatus(err) == http.StatusRequestEntityTooLarge {
			reqErr = fmt.Errorf("decode profile: %w", err)
		}
		s.errorResponse(w, r, HTTPStatus(reqErr), publicMessage(reqErr))
		return
	}

	ctx := pipeline.WithRequestID(r.Context(), requestID)
	result, err := s.analyzer.Analyze(ctx, profile)
	if err != nil {
		status := HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("analysis failed", zap.String("request_id", requestID), zap.Error(err))
		}
		s.errorResponse(w, r, status, publicMessage(err))
		return
	}

	s.jsonResponse(w, http.StatusOK, result)
}
