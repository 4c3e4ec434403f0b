package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/usecase"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/errutil"
)

type successResponse struct {
	Success bool `json:"success"`
}

// writeJSON writes a JSON response with proper error handling
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		errutil.Handle(ctx, err, "failed to encode JSON response")
	}
}

// readJSON decodes a bounded request body into v
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, s.maxBodySize)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return goerr.Wrap(usecase.ErrInvalidRequest, "request body is empty")
		}
		return goerr.Wrap(usecase.ErrInvalidRequest, "malformed request body", goerr.V("reason", err.Error()))
	}
	return nil
}

// handleError maps use case errors onto status codes
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	errutil.HandleHTTP(r.Context(), w, err, statusOf(err))
}

func statusOf(err error) int {
	switch {
	// Denied conversations look missing so their existence is not disclosed
	case errors.Is(err, usecase.ErrConversationNotFound),
		errors.Is(err, usecase.ErrAccessDenied):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, usecase.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, usecase.ErrNotAvailable):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
