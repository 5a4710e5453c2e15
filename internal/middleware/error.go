package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/benvon/portfolio/internal/request"
	"go.uber.org/zap"
)

// Error codes written by the API middleware. Handlers use the same
// snake_case convention so clients can switch on a single field.
const (
	ErrCodeInternal             = "internal_error"
	ErrCodePayloadTooLarge      = "payload_too_large"
	ErrCodeContentTypeRequired  = "content_type_required"
	ErrCodeUnsupportedMediaType = "unsupported_media_type"
	ErrCodeTimeout              = "request_timeout"
)

// ErrorResponse is the JSON body of a middleware rejection.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorHandler recovers panics into a JSON 500. The panic value is logged,
// never returned to the client.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				logger.Error("panic_recovered",
					zap.Any("error", rec),
					zap.Stack("stack"),
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.String("request_id", request.RequestIDFromContext(r.Context())),
				)
				writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred", logger)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func newErrorResponse(r *http.Request, code, message string) ErrorResponse {
	return ErrorResponse{
		Success:   false,
		Error:     code,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
		RequestID: request.RequestIDFromContext(r.Context()),
	}
}

// writeError sends the JSON error envelope with Cache-Control: no-store.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(newErrorResponse(r, code, message)); err != nil && logger != nil {
		logger.Error("failed_to_encode_error_response",
			zap.Error(err),
			zap.Int("status_code", status),
			zap.String("path", r.URL.Path),
		)
	}
}
