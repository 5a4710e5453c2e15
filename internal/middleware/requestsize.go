package middleware

import (
	"net/http"
)

const (
	// DefaultMaxRequestSize is the default maximum request body size (1MB)
	DefaultMaxRequestSize int64 = 1 << 20
	// ContactMaxRequestSize bounds a contact submission body (16KB)
	ContactMaxRequestSize int64 = 16 << 10
)

// MaxRequestSize rejects bodies larger than maxBytes with a JSON 413
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeError(w, r, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "Request body is too large", nil)
				return
			}

			// Bodies without a declared length are cut off while reading.
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

			next.ServeHTTP(w, r)
		})
	}
}
