package middleware

import (
	"net/http"

	"github.com/benvon/portfolio/internal/request"
	"github.com/google/uuid"
)

// maxRequestIDLength bounds a caller-supplied request id.
const maxRequestIDLength = 64

// RequestID tags each request with an id, reusing a well-formed incoming
// X-Request-ID and minting a UUID otherwise. The id is echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(request.RequestIDHeader)
		if !validRequestID(requestID) {
			requestID = uuid.New().String()
		}

		w.Header().Set(request.RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(request.WithRequestID(r.Context(), requestID)))
	})
}

// validRequestID accepts short ids made of letters, digits, '-', '_' and '.'.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}
