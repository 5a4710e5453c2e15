package middleware

import (
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds an API handler when no timeout is configured.
const DefaultRequestTimeout = 30 * time.Second

// timeoutBody is the 503 body written when a handler overruns. It cannot carry
// the per-request fields of ErrorResponse because http.TimeoutHandler takes a
// fixed string.
const timeoutBody = `{"success":false,"error":"` + ErrCodeTimeout + `","message":"Request timed out"}`

// Timeout cancels the handler's context at the deadline and answers 503 with
// timeoutBody if nothing was written by then.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, timeoutBody)
	}
}
