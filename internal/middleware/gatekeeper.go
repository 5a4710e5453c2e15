package middleware

import (
	"net/http"
	"strconv"

	"github.com/benvon/portfolio/internal/gatekeeper"
	"github.com/benvon/portfolio/internal/ratelimit"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)

// Gatekeeper admits or rejects each request ahead of routing. Static assets,
// image optimisation paths and the favicon pass straight through without
// consuming quota.
func Gatekeeper(g *gatekeeper.Gatekeeper) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gatekeeper.Excluded(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			v := g.Evaluate(r)
			switch v.Action {
			case gatekeeper.ActionRateLimited:
				WriteRateLimitHeaders(w.Header(), v.Decision)
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			case gatekeeper.ActionForbidden:
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			case gatekeeper.ActionBadRedirect:
				http.Error(w, "Invalid redirect URL", http.StatusBadRequest)
				return
			}

			WriteRateLimitHeaders(w.Header(), v.Decision)
			next.ServeHTTP(w, r)
		})
	}
}

// WriteRateLimitHeaders reports the quota state of d. A rejected decision
// also carries Retry-After in whole seconds.
func WriteRateLimitHeaders(h http.Header, d ratelimit.Decision) {
	h.Set(HeaderRateLimitLimit, strconv.Itoa(d.Limit))
	h.Set(HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))
	if !d.ResetAt.IsZero() {
		h.Set(HeaderRateLimitReset, strconv.FormatInt(d.ResetAt.Unix(), 10))
	}
	if !d.Allowed {
		h.Set(HeaderRateLimitRemaining, "0")
		h.Set(HeaderRetryAfter, strconv.Itoa(d.RetryAfterSeconds()))
	}
}
