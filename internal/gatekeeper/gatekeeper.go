// Package gatekeeper decides, once per inbound request and ahead of routing,
// whether the request may proceed: rate limited per client identifier,
// screened for script-injection signatures in the URL, and checked for
// off-site redirect targets.
//
// The signature list is a blocklist heuristic. It is defense in depth only and
// does not replace output encoding where user data is rendered.
package gatekeeper

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"

	logpkg "github.com/benvon/portfolio/internal/logger"
	"github.com/benvon/portfolio/internal/ratelimit"
	"github.com/benvon/portfolio/internal/request"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Action is what the gate decided to do with a request.
type Action string

const (
	ActionAllow       Action = "allow"
	ActionRateLimited Action = "rate_limited"
	ActionForbidden   Action = "forbidden"
	ActionBadRedirect Action = "bad_redirect"
)

// RedirectParam is the query parameter screened for open redirects.
const RedirectParam = "redirect"

// urlSignatures are matched case-insensitively against the request URI.
var urlSignatures = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)onerror=`),
	regexp.MustCompile(`(?i)onclick=`),
	regexp.MustCompile(`(?i)eval\(`),
	regexp.MustCompile(`(?i)document\.cookie`),
	regexp.MustCompile(`(?i)window\.location`),
}

// Verdict is the outcome of Evaluate.
type Verdict struct {
	Action   Action
	Status   int
	ClientID string
	Decision ratelimit.Decision
	// Reason names the matched signature or the rejected redirect target.
	Reason string
}

// Rejected reports whether the request must be short-circuited.
func (v Verdict) Rejected() bool {
	return v.Action != ActionAllow
}

// Gatekeeper evaluates requests against a shared limiter and fixed screens.
type Gatekeeper struct {
	limiter ratelimit.Limiter
	log     *zap.Logger
}

// New creates a Gatekeeper. The limiter state is shared by every request it evaluates.
func New(limiter ratelimit.Limiter, log *zap.Logger) *Gatekeeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gatekeeper{limiter: limiter, log: log}
}

// Limiter returns the limiter backing the page-level quota.
func (g *Gatekeeper) Limiter() ratelimit.Limiter {
	return g.limiter
}

// Evaluate runs the admission steps in order: rate limit, URL signatures, redirect target.
// Quota is consumed before the screens run, so screened requests still count.
func (g *Gatekeeper) Evaluate(r *http.Request) Verdict {
	clientID := request.ClientID(r)
	v := Verdict{Action: ActionAllow, Status: http.StatusOK, ClientID: clientID}

	decision, err := g.limiter.Check(r.Context(), clientID)
	if err != nil {
		// Shared store unreachable: fail open.
		policy := g.limiter.Policy()
		g.log.Warn("rate_limit_check_failed_allowing_request",
			zap.Error(err),
			zap.String("client_id", logpkg.SanitizeClientID(clientID)),
		)
		decision = ratelimit.Decision{Allowed: true, Limit: policy.Limit, Remaining: policy.Limit}
	}
	v.Decision = decision

	if !decision.Allowed {
		v.Action = ActionRateLimited
		v.Status = http.StatusTooManyRequests
		g.record(r, v)
		return v
	}

	if sig, ok := MatchURL(r); ok {
		v.Action = ActionForbidden
		v.Status = http.StatusForbidden
		v.Reason = sig
		g.log.Warn("suspicious_pattern_detected",
			zap.String("client_id", logpkg.SanitizeClientID(clientID)),
			zap.String("url", logpkg.SanitizeString(rawURI(r), logpkg.MaxPathLength)),
			zap.String("pattern", sig),
		)
		g.record(r, v)
		return v
	}

	if target, ok := UnsafeRedirect(r.URL.Query()); ok {
		v.Action = ActionBadRedirect
		v.Status = http.StatusBadRequest
		v.Reason = target
		g.record(r, v)
		return v
	}

	return v
}

// record attaches the rejection to the active trace span, if any.
func (g *Gatekeeper) record(r *http.Request, v Verdict) {
	span := trace.SpanFromContext(r.Context())
	if !span.IsRecording() {
		return
	}
	span.AddEvent("gatekeeper.reject", trace.WithAttributes(
		attribute.String("gatekeeper.action", string(v.Action)),
		attribute.Int("http.status_code", v.Status),
		attribute.String("gatekeeper.client_id", v.ClientID),
	))
}

// MatchURL scans the request URI, raw and percent-decoded, for script-injection
// signatures and returns the first matching expression.
func MatchURL(r *http.Request) (string, bool) {
	raw := rawURI(r)
	candidates := []string{raw}
	if decoded := unescapeLenient(raw); decoded != raw {
		candidates = append(candidates, decoded)
	}
	for _, c := range candidates {
		for _, re := range urlSignatures {
			if re.MatchString(c) {
				return re.String(), true
			}
		}
	}
	return "", false
}

// unescapeLenient decodes every well-formed %XX escape and '+' and leaves
// malformed escapes literal, so one bad escape cannot hide the rest of the URI.
func unescapeLenient(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		case c == '+':
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// UnsafeRedirect reports a redirect target that would leave the site. Only
// same-site absolute paths are accepted; protocol-relative forms are not.
func UnsafeRedirect(q url.Values) (string, bool) {
	target := q.Get(RedirectParam)
	if target == "" {
		return "", false
	}
	if !strings.HasPrefix(target, "/") {
		return target, true
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, `/\`) {
		return target, true
	}
	return "", false
}

func rawURI(r *http.Request) string {
	if r.RequestURI != "" {
		return r.RequestURI
	}
	return r.URL.RequestURI()
}
