package middleware

import (
	"net/http"

	logpkg "github.com/benvon/portfolio/internal/logger"
	"github.com/benvon/portfolio/internal/request"
	"go.uber.org/zap"
)

// Audit logs gate rejections and other security-relevant responses
func Audit(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &auditResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			fields := func() []zap.Field {
				return []zap.Field{
					zap.Int("status_code", wrapped.statusCode),
					zap.String("method", r.Method),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.String("client_id", logpkg.SanitizeClientID(request.ClientID(r))),
					zap.String("request_id", request.RequestIDFromContext(r.Context())),
				}
			}

			switch wrapped.statusCode {
			case http.StatusTooManyRequests:
				logger.Warn("rate_limit_violation", fields()...)
			case http.StatusForbidden, http.StatusBadRequest:
				logger.Warn("security_event", fields()...)
			case http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
				logger.Info("request_rejected", fields()...)
			}
		})
	}
}

// auditResponseWriter wraps http.ResponseWriter to capture status code
type auditResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (aw *auditResponseWriter) WriteHeader(code int) {
	if !aw.wroteHeader {
		aw.statusCode = code
		aw.wroteHeader = true
	}
	aw.ResponseWriter.WriteHeader(code)
}

func (aw *auditResponseWriter) Write(b []byte) (int, error) {
	aw.wroteHeader = true
	return aw.ResponseWriter.Write(b)
}
