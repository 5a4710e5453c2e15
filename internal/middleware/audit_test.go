package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAudit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		wantMsg string
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, wantMsg: "rate_limit_violation"},
		{name: "forbidden pattern", status: http.StatusForbidden, wantMsg: "security_event"},
		{name: "bad redirect", status: http.StatusBadRequest, wantMsg: "security_event"},
		{name: "too large", status: http.StatusRequestEntityTooLarge, wantMsg: "request_rejected"},
		{name: "ok", status: http.StatusOK, wantMsg: ""},
		{name: "accepted", status: http.StatusAccepted, wantMsg: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zap.InfoLevel)
			handler := Audit(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest("GET", "/?q=x", nil)
			req.Header.Set("X-Forwarded-For", "203.0.113.4, 10.0.0.1")
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantMsg == "" {
				assert.Zero(t, logs.Len())
				return
			}
			entries := logs.FilterMessage(tt.wantMsg).All()
			require.Len(t, entries, 1)
			fields := entries[0].ContextMap()
			assert.Equal(t, int64(tt.status), fields["status_code"])
			assert.Equal(t, "203.0.113.4", fields["client_id"])
		})
	}
}
