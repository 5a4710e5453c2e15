package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequireJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
		wantCode    string
	}{
		{name: "json", method: http.MethodPost, contentType: "application/json", wantStatus: http.StatusOK},
		{name: "json utf-8", method: http.MethodPost, contentType: "application/json; charset=UTF-8", wantStatus: http.StatusOK},
		{name: "json latin1", method: http.MethodPost, contentType: "application/json; charset=iso-8859-1", wantStatus: http.StatusUnsupportedMediaType, wantCode: ErrCodeUnsupportedMediaType},
		{name: "missing", method: http.MethodPost, wantStatus: http.StatusBadRequest, wantCode: ErrCodeContentTypeRequired},
		{name: "json lookalike", method: http.MethodPost, contentType: "application/jsonp", wantStatus: http.StatusUnsupportedMediaType, wantCode: ErrCodeUnsupportedMediaType},
		{name: "form post", method: http.MethodPost, contentType: "application/x-www-form-urlencoded", wantStatus: http.StatusUnsupportedMediaType, wantCode: ErrCodeUnsupportedMediaType},
		{name: "malformed", method: http.MethodPut, contentType: "application/", wantStatus: http.StatusUnsupportedMediaType, wantCode: ErrCodeUnsupportedMediaType},
		{name: "get ignores header", method: http.MethodGet, contentType: "text/plain", wantStatus: http.StatusOK},
		{name: "options ignores header", method: http.MethodOptions, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := RequireJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tt.method, "/api/v1/contact", strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantCode == "" {
				return
			}
			var body ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if body.Error != tt.wantCode {
				t.Errorf("Expected error %q, got %q", tt.wantCode, body.Error)
			}
		})
	}
}
