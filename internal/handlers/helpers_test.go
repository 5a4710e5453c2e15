package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAPIResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestRespondJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		data     any
		wantData any
	}{
		{name: "object", status: http.StatusAccepted, data: ContactResponse{ID: "abc"}, wantData: map[string]any{"id": "abc"}},
		{name: "array", status: http.StatusOK, data: []string{"a", "b"}, wantData: []any{"a", "b"}},
		{name: "nil data omitted", status: http.StatusOK, data: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			respondJSON(w, tt.status, tt.data)

			assert.Equal(t, tt.status, w.Code)
			body := decodeAPIResponse(t, w)
			assert.Equal(t, true, body["success"])
			assert.NotContains(t, body, "error")
			if tt.wantData == nil {
				assert.NotContains(t, body, "data")
			} else {
				assert.Equal(t, tt.wantData, body["data"])
			}

			ts, ok := body["timestamp"].(string)
			require.True(t, ok)
			parsed, err := time.Parse(time.RFC3339, ts)
			require.NoError(t, err)
			assert.WithinDuration(t, time.Now(), parsed, 5*time.Second)
		})
	}
}

func TestRespondJSONError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondJSONError(w, http.StatusServiceUnavailable, "relay_unavailable", "Message could not be sent.")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeAPIResponse(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "relay_unavailable", body["error"])
	assert.Equal(t, "Message could not be sent.", body["message"])
	assert.NotContains(t, body, "fields")
	assert.NotContains(t, body, "data")
}

func TestRespondJSONErrorWithFields(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondJSONErrorWithFields(w, http.StatusUnprocessableEntity, "validation_failed", "Please correct the highlighted fields",
		map[string]string{"email": "Please enter a valid email address"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeAPIResponse(t, w)
	assert.Equal(t, map[string]any{"email": "Please enter a valid email address"}, body["fields"])

	// An empty map is treated as no fields.
	w = httptest.NewRecorder()
	respondJSONErrorWithFields(w, http.StatusBadRequest, "invalid_request", "bad", map[string]string{})
	assert.NotContains(t, decodeAPIResponse(t, w), "fields")
}

func TestSanitizeErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantLen int
	}{
		{name: "short", in: "relay down", want: "relay down"},
		{name: "exact limit", in: strings.Repeat("a", maxErrorMessageLength), want: strings.Repeat("a", maxErrorMessageLength)},
		{name: "truncated", in: strings.Repeat("a", maxErrorMessageLength+1), wantLen: maxErrorMessageLength + 3},
		{name: "multibyte cut on rune boundary", in: strings.Repeat("é", maxErrorMessageLength+10), wantLen: maxErrorMessageLength + 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := sanitizeErrorMessage(tt.in)
			assert.True(t, utf8.ValidString(got))
			if tt.want != "" {
				assert.Equal(t, tt.want, got)
				return
			}
			assert.Equal(t, tt.wantLen, utf8.RuneCountInString(got))
			assert.True(t, strings.HasSuffix(got, "..."))
		})
	}
}

func TestAPIFallbackHandlers(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	APINotFound(w, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeAPIResponse(t, w)["error"])

	w = httptest.NewRecorder()
	APIMethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/v1/contact", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "method_not_allowed", decodeAPIResponse(t, w)["error"])
}
