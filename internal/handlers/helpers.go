package handlers

import (
	"encoding/json"
	"net/http"
	"time"
	"unicode/utf8"
)

// maxErrorMessageLength bounds messages returned to clients.
const maxErrorMessageLength = 200

// envelope is the body of every API response. Data is set on success;
// Error, Message and the optional per-field Fields on failure.
type envelope struct {
	Success   bool              `json:"success"`
	Data      any               `json:"data,omitempty"`
	Error     string            `json:"error,omitempty"`
	Message   string            `json:"message,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Timestamp string            `json:"timestamp"`
}

func writeEnvelope(w http.ResponseWriter, status int, body envelope) {
	body.Timestamp = time.Now().UTC().Format(time.RFC3339)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	// Headers are already out; an encode failure can only truncate the body.
	_ = json.NewEncoder(w).Encode(body)
}

// respondJSON sends data in a success envelope.
func respondJSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, envelope{Success: true, Data: data})
}

// sanitizeErrorMessage truncates client-facing error messages.
func sanitizeErrorMessage(message string) string {
	if utf8.RuneCountInString(message) <= maxErrorMessageLength {
		return message
	}
	runes := []rune(message)
	return string(runes[:maxErrorMessageLength]) + "..."
}

// respondJSONError sends a failure envelope with a snake_case code.
func respondJSONError(w http.ResponseWriter, status int, code, message string) {
	respondJSONErrorWithFields(w, status, code, message, nil)
}

// respondJSONErrorWithFields adds per-field messages when fields is non-empty.
func respondJSONErrorWithFields(w http.ResponseWriter, status int, code, message string, fields map[string]string) {
	writeEnvelope(w, status, envelope{
		Error:   code,
		Message: sanitizeErrorMessage(message),
		Fields:  fields,
	})
}

// APINotFound answers requests for unknown API routes.
func APINotFound(w http.ResponseWriter, r *http.Request) {
	respondJSONError(w, http.StatusNotFound, "not_found", "Resource not found")
}

// APIMethodNotAllowed answers API requests with an unsupported method.
func APIMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
}
