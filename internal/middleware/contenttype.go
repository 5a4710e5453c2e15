package middleware

import (
	"mime"
	"net/http"
	"strings"
)

// RequireJSON rejects POST, PUT and PATCH requests whose body is not UTF-8
// JSON. Other methods pass through untouched.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			next.ServeHTTP(w, r)
			return
		}

		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			writeError(w, r, http.StatusBadRequest, ErrCodeContentTypeRequired, "Content-Type header is required", nil)
			return
		}

		mediaType, params, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			writeError(w, r, http.StatusUnsupportedMediaType, ErrCodeUnsupportedMediaType, "Content-Type must be application/json", nil)
			return
		}
		if cs, ok := params["charset"]; ok && !strings.EqualFold(cs, "utf-8") {
			writeError(w, r, http.StatusUnsupportedMediaType, ErrCodeUnsupportedMediaType, "JSON bodies must be UTF-8", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
