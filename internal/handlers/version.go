package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// Version is overridden at build time with -ldflags "-X .../handlers.Version=...".
var Version = "1.0.0"

// VersionResponse is the /version payload. It only exposes the version string.
type VersionResponse struct {
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// VersionInfo handles GET /version.
func VersionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(VersionResponse{
		Version:   Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
