package gatekeeper

import (
	"path"
	"strings"
)

// excludedPrefixes are static asset and image optimisation paths the gate never sees.
var excludedPrefixes = []string{
	"/static/",
	"/_next/static/",
	"/_next/image",
	"/favicon.ico",
}

var excludedExtensions = map[string]bool{
	".svg":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// Excluded reports whether urlPath bypasses the gate.
func Excluded(urlPath string) bool {
	for _, p := range excludedPrefixes {
		if strings.HasPrefix(urlPath, p) {
			return true
		}
	}
	return excludedExtensions[strings.ToLower(path.Ext(urlPath))]
}
