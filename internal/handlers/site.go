package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
)

// SiteCacheControl lets browsers keep pages for an hour and shared caches for a day.
const SiteCacheControl = "public, max-age=3600, s-maxage=86400"

// SiteHandler serves the static site build output.
type SiteHandler struct {
	files http.Handler
}

// NewSiteHandler serves files under dir. Directories are only served through
// their index.html; listings are never generated.
func NewSiteHandler(dir string) (*SiteHandler, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: dir, Err: errors.New("not a directory")}
	}
	return &SiteHandler{
		files: http.FileServer(indexOnlyFS{http.Dir(dir)}),
	}, nil
}

// ServeHTTP serves GET and HEAD requests for site files.
func (h *SiteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Cache-Control", SiteCacheControl)
	h.files.ServeHTTP(w, r)
}

// indexOnlyFS hides directories that have no index.html.
type indexOnlyFS struct {
	fs http.FileSystem
}

func (i indexOnlyFS) Open(name string) (http.File, error) {
	f, err := i.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if !info.IsDir() {
		return f, nil
	}

	index, err := i.fs.Open(path.Join(name, "index.html"))
	if err != nil {
		_ = f.Close()
		return nil, fs.ErrNotExist
	}
	_ = index.Close()
	return f, nil
}
