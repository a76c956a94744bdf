package handler

import (
	"net/http"
	"os"
	"path/filepath"
)

// StaticFile serves one file from the web directory. A missing file gets
// the portal's own 404 page.
func StaticFile(dir, name, contentType string) http.HandlerFunc {
	path := filepath.Join(dir, filepath.FromSlash(name))
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		http.ServeFile(w, r, path)
	}
}

// NotFound answers every unknown route
func NotFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("Page not found (404)"))
}
