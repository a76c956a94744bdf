package handler

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
)

// Renderer renders the HTML views found in a directory. Templates are read
// from disk on every render so edits show up without a restart.
type Renderer struct {
	dir    string
	logger *slog.Logger
}

// NewRenderer creates a Renderer for the views in dir
func NewRenderer(dir string, logger *slog.Logger) *Renderer {
	return &Renderer{
		dir:    dir,
		logger: logger.With(slog.String("component", "renderer")),
	}
}

// Render executes the named template with data. A template that cannot be
// loaded or executed yields a 500 "Error loading template".
func (r *Renderer) Render(w http.ResponseWriter, name string, data any) {
	path := filepath.Join(r.dir, name)

	tmpl, err := template.ParseFiles(path)
	if err != nil {
		r.fail(w, name, err)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		r.fail(w, name, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (r *Renderer) fail(w http.ResponseWriter, name string, err error) {
	r.logger.Error("template failed",
		slog.String("template", name),
		slog.Any("error", err))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte("Error loading template"))
}
