package handler

import (
	"net/http"

	"github.com/mcoot/judgeportal/internal/web/middleware"
)

// IndexData is passed to the index view
type IndexData struct {
	Username string
	Admin    bool
}

// HomeHandler handles the index page
type HomeHandler struct {
	renderer *Renderer
}

// NewHomeHandler creates a new HomeHandler
func NewHomeHandler(renderer *Renderer) *HomeHandler {
	return &HomeHandler{renderer: renderer}
}

// Home renders the index page for the authenticated viewer
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	viewer, _ := middleware.GetViewer(r.Context())
	h.renderer.Render(w, "index.html", IndexData{
		Username: viewer.Username,
		Admin:    viewer.Admin,
	})
}
