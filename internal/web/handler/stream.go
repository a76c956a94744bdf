package handler

import (
	"net/http"

	"github.com/mcoot/judgeportal/internal/model"
	"github.com/mcoot/judgeportal/internal/web/middleware"
)

// Streamer serves the real-time endpoints for a viewer
type Streamer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, viewer model.Viewer)
	ServeSSE(w http.ResponseWriter, r *http.Request, viewer model.Viewer)
}

// StreamHandler binds the real-time endpoints to the request's viewer
type StreamHandler struct {
	streamer Streamer
}

// NewStreamHandler creates a new StreamHandler
func NewStreamHandler(streamer Streamer) *StreamHandler {
	return &StreamHandler{streamer: streamer}
}

// WS upgrades to the websocket channel
func (h *StreamHandler) WS(w http.ResponseWriter, r *http.Request) {
	viewer, _ := middleware.GetViewer(r.Context())
	h.streamer.ServeWS(w, r, viewer)
}

// Events opens the read-only SSE stream
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	viewer, _ := middleware.GetViewer(r.Context())
	h.streamer.ServeSSE(w, r, viewer)
}
