package realtime

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/judgeportal/internal/model"
)

const (
	// Time between SSE keepalive comments
	keepalivePeriod = 30 * time.Second

	transportSSE = "sse"
)

// ServeSSE streams the hub's frames to viewer as server-sent events. The
// stream is read-only; submissions go through the websocket.
func (h *Handler) ServeSSE(w http.ResponseWriter, r *http.Request, viewer model.Viewer) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	client := NewClient(newClientID(), viewer, transportSSE)
	if !h.hub.Register(client) {
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.hub.Unregister(client)

	_, _ = w.Write(formatSSEMessage(EventConnected, `{"status":"connected","id":"`+client.id+`"}`))
	flusher.Flush()

	ticker := time.NewTicker(keepalivePeriod)
	defer ticker.Stop()

	for {
		select {
		case f, ok := <-client.send:
			if !ok {
				// Hub closed the channel
				return
			}
			if _, err := w.Write(formatSSEMessage(f.Event, string(f.Data))); err != nil {
				h.logger.Debug("sse write failed",
					slog.String("client_id", client.id),
					slog.Any("error", err))
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			// Client disconnected
			return
		}
	}
}
