package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/judgeportal/internal/model"
	"github.com/mcoot/judgeportal/internal/services/submission"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size; submissions carry whole source files
	maxMessageSize = 1 << 20

	// Time allowed to store one submission
	submitTimeout = 10 * time.Second

	transportWebsocket = "websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// ServeWS upgrades the request to a websocket for viewer. It blocks until
// the connection closes.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request, viewer model.Viewer) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := NewClient(newClientID(), viewer, transportWebsocket)
	if !h.hub.Register(client) {
		_ = conn.Close()
		return
	}

	replies := make(chan Frame, 4)
	stop := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writePump(conn, client, replies, stop)
	}()
	h.readPump(r.Context(), conn, client, replies, writerDone)

	close(stop)
	<-writerDone
	h.hub.Unregister(client)
}

// readPump reads frames from the peer until the connection fails
func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn, client *Client, replies chan<- Frame, writerDone <-chan struct{}) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in Frame
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed",
					slog.String("client_id", client.id),
					slog.Any("error", err))
			}
			return
		}

		switch in.Event {
		case EventSubmit:
			var req submission.Request
			message := h.messages.InvalidData
			if err := json.Unmarshal(in.Data, &req); err == nil {
				submitCtx, cancel := context.WithTimeout(ctx, submitTimeout)
				message = h.submit(submitCtx, client, req)
				cancel()
			}
			reply, err := newFrame(EventSubmit, SubmitReply{Message: message})
			if err != nil {
				continue
			}
			select {
			case replies <- reply:
			case <-writerDone:
				return
			}
		default:
			h.logger.Debug("websocket event ignored",
				slog.String("client_id", client.id),
				slog.String("event", in.Event))
		}
	}
}

// writePump forwards hub frames and submit replies to the peer and keeps
// the connection alive with pings
func (h *Handler) writePump(conn *websocket.Conn, client *Client, replies <-chan Frame, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	write := func(f Frame) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(f) == nil
	}

	for {
		select {
		case f, ok := <-client.send:
			if !ok {
				// Hub closed the channel
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if !write(f) {
				return
			}

		case f := <-replies:
			if !write(f) {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-stop:
			return
		}
	}
}
