package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/judgeportal/internal/model"
)

const (
	// Buffer size for outgoing frames per client
	sendBufferSize = 64

	// Buffer size for snapshots waiting to be fanned out
	publishBufferSize = 16
)

// Client is a connected real-time viewer. The hub owns the send channel and
// closes it when the client is unregistered or the hub stops.
type Client struct {
	id          string
	viewer      model.Viewer
	transport   string
	send        chan Frame
	connectedAt time.Time
}

// NewClient creates a client for viewer on the given transport
func NewClient(id string, viewer model.Viewer, transport string) *Client {
	return &Client{
		id:          id,
		viewer:      viewer,
		transport:   transport,
		send:        make(chan Frame, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// ID returns the connection ID
func (c *Client) ID() string {
	return c.id
}

// Send returns the channel of frames pushed by the hub
func (c *Client) Send() <-chan Frame {
	return c.send
}

// Hub fans out broadcast snapshots to every connected client, redacting the
// results per client viewer. New clients receive the latest snapshot at once.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	// Channels for managing clients
	register   chan *Client
	unregister chan *Client
	publish    chan *model.Snapshot
	done       chan struct{}

	// latest is only touched by the Run goroutine
	latest *snapshotFrames
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("component", "realtime")),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan *model.Snapshot, publishBufferSize),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop and returns when ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("realtime hub started")
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("realtime client registered",
				slog.String("client_id", client.id),
				slog.String("username", client.viewer.Username),
				slog.String("transport", client.transport),
				slog.Int("total_clients", clientCount))
			if h.latest != nil {
				h.deliver(client, h.latest)
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				clientCount := len(h.clients)
				h.mu.Unlock()
				h.logger.Info("realtime client unregistered",
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", clientCount))
			} else {
				h.mu.Unlock()
			}

		case snapshot := <-h.publish:
			frames, err := encodeSnapshot(snapshot)
			if err != nil {
				h.logger.Error("realtime snapshot encoding failed",
					slog.Uint64("seq", snapshot.Seq),
					slog.Any("error", err))
				continue
			}
			h.latest = frames
			h.fanOut(frames)

		case <-ctx.Done():
			h.mu.Lock()
			clientCount := len(h.clients)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("realtime hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

func (h *Hub) fanOut(frames *snapshotFrames) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	droppedCount := 0
	for client := range h.clients {
		if !h.deliver(client, frames) {
			droppedCount++
		}
	}
	if droppedCount > 0 {
		h.logger.Warn("realtime broadcast partial failure",
			slog.Uint64("seq", frames.snapshot.Seq),
			slog.Int("sent", len(h.clients)-droppedCount),
			slog.Int("dropped", droppedCount))
	}
}

// deliver queues the snapshot frames for one client without blocking.
// A snapshot that does not fit whole is dropped whole, so a client never
// sees events from two ticks mixed.
func (h *Hub) deliver(client *Client, frames *snapshotFrames) bool {
	out, err := frames.framesFor(client.viewer)
	if err != nil {
		h.logger.Error("realtime result encoding failed",
			slog.String("client_id", client.id),
			slog.Any("error", err))
		return false
	}
	// The hub is the only sender, so free space cannot shrink below this
	if cap(client.send)-len(client.send) < len(out) {
		h.logger.Warn("realtime snapshot dropped - client buffer full",
			slog.String("client_id", client.id),
			slog.Uint64("seq", frames.snapshot.Seq))
		return false
	}
	for _, f := range out {
		client.send <- f
	}
	return true
}

// Register adds a client to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues a snapshot for fan-out without blocking the caller
func (h *Hub) Publish(snapshot *model.Snapshot) {
	select {
	case h.publish <- snapshot:
	default:
		h.logger.Warn("realtime publish dropped - hub buffer full",
			slog.Uint64("seq", snapshot.Seq))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
