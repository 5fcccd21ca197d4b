package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/corvid-data/proximity.report/internal/mmwave/pipeline"
	"github.com/corvid-data/proximity.report/internal/monitoring"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Dashboards are served from other origins during development
		return true
	},
}

// Hub fans each frame result out to connected websocket viewers. It is a
// pipeline sink: the run loop hands a result to ConsumeResult, the Run
// goroutine writes it to every client. A stalled viewer must not
// backpressure the pipeline, so frames beyond the broadcast buffer are
// dropped rather than queued.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan FramePayload
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}

	units string

	mu        sync.Mutex
	connCount int
	dropped   int64
}

var _ pipeline.ResultSink = (*Hub)(nil)

// NewHub builds a hub that renders frames in the given display units.
func NewHub(units string) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan FramePayload, 8),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		units:      units,
	}
}

// Run owns the client set. It exits when ctx is canceled, closing every
// connection on the way out.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.connCount = 0
			h.mu.Unlock()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			if _, exists := h.clients[client]; !exists {
				h.clients[client] = true
				h.connCount++
				monitoring.Logf("live viewer connected, %d total", h.connCount)
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				h.connCount--
				monitoring.Logf("live viewer disconnected, %d total", h.connCount)
				client.Close()
			}
			h.mu.Unlock()

		case payload := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if err := client.WriteJSON(payload); err != nil {
					monitoring.Logf("dropping live viewer: %v", err)
					client.Close()
					delete(h.clients, client)
					h.connCount--
				}
			}
			h.mu.Unlock()
		}
	}
}

// ConsumeResult queues one frame for broadcast. With no viewers connected
// it returns immediately.
func (h *Hub) ConsumeResult(ctx context.Context, res *pipeline.FrameResult) error {
	if h.ClientCount() == 0 {
		return nil
	}

	select {
	case h.broadcast <- newFramePayload(res, h.units):
	default:
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
	}
	return nil
}

// ClientCount returns the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connCount
}

// Dropped returns how many frames were discarded because the broadcast
// buffer was full.
func (h *Hub) Dropped() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// HandleWebSocket upgrades the request and registers the connection. The
// read side only watches for disconnect; viewers are receive-only.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "Not a websocket upgrade request", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("websocket upgrade failed: %v", err)
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure) {
					monitoring.Logf("websocket read error: %v", err)
				}
				select {
				case h.unregister <- conn:
				case <-h.done:
					conn.Close()
				}
				return
			}
		}
	}()
}
