package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"diagramgen/pipeline"
)

// ProgressHub streams pipeline events to websocket clients.
//
// The hub goroutine (Start) owns client registration, the backlog and
// fan-out, so a new client sees every event exactly once: either in its
// initial message or as a later run_event. A client whose send buffer is
// full is disconnected rather than allowed to stall a run; OnEvent never
// blocks.
type ProgressHub struct {
	clients   map[*hubClient]struct{}
	clientsMu sync.RWMutex

	broadcast  chan WSMessage
	register   chan *hubClient
	unregister chan *hubClient
	done       chan struct{}
	stopOnce   sync.Once

	// recent events replayed to newly connected clients
	backlog *CircularBuffer[RunEventData]

	upgrader websocket.Upgrader
	config   HubConfig
	logger   *zap.Logger
}

type hubClient struct {
	conn        *websocket.Conn
	remoteAddr  string
	connectedAt time.Time
	send        chan []byte
}

// HubConfig holds configuration for the ProgressHub.
type HubConfig struct {
	// PingInterval is how often to send ping frames (default: 30s)
	PingInterval time.Duration
	// PongWait is how long to wait for a pong (default: 60s)
	PongWait time.Duration
	// WriteWait is time allowed to write a frame (default: 10s)
	WriteWait time.Duration
	// MaxMessageSize is the max frame size accepted from a client (default: 512)
	MaxMessageSize int64
	// BroadcastBufferSize is the broadcast queue length (default: 256)
	BroadcastBufferSize int
	// ClientSendBufferSize is the per-client queue length (default: 64)
	ClientSendBufferSize int
	// BacklogSize is how many recent events a new client receives (default: 50)
	BacklogSize int
}

// DefaultHubConfig returns the default configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval:         30 * time.Second,
		PongWait:             60 * time.Second,
		WriteWait:            10 * time.Second,
		MaxMessageSize:       512,
		BroadcastBufferSize:  256,
		ClientSendBufferSize: 64,
		BacklogSize:          50,
	}
}

var _ pipeline.Observer = (*ProgressHub)(nil)

// NewProgressHub creates a hub. Call Start to begin fan-out.
func NewProgressHub(config HubConfig, logger *zap.Logger) *ProgressHub {
	def := DefaultHubConfig()
	if config.PingInterval <= 0 {
		config.PingInterval = def.PingInterval
	}
	if config.PongWait <= 0 {
		config.PongWait = def.PongWait
	}
	if config.WriteWait <= 0 {
		config.WriteWait = def.WriteWait
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = def.MaxMessageSize
	}
	if config.BroadcastBufferSize <= 0 {
		config.BroadcastBufferSize = def.BroadcastBufferSize
	}
	if config.ClientSendBufferSize <= 0 {
		config.ClientSendBufferSize = def.ClientSendBufferSize
	}
	if config.BacklogSize <= 0 {
		config.BacklogSize = def.BacklogSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ProgressHub{
		clients:    make(map[*hubClient]struct{}),
		broadcast:  make(chan WSMessage, config.BroadcastBufferSize),
		register:   make(chan *hubClient),
		unregister: make(chan *hubClient),
		done:       make(chan struct{}),
		backlog:    NewCircularBuffer[RunEventData](config.BacklogSize),
		config:     config,
		logger:     logger.Named("progress_hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// same-origin deployment
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start runs the hub loop until ctx is cancelled. It always returns nil so
// it can sit in an errgroup next to the HTTP server.
func (h *ProgressHub) Start(ctx context.Context) error {
	h.logger.Debug("Progress hub started")
	for {
		select {
		case <-ctx.Done():
			h.stop()
			h.logger.Debug("Progress hub stopped")
			return nil
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case msg := <-h.broadcast:
			h.broadcastToAll(msg)
		}
	}
}

// OnEvent queues e for all clients. The hub loop adds it to the backlog.
func (h *ProgressHub) OnEvent(e pipeline.Event) {
	h.BroadcastMessage(NewRunEventMessage(e))
}

// BroadcastMessage queues msg without blocking; it is dropped when the
// queue is full.
func (h *ProgressHub) BroadcastMessage(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Broadcast queue full, dropping message", zap.String("type", msg.Type))
	}
}

// Backlog returns the recent events, oldest first.
func (h *ProgressHub) Backlog() []RunEventData {
	return h.backlog.All()
}

// ClientCount returns the number of connected clients.
func (h *ProgressHub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// HandleConnection upgrades the request and registers the client. The hub
// loop sends the initial backlog message on registration.
func (h *ProgressHub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	conn.SetReadLimit(h.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
		return nil
	})

	c := &hubClient{
		conn:        conn,
		remoteAddr:  conn.RemoteAddr().String(),
		connectedAt: time.Now(),
		send:        make(chan []byte, h.config.ClientSendBufferSize),
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

func (h *ProgressHub) addClient(c *hubClient) {
	if data, err := json.Marshal(NewInitialMessage(h.backlog.All())); err == nil {
		c.send <- data
	} else {
		h.logger.Error("Failed to marshal initial message", zap.Error(err))
	}

	h.clientsMu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.clientsMu.Unlock()

	h.logger.Debug("Client connected", zap.String("remote_addr", c.remoteAddr), zap.Int("total", n))
}

func (h *ProgressHub) removeClient(c *hubClient) {
	h.clientsMu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.clientsMu.Unlock()

	if ok {
		h.logger.Debug("Client disconnected",
			zap.String("remote_addr", c.remoteAddr),
			zap.Duration("connected_for", time.Since(c.connectedAt)),
			zap.Int("total", n))
	}
}

func (h *ProgressHub) broadcastToAll(msg WSMessage) {
	if event, ok := msg.Data.(RunEventData); ok {
		h.backlog.Push(event)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.Error(err))
		return
	}

	var slow []*hubClient
	h.clientsMu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.clientsMu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Client send buffer full, disconnecting", zap.String("remote_addr", c.remoteAddr))
		h.removeClient(c)
	}
}

func (h *ProgressHub) stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.clientsMu.Lock()
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
		h.clientsMu.Unlock()
	})
}

// readPump discards client frames; it exists to process pongs and closes.
func (h *ProgressHub) readPump(c *hubClient) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("Unexpected websocket close", zap.String("remote_addr", c.remoteAddr), zap.Error(err))
			}
			return
		}
	}
}

// writePump is the only writer on c.conn.
func (h *ProgressHub) writePump(c *hubClient) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
