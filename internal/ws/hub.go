package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/conversation"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/logging"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/shared/id"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 64 * 1024
	queryTimeout   = 2 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // sidebar pages load from extension origins
	},
}

// Event is a server to client message.
type Event struct {
	Type      string               `json:"type"`
	Item      *conversation.Item   `json:"item,omitempty"`
	Loading   *bool                `json:"loading,omitempty"`
	Status    *conversation.Status `json:"status,omitempty"`
	Message   string               `json:"message,omitempty"`
	Timestamp int64                `json:"timestamp"`
}

type inbound struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Asker answers queries sent over the stream.
type Asker interface {
	Ask(ctx context.Context, query string) (*conversation.Item, error)
}

type frame struct {
	typ    string
	itemID string
	data   []byte
}

type client struct {
	conn *websocket.Conn

	// mu serializes writes and guards the broadcasts held back while history is replayed.
	mu        sync.Mutex
	replaying bool
	backlog   []frame
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(data)
}

func (c *client) writeLocked(data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// deliver writes f, or queues it while the client is still replaying. queued is true when nothing was written.
func (c *client) deliver(f frame) (queued bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.replaying {
		c.backlog = append(c.backlog, f)
		return true, nil
	}
	return false, c.writeLocked(f.data)
}

// Hub fans conversation events out to every connected client.
type Hub struct {
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu      sync.RWMutex
	clients map[*client]struct{}
	history func() []conversation.Item
	asker   Asker

	pongWait time.Duration
}

// NewHub creates a hub. logger and metrics may be nil.
func NewHub(logger *logging.Logger, metrics *monitoring.Metrics) *Hub {
	return &Hub{
		logger:  logging.OrNop(logger).Component("ws"),
		metrics: metrics,
		clients:  make(map[*client]struct{}),
		pongWait: pongWait,
	}
}

// SetHistory sets the source replayed to newly connected clients.
func (h *Hub) SetHistory(history func() []conversation.Item) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = history
}

// SetAsker enables "query" messages.
func (h *Hub) SetAsker(asker Asker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.asker = asker
}

// Append implements conversation.Surface.
func (h *Hub) Append(item conversation.Item) {
	h.broadcast(Event{Type: "item", Item: &item})
}

// Clear implements conversation.Surface.
func (h *Hub) Clear() {
	h.broadcast(Event{Type: "clear"})
}

// SetLoading implements conversation.Surface.
func (h *Hub) SetLoading(loading bool) {
	h.broadcast(Event{Type: "loading", Loading: &loading})
}

// SetStatus implements conversation.Surface.
func (h *Hub) SetStatus(status conversation.Status) {
	h.broadcast(Event{Type: "status", Status: &status})
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.mu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		c.conn.Close()
		h.metrics.DecWSConnections()
	}
}

// HandleConnection upgrades the request and serves the client until it disconnects.
// A "since" query parameter naming the last item the page holds limits the replay to newer items.
func (h *Hub) HandleConnection(c *gin.Context) {
	since := c.Query("since")
	if since != "" && !id.IsValid(since) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid since item id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{conn: conn, replaying: true}
	h.register(cl)
	defer h.unregister(cl)

	// Queries run beside the read loop so pongs keep being read. A query outlives its
	// connection; the answer lands in the history replayed on reconnect.
	ctx := context.WithoutCancel(c.Request.Context())

	h.mu.RLock()
	wait := h.pongWait
	h.mu.RUnlock()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(wait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})

	done := make(chan struct{})
	defer close(done)
	go h.keepAlive(cl, wait*9/10, done)

	h.send(cl, Event{Type: "connected", Message: "Connected to FaultMaven sidebar"})
	h.replay(cl, since)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var msg inbound
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.sendError(cl, "invalid message")
			continue
		}
		h.metrics.RecordWSMessage("in", msg.Type)

		switch msg.Type {
		case "ping":
			h.send(cl, Event{Type: "pong"})
		case "query":
			go h.handleQuery(ctx, cl, msg.Message)
		default:
			h.sendError(cl, "unknown message type")
		}
	}
}

func (h *Hub) handleQuery(parent context.Context, cl *client, query string) {
	h.mu.RLock()
	asker := h.asker
	h.mu.RUnlock()
	if asker == nil {
		h.sendError(cl, "queries are not accepted on this stream")
		return
	}

	ctx, cancel := context.WithTimeout(parent, queryTimeout)
	defer cancel()

	// Results and failures reach every client through the Surface; only refusals are sent back here.
	if _, err := asker.Ask(ctx, query); errors.Is(err, conversation.ErrBusy) {
		h.sendError(cl, err.Error())
	}
}

func (h *Hub) keepAlive(cl *client, period time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := cl.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// replay sends the history after since, then flushes broadcasts queued meanwhile.
// Items already replayed are dropped from the queue.
func (h *Hub) replay(cl *client, since string) {
	h.mu.RLock()
	history := h.history
	h.mu.RUnlock()

	var items []conversation.Item
	if history != nil {
		items = history()
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.replaying = false

	sent := make(map[string]struct{}, len(items))
	for _, item := range items {
		item := item
		sent[item.ID] = struct{}{}
		// Item IDs are ULIDs, so string order is creation order.
		if since != "" && item.ID <= since {
			continue
		}
		data, err := h.encode(Event{Type: "item", Item: &item})
		if err != nil {
			continue
		}
		if err := cl.writeLocked(data); err != nil {
			cl.backlog = nil
			return
		}
		h.metrics.RecordWSMessage("out", "item")
	}

	backlog := cl.backlog
	cl.backlog = nil
	for _, f := range backlog {
		if _, dup := sent[f.itemID]; dup && f.itemID != "" {
			continue
		}
		if err := cl.writeLocked(f.data); err != nil {
			return
		}
		h.metrics.RecordWSMessage("out", f.typ)
	}
}

func (h *Hub) register(cl *client) {
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()

	h.metrics.IncWSConnections()
	h.logger.Debug("client connected", zap.Int("clients", h.Count()))
}

func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	_, ok := h.clients[cl]
	delete(h.clients, cl)
	h.mu.Unlock()

	if ok {
		cl.conn.Close()
		h.metrics.DecWSConnections()
		h.logger.Debug("client disconnected", zap.Int("clients", h.Count()))
	}
}

func (h *Hub) broadcast(ev Event) {
	data, err := h.encode(ev)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	f := frame{typ: ev.Type, data: data}
	if ev.Item != nil {
		f.itemID = ev.Item.ID
	}
	for _, cl := range clients {
		queued, err := cl.deliver(f)
		if err != nil {
			h.logger.Debug("dropping client after write error", zap.Error(err))
			h.unregister(cl)
			continue
		}
		if !queued {
			h.metrics.RecordWSMessage("out", ev.Type)
		}
	}
}

func (h *Hub) send(cl *client, ev Event) error {
	data, err := h.encode(ev)
	if err != nil {
		return err
	}
	if err := cl.write(data); err != nil {
		return err
	}
	h.metrics.RecordWSMessage("out", ev.Type)
	return nil
}

func (h *Hub) sendError(cl *client, message string) error {
	return h.send(cl, Event{Type: "error", Message: message})
}

func (h *Hub) encode(ev Event) ([]byte, error) {
	ev.Timestamp = time.Now().Unix()
	data, err := sonic.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("type", ev.Type), zap.Error(err))
		return nil, err
	}
	return data, nil
}
