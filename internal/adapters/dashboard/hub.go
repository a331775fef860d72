package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"wickrSignals/internal/adapters/export"
	"wickrSignals/internal/domain"
	"wickrSignals/internal/metrics"
	"wickrSignals/internal/ports"
)

const (
	sendBufferSize = 64
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
)

// Event names on the dashboard socket.
const (
	EventConnectionStatus = "connection_status"
	EventPriceUpdate      = "price_update"
	EventSignal           = "signal"
	EventPing             = "ping"
	EventPong             = "pong"
)

// Message is the envelope for every frame in both directions.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// SignalPayload is the data of a signal event.
type SignalPayload struct {
	Signal string         `json:"signal"`
	Data   *export.Record `json:"data"`
}

// StateReader is the live state the dashboard reads and the client count it maintains.
type StateReader interface {
	CurrentSignal() (string, *export.Record)
	LatestPrice() (float64, bool)
	ClientConnected() int
	ClientDisconnected() int
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub tracks dashboard websocket clients and fans events out to them.
// It implements ports.Broadcaster.
type Hub struct {
	state   StateReader
	logger  ports.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub creates a hub. m may be nil.
func NewHub(state StateReader, logger ports.Logger, m *metrics.Metrics) (*Hub, error) {
	if state == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for dashboard hub")
	}
	if m == nil {
		m = metrics.New()
	}
	return &Hub{
		state:   state,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		clients: make(map[string]*client),
	}, nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastTick pushes a price_update to every client.
func (h *Hub) BroadcastTick(tick domain.PriceTick) {
	h.broadcast(EventPriceUpdate, tick)
}

// BroadcastSignal pushes a signal event to every client.
func (h *Hub) BroadcastSignal(label string, sig domain.Signal) {
	rec := export.ToRecord(sig)
	h.broadcast(EventSignal, SignalPayload{Signal: label, Data: &rec})
}

func (h *Hub) broadcast(event string, data interface{}) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		h.logger.Error(context.Background(), err, "Failed to encode dashboard event", map[string]interface{}{"event": event})
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.metrics.BroadcastDrops.Inc()
			h.logger.Debug(context.Background(), "Client send buffer full, dropping event", map[string]interface{}{"client": c.id, "event": event})
		}
	}
}

// ServeWS upgrades the request and registers the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "Websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		hub:  h,
	}
	h.register(c)

	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	count := len(h.clients)
	h.mu.Unlock()

	h.state.ClientConnected()
	h.metrics.DashboardClients.Set(float64(count))
	h.logger.Info(context.Background(), "Dashboard client connected", map[string]interface{}{"client": c.id, "clients": count})

	c.queue(EventConnectionStatus, map[string]string{"status": "connected"})
	if label, rec := h.state.CurrentSignal(); rec != nil {
		c.queue(EventSignal, SignalPayload{Signal: label, Data: rec})
	}
	if price, ok := h.state.LatestPrice(); ok {
		c.queue(EventPriceUpdate, domain.PriceTick{Price: price, Timestamp: h.now().UTC(), IsClosed: false})
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	count := len(h.clients)
	h.mu.Unlock()

	h.state.ClientDisconnected()
	h.metrics.DashboardClients.Set(float64(count))
	h.logger.Info(context.Background(), "Dashboard client disconnected", map[string]interface{}{"client": c.id, "clients": count})
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

// client is a single websocket peer.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// queue sends to this client only. Used during the connect handshake.
func (c *client) queue(event string, data interface{}) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c.id]; !ok {
		return
	}
	select {
	case c.send <- payload:
	default:
		c.hub.metrics.BroadcastDrops.Inc()
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg struct {
			Event string `json:"event"`
		}
		if json.Unmarshal(raw, &msg) != nil {
			continue
		}
		switch msg.Event {
		case EventPing:
			c.queue(EventPong, map[string]string{"timestamp": c.hub.now().UTC().Format(time.RFC3339Nano)})
		default:
			c.hub.logger.Debug(context.Background(), "Ignoring unknown client event", map[string]interface{}{"client": c.id, "event": msg.Event})
		}
	}
}
