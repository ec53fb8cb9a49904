package relay

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flokiorg/bitcoinswitch/logger"
	"github.com/flokiorg/bitcoinswitch/metrics"
)

const (
	sendBufferSize = 16
	readLimit      = 1024
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	writeWait      = 5 * time.Second
)

// Hub keeps the websocket connections of switch devices, grouped by switch id.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]map[*client]struct{}
	total   int
}

type client struct {
	switchID string
	conn     *websocket.Conn
	send     chan []byte
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				// devices connect from anywhere
				return true
			},
		},
		clients: map[string]map[*client]struct{}{},
	}
}

// Serve upgrades the request and blocks until the device disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, switchID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Logger.Warn().Err(err).Str("switch_id", switchID).Msg("Failed to upgrade websocket connection")
		return err
	}

	c := &client{switchID: switchID, conn: conn, send: make(chan []byte, sendBufferSize)}
	h.addClient(c)
	logger.Logger.Info().Str("switch_id", switchID).Str("remote_addr", r.RemoteAddr).Msg("Switch device connected")

	go h.writePump(c)
	h.readPump(c)
	return nil
}

// Broadcast sends payload to every device of the switch. Devices whose buffer
// is full are disconnected.
func (h *Hub) Broadcast(switchID string, payload string) int {
	msg := []byte(payload)

	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for c := range h.clients[switchID] {
		select {
		case c.send <- msg:
			sent++
		default:
			logger.Logger.Warn().Str("switch_id", switchID).Msg("Dropping slow switch device")
			h.removeLocked(c)
		}
	}
	return sent
}

func (h *Hub) HasSubscribers(switchID string) bool {
	return h.ConnectedCount(switchID) > 0
}

func (h *Hub) ConnectedCount(switchID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[switchID])
}

// Close disconnects every device.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for c := range clients {
			h.removeLocked(c)
		}
	}
}

func (h *Hub) addClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.switchID]; !ok {
		h.clients[c.switchID] = map[*client]struct{}{}
	}
	h.clients[c.switchID][c] = struct{}{}
	h.total++
	metrics.SetWebsocketClients(h.total)
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	clients, ok := h.clients[c.switchID]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.clients, c.switchID)
	}
	close(c.send)
	_ = c.conn.Close()
	h.total--
	metrics.SetWebsocketClients(h.total)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.removeClient(c)
		logger.Logger.Info().Str("switch_id", c.switchID).Msg("Switch device disconnected")
	}()
	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
