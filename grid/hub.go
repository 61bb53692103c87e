package grid

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsSendBuffer = 8
)

// LiveUpdate is pushed to websocket clients on every snapshot. It carries
// the stats and the occupied cells only; the full point list stays on the
// HTTP and MQTT paths.
type LiveUpdate struct {
	Type     string       `json:"type"`
	Stats    MapStats     `json:"stats"`
	Occupied [][2]float64 `json:"occupied"` // world cm
}

// NewLiveUpdate builds the websocket payload for the current map. The caller
// must hold whatever lock guards om.
func NewLiveUpdate(om *OccupancyMap, stats MapStats) LiveUpdate {
	cells := om.CellsWithLabel(Occupied)
	occupied := make([][2]float64, len(cells))
	for i, c := range cells {
		p := om.Frame().CellToWorld(c)
		occupied[i] = [2]float64{p.X, p.Y}
	}
	return LiveUpdate{Type: "snapshot", Stats: stats, Occupied: occupied}
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans map updates out to websocket viewers. A slow client whose buffer
// is full is dropped rather than stalling the broadcaster.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*hubClient]struct{}
	closed   bool
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*hubClient]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Logf("[WS] upgrade failed: %v", err)
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	Logf("[WS] client connected from %s (%d total)", r.RemoteAddr, n)

	go h.writePump(c)
	go h.readPump(c)
}

// Broadcast queues msg for every client.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			Logf("[WS] dropping slow client %s", c.conn.RemoteAddr())
			h.removeLocked(c)
		}
	}
}

// BroadcastJSON marshals v and broadcasts it.
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *hubClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// readPump discards client messages and detects disconnects.
func (h *Hub) readPump(c *hubClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *hubClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
