package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/agrisense/fieldwatch/module/core/domain"
	"github.com/agrisense/fieldwatch/module/core/internal/broker"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second

	// sendBuffer bounds the backlog per connection. A client that falls
	// this far behind is disconnected; it never delays the others.
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type geofenceFetcher interface {
	CurrentGeofence(ctx context.Context) (*domain.Geofence, error)
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans realtime events out to connected websocket observers. Each
// observer receives events in publish order; on connect it is first sent
// the current geofence, if one exists, so its detector can seed its
// polygon without a separate fetch.
type Hub struct {
	bus    *broker.Bus
	fences geofenceFetcher

	mu      sync.Mutex
	clients map[string]*client
}

func NewHub(bus *broker.Bus, fences geofenceFetcher) *Hub {
	return &Hub{
		bus:     bus,
		fences:  fences,
		clients: make(map[string]*client),
	}
}

func (h *Hub) Register(r *gin.RouterGroup) {
	r.GET("/ws", h.Serve)
}

// Run forwards channel events to every connected client until the
// context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case ev, ok := <-sub.Events():
			if !ok {
				h.closeAll()
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				log.Printf("ws: encode event: %v", err)
				continue
			}
			h.broadcast(payload)
		}
	}
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			delete(h.clients, id)
			close(c.send)
			log.Printf("ws: client %s dropped, send buffer full", id)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}

// ClientCount reports the number of attached observers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
}

// Serve upgrades the request and attaches the observer. The geofence
// backfill is written before the client joins the broadcast set, so the
// backfill always precedes any live event on this connection.
func (h *Hub) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade: %v", err)
		return
	}

	cl := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	if fence, err := h.fences.CurrentGeofence(c.Request.Context()); err == nil {
		backfill, err := json.Marshal(domain.Event{Kind: domain.EventGeofenceUpdated, Geofence: fence})
		if err == nil {
			cl.send <- backfill
		}
	}

	h.mu.Lock()
	h.clients[cl.id] = cl
	h.mu.Unlock()
	log.Printf("ws: client %s connected", cl.id)

	go cl.writePump()
	go cl.readPump(h)
}

// readPump discards inbound frames; the channel is push-only. It exists
// to notice closed connections and answer pings.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("ws: client %s read: %v", c.id, err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
