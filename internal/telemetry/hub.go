package telemetry

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	EventPriceUpdate   = "price_update"
	EventStatusChanged = "status_changed"
	EventSignal        = "signal_received"

	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is the envelope pushed to every listener.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to live UI listeners. A listener that cannot keep up
// is dropped rather than slowing the publisher down.
type Hub struct {
	lock    sync.Mutex
	clients map[*client]struct{}
	logger  *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Publish(event string, payload interface{}) {
	msg, err := json.Marshal(Message{Event: event, Data: payload})
	if err != nil {
		h.logger.WithField("method", "Publish").WithError(err).Error("marshal event")
		return
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.drop(c)
		}
	}
}

func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()

	return len(h.clients)
}

// Close disconnects every listener.
func (h *Hub) Close() {
	h.lock.Lock()
	defer h.lock.Unlock()

	for c := range h.clients {
		h.drop(c)
	}
}

// drop must be called with the lock held.
func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithField("method", "ServeHTTP").WithError(err).Debug("ws upgrade")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.lock.Lock()
	h.clients[c] = struct{}{}
	h.lock.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

// readPump discards inbound frames and notices disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.lock.Lock()
		h.drop(c)
		h.lock.Unlock()
	}()

	c.conn.SetReadLimit(512)
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
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
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
