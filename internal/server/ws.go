package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/mustfahassan/pd-calculator/internal/server/api"
	"github.com/mustfahassan/pd-calculator/internal/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	writeWait  = 2 * time.Second
	clientSend = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// EventHub pushes session status changes to websocket clients. Identical
// consecutive snapshots are sent once.
type EventHub struct {
	sessionID func() string
	log       *logrus.Logger

	mu          sync.Mutex
	clients     map[*websocket.Conn]chan []byte
	last        []byte
	unsubscribe func()
	closed      bool
}

// NewEventHub creates an EventHub. sessionID labels each event.
func NewEventHub(sessionID func() string, log *logrus.Logger) *EventHub {
	return &EventHub{
		sessionID: sessionID,
		log:       log,
		clients:   make(map[*websocket.Conn]chan []byte),
	}
}

// Attach subscribes the hub to a session's status changes.
func (h *EventHub) Attach(s interface {
	Subscribe(fn func(session.Status)) (unsubscribe func())
}) {
	unsubscribe := s.Subscribe(h.Publish)
	h.mu.Lock()
	h.unsubscribe = unsubscribe
	h.mu.Unlock()
}

// Publish queues a status for every client. It never blocks: a client that
// falls behind misses events.
func (h *EventHub) Publish(s session.Status) {
	msg, err := json.Marshal(api.NewStatusResponse(h.sessionID(), s))
	if err != nil {
		h.log.WithError(err).Debug("Failed to encode status event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || string(msg) == string(h.last) {
		return
	}
	h.last = msg

	for _, send := range h.clients {
		select {
		case send <- msg:
		default:
		}
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("websocket upgrade error")
		return
	}
	defer conn.Close()

	send := make(chan []byte, clientSend)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.clients[conn] = send
	if h.last != nil {
		send <- h.last
	}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Reader: detect disconnects.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case msg, ok := <-send:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close detaches from the session and disconnects every client.
func (h *EventHub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	unsubscribe := h.unsubscribe
	for conn, send := range h.clients {
		close(send)
		delete(h.clients, conn)
	}
	h.mu.Unlock()

	// Outside the lock: the session may be publishing to us right now.
	if unsubscribe != nil {
		unsubscribe()
	}
}
