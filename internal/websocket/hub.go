package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"billbook/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const sendBuffer = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by CORS on the REST API; the socket only carries notifications.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Authenticator validates the token a socket connects with and returns the role.
type Authenticator func(token string) (role string, err error)

// subscriber is one connected socket and the event topics it asked for.
// An empty topic list means every event.
type subscriber struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	topics []string
}

// wants reports whether the subscriber listens to eventType. Topics match
// the event's namespace ("document") or the full type ("document.created").
func (s *subscriber) wants(eventType events.Type) bool {
	if len(s.topics) == 0 {
		return true
	}
	full := string(eventType)
	namespace, _, _ := strings.Cut(full, ".")
	for _, topic := range s.topics {
		if topic == full || topic == namespace {
			return true
		}
	}
	return false
}

type outbound struct {
	eventType events.Type
	payload   []byte
}

// Hub fans domain events out to the connected sockets.
type Hub struct {
	subscribers map[*subscriber]struct{}
	outbox      chan outbound
	register    chan *subscriber
	unregister  chan *subscriber
	done        chan struct{}
	mu          sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		outbox:      make(chan outbound, sendBuffer),
		register:    make(chan *subscriber),
		unregister:  make(chan *subscriber),
		done:        make(chan struct{}),
	}
}

// Run owns the subscriber set until ctx is cancelled, then closes every socket.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for s := range h.subscribers {
				h.drop(s)
			}
			h.mu.Unlock()
			return
		case s := <-h.register:
			h.mu.Lock()
			h.subscribers[s] = struct{}{}
			h.mu.Unlock()
			log.Printf("WebSocket client connected (topics: %v)", s.topics)
		case s := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.subscribers[s]; ok {
				h.drop(s)
				log.Println("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case msg := <-h.outbox:
			h.mu.Lock()
			for s := range h.subscribers {
				if !s.wants(msg.eventType) {
					continue
				}
				select {
				case s.send <- msg.payload:
				default:
					// Slow reader; cut it loose instead of stalling everyone else.
					h.drop(s)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop must be called with mu held.
func (h *Hub) drop(s *subscriber) {
	delete(h.subscribers, s)
	close(s.send)
}

// ClientCount returns the number of connected sockets.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Publish queues event for the interested sockets. A full queue drops the
// event; notifications never hold up the request that caused them.
func (h *Hub) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	select {
	case h.outbox <- outbound{eventType: event.Type, payload: payload}:
	case <-ctx.Done():
		return ctx.Err()
	default:
		log.Printf("WebSocket broadcast queue full, dropping %s", event.Type)
	}
	return nil
}

func (s *subscriber) writePump() {
	defer func() {
		_ = s.conn.Close()
	}()
	for payload := range s.send {
		w, err := s.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		_, _ = w.Write(payload)

		// Batch whatever is already queued into the same frame, newline separated.
		n := len(s.send)
		for i := 0; i < n; i++ {
			_, _ = w.Write([]byte{'\n'})
			_, _ = w.Write(<-s.send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}
	_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (s *subscriber) readPump() {
	defer func() {
		select {
		case s.hub.unregister <- s:
		case <-s.hub.done:
		}
		_ = s.conn.Close()
	}()
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			return
		}
	}
}

func parseTopics(raw string) []string {
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

// ServeWs upgrades an authenticated request. The token comes from the
// "token" query parameter since browsers cannot set headers on sockets;
// "topics" optionally narrows the stream, e.g. topics=document,khata.
func ServeWs(hub *Hub, c *gin.Context, authenticate Authenticator) {
	tokenString := c.Query("token")
	if tokenString == "" {
		log.Println("WebSocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	role, err := authenticate(tokenString)
	if err != nil || role == "" {
		log.Println("WebSocket connection rejected: invalid token:", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}
	s := &subscriber{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		topics: parseTopics(c.Query("topics")),
	}
	select {
	case hub.register <- s:
	case <-hub.done:
		_ = conn.Close()
		return
	}

	go s.writePump()
	go s.readPump()
}
