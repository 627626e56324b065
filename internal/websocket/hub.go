package websocket

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for dev simplicity
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// subscriber is one websocket connection listening for task events.
type subscriber struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans task lifecycle events out to every connected subscriber. The task
// service pushes serialized events into Broadcast after each committed
// transition; slow subscribers are dropped rather than allowed to back up
// the dispatch loop.
type Hub struct {
	subscribers map[*subscriber]bool
	Broadcast   chan []byte
	join        chan *subscriber
	leave       chan *subscriber
	mu          sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		Broadcast:   make(chan []byte),
		join:        make(chan *subscriber),
		leave:       make(chan *subscriber),
		subscribers: make(map[*subscriber]bool),
	}
}

// GetBroadcast exposes the broadcast channel to event producers.
func (h *Hub) GetBroadcast() chan []byte {
	return h.Broadcast
}

// Run owns the subscriber set. It must be started once, before the HTTP
// server begins accepting /ws upgrades.
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.join:
			h.mu.Lock()
			h.subscribers[sub] = true
			h.mu.Unlock()
			log.Println("websocket subscriber joined")
		case sub := <-h.leave:
			h.mu.Lock()
			h.drop(sub)
			h.mu.Unlock()
		case event := <-h.Broadcast:
			h.mu.Lock()
			for sub := range h.subscribers {
				select {
				case sub.send <- event:
				default:
					h.drop(sub)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop must be called with h.mu held.
func (h *Hub) drop(sub *subscriber) {
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub.send)
		log.Println("websocket subscriber left")
	}
}

func (s *subscriber) writeLoop() {
	defer func() {
		_ = s.conn.Close()
	}()
	for event := range s.send {
		if err := s.conn.WriteMessage(websocket.TextMessage, event); err != nil {
			return
		}
	}
	_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readLoop drains the connection so close frames and pings are processed;
// inbound payloads are ignored, the stream is one-way.
func (s *subscriber) readLoop() {
	defer func() {
		s.hub.leave <- s
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

// ServeWs upgrades a listener connection. Subscribers authenticate with the
// same JWT the REST API issues; any known actor may listen.
func ServeWs(hub *Hub, c *gin.Context, secret []byte) {
	tokenString := c.Query("token")
	if tokenString == "" {
		log.Println("websocket rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		log.Println("websocket rejected: invalid token:", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		log.Println("websocket rejected: invalid claims")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	sub, _ := claims["sub"].(string)
	if _, err := uuid.Parse(sub); err != nil {
		log.Println("websocket rejected: invalid subject")
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("websocket upgrade failed:", err)
		return
	}
	s := &subscriber{hub: hub, conn: conn, send: make(chan []byte, 256)}
	hub.join <- s

	go s.writeLoop()
	go s.readLoop()
}
