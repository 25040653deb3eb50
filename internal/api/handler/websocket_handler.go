package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/logger"
)

const (
	wsWriteWait   = 10 * time.Second
	wsPongWait    = 60 * time.Second
	wsPingPeriod  = wsPongWait * 9 / 10
	wsSendBufSize = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// WebSocketManager fans parking events out to every connected client. A
// client that cannot keep up is dropped.
type WebSocketManager struct {
	clients    map[*wsClient]struct{}
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	done       chan struct{}
	log        logger.Logger
}

func NewWebSocketManager(log logger.Logger) *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*wsClient]struct{}),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		log:        log.Named("ws"),
	}
}

// Start runs the hub loop until ctx is done, then closes all clients.
func (m *WebSocketManager) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(m.done)
			for c := range m.clients {
				m.drop(c)
			}
			return
		case c := <-m.register:
			m.clients[c] = struct{}{}
			m.log.Debug("websocket client connected", "clients", len(m.clients))
		case c := <-m.unregister:
			if _, ok := m.clients[c]; ok {
				m.drop(c)
				m.log.Debug("websocket client disconnected", "clients", len(m.clients))
			}
		case msg := <-m.broadcast:
			for c := range m.clients {
				select {
				case c.send <- msg:
				default:
					m.log.Warn("websocket client too slow, dropping")
					m.drop(c)
				}
			}
		}
	}
}

func (m *WebSocketManager) drop(c *wsClient) {
	delete(m.clients, c)
	close(c.send)
}

// Notify implements service.Notifier.
func (m *WebSocketManager) Notify(_ context.Context, event domain.ParkingEvent) {
	msg, err := json.Marshal(event)
	if err != nil {
		m.log.Error("failed to marshal parking event", "error", err)
		return
	}
	select {
	case m.broadcast <- msg:
	default:
		m.log.Warn("broadcast channel is full, dropping event", "eventId", event.EventID)
	}
}

type WebSocketHandler struct {
	manager *WebSocketManager
}

func NewWebSocketHandler(m *WebSocketManager) *WebSocketHandler {
	return &WebSocketHandler{manager: m}
}

// GET /ws
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.manager.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := &wsClient{conn: conn, send: make(chan []byte, wsSendBufSize)}

	select {
	case h.manager.register <- client:
	case <-h.manager.done:
		conn.Close()
		return
	case <-c.Request.Context().Done():
		conn.Close()
		return
	}

	go h.writePump(client)
	go h.readPump(client)
}

func (h *WebSocketHandler) readPump(client *wsClient) {
	defer func() {
		select {
		case h.manager.unregister <- client:
		case <-h.manager.done:
		}
	}()
	client.conn.SetReadLimit(512)
	_ = client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.manager.log.Warn("websocket read failed", "error", err)
			}
			return
		}
	}
}

func (h *WebSocketHandler) writePump(client *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
