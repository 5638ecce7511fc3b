package notify

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBufferSize = 64
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
)

// Hub держит WebSocket-подключения пользователей и рассылает им уведомления
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
		logger:  logger,
	}
}

// Client одно подключение пользователя
type Client struct {
	userID int64
	send   chan []byte
}

func NewClient(userID int64) *Client {
	return &Client{
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

// Send канал исходящих сообщений клиента, закрывается при отключении
func (c *Client) Send() <-chan []byte {
	return c.send
}

// Register добавляет подключение
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[client.userID] = set
	}
	set[client] = struct{}{}

	h.logger.Debug("WebSocket client connected", zap.Int64("user_id", client.userID))
}

// Unregister удаляет подключение и закрывает его канал. Повторный вызов безопасен.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	set, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}

	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
}

// SendToUser отправляет сообщение во все подключения пользователя.
// Подключение с переполненным буфером отключается.
func (h *Hub) SendToUser(userID int64, message []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for client := range h.clients[userID] {
		select {
		case client.send <- message:
			delivered++
		default:
			h.logger.Warn("WebSocket client is too slow, disconnecting", zap.Int64("user_id", userID))
			h.removeLocked(client)
		}
	}

	return delivered
}

// ClientCount количество подключений пользователя
func (h *Hub) ClientCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Serve обслуживает подключение до его закрытия: пишет сообщения хаба,
// отвечает на ping/pong, входящие сообщения игнорирует
func (h *Hub) Serve(conn *websocket.Conn, client *Client) {
	h.Register(client)

	go h.writePump(conn, client)
	h.readPump(conn, client)
}

func (h *Hub) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Хаб закрыл канал
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(conn *websocket.Conn, client *Client) {
	defer func() {
		h.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("WebSocket read error", zap.Error(err), zap.Int64("user_id", client.userID))
			}
			return
		}
	}
}
