package ws

import (
	"sync"

	"gigboard_backend/internal/logger"
)

// Hub держит открытые соединения по пользователям. У одного пользователя
// может быть несколько вкладок, сообщение уходит во все.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run обслуживает отключение клиентов до Close
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.unregister:
			h.remove(client)

		case <-h.done:
			h.mu.Lock()
			for userID, conns := range h.clients {
				for client := range conns {
					close(client.send)
				}
				delete(h.clients, userID)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}
	close(client.send)
	delete(conns, client)
	if len(conns) == 0 {
		delete(h.clients, client.UserID)
	}
	logger.Debug("websocket client unregistered", "user_id", client.UserID)
}

// Close отключает всех клиентов и останавливает Run
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// SendToUser кладет сообщение в очереди всех соединений пользователя.
// Клиент с переполненной очередью отключается. Возвращает число соединений, получивших сообщение.
func (h *Hub) SendToUser(userID string, payload any) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
			delivered++
		default:
			logger.Warn("websocket send buffer full, dropping client", "user_id", userID)
			go h.drop(client)
		}
	}
	return delivered
}

func (h *Hub) drop(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// join регистрирует клиента синхронно: после возврата он уже получает SendToUser
func (h *Hub) join(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.done:
		return false
	default:
	}
	conns, ok := h.clients[client.UserID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.clients[client.UserID] = conns
	}
	conns[client] = struct{}{}
	// первый кадр: клиент подписан и не пропустит следующие сообщения
	client.send <- readyFrame
	logger.Debug("websocket client registered", "user_id", client.UserID)
	return true
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.clients {
		n += len(conns)
	}
	return n
}

func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}
