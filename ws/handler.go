package ws

import (
	"net/http"

	"gigboard_backend/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var readyFrame = map[string]string{"type": "ready"}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// токен проверен до апгрейда, поэтому Origin не ограничиваем
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS переводит запрос в websocket и подписывает соединение на сообщения userID
func (h *Hub) ServeWS(c *gin.Context, userID string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.CtxWarn(c.Request.Context(), "websocket upgrade failed", "error", err.Error())
		return
	}

	client := &Client{
		UserID: userID,
		conn:   conn,
		send:   make(chan any, sendBuffer),
		hub:    h,
	}
	if !h.join(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
