package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveWS upgrades the request and attaches the connection to the
// session, pushing the current state as the first event.
func (h *Handler) serveWS(c *gin.Context) {
	sessionID := c.Param("id")
	ctrl, err := h.manager.Get(sessionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket connection", zap.String("session_id", sessionID), zap.Error(err))
		return
	}

	log := h.logger.With(zap.String("session_id", sessionID))
	log.Info("Websocket connection established")

	client := &wsClient{
		SessionID: sessionID,
		Conn:      conn,
		send:      make(chan []byte, 256),
	}
	h.hub.RegisterClient(client)
	h.hub.SendState(sessionID, ctrl.Snapshot())

	go client.writePump(log)
	go client.readPump(h.hub, log)
}

// readPump drains inbound frames. Clients are not expected to send
// anything; the loop exists to detect disconnects and answer pings.
func (c *wsClient) readPump(hub *Hub, log *zap.Logger) {
	defer func() {
		hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("Websocket read error", zap.Error(err))
			} else {
				log.Info("Websocket connection closed")
			}
			return
		}
	}
}

// writePump forwards queued events to the connection and keeps it alive
// with periodic pings.
func (c *wsClient) writePump(log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn("Failed to write websocket message", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}
