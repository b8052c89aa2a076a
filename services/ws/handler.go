package ws

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pocketbase/pocketbase/core"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from behind the same reverse proxy; the
	// session cookie is what gates sensitive data, not the origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 32
)

var errSendBufferFull = errors.New("client send buffer full")

// client wraps one gorilla connection with a buffered outbound queue so hub
// sends never block on a slow reader.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func (c *client) Send(payload []byte) error {
	select {
	case c.send <- payload:
		return nil
	default:
		return errSendBufferFull
	}
}

// Handler upgrades /ws requests and attaches them to the hub. The client id
// comes from the clientId query param so a dashboard keeps its identity
// across reconnects; absent that, a fresh id is issued.
func Handler(hub *Hub, logger *slog.Logger) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		conn, err := upgrader.Upgrade(e.Response, e.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade failed", "error", err)
			return nil
		}

		clientID := e.Request.URL.Query().Get("clientId")
		if clientID == "" {
			clientID = uuid.NewString()
		}

		c := &client{id: clientID, conn: conn, send: make(chan []byte, sendBufferSize)}
		hub.Register(clientID, c)

		go c.writePump()
		go c.readPump(hub, logger)

		hub.SendTo(clientID, Envelope{
			Type:      "connection",
			Status:    "connected",
			ClientID:  clientID,
			Timestamp: hub.now().UnixMilli(),
		})
		return nil
	}
}

func (c *client) readPump(hub *Hub, logger *slog.Logger) {
	// The send channel is never closed: a late Broadcast may still hold the
	// Conn. writePump exits on its next ping once the connection is closed.
	defer func() {
		hub.Remove(c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("ws read failed", "clientId", c.id, "error", err)
			}
			return
		}
		hub.HandleMessage(c.id, raw)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
