package notifications

import (
	"time"

	"workhive/internal/middleware"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Inbound frames are small control envelopes plus message text.
	maxMessageSize = 16384

	sendBufferSize = 256
)

// WSHub manages client registration. The chat hub implements it.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client owns one websocket connection. Outbound traffic goes through the
// buffered Send channel so slow consumers never block a delivery; inbound
// frames are handed to IncomingHandler.
type Client struct {
	Hub    WSHub
	Conn   *websocket.Conn
	UserID uint

	Send chan []byte

	IncomingHandler func(*Client, []byte)
}

// NewClient wraps an upgraded connection for the given user.
func NewClient(hub WSHub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBufferSize),
	}
}

// ReadPump reads frames until the connection drops, dispatching each to
// IncomingHandler. It unregisters the client on exit.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("websocket read failed", "user_id", c.UserID, "error", err)
			}
			return
		}
		if c.IncomingHandler != nil {
			c.IncomingHandler(c, frame)
		}
	}
}

// WritePump drains the Send channel onto the wire and keeps the connection
// alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dropNotice tells the client frames were discarded so it can re-fetch the
// conversation over HTTP.
var dropNotice = []byte(`{"type":"error","error":"updates dropped, re-fetch the conversation"}`)

// TrySend queues a frame without blocking. When the buffer is full the frame
// is dropped and a drop notice is queued instead, best effort.
func (c *Client) TrySend(frame []byte) {
	defer func() {
		if r := recover(); r != nil {
			middleware.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		}
	}()

	select {
	case c.Send <- frame:
	default:
		middleware.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
		middleware.Logger.Warn("websocket buffer full, dropping frame",
			"user_id", c.UserID, "hub", c.Hub.Name())

		select {
		case c.Send <- dropNotice:
		default:
		}
	}
}
