package hub

import (
	"time"

	"fusionx_backend/pkg/utils"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
	sendQueueSize  = 64
)

// Client is one websocket subscriber attached to a shift room.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	shiftID int64
	staff   bool
	send    chan []byte
}

// NewClient wraps an upgraded websocket connection. The staff flag decides
// whether the client receives staff-only events.
func NewClient(h *Hub, conn *websocket.Conn, shiftID int64, staff bool) *Client {
	return &Client{
		hub:     h,
		conn:    conn,
		shiftID: shiftID,
		staff:   staff,
		send:    make(chan []byte, sendQueueSize),
	}
}

// enqueue offers a payload to the client's send queue without blocking.
// Returns false when the queue is full.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Run registers the client and services its connection until either pump
// exits. It blocks until the connection is torn down.
func (c *Client) Run() {
	c.hub.Join(c)
	go c.writePump()
	c.readPump()
}

// readPump consumes inbound frames. Clients are not expected to send
// anything except the "ping" keepalive, which is answered with "pong"
// through the send queue so all writes stay on the write pump.
func (c *Client) readPump() {
	defer func() {
		c.hub.Leave(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.LogDebug("websocket read error: " + err.Error())
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if string(message) == "ping" {
			c.enqueue([]byte("pong"))
		}
	}
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with protocol-level pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
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
