package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound frames; clients only send small signals
	maxMessageSize = 64 * 1024
)

// Receiver handles a text frame read from a client. A non-nil reply is
// written back to that client only.
type Receiver func(data []byte) (reply []byte)

// Client represents a single websocket connection
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan Message
	topics  Topics
	receive Receiver

	// closed by the hub once the client is in its set
	registered chan struct{}
}

// NewClient creates a client subscribed to topics and registers it with the
// hub. It returns once the hub has added the client, so broadcasts and
// replies issued after it returns reach the client. receive may be nil for
// output-only connections. It returns nil when the hub has stopped.
func NewClient(hub *Hub, conn *websocket.Conn, topics Topics, receive Receiver) *Client {
	client := &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan Message, 256), // Buffered channel for backpressure
		topics:  topics,
		receive: receive,

		registered: make(chan struct{}),
	}
	select {
	case hub.register <- client:
		<-client.registered
		return client
	case <-hub.done:
		return nil
	}
}

// Run starts the client's read and write pumps
// This should be called in the websocket handler
func (c *Client) Run() {
	go c.writePump()
	c.readPump() // Blocks until connection closes
}

// readPump reads frames until the connection closes, handing text frames
// to the receiver and queueing its replies.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		if c.receive == nil || mt != websocket.TextMessage {
			continue
		}
		if reply := c.receive(data); reply != nil {
			c.reply(reply)
		}
	}
}

// reply queues a direct response. The hub owns the send channel, so this
// goes through the hub's lock to avoid racing a close.
func (c *Client) reply(data []byte) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- Message{Data: data}:
	default:
	}
}

// writePump writes messages to the websocket connection
// Only this goroutine writes to the connection - no race conditions!
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel - send close frame
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message.Data); err != nil {
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
