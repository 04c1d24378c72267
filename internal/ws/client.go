package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

var pongPayload = []byte(`{"type":"pong"}`)

// clientFrame is the only inbound frame shape we care about; anything but
// a ping is ignored.
type clientFrame struct {
	Type string `json:"type"`
}

// client runs the two pumps for one socket. The write pump is the sole
// writer on the websocket for pushed events; the read pump replies to pings
// by queueing the pong on the same outbound channel, so socket writes stay
// single-writer.
type client struct {
	conn     *websocket.Conn
	registry *Registry
	handle   *Conn
	recv     <-chan []byte
	logger   *zap.Logger
}

// run blocks until the socket closes from either direction, then
// deregisters the connection. This and the sweep are the only two removal
// paths.
func (c *client) run() {
	go c.writePump()
	c.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.registry.Remove(c.handle.UID, c.handle.ID)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.Debug("ws read closed",
				zap.Int32("uid", c.handle.UID),
				zap.Uint64("conn_id", c.handle.ID),
				zap.Error(err),
			)
			return
		}
		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		if frame.Type == "ping" {
			c.registry.RecordPing(c.handle)
			if !c.registry.Send(c.handle, pongPayload) {
				c.logger.Debug("ws pong dropped, channel full",
					zap.Int32("uid", c.handle.UID),
					zap.Uint64("conn_id", c.handle.ID),
				)
			}
		}
	}
}

func (c *client) writePump() {
	defer func() { _ = c.conn.Close() }()

	for payload := range c.recv {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	// channel closed: the registry removed us (explicit close or stale
	// sweep). Tell the peer before dropping the socket.
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
