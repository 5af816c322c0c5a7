package relay

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ahmedasif11/let-meet-sub000/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP descriptions fit
	// comfortably in 64 KB.
	maxMessageSize = 64 * 1024
)

// Client is a wrapper for a single websocket connection (a participant).
type Client struct {
	// ID is the relay-assigned connection id, used as the peer id in
	// all admission and negotiation messages.
	ID string

	Hub  *Hub
	Conn *websocket.Conn

	// Send is a buffered channel of outbound messages. The hub writes
	// to it and WritePump drains it onto the websocket.
	Send chan *protocol.Message
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine, which
// guarantees at most one reader per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg protocol.Message
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("read error", "peer", c.ID, "err", err)
			}
			break
		}
		c.Hub.inbound <- &inbound{peerID: c.ID, msg: &msg}
	}
}

// WritePump pumps messages from the hub to the websocket connection
// and keeps the connection alive with periodic pings. One goroutine
// per connection guarantees a single writer.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(message); err != nil {
				slog.Warn("write error", "peer", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
