package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// Client is one open connection belonging to a user. Events only flow
// server to client; inbound frames are discarded.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	userID string
	send   chan []byte
}

func NewClient(hub *Hub, conn *ws.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

// Run registers the client and forwards queued events until the peer goes
// away, a write fails, or ctx is cancelled.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	// CloseRead keeps reading control frames in the background and cancels
	// ctx once the peer closes.
	ctx = c.conn.CloseRead(ctx)

	keepalive := time.NewTicker(pingInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			c.conn.Close(ws.StatusNormalClosure, "")
			return
		case msg, ok := <-c.send:
			if !ok {
				c.conn.Close(ws.StatusGoingAway, "")
				return
			}
			if err := c.deadline(ctx, func(ctx context.Context) error {
				return c.conn.Write(ctx, ws.MessageText, msg)
			}); err != nil {
				return
			}
		case <-keepalive.C:
			if err := c.deadline(ctx, c.conn.Ping); err != nil {
				return
			}
		}
	}
}

func (c *Client) deadline(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return fn(ctx)
}
