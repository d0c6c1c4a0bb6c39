// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package websocket

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/pinpoint/internal/logging"
	"github.com/tomtom215/pinpoint/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512 KB

	// inboundRate bounds per-client messages per second. Cursor moves
	// are the chattiest traffic; 30/s covers a 30fps pointer stream.
	inboundRate  = 30
	inboundBurst = 60
)

// clientIDCounter generates unique, monotonically increasing IDs for clients.
// DETERMINISM: This ensures clients can be sorted in a consistent order for
// broadcast operations, eliminating non-deterministic map iteration order.
var clientIDCounter atomic.Uint64

// Identity is the authenticated reviewer bound to a connection.
type Identity struct {
	Email string
	Name  string
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	// id is a unique identifier for this client, used for deterministic ordering.
	// DETERMINISM: Assigned from an atomic counter to ensure consistent sorting.
	id       uint64
	hub      *Hub
	conn     *websocket.Conn
	send     chan Message
	identity Identity
	limiter  *rate.Limiter

	// room is the client's current room. Guarded by hub.mu.
	room string
}

// NewClient creates a new Client with a unique deterministic ID
func NewClient(hub *Hub, conn *websocket.Conn, identity Identity) *Client {
	return &Client{
		id:       clientIDCounter.Add(1),
		hub:      hub,
		conn:     conn,
		send:     make(chan Message, 256),
		identity: identity,
		limiter:  rate.NewLimiter(rate.Limit(inboundRate), inboundBurst),
	}
}

// ID returns the client's unique identifier for deterministic ordering
func (c *Client) ID() uint64 {
	return c.id
}

// Identity returns the reviewer bound to this connection.
func (c *Client) Identity() Identity {
	return c.identity
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close() // Explicitly ignore error - best-effort cleanup
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			break
		}
		metrics.WSMessagesReceived.Inc()

		if !c.limiter.Allow() {
			metrics.WSMessagesDropped.WithLabelValues("rate_limited").Inc()
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage processes one inbound client message. Unrecognized
// types are dropped; the realtime channel tolerates newer clients.
func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case MessageTypeJoinRoom:
		if msg.Room == "" {
			return
		}
		c.hub.Join(c, msg.Room)

	case MessageTypeCursorMove:
		// Pass-through presence traffic. Never persisted, never echoed
		// back to the pointer's owner.
		room := c.CurrentRoom()
		if room == "" {
			return
		}
		c.hub.BroadcastEvent(room, MessageTypeCursorMove, msg.Data, c.id)

	case MessageTypePing:
		pong := Message{Type: MessageTypePong}
		select {
		case c.send <- pong:
		default:
		}

	default:
		logging.Debug().Str("message_type", msg.Type).Msg("dropping unrecognized client message")
	}
}

// CurrentRoom returns the room the client is joined to, or "".
func (c *Client) CurrentRoom() string {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	return c.room
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Explicitly ignore error - best-effort cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The hub closed the channel
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logging.Error().Err(err).Msg("failed to write close message")
				}
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logging.Error().Err(err).Msg("failed to write JSON message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
