// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

// Package websocket implements the realtime fan-out layer. Clients join
// a room per review session; annotation events broadcast to everyone in
// the room except their originator.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/pinpoint/internal/logging"
	"github.com/tomtom215/pinpoint/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Realtime message types.
const (
	MessageTypeJoinRoom          = "join-room"
	MessageTypePresenceUpdate    = "presence:update"
	MessageTypeThreadAdded       = "thread:added"
	MessageTypeCommentAdded      = "comment:added"
	MessageTypeCommentEdited     = "comment:edited"
	MessageTypeCommentDeleted    = "comment:deleted"
	MessageTypeCommentReplied    = "comment:replied"
	MessageTypeTaskStatusUpdated = "task:status-updated"
	MessageTypeCursorMove        = "cursor-move"
	MessageTypePing              = "ping"
	MessageTypePong              = "pong"
)

// Message is the realtime wire format.
type Message struct {
	Type string      `json:"type"`
	Room string      `json:"room,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

// PresenceData is the payload of presence:update messages. Names are
// deduplicated and sorted so every member renders the same roster.
type PresenceData struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// roomBroadcast is one queued fan-out operation. excludeID names the
// originating client; events are never echoed to their sender.
type roomBroadcast struct {
	room      string
	message   Message
	excludeID uint64
}

// Hub maintains room membership and fans messages out to room members.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	broadcast  chan roomBroadcast
	Register   chan *Client
	Unregister chan *Client
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan roomBroadcast, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// RunWithContext runs the hub loop until the context is canceled. It is
// designed for suture supervision; on shutdown all clients are closed
// and ctx.Err() is returned.
//
// The loop uses priority-based selection so behavior stays predictable
// when multiple channels are ready:
//   - Priority 1: context cancellation
//   - Priority 2: client lifecycle (Register/Unregister)
//   - Priority 3: broadcasts
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: shutdown, non-blocking check.
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: lifecycle events, non-blocking check.
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		// Priority 3: block for any event.
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.addClient(client)

		case client := <-h.Unregister:
			h.removeClient(client)

		case b := <-h.broadcast:
			h.broadcastToRoom(b)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room := client.room
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		h.leaveRoomLocked(client)
		close(client.send)
	}
	total := len(h.clients)
	roomCount := len(h.rooms)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	metrics.WSRooms.Set(float64(roomCount))
	logging.Info().Int("total_clients", total).Msg("websocket client disconnected")

	if room != "" {
		h.broadcastPresence(room)
	}
}

// Join moves a client into a room. Rebinding to a new room (page
// navigation changes the version fragment of the room id) is a
// leave-plus-join; both rooms get fresh presence rosters.
func (h *Hub) Join(client *Client, room string) {
	h.mu.Lock()
	previous := client.room
	if previous == room {
		h.mu.Unlock()
		return
	}
	h.leaveRoomLocked(client)

	client.room = room
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[client] = true
	roomCount := len(h.rooms)
	h.mu.Unlock()

	metrics.WSRooms.Set(float64(roomCount))
	logging.Info().
		Str("room", room).
		Str("user", client.identity.Name).
		Msg("client joined room")

	if previous != "" {
		h.broadcastPresence(previous)
	}
	h.broadcastPresence(room)
}

// leaveRoomLocked detaches the client from its room. Caller holds h.mu.
func (h *Hub) leaveRoomLocked(client *Client) {
	if client.room == "" {
		return
	}
	if members, ok := h.rooms[client.room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, client.room)
		}
	}
	client.room = ""
}

// BroadcastEvent queues a message for everyone in the room except the
// excluded sender (0 excludes nobody). Non-blocking; drops when the
// broadcast queue is saturated.
func (h *Hub) BroadcastEvent(room, msgType string, data interface{}, excludeID uint64) {
	b := roomBroadcast{
		room:      room,
		message:   Message{Type: msgType, Room: room, Data: data},
		excludeID: excludeID,
	}

	select {
	case h.broadcast <- b:
	default:
		metrics.WSMessagesDropped.WithLabelValues("channel_full").Inc()
		logging.Warn().Str("room", room).Str("message_type", msgType).Msg("broadcast channel full, dropping message")
	}
}

// broadcastPresence queues a roster update for the room. Presence goes
// to every member including the one whose join triggered it.
func (h *Hub) broadcastPresence(room string) {
	h.BroadcastEvent(room, MessageTypePresenceUpdate, PresenceData{
		Room:  room,
		Users: h.RoomUsers(room),
	}, 0)
}

// broadcastToRoom delivers a queued broadcast. Clients are visited in id
// order so delivery order is deterministic; clients with a full send
// buffer are dropped from the hub.
func (h *Hub) broadcastToRoom(b roomBroadcast) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[b.room]
	if !ok {
		return
	}

	clients := make([]*Client, 0, len(members))
	for client := range members {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		if b.excludeID != 0 && client.id == b.excludeID {
			continue
		}
		select {
		case client.send <- b.message:
			metrics.WSMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		metrics.WSMessagesDropped.WithLabelValues("slow_client").Inc()
		close(client.send)
		delete(h.clients, client)
		h.leaveRoomLocked(client)
	}
}

// RoomUsers returns the deduplicated, sorted display names in a room.
func (h *Hub) RoomUsers(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members, ok := h.rooms[room]
	if !ok {
		return nil
	}

	seen := make(map[string]bool, len(members))
	users := make([]string, 0, len(members))
	for client := range members {
		name := client.identity.Name
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		users = append(users, name)
	}
	sort.Strings(users)
	return users
}

// RoomSize returns the number of clients in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// GetRoomCount returns the number of occupied rooms.
func (h *Hub) GetRoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// closeAllClients closes every client in id order during shutdown.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
		h.leaveRoomLocked(client)
	}
}
