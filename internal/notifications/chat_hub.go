package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"
)

const maxConnsPerUser = 8

// ChatHub manages WebSocket connections keyed by partition owner. A user may
// hold several connections (multiple tabs or devices); every copy of an event
// addressed to their partition is fanned out to all of them.
type ChatHub struct {
	mu sync.RWMutex

	// Map: userID -> set of active Clients (multi-device support)
	userConns map[uint]map[*Client]bool
}

// Name returns a human-readable identifier for this hub.
func (h *ChatHub) Name() string { return "chat hub" }

// ChatEvent is the envelope broadcast to WebSocket clients.
type ChatEvent struct {
	Type             string      `json:"type"` // "message", "user_status", "connected_users"
	PartitionOwnerID uint        `json:"partition_owner_id,omitempty"`
	UserID           uint        `json:"user_id,omitempty"`
	Payload          interface{} `json:"payload"`
}

// NewChatHub creates a new ChatHub instance
func NewChatHub() *ChatHub {
	return &ChatHub{
		userConns: make(map[uint]map[*Client]bool),
	}
}

// Register registers a user's websocket connection. Returns Client or error if limits exceeded.
func (h *ChatHub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()

	if h.userConns[userID] == nil {
		h.userConns[userID] = make(map[*Client]bool)
	}

	if len(h.userConns[userID]) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, fmt.Errorf("user connection limit reached")
	}

	client := NewClient(h, conn, userID)
	h.userConns[userID][client] = true

	// Collect currently online users for the initial snapshot
	onlineIDs := make([]uint, 0, len(h.userConns))
	for id := range h.userConns {
		if id != userID {
			onlineIDs = append(onlineIDs, id)
		}
	}
	h.mu.Unlock()

	log.Printf("ChatHub: Registered user %d (Active clients: %d)", userID, len(h.userConns[userID]))

	if len(onlineIDs) > 0 {
		snapshot := ChatEvent{
			Type:    "connected_users",
			Payload: map[string]interface{}{"user_ids": onlineIDs},
		}
		if jsonMsg, err := json.Marshal(snapshot); err == nil {
			client.TrySend(jsonMsg)
		}
	}

	h.BroadcastUserStatus(userID, "online")
	return client, nil
}

// RegisterClient adds a pre-built client to the hub.
func (h *ChatHub) RegisterClient(client *Client) {
	h.mu.Lock()
	if h.userConns[client.UserID] == nil {
		h.userConns[client.UserID] = make(map[*Client]bool)
	}
	h.userConns[client.UserID][client] = true
	h.mu.Unlock()
	h.BroadcastUserStatus(client.UserID, "online")
}

// UnregisterClient removes a user's websocket connection.
func (h *ChatHub) UnregisterClient(client *Client) {
	h.mu.Lock()

	clients, ok := h.userConns[client.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(clients, client)
	if len(clients) > 0 {
		h.mu.Unlock()
		log.Printf("ChatHub: Unregistered client for user %d (Remaining clients: %d)", client.UserID, len(clients))
		return
	}
	delete(h.userConns, client.UserID)
	h.mu.Unlock()

	log.Printf("ChatHub: Unregistered user %d (All connections closed)", client.UserID)

	h.BroadcastUserStatus(client.UserID, "offline")
}

// IsUserOnline returns true when the user has at least one active chat websocket client.
func (h *ChatHub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.userConns[userID]
	return ok && len(clients) > 0
}

// BroadcastToPartition sends a raw payload to every client of a partition owner.
func (h *ChatHub) BroadcastToPartition(ownerID uint, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.userConns[ownerID]
	if !ok {
		return
	}
	for client := range clients {
		client.TrySend(payload)
	}
}

// BroadcastUserStatus announces a user's online/offline transition to all clients.
func (h *ChatHub) BroadcastUserStatus(userID uint, status string) {
	event := ChatEvent{
		Type:    "user_status",
		UserID:  userID,
		Payload: map[string]interface{}{"status": status},
	}
	h.BroadcastToAllUsers(event)
}

// BroadcastToAllUsers sends an event to every connected websocket client.
func (h *ChatHub) BroadcastToAllUsers(event ChatEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	messageJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("ChatHub: Failed to marshal event: %v", err)
		return
	}

	for _, clients := range h.userConns {
		for client := range clients {
			client.TrySend(messageJSON)
		}
	}
}

// StartWiring connects the ChatHub to Redis pub/sub for partition events.
// Events published on chat:partition:<id> are fanned out to that user's
// connected clients on this instance.
func (h *ChatHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPartitionSubscriber(ctx, func(channel, payload string) {
		ownerID, err := ParsePartitionChannel(channel)
		if err != nil {
			log.Printf("ChatHub: %v", err)
			return
		}
		h.BroadcastToPartition(ownerID, []byte(payload))
	})
}

// Shutdown closes all client send channels, unblocking their write pumps.
func (h *ChatHub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.userConns {
		for client := range clients {
			close(client.Send)
		}
		delete(h.userConns, userID)
	}
}
