package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"workhive/internal/middleware"
	"workhive/internal/models"
	"workhive/internal/notifications"
	"workhive/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// wsEnvelope is the frame format for both directions of the chat socket.
type wsEnvelope struct {
	Type     string               `json:"type"`
	PeerID   uint                 `json:"peer_id,omitempty"`
	Message  string               `json:"message,omitempty"`
	Messages []models.ChatMessage `json:"messages,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// wsSession tracks the per-connection conversation subscriptions.
type wsSession struct {
	mu   sync.Mutex
	subs map[uint]context.CancelFunc
}

func (ws *wsSession) track(peerID uint, cancel context.CancelFunc) {
	ws.mu.Lock()
	if prev, ok := ws.subs[peerID]; ok {
		prev()
	}
	ws.subs[peerID] = cancel
	ws.mu.Unlock()
}

func (ws *wsSession) drop(peerID uint) {
	ws.mu.Lock()
	if cancel, ok := ws.subs[peerID]; ok {
		cancel()
		delete(ws.subs, peerID)
	}
	ws.mu.Unlock()
}

func (ws *wsSession) dropAll() {
	ws.mu.Lock()
	for peerID, cancel := range ws.subs {
		cancel()
		delete(ws.subs, peerID)
	}
	ws.mu.Unlock()
}

func sendEnvelope(client *notifications.Client, env wsEnvelope) {
	if payload, err := json.Marshal(env); err == nil {
		client.TrySend(payload)
	}
}

// WebSocketChatHandler handles GET /api/ws/chat. The client drives a
// join/leave protocol: joining a peer streams the current conversation
// snapshot and a fresh one after every delivery touching the viewer's
// partition; leaving stops the stream. Messages may also be sent inline as an
// alternative to the HTTP endpoint.
func (s *Server) WebSocketChatHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		userID := userIDVal.(uint)

		client, err := s.chatHub.Register(userID, conn)
		if err != nil {
			sendRawError(conn, err.Error())
			_ = conn.Close()
			return
		}

		connCtx, cancelConn := context.WithCancel(context.Background())
		session := &wsSession{subs: make(map[uint]context.CancelFunc)}

		client.IncomingHandler = func(c *notifications.Client, raw []byte) {
			var env wsEnvelope
			if err := json.Unmarshal(raw, &env); err != nil {
				return
			}

			switch env.Type {
			case "join":
				s.handleJoin(connCtx, c, session, userID, env.PeerID)
			case "leave":
				if env.PeerID != 0 {
					session.drop(env.PeerID)
				}
			case "message":
				s.handleInlineMessage(connCtx, c, userID, env)
			}
		}

		go client.WritePump()
		client.ReadPump()

		// ReadPump returned: the connection is gone.
		cancelConn()
		session.dropAll()
	})
}

// handleJoin subscribes the connection to one conversation and streams
// snapshots until leave, re-join or disconnect.
func (s *Server) handleJoin(ctx context.Context, client *notifications.Client, session *wsSession, userID, peerID uint) {
	if peerID == 0 {
		sendEnvelope(client, wsEnvelope{Type: "error", Error: "peer_id is required"})
		return
	}

	sub, err := s.chatService.SubscribeToConversation(ctx, userID, peerID)
	if err != nil {
		sendEnvelope(client, wsEnvelope{Type: "error", PeerID: peerID, Error: err.Error()})
		return
	}
	session.track(peerID, sub.Unsubscribe)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case messages, ok := <-sub.Updates:
				if !ok {
					return
				}
				sendEnvelope(client, wsEnvelope{
					Type:     "conversation",
					PeerID:   peerID,
					Messages: messages,
				})
			case err, ok := <-sub.Err:
				if !ok {
					return
				}
				sendEnvelope(client, wsEnvelope{Type: "error", PeerID: peerID, Error: err.Error()})
				return
			}
		}
	}()

	sendEnvelope(client, wsEnvelope{Type: "joined", PeerID: peerID})
}

// handleInlineMessage delivers a message sent over the socket, under the same
// rate limit as the HTTP endpoint.
func (s *Server) handleInlineMessage(ctx context.Context, client *notifications.Client, userID uint, env wsEnvelope) {
	if env.PeerID == 0 || strings.TrimSpace(env.Message) == "" {
		return
	}

	id := fmt.Sprintf("user:%d", userID)
	allowed, _ := middleware.CheckRateLimit(ctx, s.redis, "send_chat", id, 15, time.Minute)
	if !allowed {
		sendEnvelope(client, wsEnvelope{Type: "error", Error: "rate limit exceeded, please wait a moment"})
		return
	}

	_, err := s.chatService.Send(ctx, service.SendMessageInput{
		SenderID:   userID,
		ReceiverID: env.PeerID,
		Message:    env.Message,
	})
	if err != nil {
		sendEnvelope(client, wsEnvelope{Type: "error", PeerID: env.PeerID, Error: err.Error()})
	}
}

func sendRawError(conn *websocket.Conn, msg string) {
	payload, _ := json.Marshal(wsEnvelope{Type: "error", Error: msg})
	_ = conn.WriteMessage(websocket.TextMessage, payload)
}
