package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"warbler/internal/middleware"
	"warbler/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// ConversationHub tracks the websocket clients watching each conversation
// and relays conversation channel events to them.
type ConversationHub struct {
	mu        sync.RWMutex
	rooms     map[uint]map[*Client]struct{}
	userConns map[uint]int
	total     int
	closed    bool
}

// NewConversationHub creates an empty hub.
func NewConversationHub() *ConversationHub {
	return &ConversationHub{
		rooms:     make(map[uint]map[*Client]struct{}),
		userConns: make(map[uint]int),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *ConversationHub) Name() string { return "conversation hub" }

// Register adds a participant's connection to a conversation room. The
// caller is responsible for checking that userID participates.
func (h *ConversationHub) Register(conversationID, userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, errors.New("hub is shut down")
	}
	if h.total >= maxTotalConns {
		return nil, errors.New("server connection limit reached")
	}
	if h.userConns[userID] >= maxConnsPerUser {
		return nil, errors.New("user connection limit reached")
	}

	client := NewClient(h, conn, userID)
	client.ConversationID = conversationID

	room, ok := h.rooms[conversationID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[conversationID] = room
	}
	room[client] = struct{}{}
	h.userConns[userID]++
	h.total++
	observability.WebSocketConnections.WithLabelValues(h.Name()).Inc()

	middleware.Logger.Debug("conversation client registered",
		slog.Any("conversation_id", conversationID),
		slog.Any("user_id", userID),
		slog.Int("room_size", len(room)),
	)
	return client, nil
}

// UnregisterClient removes the client and closes its send channel.
func (h *ConversationHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[client.ConversationID]
	if !ok {
		return
	}
	if _, ok := room[client]; !ok {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.ConversationID)
	}
	h.userConns[client.UserID]--
	if h.userConns[client.UserID] <= 0 {
		delete(h.userConns, client.UserID)
	}
	h.total--
	close(client.Send)
	observability.WebSocketConnections.WithLabelValues(h.Name()).Dec()
}

// Broadcast queues payload for every client watching the conversation and
// returns how many clients it reached.
func (h *ConversationHub) Broadcast(conversationID uint, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room := h.rooms[conversationID]
	for client := range room {
		client.TrySend(payload)
	}
	if len(room) > 0 {
		observability.WebSocketMessages.WithLabelValues(h.Name(), EventDirectMessage).Add(float64(len(room)))
	}
	return len(room)
}

// ActiveUsers returns the distinct users watching a conversation, ascending.
func (h *ConversationHub) ActiveUsers(conversationID uint) []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[uint]struct{})
	for client := range h.rooms[conversationID] {
		seen[client.UserID] = struct{}{}
	}
	out := make([]uint, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// StartWiring relays conversation channel payloads to the matching room.
func (h *ConversationHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartConversationSubscriber(ctx, func(channel, payload string) {
		conversationID, ok := ParseConversationChannel(channel)
		if !ok {
			middleware.Logger.Warn("invalid conversation channel", slog.String("channel", channel))
			return
		}
		h.Broadcast(conversationID, []byte(payload))
	})
}

// Shutdown sends a shutdown notice to every client and closes all connections.
func (h *ConversationHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	notice := shutdownNotice()
	for _, room := range h.rooms {
		for client := range room {
			closeClient(client, notice)
		}
	}
	observability.WebSocketConnections.WithLabelValues(h.Name()).Sub(float64(h.total))

	h.rooms = make(map[uint]map[*Client]struct{})
	h.userConns = make(map[uint]int)
	h.total = 0
	h.closed = true
	return nil
}

// closeClient queues the notice and closes the send channel; WritePump
// flushes both and then closes the connection.
func closeClient(client *Client, notice []byte) {
	client.TrySend(notice)
	close(client.Send)
}
