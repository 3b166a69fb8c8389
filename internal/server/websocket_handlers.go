package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	wsEventConnected = "connected"
	wsEventError     = "error"

	conversationLocal = "conversation"
)

// incomingDM is the only frame a conversation client may send.
type incomingDM struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// UpgradeRequired rejects plain HTTP requests on websocket routes with 426.
func (s *Server) UpgradeRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return models.RespondWithError(c, fiber.StatusUpgradeRequired,
				models.NewValidationError("WebSocket upgrade required"))
		}
		return c.Next()
	}
}

// ConversationParticipant loads the :id conversation and rejects users who
// are not one of its two participants before the connection is upgraded.
func (s *Server) ConversationParticipant() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "id")
		if err != nil {
			return nil
		}
		conv, err := s.convSvc.GetForParticipant(c.UserContext(), id, currentUserID(c))
		if err != nil {
			return mapServiceError(c, err)
		}
		c.Locals(conversationLocal, conv)
		return c.Next()
	}
}

// WebSocketConversationHandler streams new DMs of one conversation and
// accepts {"type":"dm","text":...} frames from the participant.
func (s *Server) WebSocketConversationHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		conv, _ := conn.Locals(conversationLocal).(*models.Conversation)
		userID, _ := conn.Locals("userID").(uint)
		if conv == nil || userID == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.convHub.Register(conv.ID, userID, conn)
		if err != nil {
			middleware.Logger.Warn("conversation websocket rejected",
				slog.Any("conversation_id", conv.ID),
				slog.Any("user_id", userID),
				slog.String("error", err.Error()),
			)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		client.IncomingHandler = func(c *notifications.Client, message []byte) {
			s.handleIncomingDM(c, message)
		}

		if welcome, err := json.Marshal(notifications.Event{
			Type:           wsEventConnected,
			ConversationID: conv.ID,
			UserID:         userID,
			Payload:        fiber.Map{"active_users": s.convHub.ActiveUsers(conv.ID)},
		}); err == nil {
			client.TrySend(welcome)
		}

		go client.WritePump()
		client.ReadPump()
	})
}

func (s *Server) handleIncomingDM(c *notifications.Client, message []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ctx = context.WithValue(ctx, middleware.UserIDKey, c.UserID)

	var in incomingDM
	if err := json.Unmarshal(message, &in); err != nil || in.Type != notifications.EventDirectMessage {
		sendWSError(c, "Unsupported message")
		return
	}

	allowed, _ := middleware.CheckRateLimit(ctx, s.redis, "send_dm", fmt.Sprintf("user:%d", c.UserID), 15, time.Minute)
	if !allowed {
		sendWSError(c, "Rate limit exceeded. Please wait a moment.")
		return
	}

	// AddDM re-checks participation and publishes the DM to the room,
	// including this client.
	if _, err := s.convSvc.AddDM(ctx, c.ConversationID, c.UserID, in.Text); err != nil {
		var msg string
		switch models.ErrorCode(err) {
		case models.CodeValidation, models.CodeForbidden, models.CodeNotFound:
			msg = err.Error()
		default:
			middleware.Logger.ErrorContext(ctx, "websocket DM failed",
				slog.Any("conversation_id", c.ConversationID),
				slog.String("error", err.Error()),
			)
			msg = "Could not send message"
		}
		sendWSError(c, msg)
	}
}

func sendWSError(c *notifications.Client, message string) {
	b, err := json.Marshal(notifications.Event{
		Type:    wsEventError,
		Payload: fiber.Map{"message": message},
	})
	if err == nil {
		c.TrySend(b)
	}
}

// WebSocketNotificationHandler delivers per-user events such as new followers.
func (s *Server) WebSocketNotificationHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(uint)
		if userID == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("notification websocket rejected",
				slog.Any("user_id", userID),
				slog.String("error", err.Error()),
			)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		if welcome, err := json.Marshal(notifications.Event{Type: wsEventConnected, UserID: userID}); err == nil {
			client.TrySend(welcome)
		}

		go client.WritePump()
		client.ReadPump()
	})
}
