package notifications

import (
	"encoding/json"
	"time"
)

// Event types carried in Event.Type.
const (
	EventDirectMessage = "dm"
	EventFollow        = "follow"
	EventShutdown      = "server_shutdown"
	EventDropped       = "messages_dropped"
)

// Event is the JSON envelope written to websocket clients.
type Event struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversation_id,omitempty"`
	UserID         uint   `json:"user_id,omitempty"`
	Payload        any    `json:"payload,omitempty"`
}

// DirectMessagePayload describes one new DM.
type DirectMessagePayload struct {
	ID       uint      `json:"id"`
	Text     string    `json:"text"`
	AuthorID uint      `json:"author_id"`
	Author   string    `json:"author"`
	SentAt   time.Time `json:"sent_at"`
}

// FollowPayload tells a user who started following them.
type FollowPayload struct {
	FollowerID uint   `json:"follower_id"`
	Follower   string `json:"follower"`
}

// Encode marshals the event for publishing.
func (e Event) Encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func shutdownNotice() []byte {
	b, _ := json.Marshal(Event{Type: EventShutdown, Payload: "Server is shutting down"})
	return b
}
