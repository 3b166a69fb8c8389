package models

import (
	"time"

	"gorm.io/gorm"
)

// Conversation is the direct-message channel between two users.
// The pair is stored normalized: User1ID <= User2ID. A user may hold a
// conversation with themself, in which case both IDs are equal.
type Conversation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	User1ID   uint      `gorm:"not null;uniqueIndex:idx_conversations_pair" json:"user1_id"`
	User2ID   uint      `gorm:"not null;uniqueIndex:idx_conversations_pair;index:idx_conversations_user2" json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`

	User1 *User `gorm:"foreignKey:User1ID;constraint:OnDelete:CASCADE" json:"user1,omitempty"`
	User2 *User `gorm:"foreignKey:User2ID;constraint:OnDelete:CASCADE" json:"user2,omitempty"`
}

// TableName specifies the table name for GORM
func (Conversation) TableName() string {
	return "conversations"
}

// NormalizePair orders two user IDs the way conversations are stored.
func NormalizePair(a, b uint) (lo, hi uint) {
	if a <= b {
		return a, b
	}
	return b, a
}

// BeforeCreate normalizes the pair so no write path can store it reversed.
func (c *Conversation) BeforeCreate(_ *gorm.DB) error {
	c.User1ID, c.User2ID = NormalizePair(c.User1ID, c.User2ID)
	return nil
}

// HasParticipant reports whether userID is one of the two members.
func (c *Conversation) HasParticipant(userID uint) bool {
	return c != nil && (c.User1ID == userID || c.User2ID == userID)
}

// OtherParticipant returns the member that is not userID. For a
// self-conversation it returns userID.
func (c *Conversation) OtherParticipant(userID uint) uint {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// DirectMessage is one append-only entry in a conversation transcript.
// Display order is insertion order (ascending ID).
type DirectMessage struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index" json:"conversation_id"`
	AuthorID       uint      `gorm:"not null;index" json:"author_id"`
	Text           string    `gorm:"type:text;not null" json:"text"`
	CreatedAt      time.Time `json:"created_at"`

	Conversation *Conversation `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
	Author       *User         `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (DirectMessage) TableName() string {
	return "direct_messages"
}

// TranscriptEntry is the wire form of a DM: [text, author_id].
type TranscriptEntry [2]any

// Transcript converts DMs into the [text, author] pair list returned by the DM endpoint.
func Transcript(dms []DirectMessage) []TranscriptEntry {
	out := make([]TranscriptEntry, 0, len(dms))
	for _, dm := range dms {
		out = append(out, TranscriptEntry{dm.Text, dm.AuthorID})
	}
	return out
}
