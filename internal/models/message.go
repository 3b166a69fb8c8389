package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxMessageLength bounds the text of a public message.
const MaxMessageLength = 140

// Message is a public post authored by a user.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"size:140;not null" json:"text"`
	Timestamp time.Time `gorm:"column:timestamp;not null;index:idx_messages_user_ts,priority:2" json:"timestamp"`
	UserID    uint      `gorm:"not null;index:idx_messages_user_ts,priority:1" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}

// BeforeCreate stamps the message with the insertion time unless one was supplied.
func (m *Message) BeforeCreate(_ *gorm.DB) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	return nil
}
