package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Conversation is a direct-message thread between two users. Conversations
// are resolved lazily: sending to a recipient finds or creates the thread.
type Conversation struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// DirectKey is the canonical participant pair, lower ID first. A unique
	// index on it makes concurrent first messages converge on one thread.
	DirectKey string `gorm:"size:64;uniqueIndex;not null" json:"-"`

	Participants []User    `gorm:"many2many:conversation_participants;" json:"participants"`
	Messages     []Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`

	// UnreadCount is computed per requesting participant.
	UnreadCount int `gorm:"->" json:"unread_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DirectConversationKey builds the DirectKey for a participant pair. The
// same pair yields the same key regardless of argument order.
func DirectConversationKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// ConversationParticipant is the join row between users and conversations.
type ConversationParticipant struct {
	ConversationID uint       `gorm:"primaryKey;autoIncrement:false" json:"conversation_id"`
	UserID         uint       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	LastReadAt     *time.Time `json:"last_read_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Message is a single direct message within a conversation.
type Message struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	ConversationID uint   `gorm:"not null;index" json:"conversation_id"`
	SenderID       uint   `gorm:"not null;index" json:"sender_id"`
	Sender         *User  `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Content        string `gorm:"type:text;not null" json:"content"`

	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
