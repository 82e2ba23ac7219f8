package models

import (
	"fmt"
	"time"
)

// Chat represents a private chat between exactly two users.
// User1ID is the user who opened the chat.
type Chat struct {
	ID                  int       `db:"id" json:"id"`
	User1ID             int       `db:"user1_id" json:"-"`
	User2ID             int       `db:"user2_id" json:"-"`
	PairKey             string    `db:"pair_key" json:"-"`
	SwapRequestID       *int      `db:"swap_request_id" json:"swap_request_id,omitempty"`
	LastMessage         string    `db:"last_message" json:"last_message"`
	LastMessageTime     time.Time `db:"last_message_time" json:"last_message_time"`
	LastMessageSenderID *int      `db:"last_message_sender_id" json:"-"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// PairKey returns the order-independent key identifying the chat between two users.
func PairKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// Participants returns both participant ids, opener first.
func (c Chat) Participants() []int {
	return []int{c.User1ID, c.User2ID}
}

// HasParticipant reports whether userID takes part in the chat.
func (c Chat) HasParticipant(userID int) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// ChatView is a chat with its user references resolved.
type ChatView struct {
	Chat
	Participants      []UserRef `json:"participants"`
	LastMessageSender *UserRef  `json:"last_message_sender,omitempty"`
}
