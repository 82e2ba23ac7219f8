package models

import "time"

// Message represents a chat message.
type Message struct {
	ID        int        `db:"id" json:"id"`
	ChatID    int        `db:"chat_id" json:"chat_id"`
	SenderID  int        `db:"sender_id" json:"sender_id"`
	Content   string     `db:"content" json:"content"`
	Read      bool       `db:"is_read" json:"read"`
	ReadAt    *time.Time `db:"read_at" json:"read_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// MessageView is a message with the sender's display data attached.
type MessageView struct {
	Message
	Sender *UserRef `json:"sender,omitempty"`
}
