package models

import "time"

// SwapStatus is the lifecycle state of a swap request.
type SwapStatus string

const (
	SwapPending   SwapStatus = "pending"
	SwapAccepted  SwapStatus = "accepted"
	SwapRejected  SwapStatus = "rejected"
	SwapCompleted SwapStatus = "completed"
)

// Valid reports whether s is a known status.
func (s SwapStatus) Valid() bool {
	switch s {
	case SwapPending, SwapAccepted, SwapRejected, SwapCompleted:
		return true
	}
	return false
}

// SwapRequest is an offer to exchange one skill for another between two users.
type SwapRequest struct {
	ID          int        `db:"id" json:"id"`
	FromUserID  int        `db:"from_user_id" json:"from_user_id"`
	ToUserID    int        `db:"to_user_id" json:"to_user_id"`
	FromSkill   string     `db:"from_skill" json:"from_skill"`
	ToSkill     string     `db:"to_skill" json:"to_skill"`
	Message     string     `db:"message" json:"message"`
	Status      SwapStatus `db:"status" json:"status"`
	RespondedAt *time.Time `db:"responded_at" json:"responded_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Involves reports whether userID is the sender or the recipient.
func (s SwapRequest) Involves(userID int) bool {
	return s.FromUserID == userID || s.ToUserID == userID
}

// SwapRequestView is a swap request with both parties resolved.
type SwapRequestView struct {
	SwapRequest
	From *UserRef `json:"from,omitempty"`
	To   *UserRef `json:"to,omitempty"`
}

// SwapFilter narrows a swap request listing.
type SwapFilter struct {
	// Direction is "sent", "received" or empty for both.
	Direction string
	Status    SwapStatus
}
