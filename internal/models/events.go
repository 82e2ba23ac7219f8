package models

import "encoding/json"

// Relay event names.
const (
	EventJoinChat          = "join_chat"
	EventLeaveChat         = "leave_chat"
	EventSendMessage       = "send_message"
	EventReceiveMessage    = "receive_message"
	EventTyping            = "typing"
	EventStopTyping        = "stop_typing"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventSwapRequestSent   = "swap_request_sent"
	EventSwapNotification  = "swap_request_notification"
	EventError             = "error"
)

// Envelope is the frame exchanged over the relay websocket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals data into an envelope.
func NewEnvelope(event string, data any) (Envelope, error) {
	if data == nil {
		return Envelope{Event: event}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: raw}, nil
}

// SendMessagePayload is the data of a send_message event.
type SendMessagePayload struct {
	ChatID  int         `json:"chat_id"`
	Message MessageView `json:"message"`
}

// TypingPayload is the data of user_typing and user_stopped_typing events.
type TypingPayload struct {
	ChatID   int    `json:"chat_id"`
	UserID   int    `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
}

// SwapSentPayload is the data of a swap_request_sent event.
type SwapSentPayload struct {
	RecipientID int             `json:"recipient_id"`
	SwapRequest json.RawMessage `json:"swap_request"`
}

// ErrorPayload reports a rejected relay event back to its sender.
type ErrorPayload struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}
