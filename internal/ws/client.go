package ws

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"skillswap-service/internal/logger"
	"skillswap-service/internal/models"
	"skillswap-service/internal/observability"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMessageSize   = 64 << 10
	sendBufferSize   = 256
	authorizeTimeout = 5 * time.Second
)

var errInvalidChatID = errors.New("invalid chat id")

type participantChecker interface {
	IsParticipant(ctx context.Context, chatID, userID int) (bool, error)
}

// Client is one relay connection.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	user  models.UserRef
	info  ConnInfo
	chats participantChecker

	// guarded by hub.mu
	rooms  map[string]struct{}
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, user models.UserRef, info ConnInfo, chats participantChecker) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		user:  user,
		info:  info,
		chats: chats,
		rooms: make(map[string]struct{}),
	}
}

// readPump dispatches inbound events until the connection fails. onClose gets
// the failure reason and whether it was an abnormal close.
func (c *Client) readPump(onClose func(reason string, abnormal bool)) {
	reason, abnormal := "", false
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		if onClose != nil {
			onClose(reason, abnormal)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			reason = err.Error()
			abnormal = !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
			return
		}
		c.handle(data)
	}
}

// writePump is the only writer of the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handle(data []byte) {
	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
		observability.IncWSEvent(wsKind, "malformed")
		c.sendError("", "malformed event")
		return
	}

	switch env.Event {
	case models.EventJoinChat:
		c.joinChat(env.Data)
	case models.EventLeaveChat:
		c.leaveChat(env.Data)
	case models.EventSendMessage:
		c.relayMessage(env.Data)
	case models.EventTyping:
		c.relayTyping(env.Data, models.EventUserTyping)
	case models.EventStopTyping:
		c.relayTyping(env.Data, models.EventUserStoppedTyping)
	case models.EventSwapRequestSent:
		c.relaySwapRequest(env.Data)
	default:
		observability.IncWSEvent(wsKind, "unknown")
		c.sendError(env.Event, "unknown event")
		return
	}
	observability.IncWSEvent(wsKind, env.Event)
}

func (c *Client) joinChat(raw json.RawMessage) {
	chatID, err := decodeChatID(raw)
	if err != nil {
		c.sendError(models.EventJoinChat, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), authorizeTimeout)
	defer cancel()
	ok, err := c.chats.IsParticipant(ctx, chatID, c.user.ID)
	if err != nil {
		logger.Get().Error().Err(err).Int("chat_id", chatID).Int("user_id", c.user.ID).Msg("relay membership check failed")
		c.sendError(models.EventJoinChat, "could not verify chat membership")
		return
	}
	if !ok {
		c.sendError(models.EventJoinChat, "not a chat member")
		return
	}
	c.hub.Join(ChatRoom(chatID), c)
}

func (c *Client) leaveChat(raw json.RawMessage) {
	chatID, err := decodeChatID(raw)
	if err != nil {
		c.sendError(models.EventLeaveChat, err.Error())
		return
	}
	c.hub.Leave(ChatRoom(chatID), c)
}

// relayMessage forwards an already persisted message to the other members of
// the chat room. The sender identity is always the connection's own.
func (c *Client) relayMessage(raw json.RawMessage) {
	var p models.SendMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ChatID <= 0 {
		c.sendError(models.EventSendMessage, "invalid message payload")
		return
	}
	room := ChatRoom(p.ChatID)
	if !c.hub.InRoom(room, c) {
		c.sendError(models.EventSendMessage, "join the chat first")
		return
	}

	msg := p.Message
	msg.ChatID = p.ChatID
	msg.SenderID = c.user.ID
	sender := c.user
	msg.Sender = &sender

	env, err := models.NewEnvelope(models.EventReceiveMessage, msg)
	if err != nil {
		c.sendError(models.EventSendMessage, "invalid message payload")
		return
	}
	c.hub.Broadcast(room, env, c)
}

func (c *Client) relayTyping(raw json.RawMessage, outbound string) {
	chatID, err := decodeChatID(raw)
	if err != nil {
		c.sendError(outbound, err.Error())
		return
	}
	room := ChatRoom(chatID)
	if !c.hub.InRoom(room, c) {
		return
	}

	payload := models.TypingPayload{ChatID: chatID, UserID: c.user.ID}
	if outbound == models.EventUserTyping {
		payload.UserName = c.user.Name
	}
	env, err := models.NewEnvelope(outbound, payload)
	if err != nil {
		return
	}
	c.hub.Broadcast(room, env, c)
}

func (c *Client) relaySwapRequest(raw json.RawMessage) {
	var p models.SwapSentPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RecipientID <= 0 || len(p.SwapRequest) == 0 {
		c.sendError(models.EventSwapRequestSent, "invalid swap request payload")
		return
	}
	c.hub.NotifyUser(p.RecipientID, models.EventSwapNotification, p.SwapRequest)
}

func (c *Client) sendError(event, message string) {
	env, err := models.NewEnvelope(models.EventError, models.ErrorPayload{Event: event, Message: message})
	if err != nil {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	c.hub.sendTo(c, data)
}

// decodeChatID accepts a bare id, a numeric string or {"chat_id": id}.
func decodeChatID(raw json.RawMessage) (int, error) {
	var id int
	if err := json.Unmarshal(raw, &id); err == nil {
		return positive(id)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, convErr := strconv.Atoi(s)
		if convErr != nil {
			return 0, errInvalidChatID
		}
		return positive(n)
	}

	var obj struct {
		ChatID int `json:"chat_id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return positive(obj.ChatID)
	}
	return 0, errInvalidChatID
}

func positive(id int) (int, error) {
	if id <= 0 {
		return 0, errInvalidChatID
	}
	return id, nil
}
