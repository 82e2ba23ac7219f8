package ws

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"skillswap-service/internal/logger"
	"skillswap-service/internal/models"
	"skillswap-service/internal/observability"
)

const redisRelayChannel = "skillswap:relay"

// ChatRoom is the room of every connection that joined chatID.
func ChatRoom(chatID int) string {
	return "chat:" + strconv.Itoa(chatID)
}

// UserRoom is the personal room every connection of userID is subscribed to.
func UserRoom(userID int) string {
	return "user:" + strconv.Itoa(userID)
}

// Hub maintains relay rooms and fans events out to their members. With a Redis
// client every broadcast is mirrored to the other instances.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}

	redisClient redis.UniversalClient
	instanceID  string
	ctx         context.Context
	cancel      context.CancelFunc
}

type relayMessage struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room"`
	Data   json.RawMessage `json:"data"`
}

// NewHub creates an empty hub. redisClient may be nil for a single instance.
func NewHub(redisClient redis.UniversalClient) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		rooms:       make(map[string]map[*Client]struct{}),
		redisClient: redisClient,
		instanceID:  uuid.NewString(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run relays broadcasts published by other instances until Stop is called.
func (h *Hub) Run() {
	if h.redisClient == nil {
		<-h.ctx.Done()
		return
	}

	pubsub := h.redisClient.Subscribe(h.ctx, redisRelayChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var rm relayMessage
			if err := json.Unmarshal([]byte(msg.Payload), &rm); err != nil {
				logger.Get().Warn().Err(err).Msg("dropping malformed relay message")
				continue
			}
			if rm.Origin == h.instanceID {
				continue
			}
			h.deliver(rm.Room, rm.Data, nil)
		case <-h.ctx.Done():
			return
		}
	}
}

// Stop shuts the hub down.
func (h *Hub) Stop() {
	h.cancel()
}

// Join subscribes c to room. It reports false once c has been unregistered.
func (h *Hub) Join(room string, c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return false
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
	return true
}

// Leave unsubscribes c from room.
func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(room, c)
}

// InRoom reports whether c is subscribed to room.
func (h *Hub) InRoom(room string, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := c.rooms[room]
	return ok
}

// RoomSize returns the number of local subscribers of room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Stats counts the local rooms and the distinct connections subscribed to them.
func (h *Hub) Stats() (rooms, clients int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[*Client]struct{})
	for _, members := range h.rooms {
		for c := range members {
			seen[c] = struct{}{}
		}
	}
	return len(h.rooms), len(seen)
}

// Unregister drops c from every room and closes its send channel. Safe to call
// more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for room := range c.rooms {
		h.removeLocked(room, c)
	}
	close(c.send)
}

func (h *Hub) removeLocked(room string, c *Client) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// Broadcast delivers env to every subscriber of room except the given client.
func (h *Hub) Broadcast(room string, env models.Envelope, except *Client) {
	data, err := json.Marshal(env)
	if err != nil {
		logger.Get().Error().Err(err).Str("event", env.Event).Msg("encode relay event")
		return
	}
	h.deliver(room, data, except)

	if h.redisClient != nil {
		msg, err := json.Marshal(relayMessage{Origin: h.instanceID, Room: room, Data: data})
		if err != nil {
			return
		}
		if err := h.redisClient.Publish(h.ctx, redisRelayChannel, msg).Err(); err != nil {
			logger.Get().Warn().Err(err).Str("room", room).Msg("relay publish failed")
		}
	}
}

// NotifyUser sends an event to every connection of userID.
func (h *Hub) NotifyUser(userID int, event string, payload any) {
	env, err := models.NewEnvelope(event, payload)
	if err != nil {
		logger.Get().Error().Err(err).Str("event", event).Msg("encode notification")
		return
	}
	h.Broadcast(UserRoom(userID), env, nil)
}

// deliver never blocks. Members whose buffer is full are disconnected.
func (h *Hub) deliver(room string, data []byte, except *Client) {
	var slow []*Client

	h.mu.RLock()
	for c := range h.rooms[room] {
		if c == except {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logger.Get().Warn().Str("conn_id", c.info.ConnID).Int("user_id", c.user.ID).Msg("disconnecting slow relay consumer")
		observability.IncWSDropped(wsKind)
		h.Unregister(c)
	}
}

// sendTo queues data for a single client.
func (h *Hub) sendTo(c *Client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
