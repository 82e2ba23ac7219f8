package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap-service/internal/models"
)

func testClient(hub *Hub, userID int, buffer int) *Client {
	return &Client{
		hub:   hub,
		send:  make(chan []byte, buffer),
		user:  models.UserRef{ID: userID, Name: "user"},
		rooms: make(map[string]struct{}),
	}
}

func receive(t *testing.T, c *Client) models.Envelope {
	t.Helper()
	select {
	case data := <-c.send:
		var env models.Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return models.Envelope{}
	}
}

func TestHubJoinAndLeave(t *testing.T) {
	hub := NewHub(nil)
	c := testClient(hub, 1, 1)

	require.True(t, hub.Join(ChatRoom(5), c))
	assert.Equal(t, 1, hub.RoomSize("chat:5"))
	assert.True(t, hub.InRoom(ChatRoom(5), c))

	hub.Leave(ChatRoom(5), c)
	assert.Zero(t, hub.RoomSize(ChatRoom(5)))
	assert.False(t, hub.InRoom(ChatRoom(5), c))
	assert.Empty(t, hub.rooms)
}

func TestHubStats(t *testing.T) {
	hub := NewHub(nil)
	a := testClient(hub, 1, 1)
	b := testClient(hub, 2, 1)
	hub.Join(UserRoom(1), a)
	hub.Join(UserRoom(2), b)
	hub.Join(ChatRoom(9), a)
	hub.Join(ChatRoom(9), b)

	rooms, clients := hub.Stats()
	assert.Equal(t, 3, rooms)
	assert.Equal(t, 2, clients)

	hub.Unregister(a)
	rooms, clients = hub.Stats()
	assert.Equal(t, 2, rooms)
	assert.Equal(t, 1, clients)
}

func TestHubBroadcastSkipsSender(t *testing.T) {
	hub := NewHub(nil)
	a := testClient(hub, 1, 4)
	b := testClient(hub, 2, 4)
	hub.Join(ChatRoom(1), a)
	hub.Join(ChatRoom(1), b)

	env, err := models.NewEnvelope(models.EventUserTyping, models.TypingPayload{ChatID: 1, UserID: 1})
	require.NoError(t, err)
	hub.Broadcast(ChatRoom(1), env, a)

	got := receive(t, b)
	assert.Equal(t, models.EventUserTyping, got.Event)
	assert.Empty(t, a.send)
}

func TestHubNotifyUser(t *testing.T) {
	hub := NewHub(nil)
	phone := testClient(hub, 9, 1)
	laptop := testClient(hub, 9, 1)
	other := testClient(hub, 3, 1)
	hub.Join(UserRoom(9), phone)
	hub.Join(UserRoom(9), laptop)
	hub.Join(UserRoom(3), other)

	hub.NotifyUser(9, models.EventSwapNotification, map[string]int{"id": 12})

	for _, c := range []*Client{phone, laptop} {
		env := receive(t, c)
		assert.Equal(t, models.EventSwapNotification, env.Event)
		assert.JSONEq(t, `{"id":12}`, string(env.Data))
	}
	assert.Empty(t, other.send)
}

func TestHubDisconnectsSlowConsumer(t *testing.T) {
	hub := NewHub(nil)
	slow := testClient(hub, 1, 1)
	fast := testClient(hub, 2, 8)
	hub.Join(ChatRoom(1), slow)
	hub.Join(UserRoom(1), slow)
	hub.Join(ChatRoom(1), fast)

	env, err := models.NewEnvelope(models.EventStopTyping, nil)
	require.NoError(t, err)
	hub.Broadcast(ChatRoom(1), env, nil)
	hub.Broadcast(ChatRoom(1), env, nil)

	assert.Equal(t, 1, hub.RoomSize(ChatRoom(1)))
	assert.Zero(t, hub.RoomSize(UserRoom(1)))
	assert.Len(t, fast.send, 2)

	// the buffered event is still drained before the channel reports closed
	<-slow.send
	_, open := <-slow.send
	assert.False(t, open)
}

func TestHubUnregisterIsIdempotent(t *testing.T) {
	hub := NewHub(nil)
	c := testClient(hub, 1, 1)
	hub.Join(UserRoom(1), c)

	hub.Unregister(c)
	assert.NotPanics(t, func() { hub.Unregister(c) })
	assert.False(t, hub.Join(ChatRoom(1), c))
	assert.NotPanics(t, func() { hub.sendTo(c, []byte("{}")) })
}

func TestHubWithUnreachableRedisStillDeliversLocally(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })

	hub := NewHub(rdb)
	defer hub.Stop()
	c := testClient(hub, 4, 1)
	hub.Join(UserRoom(4), c)

	hub.NotifyUser(4, models.EventSwapNotification, map[string]int{"id": 1})
	assert.Equal(t, models.EventSwapNotification, receive(t, c).Event)
}

func TestDecodeChatID(t *testing.T) {
	cases := map[string]int{
		`7`:              7,
		`"8"`:            8,
		`{"chat_id": 9}`: 9,
	}
	for raw, want := range cases {
		got, err := decodeChatID(json.RawMessage(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}

	for _, raw := range []string{`0`, `-2`, `"abc"`, `{}`, `[1]`, `null`} {
		_, err := decodeChatID(json.RawMessage(raw))
		assert.ErrorIs(t, err, errInvalidChatID, raw)
	}
}
