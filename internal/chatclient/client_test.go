package chatclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap-service/internal/db"
	"skillswap-service/internal/handlers"
	"skillswap-service/internal/identity"
	"skillswap-service/internal/middleware"
	"skillswap-service/internal/models"
	"skillswap-service/internal/rabbitmq"
	"skillswap-service/internal/repositories"
	"skillswap-service/internal/services"
	"skillswap-service/internal/telemetry"
	"skillswap-service/internal/ws"
)

type testServer struct {
	server   *httptest.Server
	hub      *ws.Hub
	users    *repositories.UserRepo
	verifier *identity.JWTVerifier
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	users := repositories.NewUserRepo(database)
	chats := services.NewChatService(
		repositories.NewChatRepo(database),
		repositories.NewMessageRepo(database),
		users,
		repositories.NewSwapRepo(database),
	)
	verifier := identity.NewJWTVerifier("test-secret")
	publisher := rabbitmq.NewPublisher("", "skillswap.events")
	audit := telemetry.NewAuditEmitter(publisher, "audit.skillswap", "skillswap-service", "test")

	hub := ws.NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	r := gin.New()
	api := r.Group("/api", middleware.AuthMiddleware(verifier))
	handlers.NewChatHandler(chats, audit).Register(api)
	r.GET("/ws", ws.NewHandler(hub, chats, users, verifier, publisher).Handle)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return testServer{server: server, hub: hub, users: users, verifier: verifier}
}

func (s testServer) login(t *testing.T, name string) (models.User, string) {
	t.Helper()
	u, err := s.users.CreateUser(context.Background(), models.User{Name: name, Email: name + "@example.com"})
	require.NoError(t, err)
	token, err := s.verifier.Issue(u.ID, u.Name, time.Hour)
	require.NoError(t, err)
	return u, token
}

// connect opens a relay for token and feeds it into a fresh view.
func (s testServer) connect(t *testing.T, client *Client, token string, opts ...Option) *View {
	t.Helper()
	relay, err := Dial(context.Background(), RelayURL(s.server.URL), token)
	require.NoError(t, err)

	view := NewView(client, relay, opts...)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Run(view.HandleEvent)
	}()
	t.Cleanup(func() {
		relay.Close()
		<-done
	})
	return view
}

func TestTwoUsersChat(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	alice, tokenA := srv.login(t, "alice")
	bob, tokenB := srv.login(t, "bob")

	clientA := NewClient(srv.server.URL, tokenA, nil)
	clientB := NewClient(srv.server.URL, tokenB, nil)

	chat, err := clientA.GetOrCreateChat(ctx, bob.ID, nil)
	require.NoError(t, err)
	again, err := clientB.GetOrCreateChat(ctx, alice.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, again.ID)

	viewA := srv.connect(t, clientA, tokenA, WithTypingDebounce(300*time.Millisecond))
	viewB := srv.connect(t, clientB, tokenB)
	viewA.Activate(ctx)
	viewB.Activate(ctx)
	require.Len(t, viewB.Chats(), 1)

	require.NoError(t, viewA.Select(ctx, chat.ID))
	require.NoError(t, viewB.Select(ctx, chat.ID))
	require.Eventually(t, func() bool { return srv.hub.RoomSize(ws.ChatRoom(chat.ID)) == 2 }, 2*time.Second, 10*time.Millisecond)

	viewA.Input("Hel")
	require.Eventually(t, func() bool {
		who, ok := viewB.Typing()
		return ok && who.UserID == alice.ID && who.UserName == "alice"
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		_, ok := viewB.Typing()
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	viewA.Input("Hello")
	require.NoError(t, viewA.Send(ctx))
	require.Len(t, viewA.Messages(), 1)
	assert.Empty(t, viewA.Draft())

	require.Eventually(t, func() bool { return len(viewB.Messages()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := viewB.Messages()[0]
	assert.Equal(t, "Hello", got.Content)
	assert.Equal(t, alice.ID, got.SenderID)
	require.NotNil(t, got.Sender)
	assert.Equal(t, "alice", got.Sender.Name)

	chatsB, err := clientB.ListChats(ctx)
	require.NoError(t, err)
	require.Len(t, chatsB, 1)
	assert.Equal(t, "Hello", chatsB[0].LastMessage)

	updated, err := clientB.MarkRead(ctx, chat.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated)
	updated, err = clientB.MarkRead(ctx, chat.ID)
	require.NoError(t, err)
	assert.Zero(t, updated)

	msgs, err := clientA.ListMessages(ctx, chat.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Read)
}

func TestLongMessageReachesPeer(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	_, tokenA := srv.login(t, "alice")
	bob, tokenB := srv.login(t, "bob")

	clientA := NewClient(srv.server.URL, tokenA, nil)
	chat, err := clientA.GetOrCreateChat(ctx, bob.ID, nil)
	require.NoError(t, err)

	viewA := srv.connect(t, clientA, tokenA)
	viewB := srv.connect(t, NewClient(srv.server.URL, tokenB, nil), tokenB)
	require.NoError(t, viewA.Select(ctx, chat.ID))
	require.NoError(t, viewB.Select(ctx, chat.ID))
	require.Eventually(t, func() bool { return srv.hub.RoomSize(ws.ChatRoom(chat.ID)) == 2 }, 2*time.Second, 10*time.Millisecond)

	long := strings.Repeat("ж", services.MaxMessageLength)
	viewA.Input(long)
	require.NoError(t, viewA.Send(ctx))

	require.Eventually(t, func() bool { return len(viewB.Messages()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, long, viewB.Messages()[0].Content)
	assert.Equal(t, 2, srv.hub.RoomSize(ws.ChatRoom(chat.ID)))

	viewA.Input(long + "!")
	var apiErr *APIError
	require.ErrorAs(t, viewA.Send(ctx), &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, long+"!", viewA.Draft())
	assert.Len(t, viewA.Messages(), 1)
}

func TestOutsiderIsRejected(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	alice, tokenA := srv.login(t, "alice")
	_, tokenC := srv.login(t, "carol")
	bob, _ := srv.login(t, "bob")

	chat, err := NewClient(srv.server.URL, tokenA, nil).GetOrCreateChat(ctx, bob.ID, nil)
	require.NoError(t, err)
	require.NotZero(t, alice.ID)

	carol := NewClient(srv.server.URL, tokenC, nil)
	_, err = carol.ListMessages(ctx, chat.ID, 0, 0)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	_, err = carol.SendMessage(ctx, chat.ID, "let me in")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	_, err = NewClient(srv.server.URL, "garbage", nil).ListChats(ctx)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, err = Dial(ctx, RelayURL(srv.server.URL), "garbage")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestDeleteChat(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	_, tokenA := srv.login(t, "alice")
	bob, _ := srv.login(t, "bob")
	client := NewClient(srv.server.URL, tokenA, nil)

	chat, err := client.GetOrCreateChat(ctx, bob.ID, nil)
	require.NoError(t, err)
	_, err = client.SendMessage(ctx, chat.ID, "bye")
	require.NoError(t, err)

	require.NoError(t, client.DeleteChat(ctx, chat.ID))

	chats, err := client.ListChats(ctx)
	require.NoError(t, err)
	assert.Empty(t, chats)

	var apiErr *APIError
	err = client.DeleteChat(ctx, chat.ID)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}
