package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"skillswap-service/internal/mocks"
	"skillswap-service/internal/models"
	"skillswap-service/internal/services"
	"skillswap-service/internal/telemetry"
)

func setupRouter(register func(gin.IRouter)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	register(r.Group("/api"))
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateChatCreated(t *testing.T) {
	chats := new(mocks.ChatServiceMock)
	pub := new(mocks.PublisherMock)
	audit := telemetry.NewAuditEmitter(pub, "audit.skillswap", "svc", "test")
	router := setupRouter(NewChatHandler(chats, audit).Register)

	chats.On("GetOrCreateChat", mock.Anything, 1, 2, (*int)(nil)).Return(models.ChatView{Chat: models.Chat{ID: 3}}, true, nil).Once()
	pub.ExpectAudit("audit.skillswap").Return(nil).Once()

	rec := serve(router, http.MethodPost, "/api/chats", `{"user_id":2}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Chat models.ChatView `json:"chat"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Chat.ID)
	chats.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestCreateChatExistingWithSwap(t *testing.T) {
	chats := new(mocks.ChatServiceMock)
	router := setupRouter(NewChatHandler(chats, nil).Register)

	chats.On("GetOrCreateChat", mock.Anything, 1, 2, mock.MatchedBy(func(id *int) bool { return id != nil && *id == 8 })).
		Return(models.ChatView{Chat: models.Chat{ID: 3}}, false, nil).Once()

	rec := serve(router, http.MethodPost, "/api/chats", `{"user_id":2,"swap_request_id":8}`)

	require.Equal(t, http.StatusOK, rec.Code)
	chats.AssertExpectations(t)
}

func TestCreateChatErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &services.Error{Kind: services.ErrValidation, Msg: "cannot chat with yourself"}, http.StatusBadRequest},
		{"not found", &services.Error{Kind: services.ErrNotFound, Msg: "user not found"}, http.StatusNotFound},
		{"forbidden", &services.Error{Kind: services.ErrForbidden, Msg: "nope"}, http.StatusForbidden},
		{"internal", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chats := new(mocks.ChatServiceMock)
			router := setupRouter(NewChatHandler(chats, nil).Register)
			chats.On("GetOrCreateChat", mock.Anything, 1, 2, (*int)(nil)).Return(nil, false, tc.err).Once()

			rec := serve(router, http.MethodPost, "/api/chats", `{"user_id":2}`)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "db down")
			}
		})
	}
}

func TestCreateChatInvalidBody(t *testing.T) {
	router := setupRouter(NewChatHandler(new(mocks.ChatServiceMock), nil).Register)

	for _, body := range []string{`{}`, `{"user_id":"x"}`, `{"user_id":0}`} {
		rec := serve(router, http.MethodPost, "/api/chats", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestListChatsSuccess(t *testing.T) {
	chats := new(mocks.ChatServiceMock)
	router := setupRouter(NewChatHandler(chats, nil).Register)

	chats.On("ListChats", mock.Anything, 1).Return([]models.ChatView{{Chat: models.Chat{ID: 3, LastMessage: "hi"}}}, nil).Once()

	rec := serve(router, http.MethodGet, "/api/chats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"last_message":"hi"`)
	chats.AssertExpectations(t)
}

func TestListMessagesPassesPaging(t *testing.T) {
	chats := new(mocks.ChatServiceMock)
	router := setupRouter(NewChatHandler(chats, nil).Register)

	chats.On("ListMessages", mock.Anything, 9, 1, 20, 40).Return([]models.MessageView{{Message: models.Message{ID: 1}}}, nil).Once()

	rec := serve(router, http.MethodGet, "/api/chats/9/messages?limit=20&skip=40", "")
	require.Equal(t, http.StatusOK, rec.Code)
	chats.AssertExpectations(t)
}

func TestListMessagesInvalidInput(t *testing.T) {
	router := setupRouter(NewChatHandler(new(mocks.ChatServiceMock), nil).Register)

	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/api/chats/abc/messages", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/api/chats/0/messages", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/api/chats/3/messages?limit=many", "").Code)
}

func TestSendMessageSuccess(t *testing.T) {
	chats := new(mocks.ChatServiceMock)
	router := setupRouter(NewChatHandler(chats, nil).Register)

	stored := models.MessageView{Message: models.Message{ID: 11, ChatID: 4, SenderID: 1, Content: "Hello"}}
	chats.On("SendMessage", mock.Anything, 4, 1, "Hello").Return(stored, nil).Once()

	rec := serve(router, http.MethodPost, "/api/chats/4/messages", `{"content":"Hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Message models.MessageView `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 11, resp.Message.ID)
	assert.False(t, resp.Message.Read)
	chats.AssertExpectations(t)
}

func TestSendMessageBlankContent(t *testing.T) {
	chats := new(mocks.ChatServiceMock)
	router := setupRouter(NewChatHandler(chats, nil).Register)

	for _, body := range []string{`{}`, `{"content":""}`, `{"content":"   "}`} {
		rec := serve(router, http.MethodPost, "/api/chats/4/messages", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	chats.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageLengthLimit(t *testing.T) {
	chats := new(mocks.ChatServiceMock)
	router := setupRouter(NewChatHandler(chats, nil).Register)

	atLimit := strings.Repeat("é", services.MaxMessageLength)
	chats.On("SendMessage", mock.Anything, 4, 1, atLimit).Return(models.MessageView{Message: models.Message{ID: 12, Content: atLimit}}, nil).Once()

	rec := serve(router, http.MethodPost, "/api/chats/4/messages", `{"content":"`+atLimit+`"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(router, http.MethodPost, "/api/chats/4/messages", `{"content":"`+atLimit+`x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at most 5000 characters")
	chats.AssertExpectations(t)
}

func TestSendMessageForbidden(t *testing.T) {
	chats := new(mocks.ChatServiceMock)
	router := setupRouter(NewChatHandler(chats, nil).Register)

	chats.On("SendMessage", mock.Anything, 4, 1, "hi").Return(nil, &services.Error{Kind: services.ErrForbidden, Msg: "not a chat member"}).Once()

	rec := serve(router, http.MethodPost, "/api/chats/4/messages", `{"content":"hi"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "not a chat member")
}

func TestMarkRead(t *testing.T) {
	chats := new(mocks.ChatServiceMock)
	router := setupRouter(NewChatHandler(chats, nil).Register)

	chats.On("MarkRead", mock.Anything, 4, 1).Return(int64(3), nil).Once()

	rec := serve(router, http.MethodPut, "/api/chats/4/messages/read", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":3}`, rec.Body.String())
}

func TestDeleteChat(t *testing.T) {
	chats := new(mocks.ChatServiceMock)
	router := setupRouter(NewChatHandler(chats, nil).Register)

	chats.On("DeleteChat", mock.Anything, 4, 1).Return(nil).Once()
	chats.On("DeleteChat", mock.Anything, 5, 1).Return(&services.Error{Kind: services.ErrNotFound, Msg: "chat not found"}).Once()

	assert.Equal(t, http.StatusOK, serve(router, http.MethodDelete, "/api/chats/4", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodDelete, "/api/chats/5", "").Code)
	chats.AssertExpectations(t)
}
