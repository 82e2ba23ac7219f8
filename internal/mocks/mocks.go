package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"skillswap-service/internal/models"
	"skillswap-service/internal/repositories"
	"skillswap-service/internal/services"
)

type ChatServiceMock struct {
	mock.Mock
}

func (m *ChatServiceMock) GetOrCreateChat(ctx context.Context, requesterID, otherUserID int, swapRequestID *int) (models.ChatView, bool, error) {
	args := m.Called(ctx, requesterID, otherUserID, swapRequestID)
	var chat models.ChatView
	if val := args.Get(0); val != nil {
		chat = val.(models.ChatView)
	}
	return chat, args.Bool(1), args.Error(2)
}

func (m *ChatServiceMock) ListChats(ctx context.Context, userID int) ([]models.ChatView, error) {
	args := m.Called(ctx, userID)
	var chats []models.ChatView
	if val := args.Get(0); val != nil {
		chats = val.([]models.ChatView)
	}
	return chats, args.Error(1)
}

func (m *ChatServiceMock) ListMessages(ctx context.Context, chatID, requesterID, limit, offset int) ([]models.MessageView, error) {
	args := m.Called(ctx, chatID, requesterID, limit, offset)
	var msgs []models.MessageView
	if val := args.Get(0); val != nil {
		msgs = val.([]models.MessageView)
	}
	return msgs, args.Error(1)
}

func (m *ChatServiceMock) SendMessage(ctx context.Context, chatID, senderID int, content string) (models.MessageView, error) {
	args := m.Called(ctx, chatID, senderID, content)
	var msg models.MessageView
	if val := args.Get(0); val != nil {
		msg = val.(models.MessageView)
	}
	return msg, args.Error(1)
}

func (m *ChatServiceMock) MarkRead(ctx context.Context, chatID, readerID int) (int64, error) {
	args := m.Called(ctx, chatID, readerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ChatServiceMock) DeleteChat(ctx context.Context, chatID, requesterID int) error {
	args := m.Called(ctx, chatID, requesterID)
	return args.Error(0)
}

func (m *ChatServiceMock) IsParticipant(ctx context.Context, chatID, userID int) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

type SwapServiceMock struct {
	mock.Mock
}

func (m *SwapServiceMock) Create(ctx context.Context, fromID int, in services.SwapInput) (models.SwapRequestView, error) {
	args := m.Called(ctx, fromID, in)
	var swap models.SwapRequestView
	if val := args.Get(0); val != nil {
		swap = val.(models.SwapRequestView)
	}
	return swap, args.Error(1)
}

func (m *SwapServiceMock) List(ctx context.Context, userID int, filter models.SwapFilter) ([]models.SwapRequestView, error) {
	args := m.Called(ctx, userID, filter)
	var swaps []models.SwapRequestView
	if val := args.Get(0); val != nil {
		swaps = val.([]models.SwapRequestView)
	}
	return swaps, args.Error(1)
}

func (m *SwapServiceMock) Get(ctx context.Context, swapID, requesterID int) (models.SwapRequestView, error) {
	args := m.Called(ctx, swapID, requesterID)
	var swap models.SwapRequestView
	if val := args.Get(0); val != nil {
		swap = val.(models.SwapRequestView)
	}
	return swap, args.Error(1)
}

func (m *SwapServiceMock) UpdateStatus(ctx context.Context, swapID, requesterID int, status models.SwapStatus) (models.SwapRequestView, error) {
	args := m.Called(ctx, swapID, requesterID, status)
	var swap models.SwapRequestView
	if val := args.Get(0); val != nil {
		swap = val.(models.SwapRequestView)
	}
	return swap, args.Error(1)
}

func (m *SwapServiceMock) Delete(ctx context.Context, swapID, requesterID int) error {
	args := m.Called(ctx, swapID, requesterID)
	return args.Error(0)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	var u models.User
	if val := args.Get(0); val != nil {
		u = val.(models.User)
	}
	return u, args.Error(1)
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var u models.User
	if val := args.Get(0); val != nil {
		u = val.(models.User)
	}
	return u, args.Error(1)
}

func (m *UserRepositoryMock) BulkUsers(ctx context.Context, ids []int) ([]models.User, error) {
	args := m.Called(ctx, ids)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) ListUsers(ctx context.Context, filter repositories.UserFilter) ([]models.User, error) {
	args := m.Called(ctx, filter)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) ListTeachers(ctx context.Context, excludeID int, skills []string, limit int) ([]models.User, error) {
	args := m.Called(ctx, excludeID, skills, limit)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) UpsertProfile(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	var u models.User
	if val := args.Get(0); val != nil {
		u = val.(models.User)
	}
	return u, args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) NotifyUser(userID int, event string, payload any) {
	m.Called(userID, event, payload)
}

type RecommenderMock struct {
	mock.Mock
}

func (m *RecommenderMock) Simple(ctx context.Context, userID int) ([]services.Recommendation, error) {
	args := m.Called(ctx, userID)
	var recs []services.Recommendation
	if val := args.Get(0); val != nil {
		recs = val.([]services.Recommendation)
	}
	return recs, args.Error(1)
}

func (m *RecommenderMock) Recommend(ctx context.Context, userID int) ([]services.Recommendation, error) {
	args := m.Called(ctx, userID)
	var recs []services.Recommendation
	if val := args.Get(0); val != nil {
		recs = val.([]services.Recommendation)
	}
	return recs, args.Error(1)
}
