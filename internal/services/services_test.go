package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"skillswap-service/internal/db"
	"skillswap-service/internal/models"
	"skillswap-service/internal/repositories"
)

type fixture struct {
	chats *ChatService
	swaps *SwapService
	users *repositories.UserRepo
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	database, err := db.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	users := repositories.NewUserRepo(database)
	chatRepo := repositories.NewChatRepo(database)
	msgRepo := repositories.NewMessageRepo(database)
	swapRepo := repositories.NewSwapRepo(database)
	return fixture{
		chats: NewChatService(chatRepo, msgRepo, users, swapRepo),
		swaps: NewSwapService(swapRepo, users),
		users: users,
	}
}

func (f fixture) user(t *testing.T, name string) models.User {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), models.User{Name: name, Email: name + "@example.com"})
	require.NoError(t, err)
	return u
}
