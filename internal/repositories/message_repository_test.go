package repositories

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateChatMessageUpdatesSummary(t *testing.T) {
	database := setupTestDB(t)
	chats := NewChatRepo(database)
	repo := NewMessageRepo(database)
	ctx := context.Background()

	chat, _, err := chats.CreateOrGetChat(ctx, 1, 2, nil)
	require.NoError(t, err)

	long := strings.Repeat("é", PreviewLength+20)
	msg, err := repo.CreateChatMessage(ctx, chat.ID, 1, long)
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.False(t, msg.Read)

	updated, err := chats.GetChat(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", PreviewLength), updated.LastMessage)
	require.NotNil(t, updated.LastMessageSenderID)
	assert.Equal(t, 1, *updated.LastMessageSenderID)
}

func TestCreateChatMessageUnknownChatRollsBack(t *testing.T) {
	database := setupTestDB(t)
	repo := NewMessageRepo(database)
	ctx := context.Background()

	_, err := repo.CreateChatMessage(ctx, 404, 1, "lost")
	require.ErrorIs(t, err, ErrChatNotFound)

	msgs, err := repo.ListChatMessages(ctx, 404, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestListChatMessagesPagesFromNewestEnd(t *testing.T) {
	database := setupTestDB(t)
	chats := NewChatRepo(database)
	repo := NewMessageRepo(database)
	ctx := context.Background()

	chat, _, err := chats.CreateOrGetChat(ctx, 1, 2, nil)
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		_, err := repo.CreateChatMessage(ctx, chat.ID, 1+i%2, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	page, err := repo.ListChatMessages(ctx, chat.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "m4", page[0].Content)
	assert.Equal(t, "m5", page[1].Content)

	older, err := repo.ListChatMessages(ctx, chat.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, older, 2)
	assert.Equal(t, "m2", older[0].Content)
	assert.Equal(t, "m3", older[1].Content)

	for _, size := range []int{1, 3, 5, 10} {
		msgs, err := repo.ListChatMessages(ctx, chat.ID, size, 0)
		require.NoError(t, err)
		for i := 1; i < len(msgs); i++ {
			assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
			assert.Greater(t, msgs[i].ID, msgs[i-1].ID)
		}
	}
}

func TestMarkReadSkipsOwnMessagesAndIsIdempotent(t *testing.T) {
	database := setupTestDB(t)
	chats := NewChatRepo(database)
	repo := NewMessageRepo(database)
	ctx := context.Background()

	chat, _, err := chats.CreateOrGetChat(ctx, 1, 2, nil)
	require.NoError(t, err)
	fromA, err := repo.CreateChatMessage(ctx, chat.ID, 1, "hello")
	require.NoError(t, err)
	fromB, err := repo.CreateChatMessage(ctx, chat.ID, 2, "hi")
	require.NoError(t, err)

	count, err := repo.MarkRead(ctx, chat.ID, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = repo.MarkRead(ctx, chat.ID, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	readA, err := repo.GetMessage(ctx, fromA.ID)
	require.NoError(t, err)
	assert.True(t, readA.Read)
	assert.NotNil(t, readA.ReadAt)

	unreadB, err := repo.GetMessage(ctx, fromB.ID)
	require.NoError(t, err)
	assert.False(t, unreadB.Read)
	assert.Nil(t, unreadB.ReadAt)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short"))
	assert.Len(t, []rune(Preview(strings.Repeat("x", 250))), PreviewLength)
}
