package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap-service/internal/models"
)

func TestSwapRepoLifecycle(t *testing.T) {
	database := setupTestDB(t)
	users := NewUserRepo(database)
	repo := NewSwapRepo(database)
	ctx := context.Background()
	a := createUser(t, users, "a")
	b := createUser(t, users, "b")

	swap, err := repo.CreateSwap(ctx, models.SwapRequest{FromUserID: a.ID, ToUserID: b.ID, FromSkill: "Go", ToSkill: "Spanish"})
	require.NoError(t, err)
	assert.Equal(t, models.SwapPending, swap.Status)

	pending, err := repo.HasPending(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, pending)

	pending, err = repo.HasPending(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, pending)

	now := time.Now().UTC()
	swap.Status = models.SwapAccepted
	swap.RespondedAt = &now
	require.NoError(t, repo.UpdateSwap(ctx, swap))

	got, err := repo.GetSwap(ctx, swap.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapAccepted, got.Status)
	assert.NotNil(t, got.RespondedAt)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, repo.DeleteSwap(ctx, swap.ID))
	_, err = repo.GetSwap(ctx, swap.ID)
	require.ErrorIs(t, err, ErrSwapNotFound)
	require.ErrorIs(t, repo.DeleteSwap(ctx, swap.ID), ErrSwapNotFound)
}

func TestSwapRepoListFilters(t *testing.T) {
	database := setupTestDB(t)
	users := NewUserRepo(database)
	repo := NewSwapRepo(database)
	ctx := context.Background()
	a := createUser(t, users, "a")
	b := createUser(t, users, "b")
	c := createUser(t, users, "c")

	_, err := repo.CreateSwap(ctx, models.SwapRequest{FromUserID: a.ID, ToUserID: b.ID, FromSkill: "x", ToSkill: "y"})
	require.NoError(t, err)
	received, err := repo.CreateSwap(ctx, models.SwapRequest{FromUserID: c.ID, ToUserID: a.ID, FromSkill: "x", ToSkill: "y"})
	require.NoError(t, err)
	received.Status = models.SwapRejected
	require.NoError(t, repo.UpdateSwap(ctx, received))

	all, err := repo.ListSwaps(ctx, a.ID, models.SwapFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	sent, err := repo.ListSwaps(ctx, a.ID, models.SwapFilter{Direction: "sent"})
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, b.ID, sent[0].ToUserID)

	rejected, err := repo.ListSwaps(ctx, a.ID, models.SwapFilter{Direction: "received", Status: models.SwapRejected})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, received.ID, rejected[0].ID)
}
