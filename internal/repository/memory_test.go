package repository

import (
	"context"
	"testing"
	"time"

	"fleetdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryChatStateRepository(t *testing.T) {
	repo := NewMemoryChatStateRepository(time.Hour)
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("SetAndGetState", func(t *testing.T) {
		state := &models.ChatState{ChatID: 123, BookingID: "B100", Step: models.StepAwaitReason, CardMessageID: 9}
		require.NoError(t, repo.SetState(ctx, state))

		got, err := repo.GetState(ctx, 123)
		require.NoError(t, err)
		assert.Equal(t, state, got)

		// stored by value
		got.Step = models.StepIdle
		again, _ := repo.GetState(ctx, 123)
		assert.Equal(t, models.StepAwaitReason, again.Step)
	})

	t.Run("Expiry", func(t *testing.T) {
		require.NoError(t, repo.SetState(ctx, &models.ChatState{ChatID: 321, BookingID: "B1"}))
		now = now.Add(2 * time.Hour)

		got, err := repo.GetState(ctx, 321)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ClearState", func(t *testing.T) {
		require.NoError(t, repo.SetState(ctx, &models.ChatState{ChatID: 123}))
		require.NoError(t, repo.ClearState(ctx, 123))
		got, _ := repo.GetState(ctx, 123)
		assert.Nil(t, got)
	})

	t.Run("RateLimit", func(t *testing.T) {
		chatID := int64(456)
		allowed, _ := repo.CheckRateLimit(ctx, chatID, 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, chatID, 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, chatID, 2, time.Second)
		assert.False(t, allowed)

		now = now.Add(time.Second + 10*time.Millisecond)
		allowed, _ = repo.CheckRateLimit(ctx, chatID, 2, time.Second)
		assert.True(t, allowed)
	})
}
