package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleetdesk/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockStateRepository struct {
	mock.Mock
}

func (m *MockStateRepository) GetState(ctx context.Context, chatID int64) (*models.ChatState, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatState), args.Error(1)
}

func (m *MockStateRepository) SetState(ctx context.Context, state *models.ChatState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockStateRepository) ClearState(ctx context.Context, chatID int64) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

func (m *MockStateRepository) CheckRateLimit(ctx context.Context, chatID int64, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, chatID, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestStateService_GetChatState(t *testing.T) {
	mockRepo := new(MockStateRepository)
	logger := zerolog.Nop()
	s := NewStateService(mockRepo, &logger)
	ctx := context.Background()
	chatID := int64(123)

	t.Run("Success", func(t *testing.T) {
		expected := &models.ChatState{ChatID: chatID, BookingID: "B100", Step: models.StepIdle}
		mockRepo.On("GetState", ctx, chatID).Return(expected, nil).Once()

		state, err := s.GetChatState(ctx, chatID)
		assert.NoError(t, err)
		assert.Equal(t, expected, state)
	})

	t.Run("Error", func(t *testing.T) {
		mockRepo.On("GetState", ctx, chatID).Return(nil, errors.New("redis down")).Once()

		state, err := s.GetChatState(ctx, chatID)
		assert.Error(t, err)
		assert.Nil(t, state)
	})
}

func TestStateService_OpenCard(t *testing.T) {
	mockRepo := new(MockStateRepository)
	s := NewStateService(mockRepo, nil)
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	mockRepo.On("SetState", ctx, mock.MatchedBy(func(state *models.ChatState) bool {
		return state.ChatID == 5 && state.BookingID == "B100" && state.CardMessageID == 77 &&
			state.Step == models.StepIdle && state.UpdatedAt.Equal(now)
	})).Return(nil).Once()

	assert.NoError(t, s.OpenCard(ctx, 5, "B100", 77))
	mockRepo.AssertExpectations(t)
}

func TestStateService_SetStep(t *testing.T) {
	mockRepo := new(MockStateRepository)
	s := NewStateService(mockRepo, nil)
	ctx := context.Background()

	t.Run("KeepsCard", func(t *testing.T) {
		existing := &models.ChatState{ChatID: 5, BookingID: "B100", CardMessageID: 77, Step: models.StepIdle}
		mockRepo.On("GetState", ctx, int64(5)).Return(existing, nil).Once()
		mockRepo.On("SetState", ctx, mock.MatchedBy(func(state *models.ChatState) bool {
			return state.BookingID == "B100" && state.CardMessageID == 77 && state.Step == models.StepAwaitReason
		})).Return(nil).Once()

		assert.NoError(t, s.SetStep(ctx, 5, models.StepAwaitReason))
	})

	t.Run("CreateNew", func(t *testing.T) {
		mockRepo.On("GetState", ctx, int64(6)).Return(nil, nil).Once()
		mockRepo.On("SetState", ctx, mock.MatchedBy(func(state *models.ChatState) bool {
			return state.ChatID == 6 && state.Step == models.StepAwaitPrice
		})).Return(nil).Once()

		assert.NoError(t, s.SetStep(ctx, 6, models.StepAwaitPrice))
	})

	t.Run("RepoError", func(t *testing.T) {
		mockRepo.On("GetState", ctx, int64(7)).Return(nil, errors.New("boom")).Once()
		assert.Error(t, s.SetStep(ctx, 7, models.StepAwaitPrice))
	})

	mockRepo.AssertExpectations(t)
}

func TestStateService_CheckRateLimit(t *testing.T) {
	mockRepo := new(MockStateRepository)
	logger := zerolog.Nop()
	s := NewStateService(mockRepo, &logger)
	ctx := context.Background()
	chatID := int64(123)

	t.Run("Allowed", func(t *testing.T) {
		mockRepo.On("CheckRateLimit", ctx, chatID, 5, time.Minute).Return(true, nil).Once()
		allowed, err := s.CheckRateLimit(ctx, chatID, 5, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("Clear", func(t *testing.T) {
		mockRepo.On("ClearState", ctx, chatID).Return(nil).Once()
		assert.NoError(t, s.ClearChatState(ctx, chatID))
	})
}
