package service

import (
	"context"
	"time"

	"fleetdesk/internal/domain"
	"fleetdesk/internal/models"

	"github.com/rs/zerolog"
)

// StateService tracks which booking card each admin chat has open and what
// free-text answer the chat owes.
type StateService struct {
	stateRepo domain.ChatStateRepository
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewStateService(stateRepo domain.ChatStateRepository, logger *zerolog.Logger) *StateService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &StateService{
		stateRepo: stateRepo,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *StateService) GetChatState(ctx context.Context, chatID int64) (*models.ChatState, error) {
	state, err := s.stateRepo.GetState(ctx, chatID)
	if err != nil {
		s.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to get chat state")
		return nil, err
	}
	return state, nil
}

// OpenCard records a freshly rendered booking card for the chat.
func (s *StateService) OpenCard(ctx context.Context, chatID int64, bookingID string, messageID int) error {
	return s.stateRepo.SetState(ctx, &models.ChatState{
		ChatID:        chatID,
		BookingID:     bookingID,
		Step:          models.StepIdle,
		CardMessageID: messageID,
		UpdatedAt:     s.now(),
	})
}

// SetStep changes what the chat is waiting for, keeping the open card.
func (s *StateService) SetStep(ctx context.Context, chatID int64, step string) error {
	state, err := s.stateRepo.GetState(ctx, chatID)
	if err != nil {
		return err
	}
	if state == nil {
		state = &models.ChatState{ChatID: chatID}
	}
	state.Step = step
	state.UpdatedAt = s.now()
	return s.stateRepo.SetState(ctx, state)
}

func (s *StateService) ClearChatState(ctx context.Context, chatID int64) error {
	return s.stateRepo.ClearState(ctx, chatID)
}

func (s *StateService) CheckRateLimit(ctx context.Context, chatID int64, limit int, window time.Duration) (bool, error) {
	return s.stateRepo.CheckRateLimit(ctx, chatID, limit, window)
}
