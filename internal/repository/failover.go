package repository

import (
	"context"
	"sync/atomic"
	"time"

	"fleetdesk/internal/domain"
	"fleetdesk/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverChatStateRepository writes to the primary store and switches to the
// fallback after the first primary error. The primary is retried once per
// recoveryInterval.
type FailoverChatStateRepository struct {
	primary  domain.ChatStateRepository
	fallback domain.ChatStateRepository
	logger   *zerolog.Logger

	isDown    atomic.Bool
	downSince atomic.Int64
	now       func() time.Time
}

func NewFailoverChatStateRepository(primary, fallback domain.ChatStateRepository, logger *zerolog.Logger) *FailoverChatStateRepository {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverChatStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary reports whether the next call should go to the primary store.
func (r *FailoverChatStateRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return r.now().Sub(time.Unix(0, r.downSince.Load())) > recoveryInterval
}

func (r *FailoverChatStateRepository) markDown(op string, err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Str("op", op).Msg("Primary chat state repository failed, falling back to memory")
	}
	r.downSince.Store(r.now().UnixNano())
}

func (r *FailoverChatStateRepository) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary chat state repository recovered")
	}
}

func (r *FailoverChatStateRepository) GetState(ctx context.Context, chatID int64) (*models.ChatState, error) {
	if r.usePrimary() {
		state, err := r.primary.GetState(ctx, chatID)
		if err == nil {
			r.markUp()
			return state, nil
		}
		r.markDown("get", err)
	}
	return r.fallback.GetState(ctx, chatID)
}

func (r *FailoverChatStateRepository) SetState(ctx context.Context, state *models.ChatState) error {
	if r.usePrimary() {
		err := r.primary.SetState(ctx, state)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown("set", err)
	}
	return r.fallback.SetState(ctx, state)
}

func (r *FailoverChatStateRepository) ClearState(ctx context.Context, chatID int64) error {
	if r.usePrimary() {
		err := r.primary.ClearState(ctx, chatID)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown("clear", err)
	}
	return r.fallback.ClearState(ctx, chatID)
}

func (r *FailoverChatStateRepository) CheckRateLimit(ctx context.Context, chatID int64, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, chatID, limit, window)
		if err == nil {
			r.markUp()
			return allowed, nil
		}
		r.markDown("rate_limit", err)
	}
	return r.fallback.CheckRateLimit(ctx, chatID, limit, window)
}
