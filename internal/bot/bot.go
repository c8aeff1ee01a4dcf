package bot

import (
	"context"
	"os"
	"sync"
	"time"

	"fleetdesk/internal/config"
	"fleetdesk/internal/domain"
	"fleetdesk/internal/events"
	"fleetdesk/internal/gate"
	"fleetdesk/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const updateTimeout = 30 * time.Second

type Bot struct {
	tgService    domain.TelegramService
	config       *config.Config
	stateService domain.ChatStateManager
	backend      domain.BookingBackend
	reference    domain.ReferenceBackend
	eventBus     domain.EventPublisher
	clock        gate.Clock
	metrics      *Metrics
	logger       *zerolog.Logger

	mu       sync.Mutex
	sessions map[int64]*chatSession
}

func NewBot(
	tgService domain.TelegramService,
	config *config.Config,
	stateService domain.ChatStateManager,
	backend domain.BookingBackend,
	reference domain.ReferenceBackend,
	eventBus domain.EventPublisher,
	metrics *Metrics,
	logger *zerolog.Logger,
) (*Bot, error) {
	if eventBus == nil {
		eventBus = events.NewEventBus()
	}

	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}

	return &Bot{
		tgService:    tgService,
		config:       config,
		stateService: stateService,
		backend:      backend,
		reference:    reference,
		eventBus:     eventBus,
		clock:        gate.SystemClock{},
		metrics:      metrics,
		logger:       logger,
		sessions:     make(map[int64]*chatSession),
	}, nil
}

// UseClock replaces the clock driving confirmation cooldowns.
func (b *Bot) UseClock(clock gate.Clock) {
	b.clock = clock
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tgService.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tgService.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			b.closeAllSessions()
			return
		case update, ok := <-updates:
			if !ok {
				b.closeAllSessions()
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

// Stop stops receiving Telegram updates (best-effort).
func (b *Bot) Stop() {
	if b == nil || b.tgService == nil {
		return
	}
	b.tgService.StopReceivingUpdates()
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	// Создаем контекст для обработки каждого обновления
	updateCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		var userID, chatID int64
		switch {
		case update.Message != nil && update.Message.From != nil:
			userID = update.Message.From.ID
			chatID = update.Message.Chat.ID
		case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
			userID = update.CallbackQuery.From.ID
			chatID = update.CallbackQuery.Message.Chat.ID
		}

		if userID == 0 || chatID == 0 {
			return
		}

		allowed, err := b.stateService.CheckRateLimit(updateCtx, chatID, b.config.Bot.RateLimitMessages, time.Duration(b.config.Bot.RateLimitWindow)*time.Second)
		if err != nil {
			l.Error().Err(err).Int64("chat_id", chatID).Msg("Rate limit check failed")
		} else if !allowed {
			l.Warn().Int64("chat_id", chatID).Msg("Rate limit exceeded")
			if update.Message != nil {
				b.sendMessage(chatID, "⚠️ Too many requests. Please wait a moment.")
			}
			return
		}

		admin, ok := b.config.AdminByTelegramID(userID)
		if !ok {
			l.Warn().Int64("user_id", userID).Msg("Access denied")
			metrics.IncBotUpdate("denied")
			if update.CallbackQuery != nil {
				b.answerCallback(update.CallbackQuery.ID, msgAccessDenied)
			} else {
				b.sendMessage(chatID, msgAccessDenied)
			}
			return
		}
		actor := admin.Actor()
		updateCtx = l.With().Str("admin_id", actor.ID).Logger().WithContext(updateCtx)

		if update.CallbackQuery != nil {
			metrics.IncBotUpdate("callback")
			b.handleCallbackQuery(updateCtx, chatID, actor, update.CallbackQuery)
			return
		}

		if update.Message.IsCommand() {
			metrics.IncBotUpdate("command")
		} else {
			metrics.IncBotUpdate("message")
		}
		b.handleMessage(updateCtx, chatID, actor, update.Message)
	})
}
