package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fleetdesk/internal/gate"
	"fleetdesk/internal/models"
	"fleetdesk/internal/notify"
	"fleetdesk/internal/workflow"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// chatSession binds a workflow session to the messages showing it.
type chatSession struct {
	chatID   int64
	session  *workflow.Session
	carLabel string

	mu              sync.Mutex
	cardMessageID   int
	promptMessageID int
}

func (cs *chatSession) messages() (card, prompt int) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.cardMessageID, cs.promptMessageID
}

func (cs *chatSession) setPrompt(id int) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.promptMessageID = id
}

func (b *Bot) getSession(chatID int64) *chatSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[chatID]
}

// openBooking fetches the booking, shows its card and makes it the chat's
// active session. A previously open card is closed first.
func (b *Bot) openBooking(ctx context.Context, chatID int64, actor models.Actor, bookingID string) error {
	b.closeSession(ctx, chatID)

	booking, err := b.backend.FetchBooking(ctx, bookingID, actor.RoleOrDefault())
	if err != nil {
		return fmt.Errorf("fetch booking %s: %w", bookingID, err)
	}

	cs := &chatSession{chatID: chatID, carLabel: b.carLabel(ctx, actor, booking.CarID)}
	notifier := notify.Multi{
		notify.LogNotifier{Logger: b.logger},
		chatNotifier{bot: b, chatID: chatID},
	}
	refresh := func(ctx context.Context) error {
		if err := cs.session.Reload(ctx); err != nil {
			return err
		}
		return b.renderCard(cs)
	}

	cs.session = workflow.NewSession(b.backend, actor, *booking, notifier, refresh, workflow.Options{
		Clock:    b.clock,
		Cooldown: b.config.Gates.Cooldown,
		Events:   b.eventBus,
		Logger:   b.logger,
	})
	cs.session.OnTimedReady(func() { b.onTimedReady(cs) })

	sent, err := b.tgService.SendWithInlineKeyboard(chatID, renderCard(*booking, cs.carLabel), cardKeyboard(cs.session))
	if err != nil {
		cs.session.Close()
		return fmt.Errorf("send booking card: %w", err)
	}
	cs.cardMessageID = sent.MessageID

	b.mu.Lock()
	b.sessions[chatID] = cs
	b.mu.Unlock()
	if b.metrics != nil {
		b.metrics.ActiveSessions.Inc()
	}

	if err := b.stateService.OpenCard(ctx, chatID, booking.BookingID, sent.MessageID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("Failed to save chat state")
	}
	return nil
}

// closeSession discards the chat's session and stops its gate timers.
func (b *Bot) closeSession(ctx context.Context, chatID int64) bool {
	b.mu.Lock()
	cs, ok := b.sessions[chatID]
	delete(b.sessions, chatID)
	b.mu.Unlock()

	if !ok {
		return false
	}
	cs.session.Close()
	if b.metrics != nil {
		b.metrics.ActiveSessions.Dec()
	}

	card, prompt := cs.messages()
	if prompt != 0 {
		b.editMessage(chatID, prompt, "Closed.", nil)
	}
	b.editMessage(chatID, card, renderCard(cs.session.Booking(), cs.carLabel), nil)

	if err := b.stateService.ClearChatState(ctx, chatID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("Failed to clear chat state")
	}
	return true
}

func (b *Bot) closeAllSessions() {
	b.mu.Lock()
	all := b.sessions
	b.sessions = make(map[int64]*chatSession)
	b.mu.Unlock()

	for _, cs := range all {
		cs.session.Close()
		if b.metrics != nil {
			b.metrics.ActiveSessions.Dec()
		}
	}
}

// renderCard redraws the card in place.
func (b *Bot) renderCard(cs *chatSession) error {
	card, _ := cs.messages()
	keyboard := cardKeyboard(cs.session)
	_, err := b.tgService.EditMessage(cs.chatID, card, renderCard(cs.session.Booking(), cs.carLabel), &keyboard)
	return err
}

// onTimedReady runs on the timer goroutine once the cooldown ends.
func (b *Bot) onTimedReady(cs *chatSession) {
	_, prompt := cs.messages()
	if prompt == 0 {
		return
	}
	g := cs.session.TimedGate()
	if !gate.IsOpen(g.State()) {
		return
	}
	keyboard := timedGateKeyboard(g)
	b.editMessage(cs.chatID, prompt, g.Message(), &keyboard)
}

func (b *Bot) carLabel(ctx context.Context, actor models.Actor, carID string) string {
	if b.reference == nil || carID == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cars, err := b.reference.ListCars(ctx, actor.RoleOrDefault())
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to load car details")
		return ""
	}
	if car, ok := cars[carID]; ok {
		return car.Label()
	}
	return ""
}

func (b *Bot) editMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	if messageID == 0 {
		return
	}
	if _, err := b.tgService.EditMessage(chatID, messageID, text, keyboard); err != nil {
		b.logger.Debug().Err(err).Int64("chat_id", chatID).Int("message_id", messageID).Msg("Failed to edit message")
	}
}

// chatNotifier delivers toasts as chat messages.
type chatNotifier struct {
	bot    *Bot
	chatID int64
}

func (n chatNotifier) Notify(_ context.Context, toast notify.Toast) {
	prefix := "✅ "
	if toast.Kind == notify.KindError {
		prefix = "❌ "
	}
	n.bot.sendMessage(n.chatID, prefix+toast.Message)
}
