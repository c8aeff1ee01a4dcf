package bot

import (
	"context"
	"errors"
	"strings"

	"fleetdesk/internal/backend"
	"fleetdesk/internal/gate"
	"fleetdesk/internal/models"
	"fleetdesk/internal/workflow"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, chatID int64, actor models.Actor, callback *tgbotapi.CallbackQuery) {
	data := callback.Data

	cs := b.getSession(chatID)
	if cs == nil {
		b.answerCallback(callback.ID, msgNoSession)
		return
	}

	switch {
	case strings.HasPrefix(data, cbStatusPrefix):
		target, err := models.ParseStatus(strings.TrimPrefix(data, cbStatusPrefix))
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("Bad status callback")
			b.answerCallback(callback.ID, msgUnknownStatus)
			return
		}
		b.handleStatusButton(ctx, cs, callback, target)

	case data == cbGateWait:
		b.answerCallback(callback.ID, msgPleaseWait)

	case data == cbGateConfirm:
		b.handleGateConfirm(ctx, cs, callback)

	case data == cbGateCancel:
		cs.session.Dismiss()
		b.answerCallback(callback.ID, "")
		b.retirePrompt(ctx, cs, "Cancelled.")

	case data == cbPrice:
		if err := cs.session.OpenPriceGate(); err != nil {
			b.answerCallback(callback.ID, b.getErrorMessage(err))
			return
		}
		b.answerCallback(callback.ID, "")
		b.sendInputPrompt(ctx, cs, gate.KindPrice)

	case data == cbReceipt:
		b.answerCallback(callback.ID, "")
		b.sendReceipt(ctx, cs, actor)

	case data == cbClose:
		b.answerCallback(callback.ID, "")
		b.closeSession(ctx, chatID)

	default:
		zerolog.Ctx(ctx).Warn().Str("data", data).Msg("Unknown callback")
		b.answerCallback(callback.ID, "")
	}
}

func (b *Bot) handleStatusButton(ctx context.Context, cs *chatSession, callback *tgbotapi.CallbackQuery, target models.Status) {
	kind, err := cs.session.RequestTransition(target)
	if err != nil {
		if !errors.Is(err, workflow.ErrBusy) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("target", string(target)).Msg("Transition refused")
		}
		b.answerCallback(callback.ID, b.getErrorMessage(err))
		return
	}
	b.answerCallback(callback.ID, "")

	// Старый запрос больше не актуален
	b.retirePrompt(ctx, cs, "Cancelled.")

	if kind != gate.KindTimed {
		b.sendInputPrompt(ctx, cs, kind)
		return
	}

	g := cs.session.TimedGate()
	sent, err := b.tgService.SendWithInlineKeyboard(cs.chatID, g.Message(), timedGateKeyboard(g))
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to send confirmation prompt")
		return
	}
	cs.setPrompt(sent.MessageID)
	// The cooldown may have ended before the prompt id was known.
	if g.ConfirmEnabled() {
		b.onTimedReady(cs)
	}
}

func (b *Bot) handleGateConfirm(ctx context.Context, cs *chatSession, callback *tgbotapi.CallbackQuery) {
	_, prompt := cs.messages()
	target := cs.session.TimedTarget()

	err := cs.session.ConfirmTimed(ctx)
	if err != nil {
		b.answerCallback(callback.ID, b.getErrorMessage(err))
		return
	}
	b.answerCallback(callback.ID, "")

	if prompt != 0 {
		b.editMessage(cs.chatID, prompt, "Confirmed: status change to *"+esc(string(target))+"*.", nil)
		cs.setPrompt(0)
	}
}

func (b *Bot) sendInputPrompt(ctx context.Context, cs *chatSession, kind gate.Kind) {
	booking := cs.session.Booking()
	sent, err := b.tgService.SendWithInlineKeyboard(cs.chatID, inputPrompt(kind, booking.BookingID), cancelOnlyKeyboard())
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to send input prompt")
		return
	}
	cs.setPrompt(sent.MessageID)

	if err := b.stateService.SetStep(ctx, cs.chatID, stepFor(kind)); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to update chat state")
	}
}

// retirePrompt strips the buttons from the current prompt and stops waiting
// for text.
func (b *Bot) retirePrompt(ctx context.Context, cs *chatSession, text string) {
	_, prompt := cs.messages()
	if prompt != 0 {
		b.editMessage(cs.chatID, prompt, text, nil)
		cs.setPrompt(0)
	}
	if err := b.stateService.SetStep(ctx, cs.chatID, models.StepIdle); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to update chat state")
	}
}

func (b *Bot) sendReceipt(ctx context.Context, cs *chatSession, actor models.Actor) {
	if b.reference == nil {
		b.sendMessage(cs.chatID, msgNoReceipt)
		return
	}

	booking := cs.session.Booking()
	receipt, err := b.reference.FetchReceipt(ctx, booking.BookingID, actor.RoleOrDefault())
	if err != nil {
		if !errors.Is(err, backend.ErrNoReceipt) {
			zerolog.Ctx(ctx).Error().Err(err).Str("booking_id", booking.BookingID).Msg("Failed to fetch receipt")
		}
		b.sendMessage(cs.chatID, b.getErrorMessage(err))
		return
	}

	if _, err := b.tgService.SendPhoto(cs.chatID, "receipt-"+booking.BookingID+".jpg", receipt.Data, "Receipt for booking "+booking.BookingID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to send receipt")
	}
}
