package bot

import (
	"context"
	"strings"

	"fleetdesk/internal/gate"
	"fleetdesk/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const helpText = `*Fleet desk*
/booking <id> - open a booking card
/close - close the open card
/help - this message

Status buttons on the card ask for a reason (Cancelled), total expenses (Finished) or a confirmation (Pending, Confirmed) before anything is sent.`

func (b *Bot) handleMessage(ctx context.Context, chatID int64, actor models.Actor, msg *tgbotapi.Message) {
	command, args := parseCommand(msg)
	switch command {
	case "":
		b.handleText(ctx, chatID, strings.TrimSpace(msg.Text))
	case "start", "help":
		if _, err := b.tgService.SendMarkdown(chatID, helpText); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to send help")
		}
	case "booking":
		b.handleOpenBooking(ctx, chatID, actor, args)
	case "close":
		if !b.closeSession(ctx, chatID) {
			b.sendMessage(chatID, msgNoSession)
		}
	default:
		b.sendMessage(chatID, "Unknown command. Use /help.")
	}
}

// parseCommand understands both entity-tagged commands and plain "/cmd args"
// text.
func parseCommand(msg *tgbotapi.Message) (string, string) {
	if msg.IsCommand() {
		return msg.Command(), strings.TrimSpace(msg.CommandArguments())
	}
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	command, args, _ := strings.Cut(text[1:], " ")
	command, _, _ = strings.Cut(command, "@")
	return strings.ToLower(command), strings.TrimSpace(args)
}

func (b *Bot) handleOpenBooking(ctx context.Context, chatID int64, actor models.Actor, bookingID string) {
	if bookingID == "" {
		b.sendMessage(chatID, "Usage: /booking <id>")
		return
	}

	if err := b.openBooking(ctx, chatID, actor, bookingID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("booking_id", bookingID).Msg("Failed to open booking")
		b.sendMessage(chatID, b.getErrorMessage(err))
	}
}

// handleText feeds free text into the gate the chat is waiting on.
func (b *Bot) handleText(ctx context.Context, chatID int64, text string) {
	state, err := b.stateService.GetChatState(ctx, chatID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("Failed to get chat state")
	}
	if state == nil || !state.Awaiting() {
		b.sendMessage(chatID, "Use /booking <id> to open a booking.")
		return
	}

	cs := b.getSession(chatID)
	if cs == nil {
		b.sendMessage(chatID, msgSessionExpired)
		if err := b.stateService.ClearChatState(ctx, chatID); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to clear chat state")
		}
		return
	}

	_, prompt := cs.messages()

	switch state.Step {
	case models.StepAwaitReason:
		err = cs.session.SubmitCancellation(ctx, text)
	case models.StepAwaitExpenses:
		err = cs.session.SubmitExpenses(ctx, text)
	case models.StepAwaitPrice:
		err = cs.session.SubmitPrice(ctx, text)
	}

	if gate.IsValidation(err) {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("step", state.Step).Msg("Submission refused")
		b.sendMessage(chatID, b.getErrorMessage(err))
		if _, open := cs.session.ActiveGate(); open {
			return
		}
	}

	if prompt != 0 {
		b.editMessage(chatID, prompt, "Submitted: "+esc(text), nil)
		cs.setPrompt(0)
	}
	if err := b.stateService.SetStep(ctx, chatID, models.StepIdle); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to update chat state")
	}
}
