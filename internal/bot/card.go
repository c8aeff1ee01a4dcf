package bot

import (
	"fmt"
	"strings"

	"fleetdesk/internal/gate"
	"fleetdesk/internal/models"
	"fleetdesk/internal/workflow"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

const (
	cbStatusPrefix = "st:"
	cbPrice        = "price"
	cbReceipt      = "receipt"
	cbClose        = "close"
	cbGateConfirm  = "gate:confirm"
	cbGateCancel   = "gate:cancel"
	cbGateWait     = "gate:wait"
)

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// renderCard formats the booking card.
func renderCard(booking models.Booking, carLabel string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*Booking %s*\n", esc(booking.BookingID))
	fmt.Fprintf(&sb, "Status: *%s*\n", esc(string(booking.Status)))
	fmt.Fprintf(&sb, "Client: %s", esc(booking.Name))
	if booking.Email != "" {
		fmt.Fprintf(&sb, " (%s)", esc(booking.Email))
	}
	sb.WriteString("\n")

	if carLabel == "" {
		carLabel = booking.CarID
	}
	if carLabel != "" {
		fmt.Fprintf(&sb, "Car: %s\n", esc(carLabel))
	}
	if booking.Officer != "" {
		fmt.Fprintf(&sb, "Officer: %s\n", esc(booking.Officer))
	}

	fmt.Fprintf(&sb, "Pickup: %s, %s %s\n", esc(booking.PickupLocation), esc(booking.PickupDate), esc(booking.PickupTime))
	fmt.Fprintf(&sb, "Return: %s, %s %s\n", esc(booking.ReturnLocation), esc(booking.ReturnDate), esc(booking.ReturnTime))
	if booking.RentalType != "" {
		fmt.Fprintf(&sb, "Rental type: %s\n", esc(string(booking.RentalType)))
	}

	if booking.PriceSet() {
		accepted := "not accepted yet"
		if booking.PriceAccepted {
			accepted = "accepted"
		}
		fmt.Fprintf(&sb, "Price: %s (%s)\n", money(booking.Price), accepted)
	} else {
		sb.WriteString("Price: not set\n")
	}

	switch booking.Status {
	case models.StatusCancelled:
		fmt.Fprintf(&sb, "Cancel reason: %s\n", esc(booking.CancelReason))
		fmt.Fprintf(&sb, "Cancel fee: %s\n", money(booking.CancelFee))
		if booking.CancelDate != "" {
			fmt.Fprintf(&sb, "Cancelled on: %s\n", esc(booking.CancelDate))
		}
	case models.StatusFinished:
		fmt.Fprintf(&sb, "Expenses: %s\n", money(booking.Expenses))
	}

	if booking.AdditionalRequest != "" {
		fmt.Fprintf(&sb, "Additional request: %s\n", esc(booking.AdditionalRequest))
	}
	if booking.CreatedAt != "" {
		fmt.Fprintf(&sb, "Created: %s\n", esc(booking.CreatedAt))
	}

	return sb.String()
}

// cardKeyboard builds the status menu of an open card.
func cardKeyboard(s *workflow.Session) tgbotapi.InlineKeyboardMarkup {
	current := s.Booking().Status

	statusButton := func(st models.Status) tgbotapi.InlineKeyboardButton {
		label := string(st)
		if st == current {
			label = "• " + label
		}
		return tgbotapi.NewInlineKeyboardButtonData(label, cbStatusPrefix+string(st))
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(statusButton(models.StatusPending), statusButton(models.StatusConfirmed)),
		tgbotapi.NewInlineKeyboardRow(statusButton(models.StatusCancelled), statusButton(models.StatusFinished)),
	}
	if s.CanSetPrice() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("💰 Set price", cbPrice)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🧾 Receipt", cbReceipt),
		tgbotapi.NewInlineKeyboardButtonData("✖️ Close", cbClose),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// timedGateKeyboard shows Confirm only once the cooldown is over. Cancel is
// always present.
func timedGateKeyboard(g *gate.TimedGate) tgbotapi.InlineKeyboardMarkup {
	confirm := tgbotapi.NewInlineKeyboardButtonData(gate.LabelWait, cbGateWait)
	if g.ConfirmEnabled() {
		confirm = tgbotapi.NewInlineKeyboardButtonData(gate.LabelConfirm, cbGateConfirm)
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		confirm,
		tgbotapi.NewInlineKeyboardButtonData("Cancel", cbGateCancel),
	))
}

func cancelOnlyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Cancel", cbGateCancel),
	))
}

func inputPrompt(kind gate.Kind, bookingID string) string {
	switch kind {
	case gate.KindReason:
		return fmt.Sprintf("Cancel booking %s: send the cancellation reason.", esc(bookingID))
	case gate.KindExpense:
		return fmt.Sprintf("Finish booking %s: send the total expenses.", esc(bookingID))
	case gate.KindPrice:
		return fmt.Sprintf("Set price for booking %s: send the amount.", esc(bookingID))
	default:
		return ""
	}
}

func stepFor(kind gate.Kind) string {
	switch kind {
	case gate.KindReason:
		return models.StepAwaitReason
	case gate.KindExpense:
		return models.StepAwaitExpenses
	case gate.KindPrice:
		return models.StepAwaitPrice
	default:
		return models.StepIdle
	}
}
