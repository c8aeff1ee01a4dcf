package bot

import (
	"errors"

	"fleetdesk/internal/backend"
	"fleetdesk/internal/gate"
	"fleetdesk/internal/workflow"
)

const (
	msgAccessDenied   = "⛔ Access denied. This bot is for back-office staff only."
	msgPleaseWait     = "Please wait..."
	msgNoSession      = "No booking is open. Use /booking <id> first."
	msgSessionExpired = "This booking card has expired. Open it again with /booking <id>."
	msgNoReceipt      = "No receipt uploaded for this booking."
	msgPriceSet       = "The price for this booking is already set."
	msgUnknownStatus  = "Unknown booking status."
)

func (b *Bot) getErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var vErr *gate.ValidationError
	if errors.As(err, &vErr) {
		return "⚠️ " + vErr.Message
	}

	switch {
	case errors.Is(err, workflow.ErrBusy), errors.Is(err, gate.ErrCoolingDown):
		return msgPleaseWait
	case errors.Is(err, gate.ErrPriceAlreadySet):
		return msgPriceSet
	case errors.Is(err, workflow.ErrClosed), errors.Is(err, gate.ErrNotOpen):
		return msgSessionExpired
	case errors.Is(err, backend.ErrNoReceipt):
		return msgNoReceipt
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return "❌ " + apiErr.Message
	}

	// Default error message
	return "❌ Something went wrong while talking to the rental API. Please try again later."
}
