package workflow

import "fleetdesk/internal/models"

const (
	promptPending   = "Are you sure you want to change the status to pending?"
	promptConfirmed = "Are you sure you want to confirm this booking?"

	msgPriceNotified     = "Price notified successfully."
	msgPriceNotifyFailed = "Failed to notify price."
)

var successMessages = map[models.Status]string{
	models.StatusPending:   "Booking status updated to pending!",
	models.StatusConfirmed: "Booking confirmed and invoice sent!",
	models.StatusCancelled: "Booking cancelled!",
	models.StatusFinished:  "Booking marked as finished!",
}

// failureMessages are used when the server gives no message of its own.
var failureMessages = map[models.Status]string{
	models.StatusPending:   "Failed to set booking to pending.",
	models.StatusConfirmed: "Failed to confirm booking and send invoice. Please try again.",
	models.StatusCancelled: "Failed to cancel booking. Please try again.",
	models.StatusFinished:  "Failed to finish booking.",
}

// TimedPrompt returns the question shown by the timed gate for target.
func TimedPrompt(target models.Status) string {
	if target == models.StatusConfirmed {
		return promptConfirmed
	}
	return promptPending
}
