package workflow

import (
	"context"
	"fmt"

	"fleetdesk/internal/backend"
	"fleetdesk/internal/events"
	"fleetdesk/internal/models"
)

// confirmBooking sends the invoice and flips the status only after the API
// accepted it. A failed invoice stops the sequence before the second call.
func (s *Session) confirmBooking(ctx context.Context, booking models.Booking) (backend.Payload, error) {
	invoice, err := s.backend.GenerateInvoice(ctx, models.NewInvoiceRequest(booking, s.actor))
	if err != nil {
		return nil, fmt.Errorf("generate invoice: %w", err)
	}

	confirmed, err := s.backend.SetConfirmed(ctx, booking.BookingID, models.NewConfirmRequest(booking, s.actor))
	if err != nil {
		// счёт уже ушёл клиенту, статус не сменился; компенсации нет
		s.logger.Warn().Err(err).Str("client_email", booking.Email).Msg("invoice sent but booking is not confirmed")
		s.publish(events.EventInvoiceOrphaned, booking, string(models.StatusConfirmed), backend.MessageOf(err, ""))
		return nil, fmt.Errorf("confirm booking: %w", err)
	}

	return invoice.Merge(confirmed), nil
}
