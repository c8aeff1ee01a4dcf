package events

import "github.com/rs/zerolog"

// SubscribeAudit writes every booking event to the audit log.
func SubscribeAudit(bus *EventBus, logger *zerolog.Logger) {
	if bus == nil || logger == nil {
		return
	}

	handler := func(ev *Event) error {
		var payload TransitionPayload
		if err := ev.Decode(&payload); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}

		entry := logger.Info()
		switch ev.Type {
		case EventTransitionFailed:
			entry = logger.Warn()
		case EventInvoiceOrphaned:
			// Инвойс ушел клиенту, а статус не сменился: нужна ручная проверка
			entry = logger.Error()
		}

		entry.
			Str("event", ev.Type).
			Str("booking_id", payload.BookingID).
			Str("user_id", payload.UserID).
			Str("target", payload.Target).
			Str("actor_id", payload.ActorID).
			Str("actor_role", payload.ActorRole).
			Str("message", payload.Message).
			Time("at", payload.At).
			Msg("audit")
		return nil
	}

	bus.Subscribe(EventTransitionSucceeded, handler)
	bus.Subscribe(EventTransitionFailed, handler)
	bus.Subscribe(EventPriceNotified, handler)
	bus.Subscribe(EventInvoiceOrphaned, handler)
}
