// Package workflow drives one opened booking through its status transitions.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fleetdesk/internal/backend"
	"fleetdesk/internal/domain"
	"fleetdesk/internal/events"
	"fleetdesk/internal/gate"
	"fleetdesk/internal/metrics"
	"fleetdesk/internal/models"
	"fleetdesk/internal/notify"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RefreshFunc is called after every successful mutation so the caller can
// re-read the booking and redraw its view.
type RefreshFunc func(ctx context.Context) error

type Options struct {
	Clock    gate.Clock
	Cooldown time.Duration
	Events   domain.EventPublisher
	Logger   *zerolog.Logger
}

// Session is one opened booking. Only one transition may be in flight per
// session; sessions of different bookings are independent.
type Session struct {
	backend  domain.BookingBackend
	actor    models.Actor
	notifier notify.Notifier
	refresh  RefreshFunc
	events   domain.EventPublisher
	logger   zerolog.Logger

	reason  *gate.ReasonGate
	expense *gate.ExpenseGate
	timed   *gate.TimedGate
	price   *gate.PriceGate

	mu          sync.Mutex
	booking     models.Booking
	loading     bool
	closed      bool
	active      gate.Kind
	timedTarget models.Status
	lastPayload backend.Payload
}

func NewSession(
	api domain.BookingBackend,
	actor models.Actor,
	booking models.Booking,
	notifier notify.Notifier,
	refresh RefreshFunc,
	opts Options,
) *Session {
	cooldown := opts.Cooldown
	if cooldown <= 0 {
		cooldown = models.DefaultGateCooldown * time.Second
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("booking_id", booking.BookingID).Str("admin_id", actor.ID).Logger()
	}
	if notifier == nil {
		notifier = notify.LogNotifier{Logger: &logger}
	}

	return &Session{
		backend:  api,
		actor:    actor,
		notifier: notifier,
		refresh:  refresh,
		events:   opts.Events,
		logger:   logger,
		reason:   gate.NewReasonGate(),
		expense:  gate.NewExpenseGate(),
		timed:    gate.NewTimedGate(opts.Clock, cooldown),
		price:    gate.NewPriceGate(),
		booking:  booking,
	}
}

// Booking returns a copy of the local snapshot.
func (s *Session) Booking() models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.booking
}

func (s *Session) Actor() models.Actor {
	return s.actor
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// ActiveGate returns the gate currently shown, if any.
func (s *Session) ActiveGate() (gate.Kind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.active != ""
}

// TimedTarget is the status the timed gate is asking about.
func (s *Session) TimedTarget() models.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timedTarget
}

func (s *Session) TimedGate() *gate.TimedGate { return s.timed }

// CanSetPrice reports whether the price action is offered.
func (s *Session) CanSetPrice() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.loading && !s.booking.PriceSet()
}

// LastPayload is the server answer of the last successful transition.
func (s *Session) LastPayload() backend.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPayload
}

// OnTimedReady registers a callback for the end of the timed gate cooldown.
func (s *Session) OnTimedReady(fn func()) {
	s.timed.OnReady(fn)
}

// RequestTransition opens the gate target requires. It never calls the API.
func (s *Session) RequestTransition(target models.Status) (gate.Kind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usableLocked(); err != nil {
		return "", err
	}
	if !target.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, target)
	}

	s.dismissLocked()
	switch target {
	case models.StatusCancelled:
		s.reason.Open()
		s.active = gate.KindReason
	case models.StatusFinished:
		s.expense.Open()
		s.active = gate.KindExpense
	default:
		s.timedTarget = target
		s.timed.Open(TimedPrompt(target))
		s.active = gate.KindTimed
	}
	return s.active, nil
}

// OpenPriceGate opens the price gate while the booking has no price.
func (s *Session) OpenPriceGate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usableLocked(); err != nil {
		return err
	}
	s.dismissLocked()
	if err := s.price.OpenFor(s.booking.Price); err != nil {
		return err
	}
	s.active = gate.KindPrice
	return nil
}

// Dismiss closes whichever gate is open and discards its input.
func (s *Session) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dismissLocked()
}

// Close tears the session down. Pending timers never fire after it.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dismissLocked()
	s.timed.Close()
	s.closed = true
}

// SubmitCancellation authorizes the Cancelled transition with reason.
func (s *Session) SubmitCancellation(ctx context.Context, reason string) error {
	s.mu.Lock()
	if err := s.expectLocked(gate.KindReason); err != nil {
		s.mu.Unlock()
		return err
	}
	_ = s.reason.SetInput(reason)
	reason, err := s.reason.Submit()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	booking := s.startLocked()
	s.mu.Unlock()

	s.run(ctx, models.StatusCancelled, booking, func(ctx context.Context) (backend.Payload, error) {
		return s.backend.SetCancelled(ctx, booking.BookingID, models.NewCancelRequest(booking, s.actor, reason))
	})
	return nil
}

// SubmitExpenses authorizes the Finished transition with the total expenses.
func (s *Session) SubmitExpenses(ctx context.Context, raw string) error {
	s.mu.Lock()
	if err := s.expectLocked(gate.KindExpense); err != nil {
		s.mu.Unlock()
		return err
	}
	_ = s.expense.SetInput(raw)
	figure, err := s.expense.Submit()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	expenses, err := decimal.NewFromString(figure)
	if err != nil {
		s.mu.Unlock()
		return gate.ErrExpensesInvalid
	}
	booking := s.startLocked()
	s.mu.Unlock()

	s.run(ctx, models.StatusFinished, booking, func(ctx context.Context) (backend.Payload, error) {
		return s.backend.SetFinished(ctx, booking.BookingID, models.NewFinishRequest(booking, s.actor, expenses.InexactFloat64()))
	})
	return nil
}

// ConfirmTimed authorizes the Pending or Confirmed transition once the
// cooldown is over.
func (s *Session) ConfirmTimed(ctx context.Context) error {
	s.mu.Lock()
	if err := s.expectLocked(gate.KindTimed); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.timed.Authorize(); err != nil {
		s.mu.Unlock()
		return err
	}
	target := s.timedTarget
	booking := s.startLocked()
	s.mu.Unlock()

	if target == models.StatusConfirmed {
		s.run(ctx, target, booking, func(ctx context.Context) (backend.Payload, error) {
			return s.confirmBooking(ctx, booking)
		})
		return nil
	}

	s.run(ctx, target, booking, func(ctx context.Context) (backend.Payload, error) {
		return s.backend.SetPending(ctx, booking.BookingID, models.NewPendingRequest(booking, s.actor))
	})
	return nil
}

// SubmitPrice sends the price offer to the client.
func (s *Session) SubmitPrice(ctx context.Context, raw string) error {
	s.mu.Lock()
	if err := s.expectLocked(gate.KindPrice); err != nil {
		s.mu.Unlock()
		return err
	}
	_ = s.price.SetInput(raw)
	price, err := s.price.Submit(s.booking.Price)
	if err != nil {
		if errors.Is(err, gate.ErrPriceAlreadySet) {
			s.active = ""
		}
		s.mu.Unlock()
		return err
	}
	booking := s.startLocked()
	s.mu.Unlock()

	value := price.InexactFloat64()
	_, err = s.inFlight(func() (backend.Payload, error) {
		return s.backend.NotifyPrice(ctx, models.NewPriceNotifyRequest(booking, s.actor, value))
	})
	if err != nil {
		s.logger.Warn().Err(err).Float64("price", value).Msg("price notification failed")
		metrics.IncTransition("price", "failure")
		s.notifier.Notify(ctx, notify.Error(backend.MessageOf(err, msgPriceNotifyFailed)))
		return nil
	}

	metrics.IncTransition("price", "success")
	s.publish(events.EventPriceNotified, booking, "price", "")
	s.notifier.Notify(ctx, notify.Success(msgPriceNotified))
	s.reload(ctx)
	s.callRefresh(ctx)
	return nil
}

// Reload replaces the local snapshot with the server copy.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	id := s.booking.BookingID
	s.mu.Unlock()

	booking, err := s.backend.FetchBooking(ctx, id, s.actor.RoleOrDefault())
	if err != nil {
		return fmt.Errorf("reload booking %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if booking.BookingID != id || (s.booking.CreatedAt != "" && booking.CreatedAt != s.booking.CreatedAt) {
		return fmt.Errorf("reload booking %s: %w", id, ErrIdentityChanged)
	}
	s.booking = *booking
	return nil
}

func (s *Session) usableLocked() error {
	if s.closed {
		return ErrClosed
	}
	if s.loading {
		return ErrBusy
	}
	return nil
}

func (s *Session) expectLocked(kind gate.Kind) error {
	if err := s.usableLocked(); err != nil {
		return err
	}
	if s.active != kind {
		return gate.ErrNotOpen
	}
	return nil
}

// startLocked marks the session busy and returns the snapshot the request is built from.
func (s *Session) startLocked() models.Booking {
	s.active = ""
	s.loading = true
	return s.booking
}

func (s *Session) dismissLocked() {
	s.reason.Dismiss()
	s.expense.Dismiss()
	s.price.Dismiss()
	s.timed.Cancel()
	s.active = ""
	s.timedTarget = ""
}

func (s *Session) inFlight(call func() (backend.Payload, error)) (backend.Payload, error) {
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()
	return call()
}

// run performs one authorized transition and reports exactly one toast.
func (s *Session) run(ctx context.Context, target models.Status, booking models.Booking, call func(ctx context.Context) (backend.Payload, error)) {
	payload, err := s.inFlight(func() (backend.Payload, error) {
		payload, err := call(ctx)
		if err != nil {
			return nil, err
		}
		// отмена: сразу подтягиваем cancel_date/cancel_fee с сервера
		if target == models.StatusCancelled {
			s.reload(ctx)
		}
		return payload, nil
	})

	if err != nil {
		s.logger.Warn().Err(err).Str("target", string(target)).Msg("booking transition failed")
		metrics.IncTransition(string(target), "failure")
		msg := backend.MessageOf(err, failureMessages[target])
		s.publish(events.EventTransitionFailed, booking, string(target), msg)
		s.notifier.Notify(ctx, notify.Error(msg))
		return
	}

	s.mu.Lock()
	s.lastPayload = payload
	s.mu.Unlock()

	s.logger.Info().Str("target", string(target)).Msg("booking transition succeeded")
	metrics.IncTransition(string(target), "success")
	s.publish(events.EventTransitionSucceeded, booking, string(target), "")
	s.notifier.Notify(ctx, notify.Success(successMessages[target]))
	s.callRefresh(ctx)
}

func (s *Session) reload(ctx context.Context) {
	if err := s.Reload(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to re-fetch booking details")
	}
}

func (s *Session) callRefresh(ctx context.Context) {
	if s.refresh == nil {
		return
	}
	if err := s.refresh(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("refresh after transition failed")
	}
}

func (s *Session) publish(eventType string, booking models.Booking, target, message string) {
	if s.events == nil {
		return
	}
	err := s.events.PublishJSON(eventType, events.TransitionPayload{
		BookingID: booking.BookingID,
		UserID:    booking.UserID,
		Target:    target,
		Message:   message,
		ActorID:   s.actor.ID,
		ActorRole: s.actor.Role,
		At:        time.Now(),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}
