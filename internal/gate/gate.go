// Package gate implements the confirmation steps a booking transition has to
// pass before any request reaches the rental API.
package gate

import (
	"errors"
	"time"
)

// Kind identifies which gate a transition opens.
type Kind string

const (
	KindReason  Kind = "reason"
	KindTimed   Kind = "timed"
	KindExpense Kind = "expense"
	KindPrice   Kind = "price"
)

// State is the gate state: one of Closed, Open or Cooldown.
type State interface {
	isState()
}

// Closed means the gate is not shown.
type Closed struct{}

// Open means the gate accepts input. Err is the inline validation error of
// the last submission, cleared by the next edit.
type Open struct {
	Input string
	Err   error
}

// Cooldown means the gate is shown but its confirm control is still disabled.
type Cooldown struct {
	Remaining time.Duration
}

func (Closed) isState()   {}
func (Open) isState()     {}
func (Cooldown) isState() {}

// IsOpen reports whether the gate is shown, cooling down or not.
func IsOpen(s State) bool {
	switch s.(type) {
	case Open, Cooldown:
		return true
	default:
		return false
	}
}

var (
	ErrNotOpen         = errors.New("gate is not open")
	ErrCoolingDown     = errors.New("confirmation is not available yet")
	ErrPriceAlreadySet = errors.New("price is already set")
)

// ValidationError is an inline input error. It is shown next to the input
// and never sent anywhere.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrReasonRequired   = &ValidationError{Field: "cancel_reason", Message: "Please provide a cancellation reason"}
	ErrExpensesRequired = &ValidationError{Field: "expenses", Message: "Please provide total expenses"}
	ErrExpensesInvalid  = &ValidationError{Field: "expenses", Message: "Total expenses must be a number"}
	ErrInvalidPrice     = &ValidationError{Field: "price", Message: "Please provide a valid price greater than zero"}
)

// IsValidation reports whether err is an inline validation error.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// Clock abstracts timers so cooldowns can be driven manually in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled callback that can be stopped.
type Timer interface {
	Stop() bool
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
