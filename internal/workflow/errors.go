package workflow

import "errors"

var (
	// ErrBusy is returned while a transition of the same booking is in flight.
	ErrBusy          = errors.New("another transition is in progress")
	ErrUnknownStatus = errors.New("unknown booking status")
	ErrClosed        = errors.New("session is closed")

	// ErrIdentityChanged rejects a re-fetch that returned a different booking.
	ErrIdentityChanged = errors.New("re-fetched booking has a different identity")
)
