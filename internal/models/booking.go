package models

import "strings"

type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusCancelled Status = "Cancelled"
	StatusFinished  Status = "Finished"
)

// Statuses lists every booking status in the order the console offers them.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusFinished}

// ParseStatus matches s case-insensitively and returns the canonical status.
func ParseStatus(s string) (Status, error) {
	trimmed := strings.TrimSpace(s)
	for _, st := range Statuses {
		if strings.EqualFold(string(st), trimmed) {
			return st, nil
		}
	}
	return "", &UnknownStatusError{Value: s}
}

func (s Status) IsValid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

type UnknownStatusError struct {
	Value string
}

func (e *UnknownStatusError) Error() string {
	return "unknown booking status: " + e.Value
}

type RentalType string

const (
	RentalPersonal RentalType = "personal"
	RentalCompany  RentalType = "company"
)

// Booking is the client-side copy of a rental reservation. The server owns it;
// fleetdesk replaces the whole value on every re-fetch.
type Booking struct {
	BookingID string `json:"booking_id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Officer   string `json:"officer"`
	CarID     string `json:"car_id"`

	Status        Status  `json:"status"`
	Price         float64 `json:"price"`
	PriceAccepted bool    `json:"price_accepted"`
	Expenses      float64 `json:"expenses"`

	CancelReason string  `json:"cancel_reason"`
	CancelFee    float64 `json:"cancel_fee"`
	CancelDate   string  `json:"cancel_date"`

	PickupLocation string `json:"pickup_location"`
	PickupDate     string `json:"pickup_date"`
	PickupTime     string `json:"pickup_time"`
	ReturnLocation string `json:"return_location"`
	ReturnDate     string `json:"return_date"`
	ReturnTime     string `json:"return_time"`

	RentalType        RentalType `json:"rental_type"`
	AdditionalRequest string     `json:"additionalrequest"`

	CreatedAt string `json:"created_at"`
}

// PriceSet reports whether a price has already been quoted for the booking.
func (b *Booking) PriceSet() bool {
	return b.Price != 0
}
