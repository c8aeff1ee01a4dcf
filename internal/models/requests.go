package models

// Audit carries who performs an action and whom it affects. Every mutating
// request embeds it; the server uses the email for its own customer notification.
type Audit struct {
	AdminID     string `json:"admin_id" validate:"required"`
	AdminName   string `json:"admin_name"`
	AdminRole   string `json:"admin_role" validate:"required"`
	UserID      string `json:"user_id" validate:"required"`
	ClientEmail string `json:"clientEmail"`
}

func NewAudit(actor Actor, userID, email string) Audit {
	return Audit{
		AdminID:     actor.ID,
		AdminName:   actor.Name,
		AdminRole:   actor.Role,
		UserID:      userID,
		ClientEmail: email,
	}
}

// PendingRequest resends the booking snapshot alongside the audit fields.
type PendingRequest struct {
	BookingID         string     `json:"booking_id" validate:"required"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Officer           string     `json:"officer"`
	CarID             string     `json:"car_id"`
	Status            Status     `json:"status"`
	Price             float64    `json:"price"`
	PriceAccepted     bool       `json:"price_accepted"`
	PickupLocation    string     `json:"pickup_location"`
	PickupDate        string     `json:"pickup_date"`
	PickupTime        string     `json:"pickup_time"`
	ReturnLocation    string     `json:"return_location"`
	ReturnDate        string     `json:"return_date"`
	ReturnTime        string     `json:"return_time"`
	RentalType        RentalType `json:"rental_type"`
	AdditionalRequest string     `json:"additionalrequest"`
	CreatedAt         string     `json:"created_at"`
	Audit
}

func NewPendingRequest(b Booking, actor Actor) PendingRequest {
	return PendingRequest{
		BookingID:         b.BookingID,
		Name:              b.Name,
		Email:             b.Email,
		Officer:           b.Officer,
		CarID:             b.CarID,
		Status:            b.Status,
		Price:             b.Price,
		PriceAccepted:     b.PriceAccepted,
		PickupLocation:    b.PickupLocation,
		PickupDate:        b.PickupDate,
		PickupTime:        b.PickupTime,
		ReturnLocation:    b.ReturnLocation,
		ReturnDate:        b.ReturnDate,
		ReturnTime:        b.ReturnTime,
		RentalType:        b.RentalType,
		AdditionalRequest: b.AdditionalRequest,
		CreatedAt:         b.CreatedAt,
		Audit:             NewAudit(actor, b.UserID, b.Email),
	}
}

func (r PendingRequest) Validate() error { return validateStruct(r) }

type ConfirmRequest struct {
	Audit
}

func NewConfirmRequest(b Booking, actor Actor) ConfirmRequest {
	return ConfirmRequest{Audit: NewAudit(actor, b.UserID, b.Email)}
}

func (r ConfirmRequest) Validate() error { return validateStruct(r) }

type CancelRequest struct {
	CancelReason string `json:"cancel_reason" validate:"required"`
	Audit
}

func NewCancelRequest(b Booking, actor Actor, reason string) CancelRequest {
	return CancelRequest{CancelReason: reason, Audit: NewAudit(actor, b.UserID, b.Email)}
}

func (r CancelRequest) Validate() error { return validateStruct(r) }

type FinishRequest struct {
	Expenses float64 `json:"expenses"`
	Audit
}

func NewFinishRequest(b Booking, actor Actor, expenses float64) FinishRequest {
	return FinishRequest{Expenses: expenses, Audit: NewAudit(actor, b.UserID, b.Email)}
}

func (r FinishRequest) Validate() error { return validateStruct(r) }

// InvoiceRequest is the payload of the generate-and-send-invoice call made
// before a booking is confirmed.
type InvoiceRequest struct {
	BookingID  string     `json:"bookingId" validate:"required"`
	Officer    string     `json:"officer"`
	CreatedAt  string     `json:"createdAt"`
	PickupDate string     `json:"pickupDate"`
	ReturnDate string     `json:"returnDate"`
	RentalType RentalType `json:"rentalType"`
	Name       string     `json:"name"`
	Price      float64    `json:"price"`
	Role       string     `json:"role"`
	CarID      string     `json:"carId"`
	Driver     string     `json:"driver"`
	Audit
}

func NewInvoiceRequest(b Booking, actor Actor) InvoiceRequest {
	return InvoiceRequest{
		BookingID:  b.BookingID,
		Officer:    b.Officer,
		CreatedAt:  b.CreatedAt,
		PickupDate: b.PickupDate,
		ReturnDate: b.ReturnDate,
		RentalType: b.RentalType,
		Name:       b.Name,
		Price:      b.Price,
		Role:       actor.Role,
		CarID:      b.CarID,
		Driver:     b.AdditionalRequest,
		Audit:      NewAudit(actor, b.UserID, b.Email),
	}
}

func (r InvoiceRequest) Validate() error { return validateStruct(r) }

type PriceNotifyRequest struct {
	BookingID string  `json:"booking_id" validate:"required"`
	Price     float64 `json:"price" validate:"gt=0"`
	Audit
}

func NewPriceNotifyRequest(b Booking, actor Actor, price float64) PriceNotifyRequest {
	return PriceNotifyRequest{BookingID: b.BookingID, Price: price, Audit: NewAudit(actor, b.UserID, b.Email)}
}

func (r PriceNotifyRequest) Validate() error { return validateStruct(r) }
