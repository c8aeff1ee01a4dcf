package domain

import (
	"context"
	"time"

	"fleetdesk/internal/backend"
	"fleetdesk/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BookingBackend is the part of the rental API the transition workflow drives.
type BookingBackend interface {
	FetchBooking(ctx context.Context, bookingID, role string) (*models.Booking, error)
	SetPending(ctx context.Context, bookingID string, req models.PendingRequest) (backend.Payload, error)
	SetConfirmed(ctx context.Context, bookingID string, req models.ConfirmRequest) (backend.Payload, error)
	SetCancelled(ctx context.Context, bookingID string, req models.CancelRequest) (backend.Payload, error)
	SetFinished(ctx context.Context, bookingID string, req models.FinishRequest) (backend.Payload, error)
	GenerateInvoice(ctx context.Context, req models.InvoiceRequest) (backend.Payload, error)
	NotifyPrice(ctx context.Context, req models.PriceNotifyRequest) (backend.Payload, error)
}

// ReferenceBackend serves read-only data shown next to a booking.
type ReferenceBackend interface {
	ListCars(ctx context.Context, role string) (map[string]models.Car, error)
	FetchReceipt(ctx context.Context, bookingID, role string) (*backend.Receipt, error)
}

type ChatStateRepository interface {
	GetState(ctx context.Context, chatID int64) (*models.ChatState, error)
	SetState(ctx context.Context, state *models.ChatState) error
	ClearState(ctx context.Context, chatID int64) error
	CheckRateLimit(ctx context.Context, chatID int64, limit int, window time.Duration) (bool, error)
}

type ChatStateManager interface {
	GetChatState(ctx context.Context, chatID int64) (*models.ChatState, error)
	OpenCard(ctx context.Context, chatID int64, bookingID string, messageID int) error
	SetStep(ctx context.Context, chatID int64, step string) error
	ClearChatState(ctx context.Context, chatID int64) error
	CheckRateLimit(ctx context.Context, chatID int64, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

type TelegramService interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
	SendMarkdown(chatID int64, text string) (tgbotapi.Message, error)
	SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	EditMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	SendPhoto(chatID int64, name string, data []byte, caption string) (tgbotapi.Message, error)
	AnswerCallback(callbackID string, text string) error
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}
