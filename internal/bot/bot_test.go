package bot

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"fleetdesk/internal/backend"
	"fleetdesk/internal/config"
	"fleetdesk/internal/domain"
	"fleetdesk/internal/gate"
	"fleetdesk/internal/gate/gatetest"
	"fleetdesk/internal/models"
	"fleetdesk/internal/repository"
	"fleetdesk/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	chatID    int64
	messageID int
	text      string
	keyboard  *tgbotapi.InlineKeyboardMarkup
}

type mockTelegramService struct {
	domain.TelegramService

	mu          sync.Mutex
	nextID      int
	updatesChan chan tgbotapi.Update
	sent        []sentMessage
	edits       []sentMessage
	callbacks   []string
	photos      []string
}

func (m *mockTelegramService) record(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) tgbotapi.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.sent = append(m.sent, sentMessage{chatID: chatID, messageID: m.nextID, text: text, keyboard: keyboard})
	return tgbotapi.Message{MessageID: m.nextID, Chat: &tgbotapi.Chat{ID: chatID}}
}

func (m *mockTelegramService) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	return m.record(chatID, text, nil), nil
}

func (m *mockTelegramService) SendMarkdown(chatID int64, text string) (tgbotapi.Message, error) {
	return m.record(chatID, text, nil), nil
}

func (m *mockTelegramService) SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	return m.record(chatID, text, &keyboard), nil
}

func (m *mockTelegramService) EditMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, sentMessage{chatID: chatID, messageID: messageID, text: text, keyboard: keyboard})
	return tgbotapi.Message{MessageID: messageID}, nil
}

func (m *mockTelegramService) SendPhoto(chatID int64, name string, data []byte, caption string) (tgbotapi.Message, error) {
	m.mu.Lock()
	m.photos = append(m.photos, name)
	m.mu.Unlock()
	return m.record(chatID, caption, nil), nil
}

func (m *mockTelegramService) AnswerCallback(callbackID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, text)
	return nil
}

func (m *mockTelegramService) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updatesChan
}

func (m *mockTelegramService) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "fleetdesk_bot"}
}

func (m *mockTelegramService) StopReceivingUpdates() {}

func (m *mockTelegramService) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.text)
	}
	return out
}

func (m *mockTelegramService) lastSent() sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

func (m *mockTelegramService) lastEditOf(messageID int) (sentMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.edits) - 1; i >= 0; i-- {
		if m.edits[i].messageID == messageID {
			return m.edits[i], true
		}
	}
	return sentMessage{}, false
}

func (m *mockTelegramService) lastCallback() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.callbacks) == 0 {
		return ""
	}
	return m.callbacks[len(m.callbacks)-1]
}

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) FetchBooking(ctx context.Context, bookingID, role string) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, role)
	if b := args.Get(0); b != nil {
		return b.(*models.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) SetPending(ctx context.Context, bookingID string, req models.PendingRequest) (backend.Payload, error) {
	return payloadResult(m.Called(ctx, bookingID, req))
}

func (m *mockBackend) SetConfirmed(ctx context.Context, bookingID string, req models.ConfirmRequest) (backend.Payload, error) {
	return payloadResult(m.Called(ctx, bookingID, req))
}

func (m *mockBackend) SetCancelled(ctx context.Context, bookingID string, req models.CancelRequest) (backend.Payload, error) {
	return payloadResult(m.Called(ctx, bookingID, req))
}

func (m *mockBackend) SetFinished(ctx context.Context, bookingID string, req models.FinishRequest) (backend.Payload, error) {
	return payloadResult(m.Called(ctx, bookingID, req))
}

func (m *mockBackend) GenerateInvoice(ctx context.Context, req models.InvoiceRequest) (backend.Payload, error) {
	return payloadResult(m.Called(ctx, req))
}

func (m *mockBackend) NotifyPrice(ctx context.Context, req models.PriceNotifyRequest) (backend.Payload, error) {
	return payloadResult(m.Called(ctx, req))
}

func (m *mockBackend) ListCars(ctx context.Context, role string) (map[string]models.Car, error) {
	args := m.Called(ctx, role)
	if cars := args.Get(0); cars != nil {
		return cars.(map[string]models.Car), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) FetchReceipt(ctx context.Context, bookingID, role string) (*backend.Receipt, error) {
	args := m.Called(ctx, bookingID, role)
	if r := args.Get(0); r != nil {
		return r.(*backend.Receipt), args.Error(1)
	}
	return nil, args.Error(1)
}

func payloadResult(args mock.Arguments) (backend.Payload, error) {
	if p := args.Get(0); p != nil {
		return p.(backend.Payload), args.Error(1)
	}
	return nil, args.Error(1)
}

const adminChat int64 = 42

func testBooking(status models.Status) *models.Booking {
	return &models.Booking{
		BookingID:  "B100",
		UserID:     "U7",
		Name:       "Dana",
		Email:      "dana@example.com",
		CarID:      "C3",
		Status:     status,
		PickupDate: "2026-11-01",
		ReturnDate: "2026-11-05",
		RentalType: models.RentalPersonal,
	}
}

type botFixture struct {
	bot     *Bot
	tg      *mockTelegramService
	api     *mockBackend
	state   *service.StateService
	clock   *gatetest.ManualClock
	metrics *Metrics
}

func newBotFixture(t *testing.T, rateLimit int) *botFixture {
	t.Helper()

	logger := zerolog.New(io.Discard)
	cfg := &config.Config{
		Telegram: config.TelegramConfig{BotToken: "test"},
		Admins:   []config.AdminConfig{{TelegramID: adminChat, AdminID: "A1", Name: "Kim", Role: "admin"}},
		Gates:    config.GatesConfig{Cooldown: 3 * time.Second},
		Bot:      config.BotConfig{RateLimitMessages: rateLimit, RateLimitWindow: 60},
	}

	f := &botFixture{
		tg:      &mockTelegramService{updatesChan: make(chan tgbotapi.Update, 1)},
		api:     new(mockBackend),
		state:   service.NewStateService(repository.NewMemoryChatStateRepository(time.Hour), &logger),
		clock:   gatetest.NewManualClock(),
		metrics: NewMetrics(prometheus.NewRegistry()),
	}

	b, err := NewBot(f.tg, cfg, f.state, f.api, f.api, nil, f.metrics, &logger)
	require.NoError(t, err)
	b.UseClock(f.clock)
	f.bot = b

	t.Cleanup(func() {
		b.closeAllSessions()
		f.api.AssertExpectations(t)
	})
	return f
}

func textUpdate(fromID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: fromID, UserName: "kim"},
			Chat: &tgbotapi.Chat{ID: fromID},
			Text: text,
		},
	}
}

func callbackUpdate(fromID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb-" + data,
			From:    &tgbotapi.User{ID: fromID},
			Message: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: fromID}},
			Data:    data,
		},
	}
}

func (f *botFixture) send(update tgbotapi.Update) {
	f.bot.processUpdate(context.Background(), update)
}

func (f *botFixture) openCard(t *testing.T, status models.Status) int {
	t.Helper()
	f.api.On("FetchBooking", mock.Anything, "B100", "admin").Return(testBooking(status), nil).Once()
	f.api.On("ListCars", mock.Anything, "admin").Return(map[string]models.Car{
		"C3": {ID: "C3", Type: "Sedan", PlateNum: "KL-204"},
	}, nil).Once()

	f.send(textUpdate(adminChat, "/booking B100"))

	card := f.tg.lastSent()
	require.NotNil(t, card.keyboard)
	require.Contains(t, card.text, "*Booking B100*")
	return card.messageID
}

func TestProcessUpdate_AccessDenied(t *testing.T) {
	f := newBotFixture(t, 100)

	f.send(textUpdate(7, "/booking B100"))
	f.send(callbackUpdate(7, cbStatusPrefix+string(models.StatusCancelled)))

	assert.Equal(t, []string{msgAccessDenied}, f.tg.texts())
	assert.Equal(t, msgAccessDenied, f.tg.lastCallback())
	f.api.AssertNotCalled(t, "FetchBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessUpdate_RateLimited(t *testing.T) {
	f := newBotFixture(t, 2)

	for i := 0; i < 3; i++ {
		f.send(textUpdate(adminChat, "/help"))
	}

	texts := f.tg.texts()
	require.Len(t, texts, 3)
	assert.Contains(t, texts[0], "/booking <id>")
	assert.Equal(t, "⚠️ Too many requests. Please wait a moment.", texts[2])
}

func TestOpenBooking_ShowsCard(t *testing.T) {
	f := newBotFixture(t, 100)

	cardID := f.openCard(t, models.StatusPending)

	card := f.tg.lastSent()
	assert.Contains(t, card.text, "Car: Sedan - KL-204")
	assert.Contains(t, card.text, "Price: not set")
	assert.Equal(t, "• Pending", card.keyboard.InlineKeyboard[0][0].Text)
	assert.Equal(t, "💰 Set price", card.keyboard.InlineKeyboard[2][0].Text)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ActiveSessions))

	state, err := f.state.GetChatState(context.Background(), adminChat)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "B100", state.BookingID)
	assert.Equal(t, cardID, state.CardMessageID)
	assert.Equal(t, models.StepIdle, state.Step)
}

func TestOpenBooking_BackendError(t *testing.T) {
	f := newBotFixture(t, 100)
	f.api.On("FetchBooking", mock.Anything, "B404", "admin").
		Return(nil, &backend.APIError{Endpoint: "booking", StatusCode: 404, Message: "Booking not found"}).Once()

	f.send(textUpdate(adminChat, "/booking B404"))

	assert.Equal(t, []string{"❌ Booking not found"}, f.tg.texts())
	assert.Nil(t, f.bot.getSession(adminChat))
}

func TestCancelFlow(t *testing.T) {
	f := newBotFixture(t, 100)
	f.openCard(t, models.StatusPending)

	f.send(callbackUpdate(adminChat, cbStatusPrefix+string(models.StatusCancelled)))

	prompt := f.tg.lastSent()
	assert.Contains(t, prompt.text, "cancellation reason")
	state, _ := f.state.GetChatState(context.Background(), adminChat)
	require.NotNil(t, state)
	assert.Equal(t, models.StepAwaitReason, state.Step)

	// Пустая причина не уходит на сервер
	f.send(textUpdate(adminChat, "   "))
	assert.Equal(t, "⚠️ "+gate.ErrReasonRequired.Message, f.tg.lastSent().text)
	f.api.AssertNotCalled(t, "SetCancelled", mock.Anything, mock.Anything, mock.Anything)

	f.api.On("SetCancelled", mock.Anything, "B100", mock.MatchedBy(func(req models.CancelRequest) bool {
		return req.CancelReason == "client request" && req.AdminID == "A1"
	})).Return(backend.Payload{"success": true}, nil).Once()
	f.api.On("FetchBooking", mock.Anything, "B100", "admin").Return(testBooking(models.StatusCancelled), nil)

	f.send(textUpdate(adminChat, "client request"))

	assert.Contains(t, f.tg.texts(), "✅ Booking cancelled!")
	edit, ok := f.tg.lastEditOf(prompt.messageID)
	require.True(t, ok)
	assert.Nil(t, edit.keyboard)

	state, _ = f.state.GetChatState(context.Background(), adminChat)
	require.NotNil(t, state)
	assert.Equal(t, models.StepIdle, state.Step)
	assert.Equal(t, models.StatusCancelled, f.bot.getSession(adminChat).session.Booking().Status)
}

func TestTimedConfirmFlow(t *testing.T) {
	f := newBotFixture(t, 100)
	cardID := f.openCard(t, models.StatusPending)

	f.send(callbackUpdate(adminChat, cbStatusPrefix+string(models.StatusConfirmed)))

	prompt := f.tg.lastSent()
	require.NotNil(t, prompt.keyboard)
	assert.Equal(t, "Are you sure you want to confirm this booking?", prompt.text)
	assert.Equal(t, gate.LabelWait, prompt.keyboard.InlineKeyboard[0][0].Text)

	// Во время ожидания подтверждение не проходит
	f.send(callbackUpdate(adminChat, cbGateConfirm))
	assert.Equal(t, msgPleaseWait, f.tg.lastCallback())
	f.api.AssertNotCalled(t, "GenerateInvoice", mock.Anything, mock.Anything)

	f.clock.Advance(3 * time.Second)

	edit, ok := f.tg.lastEditOf(prompt.messageID)
	require.True(t, ok)
	require.NotNil(t, edit.keyboard)
	assert.Equal(t, gate.LabelConfirm, edit.keyboard.InlineKeyboard[0][0].Text)

	f.api.On("GenerateInvoice", mock.Anything, mock.Anything).Return(backend.Payload{"invoice_id": "INV-1"}, nil).Once()
	f.api.On("SetConfirmed", mock.Anything, "B100", mock.Anything).Return(backend.Payload{"success": true}, nil).Once()
	f.api.On("FetchBooking", mock.Anything, "B100", "admin").Return(testBooking(models.StatusConfirmed), nil)

	f.send(callbackUpdate(adminChat, cbGateConfirm))

	assert.Contains(t, f.tg.texts(), "✅ Booking confirmed and invoice sent!")
	card, ok := f.tg.lastEditOf(cardID)
	require.True(t, ok)
	assert.Contains(t, card.text, "Status: *Confirmed*")
	_, open := f.bot.getSession(adminChat).session.ActiveGate()
	assert.False(t, open)
	edit, ok = f.tg.lastEditOf(prompt.messageID)
	require.True(t, ok)
	assert.Equal(t, "Confirmed: status change to *Confirmed*.", edit.text)
	assert.Nil(t, edit.keyboard)
}

func TestStatusButton_UnknownStatus(t *testing.T) {
	f := newBotFixture(t, 100)
	f.openCard(t, models.StatusPending)

	f.send(callbackUpdate(adminChat, cbStatusPrefix+"Archived"))

	assert.Equal(t, msgUnknownStatus, f.tg.lastCallback())
	_, open := f.bot.getSession(adminChat).session.ActiveGate()
	assert.False(t, open)

	// Регистр в данных кнопки не важен
	f.send(callbackUpdate(adminChat, cbStatusPrefix+"cancelled"))
	kind, open := f.bot.getSession(adminChat).session.ActiveGate()
	assert.True(t, open)
	assert.Equal(t, gate.KindReason, kind)
}

func TestTimedReady_SkippedAfterCancel(t *testing.T) {
	f := newBotFixture(t, 100)
	f.openCard(t, models.StatusConfirmed)

	f.send(callbackUpdate(adminChat, cbStatusPrefix+string(models.StatusPending)))
	cs := f.bot.getSession(adminChat)
	prompt := f.tg.lastSent()
	cs.session.Dismiss()

	f.bot.onTimedReady(cs)

	_, ok := f.tg.lastEditOf(prompt.messageID)
	assert.False(t, ok)
}

func TestGateCancel_StopsCooldown(t *testing.T) {
	f := newBotFixture(t, 100)
	f.openCard(t, models.StatusConfirmed)

	f.send(callbackUpdate(adminChat, cbStatusPrefix+string(models.StatusPending)))
	prompt := f.tg.lastSent()
	require.Equal(t, 1, f.clock.Pending())

	f.send(callbackUpdate(adminChat, cbGateCancel))

	assert.Equal(t, 0, f.clock.Pending())
	edit, ok := f.tg.lastEditOf(prompt.messageID)
	require.True(t, ok)
	assert.Equal(t, "Cancelled.", edit.text)
	f.api.AssertNotCalled(t, "SetPending", mock.Anything, mock.Anything, mock.Anything)
}

func TestCloseCommand(t *testing.T) {
	f := newBotFixture(t, 100)

	f.send(textUpdate(adminChat, "/close"))
	assert.Equal(t, msgNoSession, f.tg.lastSent().text)

	cardID := f.openCard(t, models.StatusPending)
	f.send(textUpdate(adminChat, "/close"))

	assert.Nil(t, f.bot.getSession(adminChat))
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.ActiveSessions))
	card, ok := f.tg.lastEditOf(cardID)
	require.True(t, ok)
	assert.Nil(t, card.keyboard)

	state, err := f.state.GetChatState(context.Background(), adminChat)
	require.NoError(t, err)
	assert.Nil(t, state)

	f.send(callbackUpdate(adminChat, cbStatusPrefix+string(models.StatusCancelled)))
	assert.Equal(t, msgNoSession, f.tg.lastCallback())
}

func TestReceipt(t *testing.T) {
	f := newBotFixture(t, 100)
	f.openCard(t, models.StatusPending)

	f.api.On("FetchReceipt", mock.Anything, "B100", "admin").Return(nil, backend.ErrNoReceipt).Once()
	f.send(callbackUpdate(adminChat, cbReceipt))
	assert.Equal(t, msgNoReceipt, f.tg.lastSent().text)

	f.api.On("FetchReceipt", mock.Anything, "B100", "admin").
		Return(&backend.Receipt{ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}}, nil).Once()
	f.send(callbackUpdate(adminChat, cbReceipt))
	assert.Equal(t, []string{"receipt-B100.jpg"}, f.tg.photos)
}

func TestTextWithoutCard(t *testing.T) {
	f := newBotFixture(t, 100)

	f.send(textUpdate(adminChat, "hello"))

	assert.True(t, strings.HasPrefix(f.tg.lastSent().text, "Use /booking"))
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text    string
		command string
		args    string
	}{
		{"/booking B100", "booking", "B100"},
		{"/booking@fleetdesk_bot  B100 ", "booking", "B100"},
		{"/CLOSE", "close", ""},
		{"plain text", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			command, args := parseCommand(&tgbotapi.Message{Text: tt.text})
			assert.Equal(t, tt.command, command)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestBotStart(t *testing.T) {
	f := newBotFixture(t, 100)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.bot.Start(ctx)
		close(done)
	}()

	f.tg.updatesChan <- textUpdate(adminChat, "/start")

	assert.Eventually(t, func() bool { return len(f.tg.texts()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.Contains(t, f.tg.texts()[0], "*Fleet desk*")
}
