package models

const ParseModeMarkdown = "Markdown"

// Chat steps: what the admin chat is expected to send next.
const (
	StepIdle          = "idle"
	StepAwaitReason   = "await_reason"
	StepAwaitExpenses = "await_expenses"
	StepAwaitPrice    = "await_price"
)

const (
	// DefaultGateCooldown задержка перед активацией кнопки подтверждения
	DefaultGateCooldown = 3 // секунды

	// DefaultChatStateTTL время жизни состояния чата в Redis
	DefaultChatStateTTL = 12 * 60 * 60 // 12 часов в секундах

	// DefaultCarsCacheTTL время жизни кэша списка машин
	DefaultCarsCacheTTL = 10 * 60 // 10 минут в секундах

	// RateLimitMessages количество сообщений в окне
	RateLimitMessages = 30

	// RateLimitWindow окно ограничения частоты сообщений
	RateLimitWindow = 60 // 1 минута в секундах

	// DefaultBackendTimeout таймаут HTTP-запросов к API аренды
	DefaultBackendTimeout = 10 // секунды
)
