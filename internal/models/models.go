package models

import "time"

// ChatState is the dialog position of one admin chat: which booking card is
// open and which free-text answer the bot waits for.
type ChatState struct {
	ChatID        int64     `json:"chat_id"`
	BookingID     string    `json:"booking_id"`
	Step          string    `json:"step"`
	CardMessageID int       `json:"card_message_id"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Awaiting reports whether the chat expects a free-text answer.
func (s *ChatState) Awaiting() bool {
	if s == nil {
		return false
	}
	switch s.Step {
	case StepAwaitReason, StepAwaitExpenses, StepAwaitPrice:
		return true
	default:
		return false
	}
}
