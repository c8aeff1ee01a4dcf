// Package notify turns transition outcomes into short user-visible messages.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Toast is one transient message.
type Toast struct {
	Kind    Kind
	Message string
}

func Success(msg string) Toast { return Toast{Kind: KindSuccess, Message: msg} }

func Error(msg string) Toast { return Toast{Kind: KindError, Message: msg} }

// Notifier shows a toast. Delivery is best effort: no retry, no queue.
type Notifier interface {
	Notify(ctx context.Context, toast Toast)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, toast Toast)

func (f Func) Notify(ctx context.Context, toast Toast) { f(ctx, toast) }

// Multi fans a toast out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, toast Toast) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, toast)
		}
	}
}

// LogNotifier writes toasts to the log. The context logger wins when present.
type LogNotifier struct {
	Logger *zerolog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, toast Toast) {
	logger := n.Logger
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		logger = l
	}
	if logger == nil {
		return
	}

	event := logger.Info()
	if toast.Kind == KindError {
		event = logger.Warn()
	}
	event.Str("kind", string(toast.Kind)).Msg(toast.Message)
}
