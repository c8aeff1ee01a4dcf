package gate

import (
	"math"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// inputGate is the shared Closed -> Open -> Closed machine of the text gates.
type inputGate struct {
	mu    sync.Mutex
	state State
	check func(input string) error
}

func newInputGate(check func(string) error) inputGate {
	return inputGate{state: Closed{}, check: check}
}

// Open shows the gate with empty input and no error.
func (g *inputGate) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = Open{}
}

// SetInput replaces the input and clears the inline error.
func (g *inputGate) SetInput(input string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.state.(Open); !ok {
		return ErrNotOpen
	}
	g.state = Open{Input: input}
	return nil
}

// ConfirmEnabled reports whether the confirm control is active.
func (g *inputGate) ConfirmEnabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	open, ok := g.state.(Open)
	return ok && strings.TrimSpace(open.Input) != ""
}

// Dismiss closes the gate and discards the input.
func (g *inputGate) Dismiss() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = Closed{}
}

func (g *inputGate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// submit validates the current input. On success the gate closes and the
// trimmed input is returned; on failure the error is kept inline.
func (g *inputGate) submit() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	open, ok := g.state.(Open)
	if !ok {
		return "", ErrNotOpen
	}
	input := strings.TrimSpace(open.Input)
	if err := g.check(input); err != nil {
		g.state = Open{Input: open.Input, Err: err}
		return "", err
	}
	g.state = Closed{}
	return input, nil
}

// ReasonGate collects the cancellation reason.
type ReasonGate struct {
	inputGate
}

func NewReasonGate() *ReasonGate {
	return &ReasonGate{inputGate: newInputGate(func(input string) error {
		if input == "" {
			return ErrReasonRequired
		}
		return nil
	})}
}

// Submit returns the trimmed reason.
func (g *ReasonGate) Submit() (string, error) {
	return g.submit()
}

// ExpenseGate collects total expenses for a finished booking.
type ExpenseGate struct {
	inputGate
}

func NewExpenseGate() *ExpenseGate {
	return &ExpenseGate{inputGate: newInputGate(func(input string) error {
		if input == "" {
			return ErrExpensesRequired
		}
		expenses, err := decimal.NewFromString(input)
		if err != nil || math.IsInf(expenses.InexactFloat64(), 0) {
			return ErrExpensesInvalid
		}
		return nil
	})}
}

// Submit returns the raw trimmed figure; parsing is left to the caller.
func (g *ExpenseGate) Submit() (string, error) {
	return g.submit()
}

// PriceGate collects the price offered to the client. It is only available
// while the booking has no price yet.
type PriceGate struct {
	inputGate
}

func NewPriceGate() *PriceGate {
	return &PriceGate{inputGate: newInputGate(func(input string) error {
		price, err := decimal.NewFromString(input)
		if err != nil || !price.IsPositive() {
			return ErrInvalidPrice
		}
		// Значение уходит в JSON как float64
		if f := price.InexactFloat64(); math.IsInf(f, 0) || f <= 0 {
			return ErrInvalidPrice
		}
		return nil
	})}
}

// OpenFor opens the gate unless the booking already has a price.
func (g *PriceGate) OpenFor(currentPrice float64) error {
	if currentPrice != 0 {
		return ErrPriceAlreadySet
	}
	g.Open()
	return nil
}

// Submit re-checks the precondition and returns the parsed price.
func (g *PriceGate) Submit(currentPrice float64) (decimal.Decimal, error) {
	if currentPrice != 0 {
		g.Dismiss()
		return decimal.Zero, ErrPriceAlreadySet
	}
	raw, err := g.submit()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.RequireFromString(raw), nil
}
