package gate

import (
	"sync"
	"time"
)

const (
	LabelWait    = "Please wait..."
	LabelConfirm = "Confirm"
)

// TimedGate keeps its confirm control disabled for a fixed cooldown after
// opening. Cancel is available at any moment.
type TimedGate struct {
	mu       sync.Mutex
	clock    Clock
	cooldown time.Duration

	state    State
	message  string
	openedAt time.Time
	timer    Timer
	gen      uint64
	onReady  func()
}

func NewTimedGate(clock Clock, cooldown time.Duration) *TimedGate {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TimedGate{clock: clock, cooldown: cooldown, state: Closed{}}
}

// OnReady registers a callback invoked when the cooldown ends.
func (g *TimedGate) OnReady(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onReady = fn
}

// Open shows the gate with the given message and starts the cooldown.
// Reopening restarts the cooldown from scratch.
func (g *TimedGate) Open(message string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopLocked()
	g.gen++
	g.message = message
	g.openedAt = g.clock.Now()

	if g.cooldown <= 0 {
		g.state = Open{}
		return
	}

	g.state = Cooldown{Remaining: g.cooldown}
	gen := g.gen
	g.timer = g.clock.AfterFunc(g.cooldown, func() { g.ready(gen) })
}

func (g *TimedGate) ready(gen uint64) {
	g.mu.Lock()
	if gen != g.gen {
		g.mu.Unlock()
		return
	}
	if _, ok := g.state.(Cooldown); !ok {
		g.mu.Unlock()
		return
	}
	g.state = Open{}
	g.timer = nil
	fn := g.onReady
	g.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// State returns the current state; Cooldown carries the time left.
func (g *TimedGate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.state.(Cooldown); ok {
		remaining := g.cooldown - g.clock.Now().Sub(g.openedAt)
		if remaining < 0 {
			remaining = 0
		}
		return Cooldown{Remaining: remaining}
	}
	return g.state
}

// Message is the transition-specific prompt of the current opening.
func (g *TimedGate) Message() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.message
}

func (g *TimedGate) ConfirmEnabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.state.(Open)
	return ok
}

// Label is the text of the confirm control.
func (g *TimedGate) Label() string {
	if g.ConfirmEnabled() {
		return LabelConfirm
	}
	return LabelWait
}

// Authorize closes the gate once the cooldown has passed.
func (g *TimedGate) Authorize() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.state.(type) {
	case Closed:
		return ErrNotOpen
	case Cooldown:
		return ErrCoolingDown
	}
	g.closeLocked()
	return nil
}

// Cancel closes the gate regardless of the cooldown.
func (g *TimedGate) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closeLocked()
}

// Close is Cancel for teardown: no timer fires after it.
func (g *TimedGate) Close() {
	g.Cancel()
}

func (g *TimedGate) closeLocked() {
	g.stopLocked()
	g.gen++
	g.state = Closed{}
	g.message = ""
}

func (g *TimedGate) stopLocked() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}
