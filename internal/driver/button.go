package driver

import (
	"sync"
	"time"
)

// DefaultLongPress is used when ButtonConfig.LongPress is zero.
const DefaultLongPress = 5 * time.Second

// ButtonConfig configures a simulated button.
type ButtonConfig struct {
	GPIO int

	// ActiveLevel is the pin level while the button is held.
	ActiveLevel int

	// LongPress is the hold time that makes a press long.
	LongPress time.Duration
}

// Button is a simulated push button. Presses come from Click, Hold or
// pin level edges; handlers run on the caller's goroutine.
type Button struct {
	cfg ButtonConfig

	mu        sync.Mutex
	handlers  map[PressKind][]PressHandler
	pressedAt time.Time
	pressed   bool
}

var _ Input = (*Button)(nil)

// NewButton creates a button.
func NewButton(cfg ButtonConfig) *Button {
	if cfg.LongPress <= 0 {
		cfg.LongPress = DefaultLongPress
	}
	return &Button{
		cfg:      cfg,
		handlers: make(map[PressKind][]PressHandler),
	}
}

// GPIO returns the configured pin.
func (b *Button) GPIO() int { return b.cfg.GPIO }

// RegisterPressCallback adds a handler for kind.
func (b *Button) RegisterPressCallback(kind PressKind, handler PressHandler) error {
	if kind != PressShort && kind != PressLong {
		return ErrUnknownPressKind
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], handler)
	return nil
}

// Click simulates a short press.
func (b *Button) Click() {
	b.fire(PressShort)
}

// Hold simulates holding the button for d.
func (b *Button) Hold(d time.Duration) {
	b.fire(b.classify(d))
}

// Edge feeds a pin level change observed at the given time. A press is
// reported when the pin leaves the active level.
func (b *Button) Edge(level int, at time.Time) {
	active := level == b.cfg.ActiveLevel

	b.mu.Lock()
	if active {
		if !b.pressed {
			b.pressed = true
			b.pressedAt = at
		}
		b.mu.Unlock()
		return
	}
	if !b.pressed {
		b.mu.Unlock()
		return
	}
	held := at.Sub(b.pressedAt)
	b.pressed = false
	b.mu.Unlock()

	b.fire(b.classify(held))
}

func (b *Button) classify(held time.Duration) PressKind {
	if held >= b.cfg.LongPress {
		return PressLong
	}
	return PressShort
}

func (b *Button) fire(kind PressKind) {
	b.mu.Lock()
	hs := append([]PressHandler(nil), b.handlers[kind]...)
	b.mu.Unlock()

	for _, h := range hs {
		h()
	}
}
