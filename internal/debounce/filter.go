// Package debounce reconstructs clean button presses from a noisy stream of
// edge events.
//
// Buttons are wired active-low: a falling edge is a press, a rising edge a
// release. Every event, kept or discarded, moves the line's last-event time,
// so a bouncing contact keeps extending the quiet period until it settles.
package debounce

import (
	"time"

	"github.com/smazurov/blinkd/internal/gpio"
)

// DefaultWindow is the minimum spacing between two accepted presses.
const DefaultWindow = 200 * time.Millisecond

// State is the logical button state.
type State int

const (
	Released State = iota
	Pressed
)

func (s State) String() string {
	if s == Pressed {
		return "pressed"
	}
	return "released"
}

// Outcome is what Feed made of one event.
type Outcome int

const (
	// OutcomeDiscarded: a falling edge inside the window or while Pressed.
	OutcomeDiscarded Outcome = iota
	// OutcomeActivated: a falling edge accepted as a press.
	OutcomeActivated
	// OutcomeReleased: any rising edge.
	OutcomeReleased
)

func (o Outcome) String() string {
	switch o {
	case OutcomeActivated:
		return "activated"
	case OutcomeReleased:
		return "released"
	default:
		return "discarded"
	}
}

// Filter is the per-line debounce state machine. It is not safe for
// concurrent use; the dispatcher owns it.
type Filter struct {
	window    time.Duration
	state     State
	lastEvent time.Duration
	seen      bool
	active    bool
}

// New returns a Filter with the given window, or DefaultWindow if window <= 0.
func New(window time.Duration) *Filter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Filter{window: window}
}

// Window returns the configured debounce window.
func (f *Filter) Window() time.Duration { return f.window }

// State returns the current logical state.
func (f *Filter) State() State { return f.state }

// Active reports whether a bounce has been seen and the quiet period has not
// yet elapsed.
func (f *Filter) Active() bool { return f.active }

// Feed classifies one raw edge event.
func (f *Filter) Feed(e gpio.Event) Outcome {
	inWindow := f.seen && e.Timestamp-f.lastEvent < f.window
	f.lastEvent = e.Timestamp
	f.seen = true

	if e.Kind == gpio.RisingEdge {
		f.state = Released
		if inWindow {
			f.active = true
		}
		return OutcomeReleased
	}

	// A press counts only from Released. A falling edge while Pressed
	// means the release was missed; Sweep clears it once the line is quiet.
	if inWindow || f.state == Pressed {
		f.active = true
		return OutcomeDiscarded
	}
	f.state = Pressed
	return OutcomeActivated
}

// Sweep runs once per polling cycle with the current monotonic time. When a
// bounce was seen and the line has been quiet for a full window, the flag is
// cleared and the line is forced back to Released. It reports whether that
// happened.
func (f *Filter) Sweep(now time.Duration) bool {
	if !f.active || now-f.lastEvent < f.window {
		return false
	}
	f.active = false
	f.state = Released
	return true
}
