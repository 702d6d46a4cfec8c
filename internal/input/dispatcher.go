// Package input polls the button lines, debounces their edges and turns
// accepted presses into control actions.
package input

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpillora/backoff"

	"github.com/smazurov/blinkd/internal/control"
	"github.com/smazurov/blinkd/internal/debounce"
	"github.com/smazurov/blinkd/internal/events"
	"github.com/smazurov/blinkd/internal/gpio"
	"github.com/smazurov/blinkd/internal/logging"
	"github.com/smazurov/blinkd/internal/metrics"
)

// ErrPoll wraps a failed wait on the button lines. It is never fatal.
var ErrPoll = errors.New("poll button lines")

const (
	DefaultPollTimeout = 100 * time.Millisecond
	DefaultBackoffMin  = 500 * time.Millisecond
	DefaultBackoffMax  = 5 * time.Second
)

// Actor performs a control action. *control.Controller implements it.
type Actor interface {
	Do(a control.Action, source string) error
}

// Binding ties one button line to the action it triggers.
type Binding struct {
	Line   gpio.EdgeLine
	Action control.Action
}

// Options tune the dispatcher. Zero values take the defaults.
type Options struct {
	PollTimeout    time.Duration
	DebounceWindow time.Duration
	BackoffMin     time.Duration
	BackoffMax     time.Duration
	// Clock returns the current time on the clock the edge timestamps use.
	Clock func() time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollTimeout <= 0 {
		o.PollTimeout = DefaultPollTimeout
	}
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = debounce.DefaultWindow
	}
	if o.BackoffMin <= 0 {
		o.BackoffMin = DefaultBackoffMin
	}
	if o.BackoffMax < o.BackoffMin {
		o.BackoffMax = max(DefaultBackoffMax, o.BackoffMin)
	}
	if o.Clock == nil {
		o.Clock = Monotonic
	}
	return o
}

type button struct {
	line   gpio.EdgeLine
	action control.Action
	filter *debounce.Filter
}

// Dispatcher owns the button lines' debounce state. Run must be called from
// a single goroutine.
type Dispatcher struct {
	chip    gpio.Chip
	buttons []*button
	lines   []gpio.EdgeLine
	actor   Actor
	bus     *events.Bus
	opts    Options
	backoff *backoff.Backoff
	logger  *slog.Logger
}

// New builds a dispatcher over bindings. The lines must come from chip.
func New(chip gpio.Chip, bindings []Binding, actor Actor, bus *events.Bus, opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{
		chip:  chip,
		actor: actor,
		bus:   bus,
		opts:  opts,
		backoff: &backoff.Backoff{
			Min:    opts.BackoffMin,
			Max:    opts.BackoffMax,
			Factor: 2,
			Jitter: false,
		},
		logger: logging.GetLogger("input"),
	}
	for _, b := range bindings {
		d.buttons = append(d.buttons, &button{
			line:   b.Line,
			action: b.Action,
			filter: debounce.New(opts.DebounceWindow),
		})
		d.lines = append(d.lines, b.Line)
	}
	return d
}

// Run polls until ctx is cancelled. Poll failures are logged and retried
// with exponential backoff; Run only returns when ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("Button dispatcher started", "buttons", len(d.buttons), "window", d.opts.DebounceWindow)
	defer d.logger.Info("Button dispatcher stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}
		err := d.cycle(ctx)
		if err == nil {
			d.backoff.Reset()
			continue
		}
		if ctx.Err() != nil {
			return nil
		}

		metrics.PollError()
		wait := d.backoff.Duration()
		d.logger.Warn("Polling failed, backing off", "error", err, "retry_in", wait)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// cycle waits once for ready lines, handles one event per ready line, then
// sweeps every filter.
func (d *Dispatcher) cycle(ctx context.Context) error {
	defer d.sweep()

	ready, err := d.chip.Poll(ctx, d.lines, d.opts.PollTimeout)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPoll, err)
	}
	for i, r := range ready {
		if r && i < len(d.buttons) {
			d.handle(d.buttons[i])
		}
	}
	return nil
}

func (d *Dispatcher) handle(b *button) {
	offset := b.line.Offset()

	evt, err := b.line.ReadEvent()
	if err != nil {
		metrics.EventReadError(offset)
		d.logger.Warn("Failed to read button event", "line", offset, "error", err)
		return
	}

	switch b.filter.Feed(evt) {
	case debounce.OutcomeActivated:
		d.press(b, offset)
	case debounce.OutcomeDiscarded:
		metrics.ButtonBounce(offset)
		d.logger.Debug("Bounce discarded", "line", offset, "ts", evt.Timestamp)
	case debounce.OutcomeReleased:
		d.logger.Debug("Button released", "line", offset)
	}
}

func (d *Dispatcher) press(b *button, offset int) {
	metrics.ButtonPressed(offset, string(b.action))
	d.logger.Info("Button pressed", "line", offset, "action", b.action)
	events.Publish(d.bus, events.ButtonPressedEvent{
		Line:      offset,
		Action:    string(b.action),
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err := d.actor.Do(b.action, control.SourceButton); err != nil {
		d.logger.Error("Button action failed", "line", offset, "action", b.action, "error", err)
	}
}

func (d *Dispatcher) sweep() {
	now := d.opts.Clock()
	for _, b := range d.buttons {
		if b.filter.Sweep(now) {
			d.logger.Debug("Button settled", "line", b.line.Offset())
		}
	}
}
