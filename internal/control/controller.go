// Package control implements the user action set on top of the pattern
// store. Button presses and API calls both go through a Controller.
package control

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/smazurov/blinkd/internal/events"
	"github.com/smazurov/blinkd/internal/logging"
	"github.com/smazurov/blinkd/internal/metrics"
	"github.com/smazurov/blinkd/internal/patterns"
)

// ErrUnknownAction is returned for an action name outside the action set.
var ErrUnknownAction = errors.New("unknown action")

// Action names one user action.
type Action string

const (
	PreviousPattern Action = "previous_pattern"
	NextPattern     Action = "next_pattern"
	DecreaseSpeed   Action = "decrease_speed"
	IncreaseSpeed   Action = "increase_speed"
)

// Actions lists the action set in button order.
func Actions() []Action {
	return []Action{PreviousPattern, NextPattern, DecreaseSpeed, IncreaseSpeed}
}

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	for _, a := range Actions() {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Sources reported in events.
const (
	SourceButton = "button"
	SourceAPI    = "api"
)

// Controller applies actions to a Store and publishes the resulting changes.
type Controller struct {
	store  *patterns.Store
	bus    *events.Bus
	step   atomic.Int64
	logger *slog.Logger
}

// New returns a Controller. step is the speed change per press; a
// non-positive step uses patterns.DefaultStep.
func New(store *patterns.Store, bus *events.Bus, step time.Duration) *Controller {
	c := &Controller{
		store:  store,
		bus:    bus,
		logger: logging.GetLogger("control"),
	}
	c.SetStep(step)
	metrics.SetFrameDelay(store.Delay())
	metrics.SetPatternIndex(store.Index())
	return c
}

// Store returns the underlying store.
func (c *Controller) Store() *patterns.Store { return c.store }

// Step returns the speed change per press.
func (c *Controller) Step() time.Duration { return time.Duration(c.step.Load()) }

// SetStep changes the speed step at runtime.
func (c *Controller) SetStep(step time.Duration) {
	if step <= 0 {
		step = patterns.DefaultStep
	}
	c.step.Store(int64(step))
}

// Do applies a to the store.
func (c *Controller) Do(a Action, source string) error {
	switch a {
	case PreviousPattern:
		c.patternChanged(c.store.Previous(), source)
	case NextPattern:
		c.patternChanged(c.store.Next(), source)
	case DecreaseSpeed:
		c.speedChanged(c.store.DecreaseSpeed(c.Step()), source)
	case IncreaseSpeed:
		c.speedChanged(c.store.IncreaseSpeed(c.Step()), source)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a)
	}
	return nil
}

// Select makes index the active pattern.
func (c *Controller) Select(index int, source string) int {
	i := c.store.Select(index)
	c.patternChanged(i, source)
	return i
}

// SetDelay sets the frame delay, clamped by the store.
func (c *Controller) SetDelay(d time.Duration, source string) time.Duration {
	d = c.store.SetDelay(d)
	c.speedChanged(d, source)
	return d
}

func (c *Controller) patternChanged(index int, source string) {
	snap := c.store.Snapshot()
	metrics.SetPatternIndex(index)
	c.logger.Info("Pattern changed", "index", index, "pattern", snap.Pattern.Name, "count", snap.Count, "source", source)
	events.Publish(c.bus, events.PatternChangedEvent{
		Index:     index,
		Name:      snap.Pattern.Name,
		Count:     snap.Count,
		Source:    source,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (c *Controller) speedChanged(d time.Duration, source string) {
	metrics.SetFrameDelay(d)
	c.logger.Info("Speed changed", "delay", d, "source", source)
	events.Publish(c.bus, events.SpeedChangedEvent{
		DelayMs:   d.Milliseconds(),
		Source:    source,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
