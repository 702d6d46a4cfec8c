// Package animation runs the background loop that plays the active pattern
// on the LED bank.
package animation

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/blinkd/internal/events"
	"github.com/smazurov/blinkd/internal/logging"
	"github.com/smazurov/blinkd/internal/metrics"
	"github.com/smazurov/blinkd/internal/patterns"
)

// ErrNoPatterns is returned by Start when the store is empty.
var ErrNoPatterns = errors.New("cannot start animation: no patterns added")

// idleWait is how long the loop waits before re-reading a pattern with no frames.
const idleWait = 100 * time.Millisecond

// Renderer writes frames to the LEDs. *led.Bank implements it.
type Renderer interface {
	Render(frame []bool) error
	Off() error
}

// Engine plays the store's active pattern on a Renderer.
//
// A frame is the unit of atomicity: the stop signal is checked before each
// frame and during the delay after it, never in the middle of a write. The
// active pattern is re-read only after a full traversal, while the delay is
// re-read after every frame. On exit the loop writes an all-off frame.
type Engine struct {
	store  *patterns.Store
	out    Renderer
	bus    *events.Bus
	logger *slog.Logger

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running atomic.Bool
}

// New returns a stopped engine.
func New(store *patterns.Store, out Renderer, bus *events.Bus) *Engine {
	return &Engine{
		store:  store,
		out:    out,
		bus:    bus,
		logger: logging.GetLogger("animation"),
	}
}

// Running reports whether the loop is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Start launches the loop. Starting a running engine is a no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.done != nil {
		select {
		case <-e.done:
			// loop ended on its own; reap it and start afresh
			e.stop, e.done = nil, nil
		default:
			return nil
		}
	}

	if e.store.Len() == 0 {
		e.logger.Error("Animation not started", "error", ErrNoPatterns)
		return ErrNoPatterns
	}

	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	e.setRunning(true)
	go e.run(e.stop, e.done)

	snap := e.store.Snapshot()
	e.logger.Info("Animation started", "pattern", snap.Pattern.Name, "index", snap.Index, "delay", snap.Delay)
	return nil
}

// Stop signals the loop and waits until it has turned the LEDs off.
// Stopping a stopped engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.done == nil {
		return
	}
	close(e.stop)
	<-e.done
	e.stop, e.done = nil, nil
	e.logger.Info("Animation stopped")
}

// Close stops the engine if it is still running.
func (e *Engine) Close() error {
	e.Stop()
	return nil
}

func (e *Engine) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer e.finish()

	for {
		snap := e.store.Snapshot()
		if snap.Empty() {
			e.logger.Warn("No patterns to play, animation loop exiting")
			return
		}
		if len(snap.Pattern.Frames) == 0 {
			if !sleep(stop, idleWait) {
				return
			}
			continue
		}

		for _, frame := range snap.Pattern.Frames {
			select {
			case <-stop:
				return
			default:
			}

			// Render logs and counts its own failures.
			_ = e.out.Render(frame)

			if !sleep(stop, e.store.Delay()) {
				return
			}
		}
	}
}

func (e *Engine) finish() {
	if err := e.out.Off(); err != nil {
		e.logger.Warn("Failed to turn LEDs off", "error", err)
	}
	e.setRunning(false)
}

func (e *Engine) setRunning(running bool) {
	e.running.Store(running)
	metrics.SetAnimationRunning(running)
	events.Publish(e.bus, events.AnimationStateEvent{
		Running:   running,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// sleep waits for d and reports false if stop fired first.
func sleep(stop <-chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-stop:
		return false
	case <-t.C:
		return true
	}
}
