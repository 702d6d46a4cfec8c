// Package metrics exposes Prometheus metrics for GPIO, button input and
// animation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blinkd"

var (
	buttonPresses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "input",
		Name:      "presses_total",
		Help:      "Debounced button presses",
	}, []string{"line", "action"})

	buttonBounces = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "input",
		Name:      "bounces_total",
		Help:      "Edge events discarded by the debounce filter",
	}, []string{"line"})

	eventReadErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "input",
		Name:      "event_read_errors_total",
		Help:      "Failed edge event reads",
	}, []string{"line"})

	pollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "input",
		Name:      "poll_errors_total",
		Help:      "Failed polls of the button lines",
	})

	eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gpio",
		Name:      "events_dropped_total",
		Help:      "Edge events dropped because the line's event queue was full",
	}, []string{"line"})

	framesRendered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "animation",
		Name:      "frames_total",
		Help:      "Frames written to the LED bank",
	})

	framesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "animation",
		Name:      "frames_skipped_total",
		Help:      "Frames skipped because their width did not match the LED count",
	})

	ledWriteErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "animation",
		Name:      "led_write_errors_total",
		Help:      "Failed LED line writes",
	}, []string{"line"})

	animationRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "animation",
		Name:      "running",
		Help:      "1 while the animation loop runs",
	})

	frameDelay = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "animation",
		Name:      "frame_delay_seconds",
		Help:      "Current delay between frames",
	})

	patternIndex = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "animation",
		Name:      "pattern_index",
		Help:      "Index of the active pattern",
	})
)

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func lineLabel(line int) string { return strconv.Itoa(line) }

// ButtonPressed counts one debounced press.
func ButtonPressed(line int, action string) {
	buttonPresses.WithLabelValues(lineLabel(line), action).Inc()
}

// ButtonBounce counts one discarded edge.
func ButtonBounce(line int) {
	buttonBounces.WithLabelValues(lineLabel(line)).Inc()
}

// EventReadError counts one failed event read.
func EventReadError(line int) {
	eventReadErrors.WithLabelValues(lineLabel(line)).Inc()
}

// PollError counts one failed poll.
func PollError() {
	pollErrors.Inc()
}

// EventDropped counts one edge event lost to a full queue.
func EventDropped(line int) {
	eventsDropped.WithLabelValues(lineLabel(line)).Inc()
}

// FrameRendered counts one frame written.
func FrameRendered() {
	framesRendered.Inc()
}

// FrameSkipped counts one frame skipped for a width mismatch.
func FrameSkipped() {
	framesSkipped.Inc()
}

// LEDWriteError counts one failed LED write.
func LEDWriteError(line int) {
	ledWriteErrors.WithLabelValues(lineLabel(line)).Inc()
}

// SetAnimationRunning records the engine state.
func SetAnimationRunning(running bool) {
	if running {
		animationRunning.Set(1)
	} else {
		animationRunning.Set(0)
	}
}

// SetFrameDelay records the current frame delay.
func SetFrameDelay(d time.Duration) {
	frameDelay.Set(d.Seconds())
}

// SetPatternIndex records the active pattern index.
func SetPatternIndex(i int) {
	patternIndex.Set(float64(i))
}
