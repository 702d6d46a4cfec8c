// Package led drives the animation LED bank over GPIO and the optional board
// status LED over sysfs.
package led

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/smazurov/blinkd/internal/gpio"
	"github.com/smazurov/blinkd/internal/metrics"
)

// ErrWidthMismatch is returned by Render for a frame that is not Width() wide.
var ErrWidthMismatch = errors.New("frame width does not match led count")

// Bank is the ordered set of LED output lines. Only the animation engine
// writes to it.
type Bank struct {
	lines  []gpio.Line
	group  *gpio.Group
	logger *slog.Logger
}

// NewBank takes ownership of lines, in LED order.
func NewBank(lines []gpio.Line, logger *slog.Logger) *Bank {
	g := gpio.NewGroup()
	for _, l := range lines {
		g.Add(l)
	}
	return &Bank{lines: lines, group: g, logger: logger}
}

// OpenBank opens offsets on chip as outputs driven low.
func OpenBank(chip gpio.Chip, offsets []int, logger *slog.Logger) (*Bank, error) {
	lines, err := gpio.OpenOutputs(chip, offsets)
	if err != nil {
		return nil, err
	}
	logger.Info("LED lines opened", "chip", chip.Name(), "lines", offsets)
	return NewBank(lines, logger), nil
}

// Width is the number of LEDs.
func (b *Bank) Width() int { return len(b.lines) }

// Offsets returns the GPIO offsets in LED order.
func (b *Bank) Offsets() []int {
	out := make([]int, len(b.lines))
	for i, l := range b.lines {
		out[i] = l.Offset()
	}
	return out
}

// Render writes one frame. A frame of the wrong width is skipped. A failed
// write is logged and counted, and the remaining LEDs are still written.
func (b *Bank) Render(frame []bool) error {
	if len(frame) != len(b.lines) {
		metrics.FrameSkipped()
		b.logger.Warn("Frame skipped", "width", len(frame), "leds", len(b.lines))
		return fmt.Errorf("%w: got %d, want %d", ErrWidthMismatch, len(frame), len(b.lines))
	}

	var errs []error
	for i, l := range b.lines {
		if err := l.Write(frame[i]); err != nil {
			metrics.LEDWriteError(l.Offset())
			b.logger.Warn("LED write failed", "line", l.Offset(), "error", err)
			errs = append(errs, err)
		}
	}
	metrics.FrameRendered()
	return errors.Join(errs...)
}

// Off writes false to every LED.
func (b *Bank) Off() error {
	return b.Render(make([]bool, len(b.lines)))
}

// Close turns the LEDs off and releases the lines.
func (b *Bank) Close() error {
	offErr := b.Off()
	return errors.Join(offErr, b.group.Close())
}
