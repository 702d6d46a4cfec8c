// Package gpio exposes the GPIO line capability used by the LED bank and the
// button dispatcher.
//
// A Chip hands out lines. Output lines are written with a boolean level. Edge
// lines queue rising/falling events stamped with the kernel's monotonic clock,
// and the chip can block on a set of edge lines until any has an event queued.
//
// Two chips exist: the character-device chip backed by go-gpiocdev, and an
// in-memory simulated chip used by tests and --simulate.
package gpio

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDeviceUnavailable is returned when the chip or a line cannot be opened.
	ErrDeviceUnavailable = errors.New("gpio device unavailable")
	// ErrIO is returned when a read, write or event read fails on an open line.
	ErrIO = errors.New("gpio io failure")
	// ErrClosed is returned by operations on a released line.
	ErrClosed = errors.New("gpio line closed")
)

// Direction of a line, fixed at open time.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Edge selects which transitions an input line reports.
type Edge int

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

// Bias of an input line.
type Bias int

const (
	BiasAsIs Bias = iota
	BiasDisabled
	BiasPullUp
	BiasPullDown
)

// ParseBias maps a config string onto a Bias.
func ParseBias(s string) (Bias, error) {
	switch s {
	case "", "as-is", "default":
		return BiasAsIs, nil
	case "disabled", "none":
		return BiasDisabled, nil
	case "pull-up", "up":
		return BiasPullUp, nil
	case "pull-down", "down":
		return BiasPullDown, nil
	default:
		return BiasAsIs, fmt.Errorf("unknown bias %q", s)
	}
}

// LineConfig is applied when an edge line is opened. Edge lines are always
// inputs.
type LineConfig struct {
	Edge     Edge
	Bias     Bias
	Consumer string
}

// EdgeKind is the transition carried by an Event.
type EdgeKind int

const (
	RisingEdge EdgeKind = iota + 1
	FallingEdge
)

func (k EdgeKind) String() string {
	switch k {
	case RisingEdge:
		return "rising"
	case FallingEdge:
		return "falling"
	default:
		return "unknown"
	}
}

// Event is one edge observed on a line.
// Timestamp is measured on CLOCK_MONOTONIC.
type Event struct {
	Offset    int
	Kind      EdgeKind
	Timestamp time.Duration
}

// Line is a single requested GPIO line.
type Line interface {
	Offset() int
	Write(value bool) error
	Read() (bool, error)
	// Close releases the line. Calls after the first are no-ops.
	Close() error
}

// EdgeLine is an input line with edge detection and a pending event queue.
type EdgeLine interface {
	Line
	// ReadEvent removes and returns the oldest queued event.
	ReadEvent() (Event, error)
	// Pending reports how many events are queued.
	Pending() int
}

// Chip opens lines on one GPIO controller.
type Chip interface {
	Name() string
	Open(offset int, dir Direction) (Line, error)
	OpenWithEdge(offset int, cfg LineConfig) (EdgeLine, error)
	// Poll blocks until at least one of lines has a queued event, the timeout
	// elapses, or ctx is done. The result is indexed like lines.
	Poll(ctx context.Context, lines []EdgeLine, timeout time.Duration) ([]bool, error)
	Close() error
}

const defaultConsumer = "blinkd"

func consumerOrDefault(c string) string {
	if c == "" {
		return defaultConsumer
	}
	return c
}
