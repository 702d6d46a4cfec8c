//go:build linux

package gpio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smazurov/blinkd/internal/logging"
	"github.com/warthog618/go-gpiocdev"
)

// cdevChip is a Chip backed by the GPIO character device.
type cdevChip struct {
	chip *gpiocdev.Chip
	name string
	wake chan struct{}
}

// OpenChip opens the character device chip by name or path
// (gpiochip0 or /dev/gpiochip0).
func OpenChip(name string) (Chip, error) {
	c, err := gpiocdev.NewChip(name, gpiocdev.WithConsumer(defaultConsumer))
	if err != nil {
		return nil, fmt.Errorf("open chip %s: %w: %w", name, ErrDeviceUnavailable, err)
	}
	logging.GetLogger("gpio").Info("GPIO chip opened", "chip", c.Name, "label", c.Label, "lines", c.Lines())
	return &cdevChip{chip: c, name: name, wake: make(chan struct{}, 1)}, nil
}

func (c *cdevChip) Name() string { return c.name }

func (c *cdevChip) Open(offset int, dir Direction) (Line, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.WithConsumer(defaultConsumer)}
	if dir == Output {
		opts = append(opts, gpiocdev.AsOutput(0))
	} else {
		opts = append(opts, gpiocdev.AsInput)
	}
	l, err := c.chip.RequestLine(offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request line %d on %s: %w: %w", offset, c.name, ErrDeviceUnavailable, err)
	}
	return &cdevLine{line: l, offset: offset}, nil
}

func (c *cdevChip) OpenWithEdge(offset int, cfg LineConfig) (EdgeLine, error) {
	el := &cdevEdgeLine{}
	el.offset = offset
	el.queue = newEventQueue(offset, defaultQueueLimit, c.wake)

	opts := []gpiocdev.LineReqOption{
		gpiocdev.WithConsumer(consumerOrDefault(cfg.Consumer)),
		gpiocdev.AsInput,
		gpiocdev.WithEventHandler(el.handle),
	}
	switch cfg.Edge {
	case EdgeRising:
		opts = append(opts, gpiocdev.WithRisingEdge)
	case EdgeFalling:
		opts = append(opts, gpiocdev.WithFallingEdge)
	case EdgeBoth:
		opts = append(opts, gpiocdev.WithBothEdges)
	}
	switch cfg.Bias {
	case BiasDisabled:
		opts = append(opts, gpiocdev.WithBiasDisabled)
	case BiasPullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case BiasPullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	}

	l, err := c.chip.RequestLine(offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request edge line %d on %s: %w: %w", offset, c.name, ErrDeviceUnavailable, err)
	}
	el.line = l
	return el, nil
}

func (c *cdevChip) Poll(ctx context.Context, lines []EdgeLine, timeout time.Duration) ([]bool, error) {
	return waitReady(ctx, c.wake, lines, timeout)
}

func (c *cdevChip) Close() error {
	return c.chip.Close()
}

type cdevLine struct {
	line      *gpiocdev.Line
	offset    int
	closeOnce sync.Once
	closeErr  error
}

func (l *cdevLine) Offset() int { return l.offset }

func (l *cdevLine) Write(value bool) error {
	v := 0
	if value {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return fmt.Errorf("write line %d: %w: %w", l.offset, ErrIO, err)
	}
	return nil
}

func (l *cdevLine) Read() (bool, error) {
	v, err := l.line.Value()
	if err != nil {
		return false, fmt.Errorf("read line %d: %w: %w", l.offset, ErrIO, err)
	}
	return v != 0, nil
}

func (l *cdevLine) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.line.Close()
	})
	return l.closeErr
}

type cdevEdgeLine struct {
	cdevLine
	queue *eventQueue
}

// handle runs on the gpiocdev event goroutine.
func (l *cdevEdgeLine) handle(evt gpiocdev.LineEvent) {
	kind := FallingEdge
	if evt.Type == gpiocdev.LineEventRisingEdge {
		kind = RisingEdge
	}
	if !l.queue.push(Event{Offset: evt.Offset, Kind: kind, Timestamp: evt.Timestamp}) {
		logging.GetLogger("gpio").Warn("Edge event queue full, event dropped",
			"line", l.offset, "seqno", evt.LineSeqno)
	}
}

func (l *cdevEdgeLine) ReadEvent() (Event, error) {
	e, ok := l.queue.pop()
	if !ok {
		return Event{}, fmt.Errorf("read event on line %d: %w: no event queued", l.offset, ErrIO)
	}
	return e, nil
}

func (l *cdevEdgeLine) Pending() int { return l.queue.len() }

// LineInfo describes one line of a chip for the `lines` subcommand.
type LineInfo struct {
	Offset   int
	Name     string
	Consumer string
	Used     bool
}

// ListLines reads the info of every line on the named chip.
func ListLines(name string) ([]LineInfo, error) {
	c, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open chip %s: %w: %w", name, ErrDeviceUnavailable, err)
	}
	defer c.Close()

	infos := make([]LineInfo, 0, c.Lines())
	for off := 0; off < c.Lines(); off++ {
		li, err := c.LineInfo(off)
		if err != nil {
			return nil, fmt.Errorf("line info %d: %w: %w", off, ErrIO, err)
		}
		infos = append(infos, LineInfo{Offset: li.Offset, Name: li.Name, Consumer: li.Consumer, Used: li.Used})
	}
	return infos, nil
}

// Chips lists the GPIO character devices present on the system.
func Chips() []string {
	return gpiocdev.Chips()
}
