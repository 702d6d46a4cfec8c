package gpio

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// WriteRecord is one level written to a simulated output line.
type WriteRecord struct {
	Offset int
	Value  bool
}

// SimChip is an in-memory Chip. It records every write in order, lets
// callers inject edge events, and can be told to fail opens and polls.
type SimChip struct {
	name string
	wake chan struct{}

	mu        sync.Mutex
	lines     map[int]*SimLine
	failOpen  map[int]error
	pollErrs  []error
	writeLog  []WriteRecord
	numLines  int
	closed    bool
	pollCalls int
}

// NewSimChip returns a simulated chip with numLines lines.
func NewSimChip(name string, numLines int) *SimChip {
	return &SimChip{
		name:     name,
		wake:     make(chan struct{}, 1),
		lines:    make(map[int]*SimLine),
		failOpen: make(map[int]error),
		numLines: numLines,
	}
}

func (c *SimChip) Name() string { return c.name }

// FailOpen makes the next open of offset return err.
func (c *SimChip) FailOpen(offset int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failOpen[offset] = err
}

// FailPolls queues errors returned by successive Poll calls.
func (c *SimChip) FailPolls(errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pollErrs = append(c.pollErrs, errs...)
}

// PollCalls reports how many times Poll has been called.
func (c *SimChip) PollCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pollCalls
}

// Line returns the simulated line at offset, or nil if it was never opened.
func (c *SimChip) Line(offset int) *SimLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines[offset]
}

// WriteLog returns a copy of every write made on the chip, in order.
func (c *SimChip) WriteLog() []WriteRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]WriteRecord, len(c.writeLog))
	copy(out, c.writeLog)
	return out
}

// Inject queues an edge event on an edge line and updates its level.
func (c *SimChip) Inject(offset int, kind EdgeKind, ts time.Duration) error {
	l := c.Line(offset)
	if l == nil || l.queue == nil {
		return fmt.Errorf("inject on line %d: %w: not an open edge line", offset, ErrIO)
	}
	l.mu.Lock()
	l.value = kind == RisingEdge
	l.mu.Unlock()
	if !l.queue.push(Event{Offset: offset, Kind: kind, Timestamp: ts}) {
		return fmt.Errorf("inject on line %d: %w: event queue full", offset, ErrIO)
	}
	return nil
}

func (c *SimChip) open(offset int, dir Direction, withEdge bool) (*SimLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("open line %d: %w: chip closed", offset, ErrDeviceUnavailable)
	}
	if err, ok := c.failOpen[offset]; ok {
		delete(c.failOpen, offset)
		return nil, fmt.Errorf("open line %d: %w: %w", offset, ErrDeviceUnavailable, err)
	}
	if offset < 0 || offset >= c.numLines {
		return nil, fmt.Errorf("open line %d: %w: offset out of range", offset, ErrDeviceUnavailable)
	}
	if existing, ok := c.lines[offset]; ok && !existing.isClosed() {
		return nil, fmt.Errorf("open line %d: %w: line busy", offset, ErrDeviceUnavailable)
	}

	l := &SimLine{chip: c, offset: offset, dir: dir}
	if withEdge {
		l.queue = newEventQueue(offset, defaultQueueLimit, c.wake)
	}
	c.lines[offset] = l
	return l, nil
}

func (c *SimChip) Open(offset int, dir Direction) (Line, error) {
	l, err := c.open(offset, dir, false)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (c *SimChip) OpenWithEdge(offset int, cfg LineConfig) (EdgeLine, error) {
	l, err := c.open(offset, Input, true)
	if err != nil {
		return nil, err
	}
	// Pull-ups idle high, as real buttons do.
	l.value = cfg.Bias == BiasPullUp
	return l, nil
}

func (c *SimChip) Poll(ctx context.Context, lines []EdgeLine, timeout time.Duration) ([]bool, error) {
	c.mu.Lock()
	c.pollCalls++
	if len(c.pollErrs) > 0 {
		err := c.pollErrs[0]
		c.pollErrs = c.pollErrs[1:]
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()
	return waitReady(ctx, c.wake, lines, timeout)
}

func (c *SimChip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *SimChip) recordWrite(offset int, v bool) {
	c.mu.Lock()
	c.writeLog = append(c.writeLog, WriteRecord{Offset: offset, Value: v})
	c.mu.Unlock()
}

// SimLine is a simulated line. It implements both Line and EdgeLine.
type SimLine struct {
	chip   *SimChip
	offset int
	dir    Direction
	queue  *eventQueue

	mu         sync.Mutex
	value      bool
	closes     int
	writeErr   error
	eventErr   error
	eventFails int
}

func (l *SimLine) Offset() int { return l.offset }

func (l *SimLine) Write(value bool) error {
	l.mu.Lock()
	if l.closes > 0 {
		l.mu.Unlock()
		return fmt.Errorf("write line %d: %w", l.offset, ErrClosed)
	}
	if l.writeErr != nil {
		err := l.writeErr
		l.mu.Unlock()
		return fmt.Errorf("write line %d: %w: %w", l.offset, ErrIO, err)
	}
	l.value = value
	l.mu.Unlock()
	l.chip.recordWrite(l.offset, value)
	return nil
}

func (l *SimLine) Read() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closes > 0 {
		return false, fmt.Errorf("read line %d: %w", l.offset, ErrClosed)
	}
	return l.value, nil
}

// Close counts every call so tests can check a line is released exactly once.
func (l *SimLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closes++
	return nil
}

// CloseCount reports how many times Close was called.
func (l *SimLine) CloseCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closes
}

func (l *SimLine) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closes > 0
}

// Value returns the current level without the closed check.
func (l *SimLine) Value() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

// FailWrites makes every subsequent Write fail with err; nil restores writes.
func (l *SimLine) FailWrites(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writeErr = err
}

// FailEvents makes the next n ReadEvent calls fail with err. The failed
// event is still removed from the queue.
func (l *SimLine) FailEvents(n int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.eventFails = n
	l.eventErr = err
}

func (l *SimLine) ReadEvent() (Event, error) {
	if l.queue == nil {
		return Event{}, fmt.Errorf("read event on line %d: %w: no edge detection", l.offset, ErrIO)
	}
	e, ok := l.queue.pop()
	if !ok {
		return Event{}, fmt.Errorf("read event on line %d: %w: no event queued", l.offset, ErrIO)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.eventFails > 0 {
		l.eventFails--
		return Event{}, fmt.Errorf("read event on line %d: %w: %w", l.offset, ErrIO, l.eventErr)
	}
	return e, nil
}

func (l *SimLine) Pending() int {
	if l.queue == nil {
		return 0
	}
	return l.queue.len()
}
