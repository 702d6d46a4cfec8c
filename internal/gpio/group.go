package gpio

import (
	"errors"
	"fmt"
	"sync"
)

// Group owns a set of opened lines and releases every one of them exactly
// once. It is the scoped-acquisition guard used during startup and shutdown.
type Group struct {
	mu     sync.Mutex
	lines  []Line
	closed bool
}

// NewGroup returns an empty Group.
func NewGroup() *Group {
	return &Group{}
}

// Add tracks l. Adding to a closed group releases l immediately.
func (g *Group) Add(l Line) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		_ = l.Close()
		return
	}
	g.lines = append(g.lines, l)
	g.mu.Unlock()
}

// Len reports how many lines the group holds.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.lines)
}

// Close releases all lines in reverse acquisition order.
func (g *Group) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	lines := g.lines
	g.lines = nil
	g.mu.Unlock()

	var errs []error
	for i := len(lines) - 1; i >= 0; i-- {
		if err := lines[i].Close(); err != nil {
			errs = append(errs, fmt.Errorf("release line %d: %w", lines[i].Offset(), err))
		}
	}
	return errors.Join(errs...)
}

// OpenOutputs opens offsets as outputs, driven low. If any open fails, the
// lines opened so far are released and the error is returned.
func OpenOutputs(chip Chip, offsets []int) ([]Line, error) {
	g := NewGroup()
	lines := make([]Line, 0, len(offsets))
	for _, off := range offsets {
		l, err := chip.Open(off, Output)
		if err != nil {
			_ = g.Close()
			return nil, err
		}
		g.Add(l)
		lines = append(lines, l)
	}
	return lines, nil
}

// OpenEdgeInputs opens offsets as edge-detecting inputs with cfg. If any
// open fails, the lines opened so far are released.
func OpenEdgeInputs(chip Chip, offsets []int, cfg LineConfig) ([]EdgeLine, error) {
	g := NewGroup()
	lines := make([]EdgeLine, 0, len(offsets))
	for _, off := range offsets {
		l, err := chip.OpenWithEdge(off, cfg)
		if err != nil {
			_ = g.Close()
			return nil, err
		}
		g.Add(l)
		lines = append(lines, l)
	}
	return lines, nil
}
