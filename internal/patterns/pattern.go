// Package patterns holds LED animation patterns and the shared store that the
// animation engine reads and the button actions mutate.
package patterns

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrWidthMismatch is returned when a frame's width differs from the LED count.
	ErrWidthMismatch = errors.New("frame width does not match led count")
	// ErrEmptyPattern is returned for a pattern with no frames.
	ErrEmptyPattern = errors.New("pattern has no frames")
	// ErrBadFrame is returned when a frame string contains anything but 0 and 1.
	ErrBadFrame = errors.New("invalid frame")
)

// Frame is one on/off state per LED, in LED order.
type Frame []bool

// ParseFrame reads a frame written as a string of '1' (on) and '0' (off).
func ParseFrame(s string) (Frame, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrBadFrame)
	}
	f := make(Frame, 0, len(s))
	for i, r := range s {
		switch r {
		case '1':
			f = append(f, true)
		case '0':
			f = append(f, false)
		default:
			return nil, fmt.Errorf("%w: %q has %q at position %d", ErrBadFrame, s, r, i)
		}
	}
	return f, nil
}

// String renders the frame the way ParseFrame reads it.
func (f Frame) String() string {
	var sb strings.Builder
	sb.Grow(len(f))
	for _, on := range f {
		if on {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Pattern is a named, ordered sequence of frames.
type Pattern struct {
	Name   string
	Frames []Frame
}

// MustParse builds a pattern from frame strings and panics on a malformed
// frame. Only used for compile-time tables.
func MustParse(name string, frames ...string) Pattern {
	p, err := Parse(name, frames...)
	if err != nil {
		panic(err)
	}
	return p
}

// Parse builds a pattern from frame strings.
func Parse(name string, frames ...string) (Pattern, error) {
	p := Pattern{Name: name, Frames: make([]Frame, 0, len(frames))}
	for _, s := range frames {
		f, err := ParseFrame(s)
		if err != nil {
			return Pattern{}, fmt.Errorf("pattern %q: %w", name, err)
		}
		p.Frames = append(p.Frames, f)
	}
	return p, nil
}

// Validate checks that the pattern is non-empty and every frame is width wide.
func (p Pattern) Validate(width int) error {
	if len(p.Frames) == 0 {
		return fmt.Errorf("pattern %q: %w", p.Name, ErrEmptyPattern)
	}
	for i, f := range p.Frames {
		if len(f) != width {
			return fmt.Errorf("pattern %q frame %d: %w: got %d, want %d", p.Name, i, ErrWidthMismatch, len(f), width)
		}
	}
	return nil
}

func (p Pattern) clone() Pattern {
	out := Pattern{Name: p.Name, Frames: make([]Frame, len(p.Frames))}
	for i, f := range p.Frames {
		out.Frames[i] = append(Frame(nil), f...)
	}
	return out
}

// FrameStrings returns the frames rendered as strings.
func (p Pattern) FrameStrings() []string {
	out := make([]string, len(p.Frames))
	for i, f := range p.Frames {
		out[i] = f.String()
	}
	return out
}
