package patterns

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/blinkd/internal/logging"
)

// Delay defaults.
const (
	DefaultDelay    = 250 * time.Millisecond
	DefaultMinDelay = 50 * time.Millisecond
	DefaultMaxDelay = 1000 * time.Millisecond
	DefaultStep     = 50 * time.Millisecond
)

// Options bounds the animation delay.
type Options struct {
	InitialDelay time.Duration
	MinDelay     time.Duration
	MaxDelay     time.Duration
}

// Snapshot is a consistent view of the store. Pattern frames are shared
// with the store and must not be modified.
type Snapshot struct {
	Pattern Pattern
	Index   int
	Count   int
	Delay   time.Duration
}

// Empty reports whether the snapshot carries no pattern.
func (s Snapshot) Empty() bool { return s.Count == 0 }

// Store is the ordered pattern list with the active index and the delay.
// The mutex guards patterns and index; the delay is atomic so the render
// loop reads it without taking the lock.
type Store struct {
	width int
	min   time.Duration
	max   time.Duration

	mu       sync.Mutex
	patterns []Pattern
	index    int

	delay  atomic.Int64
	logger *slog.Logger
}

// NewStore returns an empty store for a bank of width LEDs.
func NewStore(width int, opts Options) *Store {
	if opts.MinDelay <= 0 {
		opts.MinDelay = DefaultMinDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultMaxDelay
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = DefaultDelay
	}

	s := &Store{
		width:  width,
		min:    opts.MinDelay,
		max:    opts.MaxDelay,
		logger: logging.GetLogger("patterns"),
	}
	s.delay.Store(int64(s.clamp(opts.InitialDelay)))
	return s
}

// Width returns the LED count every frame must match.
func (s *Store) Width() int { return s.width }

// Bounds returns the delay clamp range.
func (s *Store) Bounds() (minDelay, maxDelay time.Duration) { return s.min, s.max }

// Add appends a private copy of p. A pattern that is empty or whose frames
// are not Width() wide is rejected and the store is left unchanged.
func (s *Store) Add(p Pattern) error {
	if err := p.Validate(s.width); err != nil {
		s.logger.Warn("Pattern rejected", "pattern", p.Name, "error", err)
		return err
	}
	cp := p.clone()

	s.mu.Lock()
	s.patterns = append(s.patterns, cp)
	n := len(s.patterns)
	s.mu.Unlock()

	s.logger.Debug("Pattern added", "pattern", p.Name, "frames", len(p.Frames), "count", n)
	return nil
}

// Len returns the number of patterns.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.patterns)
}

// Index returns the active pattern index.
func (s *Store) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Next advances the active index, wrapping to 0. No-op on an empty store.
func (s *Store) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.patterns); n > 0 {
		s.index = (s.index + 1) % n
	}
	return s.index
}

// Previous moves the active index back, wrapping to the last pattern.
func (s *Store) Previous() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.patterns); n > 0 {
		s.index = (s.index - 1 + n) % n
	}
	return s.index
}

// Select makes index the active pattern, reducing it modulo the count.
func (s *Store) Select(index int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.patterns); n > 0 {
		s.index = ((index % n) + n) % n
	}
	return s.index
}

// Delay returns the current frame delay.
func (s *Store) Delay() time.Duration {
	return time.Duration(s.delay.Load())
}

// SetDelay stores d clamped into the configured range and returns the
// stored value.
func (s *Store) SetDelay(d time.Duration) time.Duration {
	d = s.clamp(d)
	s.delay.Store(int64(d))
	return d
}

// IncreaseSpeed shortens the delay by step, floored at the minimum.
func (s *Store) IncreaseSpeed(step time.Duration) time.Duration {
	return s.adjust(-step)
}

// DecreaseSpeed lengthens the delay by step, capped at the maximum.
func (s *Store) DecreaseSpeed(step time.Duration) time.Duration {
	return s.adjust(step)
}

func (s *Store) adjust(delta time.Duration) time.Duration {
	for {
		old := s.delay.Load()
		next := s.clamp(time.Duration(old) + delta)
		if s.delay.CompareAndSwap(old, int64(next)) {
			return next
		}
	}
}

func (s *Store) clamp(d time.Duration) time.Duration {
	return min(max(d, s.min), s.max)
}

// Snapshot returns the active pattern, index, count and delay.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{Index: s.index, Count: len(s.patterns)}
	if snap.Count > 0 {
		snap.Pattern = s.patterns[s.index]
	}
	s.mu.Unlock()

	snap.Delay = s.Delay()
	return snap
}

// Patterns returns the registered patterns in insertion order. Frames are
// shared with the store and must not be modified.
func (s *Store) Patterns() []Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Pattern, len(s.patterns))
	copy(out, s.patterns)
	return out
}
