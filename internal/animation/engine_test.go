package animation

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/blinkd/internal/events"
	"github.com/smazurov/blinkd/internal/gpio"
	"github.com/smazurov/blinkd/internal/led"
	"github.com/smazurov/blinkd/internal/patterns"
)

// recorder is a Renderer that reports each frame on a channel.
type recorder struct {
	frames chan string

	mu   sync.Mutex
	last string
	offs int
	err  error
}

func newRecorder() *recorder {
	return &recorder{frames: make(chan string, 256)}
}

func (r *recorder) Render(frame []bool) error {
	s := patterns.Frame(frame).String()
	r.mu.Lock()
	r.last = s
	err := r.err
	r.mu.Unlock()
	r.frames <- s
	return err
}

func (r *recorder) Off() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offs++
	r.last = "0000"
	return nil
}

func (r *recorder) next(t *testing.T) string {
	t.Helper()
	select {
	case f := <-r.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for a frame")
		return ""
	}
}

func newStore(t *testing.T, ps ...patterns.Pattern) *patterns.Store {
	t.Helper()
	s := patterns.NewStore(4, patterns.Options{InitialDelay: patterns.DefaultMinDelay})
	for _, p := range ps {
		if err := s.Add(p); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestEngine_StartWithoutPatterns(t *testing.T) {
	e := New(newStore(t), newRecorder(), events.New())
	if err := e.Start(); !errors.Is(err, ErrNoPatterns) {
		t.Fatalf("got %v, want ErrNoPatterns", err)
	}
	if e.Running() {
		t.Error("engine running after refused start")
	}
	e.Stop()
}

func TestEngine_PlaysFramesInOrder(t *testing.T) {
	rec := newRecorder()
	e := New(newStore(t, patterns.MustParse("chase", "1000", "0100", "0010", "0001")), rec, events.New())
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	defer e.Stop()

	want := []string{"1000", "0100", "0010", "0001", "1000"}
	for i, w := range want {
		if got := rec.next(t); got != w {
			t.Fatalf("frame %d = %s, want %s", i, got, w)
		}
	}
}

func TestEngine_PatternSwitchWaitsForTraversal(t *testing.T) {
	rec := newRecorder()
	store := newStore(t,
		patterns.MustParse("a", "1000", "0100", "0010", "0001"),
		patterns.MustParse("b", "1111", "0000"),
	)
	e := New(store, rec, events.New())
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	defer e.Stop()

	if got := rec.next(t); got != "1000" {
		t.Fatalf("first frame = %s", got)
	}
	store.Next()

	for _, w := range []string{"0100", "0010", "0001", "1111", "0000"} {
		if got := rec.next(t); got != w {
			t.Fatalf("got %s, want %s", got, w)
		}
	}
}

func TestEngine_DelayReadEveryFrame(t *testing.T) {
	rec := newRecorder()
	store := newStore(t, patterns.MustParse("a", "1000", "0100", "0010", "0001"))
	store.SetDelay(patterns.DefaultMaxDelay)
	e := New(store, rec, events.New())
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	defer e.Stop()

	rec.next(t)
	// The current sleep still runs at the old delay; the one after uses the new.
	store.SetDelay(patterns.DefaultMinDelay)
	rec.next(t)

	start := time.Now()
	rec.next(t)
	if d := time.Since(start); d > 500*time.Millisecond {
		t.Errorf("frame after delay change took %v", d)
	}
}

func TestEngine_StopWritesAllOffLast(t *testing.T) {
	chip := gpio.NewSimChip("sim", 32)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	bank, err := led.OpenBank(chip, []int{27, 23, 22, 24}, logger)
	if err != nil {
		t.Fatal(err)
	}

	e := New(newStore(t, patterns.MustParse("blink_all", "1111", "0000")), bank, events.New())
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(120 * time.Millisecond)
	e.Stop()

	if e.Running() {
		t.Error("engine still running after Stop")
	}
	log := chip.WriteLog()
	if len(log) < 8 {
		t.Fatalf("only %d writes recorded", len(log))
	}
	for _, w := range log[len(log)-4:] {
		if w.Value {
			t.Errorf("line %d on after stop; last frame not all-off", w.Offset)
		}
	}

	n := len(chip.WriteLog())
	time.Sleep(120 * time.Millisecond)
	if len(chip.WriteLog()) != n {
		t.Error("writes continued after Stop returned")
	}
}

func TestEngine_StartStopIdempotent(t *testing.T) {
	rec := newRecorder()
	bus := events.New()
	states := make(chan bool, 8)
	defer events.Subscribe(bus, func(e events.AnimationStateEvent) { states <- e.Running })()

	e := New(newStore(t, patterns.MustParse("a", "1010", "0101")), rec, bus)
	for range 3 {
		if err := e.Start(); err != nil {
			t.Fatal(err)
		}
	}
	if !e.Running() {
		t.Fatal("not running after Start")
	}
	e.Stop()
	e.Stop()
	_ = e.Close()

	rec.mu.Lock()
	offs := rec.offs
	rec.mu.Unlock()
	if offs != 1 {
		t.Errorf("Off called %d times, want 1", offs)
	}

	want := []bool{true, false}
	for _, w := range want {
		select {
		case got := <-states:
			if got != w {
				t.Errorf("state event = %v, want %v", got, w)
			}
		case <-time.After(time.Second):
			t.Fatal("missing state event")
		}
	}
	select {
	case got := <-states:
		t.Errorf("extra state event %v", got)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestEngine_RestartAfterStop(t *testing.T) {
	rec := newRecorder()
	e := New(newStore(t, patterns.MustParse("a", "1000")), rec, events.New())
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	rec.next(t)
	e.Stop()

	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	defer e.Stop()
	rec.next(t)
	if !e.Running() {
		t.Error("engine not running after restart")
	}
}

func TestEngine_RenderErrorsDoNotStopLoop(t *testing.T) {
	rec := newRecorder()
	rec.err = gpio.ErrIO
	e := New(newStore(t, patterns.MustParse("a", "1000", "0001")), rec, events.New())
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	defer e.Stop()

	for range 4 {
		rec.next(t)
	}
	if !e.Running() {
		t.Error("engine stopped after render errors")
	}
}

func TestEngine_CloseStopsRunningEngine(t *testing.T) {
	rec := newRecorder()
	e := New(newStore(t, patterns.MustParse("a", "1111")), rec, events.New())
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	rec.next(t)

	_ = e.Close()
	if e.Running() {
		t.Error("engine running after Close")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.last != "0000" {
		t.Errorf("last output %s, want all off", rec.last)
	}
}
