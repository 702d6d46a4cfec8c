package gpio

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func openButtons(t *testing.T, chip *SimChip, offsets ...int) []EdgeLine {
	t.Helper()
	lines, err := OpenEdgeInputs(chip, offsets, LineConfig{Edge: EdgeBoth, Bias: BiasPullUp})
	if err != nil {
		t.Fatal(err)
	}
	return lines
}

func TestSimChip_PollTimesOutWithNothingReady(t *testing.T) {
	chip := NewSimChip("sim", 32)
	lines := openButtons(t, chip, 18, 17)

	start := time.Now()
	ready, err := chip.Poll(context.Background(), lines, 30*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 25*time.Millisecond {
		t.Error("Poll returned before the timeout")
	}
	for i, r := range ready {
		if r {
			t.Errorf("line %d reported ready", i)
		}
	}
}

func TestSimChip_PollWakesOnInject(t *testing.T) {
	chip := NewSimChip("sim", 32)
	lines := openButtons(t, chip, 18, 17)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = chip.Inject(17, FallingEdge, 5*time.Millisecond)
	}()

	ready, err := chip.Poll(context.Background(), lines, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if ready[0] || !ready[1] {
		t.Fatalf("ready = %v, want [false true]", ready)
	}

	e, err := lines[1].ReadEvent()
	if err != nil {
		t.Fatal(err)
	}
	if e.Kind != FallingEdge || e.Offset != 17 || e.Timestamp != 5*time.Millisecond {
		t.Errorf("unexpected event %+v", e)
	}
	if lines[1].Pending() != 0 {
		t.Error("event was not drained")
	}
}

func TestSimChip_PollHonoursContext(t *testing.T) {
	chip := NewSimChip("sim", 32)
	lines := openButtons(t, chip, 18)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := chip.Poll(ctx, lines, time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestSimChip_InjectedPollFailure(t *testing.T) {
	chip := NewSimChip("sim", 32)
	lines := openButtons(t, chip, 18)
	boom := errors.New("EINTR")
	chip.FailPolls(boom)

	if _, err := chip.Poll(context.Background(), lines, time.Millisecond); !errors.Is(err, boom) {
		t.Fatalf("got %v, want injected error", err)
	}
	if _, err := chip.Poll(context.Background(), lines, time.Millisecond); err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if chip.PollCalls() != 2 {
		t.Errorf("PollCalls() = %d, want 2", chip.PollCalls())
	}
}

func TestSimLine_FailedEventIsStillDrained(t *testing.T) {
	chip := NewSimChip("sim", 32)
	lines := openButtons(t, chip, 10)
	chip.Line(10).FailEvents(1, errors.New("EIO"))

	_ = chip.Inject(10, FallingEdge, time.Millisecond)
	if _, err := lines[0].ReadEvent(); !errors.Is(err, ErrIO) {
		t.Fatalf("got %v, want ErrIO", err)
	}
	if lines[0].Pending() != 0 {
		t.Error("failed event left in queue")
	}
}

func TestSimLine_WritesAreLogged(t *testing.T) {
	chip := NewSimChip("sim", 32)
	lines, err := OpenOutputs(chip, []int{27, 23})
	if err != nil {
		t.Fatal(err)
	}
	_ = lines[0].Write(true)
	_ = lines[1].Write(false)

	want := []WriteRecord{{27, true}, {23, false}}
	got := chip.WriteLog()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	_ = lines[0].Close()
	if err := lines[0].Write(true); !errors.Is(err, ErrClosed) {
		t.Errorf("write after close: got %v, want ErrClosed", err)
	}
}

func droppedEvents(t *testing.T, line int) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range families {
		if mf.GetName() != "blinkd_gpio_events_dropped_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "line" && lp.GetValue() == strconv.Itoa(line) {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestEventQueue_DropsWhenFull(t *testing.T) {
	wake := make(chan struct{}, 1)
	q := newEventQueue(7, 2, wake)
	before := droppedEvents(t, 7)

	q.push(Event{Offset: 7})
	q.push(Event{Offset: 7, Timestamp: time.Millisecond})
	if q.push(Event{Offset: 7, Timestamp: 2 * time.Millisecond}) {
		t.Error("push into a full queue should fail")
	}
	if got := droppedEvents(t, 7); got != before+1 {
		t.Errorf("dropped = %v, want %v", got, before+1)
	}
	e, _ := q.pop()
	if e.Timestamp != 0 {
		t.Errorf("queue is not FIFO: got timestamp %v", e.Timestamp)
	}
}

func TestSimChip_InjectIntoFullQueueFails(t *testing.T) {
	chip := NewSimChip("sim", 32)
	openButtons(t, chip, 9)
	before := droppedEvents(t, 9)

	for i := range defaultQueueLimit {
		if err := chip.Inject(9, FallingEdge, time.Duration(i)*time.Millisecond); err != nil {
			t.Fatalf("inject %d: %v", i, err)
		}
	}
	if err := chip.Inject(9, RisingEdge, time.Second); !errors.Is(err, ErrIO) {
		t.Errorf("inject past the limit: got %v, want ErrIO", err)
	}
	if got := droppedEvents(t, 9); got != before+1 {
		t.Errorf("dropped = %v, want %v", got, before+1)
	}
	if n := chip.Line(9).Pending(); n != defaultQueueLimit {
		t.Errorf("pending = %d, want %d", n, defaultQueueLimit)
	}
}
