package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/smazurov/blinkd/internal/control"
	"github.com/smazurov/blinkd/internal/gpio"
	"github.com/smazurov/blinkd/internal/input"
	"github.com/smazurov/blinkd/internal/patterns"
)

var (
	testLEDs    = []int{27, 23, 22, 24}
	testButtons = []ButtonSpec{
		{Line: 18, Action: control.PreviousPattern},
		{Line: 17, Action: control.NextPattern},
		{Line: 10, Action: control.DecreaseSpeed},
		{Line: 25, Action: control.IncreaseSpeed},
	}
)

func testConfig() Config {
	return Config{
		Chip:           "/dev/gpiochip0",
		Simulate:       true,
		LEDLines:       testLEDs,
		Buttons:        testButtons,
		DebounceWindow: 20 * time.Millisecond,
		PollTimeout:    10 * time.Millisecond,
		Delay:          20 * time.Millisecond,
		MinDelay:       10 * time.Millisecond,
		MaxDelay:       100 * time.Millisecond,
		Step:           10 * time.Millisecond,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestParseLines(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{in: "27,23,22,24", want: []int{27, 23, 22, 24}},
		{in: " 5 , 6 ", want: []int{5, 6}},
		{in: "", want: nil},
		{in: "1,,2", want: []int{1, 2}},
		{in: "1,x", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLines(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLines(%q) error = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseLines(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseButtons(t *testing.T) {
	tests := []struct {
		in      string
		want    []ButtonSpec
		wantErr bool
	}{
		{
			in:   "18:previous_pattern, 17:next_pattern",
			want: []ButtonSpec{{18, control.PreviousPattern}, {17, control.NextPattern}},
		},
		{in: "", want: nil},
		{in: "18", wantErr: true},
		{in: "x:next_pattern", wantErr: true},
		{in: "18:dance", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseButtons(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseButtons(%q) error = %v", tt.in, err)
			continue
		}
		if tt.wantErr {
			if !errors.Is(err, ErrConfig) {
				t.Errorf("ParseButtons(%q) error %v is not ErrConfig", tt.in, err)
			}
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseButtons(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_RejectsBadPinMaps(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"no leds", func(c *Config) { c.LEDLines = nil }},
		{"duplicate led", func(c *Config) { c.LEDLines = []int{1, 1} }},
		{"button on led line", func(c *Config) { c.Buttons = []ButtonSpec{{27, control.NextPattern}} }},
		{"negative line", func(c *Config) { c.LEDLines = []int{-1} }},
		{"unknown action", func(c *Config) { c.Buttons = []ButtonSpec{{5, "jump"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(&cfg)
			if _, err := New(cfg); !errors.Is(err, ErrConfig) {
				t.Errorf("New error = %v, want ErrConfig", err)
			}
		})
	}
}

func TestNew_ReleasesLinesWhenAButtonFailsToOpen(t *testing.T) {
	chip := gpio.NewSimChip("sim", 32)
	chip.FailOpen(10, errors.New("busy"))

	_, err := newWithChip(testConfig(), chip)
	if !errors.Is(err, gpio.ErrDeviceUnavailable) {
		t.Fatalf("error = %v, want ErrDeviceUnavailable", err)
	}

	for _, off := range append(append([]int{}, testLEDs...), 18, 17) {
		l := chip.Line(off)
		if l == nil {
			t.Fatalf("line %d never opened", off)
		}
		if n := l.CloseCount(); n != 1 {
			t.Errorf("line %d closed %d times, want 1", off, n)
		}
	}
	if chip.Line(25) != nil {
		t.Error("line after the failure was opened")
	}
}

func TestNew_PatternFileFallsBackToBuiltins(t *testing.T) {
	dir := t.TempDir()
	narrow := filepath.Join(dir, "narrow.toml")
	content := "[[pattern]]\nname = \"three\"\nframes = [\"101\", \"010\"]\n"
	if err := os.WriteFile(narrow, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		file string
	}{
		{"missing file", filepath.Join(dir, "absent.toml")},
		{"no usable pattern", narrow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.PatternsFile = tt.file
			d, err := New(cfg)
			if err != nil {
				t.Fatal(err)
			}
			defer d.Shutdown()
			if got, want := d.store.Len(), len(patterns.Builtin(4)); got != want {
				t.Errorf("patterns = %d, want %d built-ins", got, want)
			}
		})
	}
}

func TestRun_ButtonPressAdvancesPatternAndShutdownTurnsLEDsOff(t *testing.T) {
	d, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	chip := d.chip.(*gpio.SimChip)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	waitFor(t, "animation to start", d.engine.Running)

	// Button lines idle high; a press is a falling edge.
	if err := chip.Inject(17, gpio.FallingEdge, input.Monotonic()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "next_pattern", func() bool { return d.store.Index() == 1 })

	if err := chip.Inject(10, gpio.FallingEdge, input.Monotonic()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "decrease_speed", func() bool { return d.store.Delay() == 30*time.Millisecond })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if d.engine.Running() {
		t.Error("engine still running after shutdown")
	}
	for _, off := range testLEDs {
		l := chip.Line(off)
		if l.Value() {
			t.Errorf("LED %d left on", off)
		}
		if l.CloseCount() != 1 {
			t.Errorf("LED %d closed %d times", off, l.CloseCount())
		}
	}
	for _, b := range testButtons {
		if n := chip.Line(b.Line).CloseCount(); n != 1 {
			t.Errorf("button %d closed %d times", b.Line, n)
		}
	}

	// A second shutdown is a no-op.
	d.Shutdown()
	if n := chip.Line(27).CloseCount(); n != 1 {
		t.Errorf("LED closed %d times after second shutdown", n)
	}
}

func TestRun_ReloadsStepFromConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blinkd.toml")
	if err := os.WriteFile(path, []byte("[animation]\nstep_ms = 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.ConfigPath = path
	d, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	waitFor(t, "animation to start", d.engine.Running)
	// Give the watcher time to register before the write.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("[animation]\nstep_ms = 40\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for d.Controller().Step() != 40*time.Millisecond {
		if time.Now().After(deadline) {
			t.Fatalf("step = %v after reload, want 40ms", d.Controller().Step())
		}
		time.Sleep(20 * time.Millisecond)
	}
}
