package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func resetForTest() {
	mu.Lock()
	modules = make(map[string]*moduleLogger)
	current = Config{}
	initialized = false
	sink = nil
	mu.Unlock()
	history = NewRingBuffer(historySize)
}

func TestModuleLevelOverride(t *testing.T) {
	resetForTest()
	Initialize(Config{
		Level:   "info",
		Format:  "text",
		Modules: map[string]string{"input": "debug", "api": "warn"},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"input", true, true, true},
		{"api", false, false, true},
		{"animation", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			h := GetLogger(tt.module).Handler()
			ctx := context.Background()
			if got := h.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := h.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := h.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestLoggerCreatedBeforeInitializePicksUpLevel(t *testing.T) {
	resetForTest()

	early := GetLogger("gpio")
	if early.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("logger created before Initialize should default to info")
	}

	Initialize(Config{Level: "info", Modules: map[string]string{"gpio": "debug"}})

	if !early.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("held logger did not pick up the module level from Initialize")
	}
}

func TestSetLevelsAppliesToHeldLoggers(t *testing.T) {
	resetForTest()
	Initialize(Config{Level: "info"})
	held := GetLogger("animation")

	SetLevels(Config{Level: "error"})
	if held.Handler().Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn still enabled after raising level to error")
	}

	SetLevels(Config{Level: "info", Modules: map[string]string{"animation": "debug"}})
	if !held.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug not enabled after module override")
	}
}

func TestHistoryAndSink(t *testing.T) {
	resetForTest()
	Initialize(Config{Level: "info"})

	var got []Entry
	SetSink(func(e Entry) { got = append(got, e) })
	defer SetSink(nil)

	GetLogger("control").Info("Pattern changed", "index", 2, "reason", "button")

	entries := History().Last(0)
	if len(entries) != 1 {
		t.Fatalf("history has %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Module != "control" || e.Message != "Pattern changed" || e.Level != "info" {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.Attributes["index"] != int64(2) || e.Attributes["reason"] != "button" {
		t.Errorf("attributes = %v", e.Attributes)
	}
	if len(got) != 1 || got[0].Seq != e.Seq {
		t.Errorf("sink received %v", got)
	}
}

func TestRingBuffer_Last(t *testing.T) {
	rb := NewRingBuffer(3)
	for _, m := range []string{"a", "b", "c", "d"} {
		rb.Write(Entry{Message: m})
	}

	tests := []struct {
		n    int
		want string
	}{
		{0, "bcd"},
		{2, "cd"},
		{10, "bcd"},
	}
	for _, tt := range tests {
		var sb strings.Builder
		for _, e := range rb.Last(tt.n) {
			sb.WriteString(e.Message)
		}
		if sb.String() != tt.want {
			t.Errorf("Last(%d) = %q, want %q", tt.n, sb.String(), tt.want)
		}
	}
	if last := rb.Last(1); last[0].Seq != 4 {
		t.Errorf("seq = %d, want 4", last[0].Seq)
	}
}

func TestMultiHandler_RespectsPerHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	debug := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	info := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(debug, info)).With("module", "test")
	logger.Debug("only once")
	logger.Info("twice")

	out := buf.String()
	if n := strings.Count(out, "only once"); n != 1 {
		t.Errorf("debug line written %d times, want 1", n)
	}
	if n := strings.Count(out, "twice"); n != 2 {
		t.Errorf("info line written %d times, want 2", n)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"loud", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
