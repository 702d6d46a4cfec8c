package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

const historySize = 1000

// Config is the logging section of the configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

type moduleLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

var (
	mu          sync.RWMutex
	modules     = make(map[string]*moduleLogger)
	current     Config
	initialized bool
	rootLevel   = &slog.LevelVar{}
	history     = NewRingBuffer(historySize)
	sink        EntrySink
)

// Initialize installs cfg, rebuilds handlers for modules created earlier and
// sets the slog default logger.
func Initialize(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	current = cfg
	initialized = true
	rootLevel.Set(levelOr(cfg.Level, slog.LevelInfo))

	for name, m := range modules {
		m.level.Set(moduleLevel(cfg, name))
		m.logger = slog.New(buildHandler(cfg.Format, m.level)).With("module", name)
	}

	slog.SetDefault(slog.New(buildHandler(cfg.Format, rootLevel)))
}

// SetLevels applies new global and per-module levels to every logger,
// including ones already handed out. Format changes need a restart.
func SetLevels(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	current.Level = cfg.Level
	current.Modules = cfg.Modules
	rootLevel.Set(levelOr(cfg.Level, slog.LevelInfo))
	for name, m := range modules {
		m.level.Set(moduleLevel(current, name))
	}
}

// GetLogger returns the logger for module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	mu.RLock()
	m, ok := modules[module]
	mu.RUnlock()
	if ok {
		return m.logger
	}

	mu.Lock()
	defer mu.Unlock()
	if m, ok := modules[module]; ok {
		return m.logger
	}

	level := &slog.LevelVar{}
	format := "text"
	if initialized {
		level.Set(moduleLevel(current, module))
		format = current.Format
	}
	m = &moduleLogger{
		level:  level,
		logger: slog.New(buildHandler(format, level)).With("module", module),
	}
	modules[module] = m
	return m.logger
}

// History returns the ring buffer holding recent log entries.
func History() *RingBuffer {
	return history
}

// SetSink registers fn to receive every entry written to history.
// Pass nil to remove it.
func SetSink(fn EntrySink) {
	mu.Lock()
	defer mu.Unlock()
	sink = fn
}

func currentSink() EntrySink {
	mu.RLock()
	defer mu.RUnlock()
	return sink
}

func moduleLevel(cfg Config, module string) slog.Level {
	level := levelOr(cfg.Level, slog.LevelInfo)
	if s, ok := cfg.Modules[module]; ok {
		level = levelOr(s, level)
	}
	return level
}

// buildHandler chains stdout, the journal and the history buffer.
func buildHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdout slog.Handler
	if format == "json" {
		stdout = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdout = slog.NewTextHandler(os.Stdout, opts)
	}

	var handlers []slog.Handler
	if stdoutAttached() {
		handlers = append(handlers, stdout)
	}
	if JournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	handlers = append(handlers, NewBufferHandler(level))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewMultiHandler(handlers...)
}

// stdoutAttached is false when stdout is /dev/null, as under some unit files.
func stdoutAttached() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&os.ModeCharDevice != 0 || mode&os.ModeNamedPipe != 0 || mode&os.ModeSocket != 0 || mode.IsRegular()
}

// ParseLevel maps debug/info/warn/error (case-insensitive) onto a slog.Level.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func levelOr(s string, fallback slog.Level) slog.Level {
	if l, ok := ParseLevel(s); ok {
		return l
	}
	return fallback
}
