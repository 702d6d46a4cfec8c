// Package daemon assembles blinkd from its parts: it opens the GPIO lines,
// builds the pattern store, the animation engine, the button dispatcher and
// the optional API server, and tears them down in order on shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/blinkd/internal/animation"
	"github.com/smazurov/blinkd/internal/api"
	"github.com/smazurov/blinkd/internal/api/models"
	"github.com/smazurov/blinkd/internal/config"
	"github.com/smazurov/blinkd/internal/control"
	"github.com/smazurov/blinkd/internal/events"
	"github.com/smazurov/blinkd/internal/gpio"
	"github.com/smazurov/blinkd/internal/input"
	"github.com/smazurov/blinkd/internal/led"
	"github.com/smazurov/blinkd/internal/logging"
	"github.com/smazurov/blinkd/internal/metrics"
	"github.com/smazurov/blinkd/internal/patterns"
	"github.com/smazurov/blinkd/internal/systemd"
)

// ErrConfig is returned for a pin map or option that cannot be used.
var ErrConfig = errors.New("invalid configuration")

// ButtonSpec binds one button line to an action.
type ButtonSpec struct {
	Line   int
	Action control.Action
}

// Config is everything the daemon needs at startup.
type Config struct {
	Chip     string
	Simulate bool
	LEDLines []int
	Buttons  []ButtonSpec
	Bias     gpio.Bias

	DebounceWindow time.Duration
	PollTimeout    time.Duration
	BackoffMax     time.Duration

	Delay    time.Duration
	MinDelay time.Duration
	MaxDelay time.Duration
	Step     time.Duration

	// PatternsFile is a TOML or YAML pattern file. Empty uses the built-ins.
	PatternsFile string

	ServerEnabled bool
	ServerAddr    string
	AuthUsername  string
	AuthPassword  string

	// StatusLED is a sysfs LED name, "auto", or "" for none.
	StatusLED string

	// ConfigPath is watched for live changes when non-empty.
	ConfigPath string
}

func (c Config) validate() error {
	if len(c.LEDLines) == 0 {
		return fmt.Errorf("%w: no LED lines", ErrConfig)
	}
	seen := make(map[int]string)
	claim := func(line int, use string) error {
		if line < 0 {
			return fmt.Errorf("%w: negative line %d", ErrConfig, line)
		}
		if prev, ok := seen[line]; ok {
			return fmt.Errorf("%w: line %d used as %s and %s", ErrConfig, line, prev, use)
		}
		seen[line] = use
		return nil
	}
	for _, l := range c.LEDLines {
		if err := claim(l, "led"); err != nil {
			return err
		}
	}
	for _, b := range c.Buttons {
		if _, err := control.ParseAction(string(b.Action)); err != nil {
			return fmt.Errorf("%w: button %d: %w", ErrConfig, b.Line, err)
		}
		if err := claim(b.Line, "button"); err != nil {
			return err
		}
	}
	return nil
}

// simLines sizes a simulated chip to hold every configured offset.
func (c Config) simLines() int {
	n := slices.Max(c.LEDLines)
	for _, b := range c.Buttons {
		n = max(n, b.Line)
	}
	return n + 1
}

// ParseLines parses a comma-separated list of line offsets, e.g. "27,23,22,24".
func ParseLines(s string) ([]int, error) {
	var lines []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: line %q is not a number", ErrConfig, part)
		}
		lines = append(lines, n)
	}
	return lines, nil
}

// ParseButtons parses "line:action" pairs, e.g.
// "18:previous_pattern,17:next_pattern".
func ParseButtons(s string) ([]ButtonSpec, error) {
	var specs []ButtonSpec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lineStr, actionStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("%w: button %q, want line:action", ErrConfig, part)
		}
		line, err := strconv.Atoi(strings.TrimSpace(lineStr))
		if err != nil {
			return nil, fmt.Errorf("%w: button line %q is not a number", ErrConfig, lineStr)
		}
		action, err := control.ParseAction(strings.TrimSpace(actionStr))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		specs = append(specs, ButtonSpec{Line: line, Action: action})
	}
	return specs, nil
}

// Daemon is a running blinkd instance.
type Daemon struct {
	cfg    Config
	logger *slog.Logger

	chip      gpio.Chip
	bank      *led.Bank
	buttons   *gpio.Group
	edgeLines []gpio.EdgeLine

	bus        *events.Bus
	store      *patterns.Store
	controller *control.Controller
	engine     *animation.Engine
	dispatcher *input.Dispatcher
	server     *api.Server
	status     *led.Manager
	notifier   *systemd.Notifier
	watcher    *config.Watcher[config.Reloadable]

	stopInput     func()
	inputDone     chan struct{}
	stopStatusSub func()
	wg            sync.WaitGroup

	shutdown sync.Once
}

// New opens the hardware and builds every component. Nothing runs until Run.
// Failing to open the chip or a line returns an error wrapping
// gpio.ErrDeviceUnavailable, with every line opened so far released.
func New(cfg Config) (*Daemon, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var chip gpio.Chip
	if cfg.Simulate {
		chip = gpio.NewSimChip("sim:"+cfg.Chip, cfg.simLines())
	} else {
		var err error
		chip, err = gpio.OpenChip(cfg.Chip)
		if err != nil {
			return nil, err
		}
	}
	return newWithChip(cfg, chip)
}

func newWithChip(cfg Config, chip gpio.Chip) (*Daemon, error) {
	d := &Daemon{
		cfg:    cfg,
		logger: logging.GetLogger("daemon"),
		chip:   chip,
		bus:    events.New(),
	}

	if err := d.openLines(); err != nil {
		_ = chip.Close()
		return nil, err
	}

	d.store = patterns.NewStore(d.bank.Width(), patterns.Options{
		InitialDelay: cfg.Delay,
		MinDelay:     cfg.MinDelay,
		MaxDelay:     cfg.MaxDelay,
	})
	d.loadPatterns()

	d.controller = control.New(d.store, d.bus, cfg.Step)
	d.engine = animation.New(d.store, d.bank, d.bus)
	d.dispatcher = input.New(chip, d.bindings(), d.controller, d.bus, input.Options{
		PollTimeout:    cfg.PollTimeout,
		DebounceWindow: cfg.DebounceWindow,
		BackoffMax:     cfg.BackoffMax,
	})

	ledLogger := logging.GetLogger("led")
	d.status = led.NewManager(led.NewStatusLED(cfg.StatusLED, ledLogger), d.bus, ledLogger)
	d.notifier = systemd.NewNotifier(logging.GetLogger("systemd"))

	if cfg.ServerEnabled {
		d.server = api.NewServer(&api.Options{
			AuthUsername:      cfg.AuthUsername,
			AuthPassword:      cfg.AuthPassword,
			Controller:        d.controller,
			Animation:         d.engine,
			Bus:               d.bus,
			PrometheusHandler: metrics.Handler(),
			Chip:              chip.Name(),
			LEDLines:          d.bank.Offsets(),
			Buttons:           d.buttonData(),
		})
	}

	if cfg.ConfigPath != "" {
		d.watcher = config.NewConfigWatcher(cfg.ConfigPath, config.LoadReloadable, logging.GetLogger("config"))
		d.watcher.OnReload(d.applyReload)
	}

	return d, nil
}

// openLines opens the LED bank and the button lines. On failure every line
// opened so far is released exactly once.
func (d *Daemon) openLines() error {
	bank, err := led.OpenBank(d.chip, d.cfg.LEDLines, logging.GetLogger("led"))
	if err != nil {
		return fmt.Errorf("open LED lines: %w", err)
	}

	offsets := make([]int, len(d.cfg.Buttons))
	for i, b := range d.cfg.Buttons {
		offsets[i] = b.Line
	}
	lines, err := gpio.OpenEdgeInputs(d.chip, offsets, gpio.LineConfig{
		Edge:     gpio.EdgeBoth,
		Bias:     d.cfg.Bias,
		Consumer: "blinkd",
	})
	if err != nil {
		if cerr := bank.Close(); cerr != nil {
			d.logger.Warn("Failed to release LED lines", "error", cerr)
		}
		return fmt.Errorf("open button lines: %w", err)
	}

	d.bank = bank
	d.buttons = gpio.NewGroup()
	d.edgeLines = lines
	for _, l := range lines {
		d.buttons.Add(l)
	}
	d.logger.Info("Button lines opened", "chip", d.chip.Name(), "lines", offsets, "bias", d.cfg.Bias)
	return nil
}

func (d *Daemon) loadPatterns() {
	if d.cfg.PatternsFile != "" {
		ps, err := patterns.LoadFile(d.cfg.PatternsFile)
		if err != nil {
			d.logger.Warn("Failed to load pattern file, using built-in patterns", "file", d.cfg.PatternsFile, "error", err)
		} else {
			added, rejected := patterns.Populate(d.store, ps)
			d.logger.Info("Patterns loaded", "file", d.cfg.PatternsFile, "added", added, "rejected", rejected)
			if added > 0 {
				return
			}
			d.logger.Warn("Pattern file has no usable pattern, using built-in patterns", "file", d.cfg.PatternsFile)
		}
	}
	added, _ := patterns.Populate(d.store, patterns.Builtin(d.store.Width()))
	d.logger.Info("Built-in patterns loaded", "count", added, "width", d.store.Width())
}

func (d *Daemon) bindings() []input.Binding {
	bindings := make([]input.Binding, len(d.cfg.Buttons))
	for i, b := range d.cfg.Buttons {
		bindings[i] = input.Binding{Line: d.edgeLines[i], Action: b.Action}
	}
	return bindings
}

func (d *Daemon) buttonData() []models.ButtonData {
	data := make([]models.ButtonData, len(d.cfg.Buttons))
	for i, b := range d.cfg.Buttons {
		data[i] = models.ButtonData{Line: b.Line, Action: string(b.Action)}
	}
	return data
}

func (d *Daemon) applyReload(r config.Reloadable) {
	logging.SetLevels(r.Logging)
	if r.StepMs > 0 {
		d.controller.SetStep(time.Duration(r.StepMs) * time.Millisecond)
	}
	d.logger.Info("Runtime settings reloaded", "level", r.Logging.Level, "step_ms", r.StepMs)
}

// statusLine is the unit status shown by systemctl.
func (d *Daemon) statusLine(pattern string) string {
	return fmt.Sprintf("playing %s (%d patterns on %d LEDs)", pattern, d.store.Len(), d.bank.Width())
}

// Controller returns the action controller shared by buttons and the API.
func (d *Daemon) Controller() *control.Controller { return d.controller }

// Run starts the animation, the dispatcher and the optional services, then
// blocks until ctx is done and shuts everything down. It returns an error
// only when the animation cannot start.
func (d *Daemon) Run(ctx context.Context) error {
	logging.SetSink(func(e logging.Entry) {
		events.Publish(d.bus, api.LogEvent(e))
	})

	if err := d.engine.Start(); err != nil {
		d.Shutdown()
		return fmt.Errorf("start animation: %w", err)
	}
	d.status.Start()

	inputCtx, cancel := context.WithCancel(context.Background())
	d.stopInput = cancel
	d.inputDone = make(chan struct{})
	go func() {
		defer close(d.inputDone)
		_ = d.dispatcher.Run(inputCtx)
	}()

	if d.server != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.server.Start(d.cfg.ServerAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				d.logger.Error("API server failed", "addr", d.cfg.ServerAddr, "error", err)
			}
		}()
	}

	if d.watcher != nil {
		if err := d.watcher.Start(); err != nil {
			d.logger.Warn("Config hot reload disabled", "path", d.cfg.ConfigPath, "error", err)
		}
	}

	d.notifier.Ready(d.statusLine(d.store.Snapshot().Pattern.Name))
	d.stopStatusSub = events.Subscribe(d.bus, func(e events.PatternChangedEvent) {
		d.notifier.Status(d.statusLine(e.Name))
	})
	d.logger.Info("blinkd running",
		"chip", d.chip.Name(),
		"leds", d.bank.Offsets(),
		"buttons", len(d.cfg.Buttons),
		"patterns", d.store.Len(),
		"delay", d.store.Delay())

	<-ctx.Done()
	d.Shutdown()
	return nil
}

// Shutdown stops the dispatcher, stops the animation (LEDs off), stops the
// API and releases every line. Safe to call more than once.
func (d *Daemon) Shutdown() {
	d.shutdown.Do(func() {
		d.logger.Info("Shutting down")
		if d.stopStatusSub != nil {
			d.stopStatusSub()
		}
		d.notifier.Stopping()

		if d.stopInput != nil {
			d.stopInput()
			<-d.inputDone
		}

		d.engine.Stop()

		if d.server != nil {
			if err := d.server.Stop(); err != nil {
				d.logger.Warn("Error stopping API server", "error", err)
			}
		}
		d.wg.Wait()

		d.status.Stop()
		if d.watcher != nil {
			if err := d.watcher.Stop(); err != nil {
				d.logger.Warn("Error stopping config watcher", "error", err)
			}
		}

		if err := d.buttons.Close(); err != nil {
			d.logger.Warn("Error releasing button lines", "error", err)
		}
		if err := d.bank.Close(); err != nil {
			d.logger.Warn("Error releasing LED lines", "error", err)
		}
		if err := d.chip.Close(); err != nil {
			d.logger.Warn("Error closing GPIO chip", "error", err)
		}

		logging.SetSink(nil)
		d.logger.Info("Shutdown complete")
	})
}
