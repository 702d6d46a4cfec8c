package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/smazurov/blinkd/cmd"
	"github.com/smazurov/blinkd/internal/config"
	"github.com/smazurov/blinkd/internal/daemon"
	"github.com/smazurov/blinkd/internal/gpio"
	"github.com/smazurov/blinkd/internal/logging"
	"github.com/smazurov/blinkd/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
// List options are comma-separated strings; in the TOML file they may also
// be arrays.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"blinkd.toml"`

	// GPIO settings
	GPIOChip    string `help:"GPIO character device" default:"/dev/gpiochip0" toml:"gpio.chip" env:"GPIO_CHIP"`
	LEDLines    string `help:"LED line offsets in LED order" default:"27,23,22,24" toml:"gpio.led_lines" env:"GPIO_LED_LINES"`
	ButtonLines string `help:"Button bindings as line:action" default:"18:previous_pattern,17:next_pattern,10:decrease_speed,25:increase_speed" toml:"gpio.button_lines" env:"GPIO_BUTTON_LINES"`
	GPIOBias    string `help:"Button line bias (as-is, disabled, pull-up, pull-down)" default:"as-is" toml:"gpio.bias" env:"GPIO_BIAS"`
	Simulate    bool   `help:"Run on simulated GPIO lines" default:"false" toml:"gpio.simulate" env:"GPIO_SIMULATE"`

	// Input settings
	DebounceMs    int `help:"Button debounce window in milliseconds" default:"200" toml:"input.debounce_ms" env:"INPUT_DEBOUNCE_MS"`
	PollTimeoutMs int `help:"Button poll timeout in milliseconds" default:"100" toml:"input.poll_timeout_ms" env:"INPUT_POLL_TIMEOUT_MS"`
	BackoffMaxMs  int `help:"Longest wait between failed polls in milliseconds" default:"5000" toml:"input.backoff_max_ms" env:"INPUT_BACKOFF_MAX_MS"`

	// Animation settings
	DelayMs      int    `help:"Initial frame delay in milliseconds" default:"250" toml:"animation.delay_ms" env:"ANIMATION_DELAY_MS"`
	MinDelayMs   int    `help:"Shortest frame delay in milliseconds" default:"50" toml:"animation.min_delay_ms" env:"ANIMATION_MIN_DELAY_MS"`
	MaxDelayMs   int    `help:"Longest frame delay in milliseconds" default:"1000" toml:"animation.max_delay_ms" env:"ANIMATION_MAX_DELAY_MS"`
	StepMs       int    `help:"Delay change per speed press in milliseconds" default:"50" toml:"animation.step_ms" env:"ANIMATION_STEP_MS"`
	PatternsFile string `help:"Pattern file (.toml, .yaml); built-in patterns when empty" default:"" toml:"patterns.file" env:"PATTERNS_FILE"`

	// Server settings
	Port          string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	ServerEnabled bool   `help:"Serve the control API" default:"true" toml:"server.enabled" env:"SERVER_ENABLED"`

	// Auth settings, disabled when both are empty
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	StatusLED string `help:"Board status LED (sysfs name, auto, or empty)" default:"" toml:"status_led.name" env:"STATUS_LED"`

	// Logging settings; empty module levels follow the global level
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingAnimation string `help:"Animation logging level" default:"" toml:"logging.animation" env:"LOGGING_ANIMATION"`
	LoggingInput     string `help:"Button input logging level" default:"" toml:"logging.input" env:"LOGGING_INPUT"`
	LoggingGPIO      string `help:"GPIO logging level" default:"" toml:"logging.gpio" env:"LOGGING_GPIO"`
	LoggingAPI       string `help:"API logging level" default:"" toml:"logging.api" env:"LOGGING_API"`
}

func (o *Options) loggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"animation": o.LoggingAnimation,
			"input":     o.LoggingInput,
			"gpio":      o.LoggingGPIO,
			"api":       o.LoggingAPI,
			"http":      o.LoggingAPI,
		},
	}
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (o *Options) daemonConfig() (daemon.Config, error) {
	leds, err := daemon.ParseLines(o.LEDLines)
	if err != nil {
		return daemon.Config{}, fmt.Errorf("led_lines: %w", err)
	}
	buttons, err := daemon.ParseButtons(o.ButtonLines)
	if err != nil {
		return daemon.Config{}, fmt.Errorf("button_lines: %w", err)
	}
	bias, err := gpio.ParseBias(o.GPIOBias)
	if err != nil {
		return daemon.Config{}, err
	}

	return daemon.Config{
		Chip:           o.GPIOChip,
		Simulate:       o.Simulate,
		LEDLines:       leds,
		Buttons:        buttons,
		Bias:           bias,
		DebounceWindow: ms(o.DebounceMs),
		PollTimeout:    ms(o.PollTimeoutMs),
		BackoffMax:     ms(o.BackoffMaxMs),
		Delay:          ms(o.DelayMs),
		MinDelay:       ms(o.MinDelayMs),
		MaxDelay:       ms(o.MaxDelayMs),
		Step:           ms(o.StepMs),
		PatternsFile:   o.PatternsFile,
		ServerEnabled:  o.ServerEnabled,
		ServerAddr:     o.Port,
		AuthUsername:   o.AuthUsername,
		AuthPassword:   o.AuthPassword,
		StatusLED:      o.StatusLED,
		ConfigPath:     o.Config,
	}, nil
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Flags set on the command line win over env and file values
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")

		// Hardware is only touched when the daemon itself starts, not for
		// subcommands.
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})

		hooks.OnStart(func() {
			defer close(done)
			logger.Info("Starting blinkd", "version", version.Get().String())

			cfg, err := opts.daemonConfig()
			if err != nil {
				logger.Error("Invalid configuration", "error", err)
				os.Exit(1)
			}
			d, err := daemon.New(cfg)
			if err != nil {
				logger.Error("Failed to initialize", "error", err)
				os.Exit(1)
			}
			if err := d.Run(ctx); err != nil {
				logger.Error("Failed to start", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down blinkd")
			cancel()
			<-done
		})
	})

	cli.Root().Use = "blinkd"
	cli.Root().Short = "GPIO LED pattern animator with push-button control"
	cli.Root().Version = version.Version

	cli.Root().AddCommand(cmd.CreatePatternsCmd())
	cli.Root().AddCommand(cmd.CreateLinesCmd())
	cli.Root().AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Run: func(c *cobra.Command, _ []string) {
			fmt.Fprintln(c.OutOrStdout(), version.Get().String())
		},
	})

	cli.Run()
}
