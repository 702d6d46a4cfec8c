package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string `help:"Config file path"`

	Chip       string   `toml:"gpio.chip" env:"GPIO_CHIP"`
	Simulate   bool     `toml:"gpio.simulate" env:"GPIO_SIMULATE"`
	DelayMs    int      `toml:"animation.delay_ms" env:"ANIMATION_DELAY_MS"`
	LedLines   []int    `toml:"gpio.led_lines" env:"GPIO_LED_LINES"`
	ButtonMaps []string `toml:"gpio.button_lines" env:"GPIO_BUTTON_LINES"`
}

const sampleTOML = `
[gpio]
chip = "/dev/gpiochip1"
simulate = true
led_lines = [5, 6, 13, 19]
button_lines = ["18:previous_pattern", "17:next_pattern"]

[animation]
delay_ms = 400
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blinkd.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_FromTOML(t *testing.T) {
	opts := &testOptions{Config: writeConfig(t, sampleTOML)}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatal(err)
	}

	want := &testOptions{
		Config:     opts.Config,
		Chip:       "/dev/gpiochip1",
		Simulate:   true,
		DelayMs:    400,
		LedLines:   []int{5, 6, 13, 19},
		ButtonMaps: []string{"18:previous_pattern", "17:next_pattern"},
	}
	if !reflect.DeepEqual(opts, want) {
		t.Errorf("got %+v\nwant %+v", opts, want)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	t.Setenv("BLINKD_GPIO_CHIP", "/dev/gpiochip4")
	t.Setenv("BLINKD_GPIO_LED_LINES", "1, 2,3")
	t.Setenv("BLINKD_ANIMATION_DELAY_MS", "120")

	opts := &testOptions{Config: writeConfig(t, sampleTOML)}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatal(err)
	}

	if opts.Chip != "/dev/gpiochip4" {
		t.Errorf("Chip = %q", opts.Chip)
	}
	if !reflect.DeepEqual(opts.LedLines, []int{1, 2, 3}) {
		t.Errorf("LedLines = %v", opts.LedLines)
	}
	if opts.DelayMs != 120 {
		t.Errorf("DelayMs = %d", opts.DelayMs)
	}
	if !opts.Simulate {
		t.Error("file value lost for a key with no env override")
	}
}

func TestLoadConfig_ChangedFlagsWin(t *testing.T) {
	t.Setenv("BLINKD_ANIMATION_DELAY_MS", "120")

	opts := &testOptions{Config: writeConfig(t, sampleTOML)}
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().IntVar(&opts.DelayMs, "delay-ms", 250, "")
	cmd.Flags().StringVar(&opts.Chip, "chip", "/dev/gpiochip0", "")
	if err := cmd.Flags().Parse([]string{"--delay-ms", "700"}); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatal(err)
	}
	if opts.DelayMs != 700 {
		t.Errorf("DelayMs = %d, want CLI value 700", opts.DelayMs)
	}
	if opts.Chip != "/dev/gpiochip1" {
		t.Errorf("Chip = %q, want file value for an unchanged flag", opts.Chip)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		env  map[string]string
	}{
		{name: "invalid toml", toml: "[gpio\nchip = "},
		{name: "wrong type in file", toml: "[animation]\ndelay_ms = \"fast\"\n"},
		{name: "bad list element", toml: "[gpio]\nled_lines = [1, \"two\"]\n"},
		{name: "bad env int", env: map[string]string{"BLINKD_ANIMATION_DELAY_MS": "soon"}},
		{name: "bad env list", env: map[string]string{"BLINKD_GPIO_LED_LINES": "1,x"}},
		{name: "bad env bool", env: map[string]string{"BLINKD_GPIO_SIMULATE": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			opts := &testOptions{}
			if tt.toml != "" {
				opts.Config = writeConfig(t, tt.toml)
			}
			if err := LoadConfig(opts, nil); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadConfig_MissingFileIsNotAnError(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "absent.toml"), Chip: "keep"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatal(err)
	}
	if opts.Chip != "keep" {
		t.Errorf("Chip = %q", opts.Chip)
	}
}

func TestLoadConfig_RejectsNonPointer(t *testing.T) {
	if err := LoadConfig(testOptions{}, nil); err == nil {
		t.Error("expected an error for a non-pointer")
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":           "port",
		"LedLines":       "led-lines",
		"AnimationDelay": "animation-delay",
		"GPIOChip":       "gpio-chip",
		"LoggingAPI":     "logging-api",
		"StatusLED":      "status-led",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"gpio": map[string]any{"chip": "/dev/gpiochip0"},
		"top":  "level",
	}
	tests := []struct {
		path string
		want any
	}{
		{"gpio.chip", "/dev/gpiochip0"},
		{"top", "level"},
		{"gpio.missing", nil},
		{"top.deeper", nil},
		{"absent.key", nil},
	}
	for _, tt := range tests {
		if got := getNestedValue(data, tt.path); got != tt.want {
			t.Errorf("getNestedValue(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestLoadReloadable(t *testing.T) {
	path := writeConfig(t, `
[animation]
step_ms = 75

[logging]
level = "warn"
format = "json"
api = "debug"

[logging.modules]
input = "error"
`)
	r, err := LoadReloadable(path)
	if err != nil {
		t.Fatal(err)
	}
	if r.StepMs != 75 {
		t.Errorf("StepMs = %d", r.StepMs)
	}
	if r.Logging.Level != "warn" || r.Logging.Format != "json" {
		t.Errorf("logging = %+v", r.Logging)
	}
	want := map[string]string{"api": "debug", "input": "error"}
	if !reflect.DeepEqual(r.Logging.Modules, want) {
		t.Errorf("modules = %v, want %v", r.Logging.Modules, want)
	}
}

func TestLoadLoggingConfig_Defaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "none.toml"), writeConfig(t, "[[[")} {
		cfg := LoadLoggingConfig(path)
		if cfg.Level != "info" || cfg.Format != "text" || len(cfg.Modules) != 0 {
			t.Errorf("LoadLoggingConfig(%q) = %+v", path, cfg)
		}
	}
}

func TestLoadConfig_ArrayIntoListString(t *testing.T) {
	var opts struct {
		Config   string
		LedLines string `toml:"gpio.led_lines"`
	}
	opts.Config = writeConfig(t, "[gpio]\nled_lines = [27, 23, 22, 24]\n")
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatal(err)
	}
	if opts.LedLines != "27,23,22,24" {
		t.Errorf("LedLines = %q", opts.LedLines)
	}
}
