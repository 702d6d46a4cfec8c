package led

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// NewStatusLED returns the status LED called name under /sys/class/leds.
// "auto" picks the board's activity LED from the device-tree model, "" or
// "none" disables it, and a missing LED falls back to a no-op.
func NewStatusLED(name string, logger *slog.Logger) StatusLED {
	return newStatusLED(sysfsLEDRoot, deviceTreeModelPath, name, logger)
}

func newStatusLED(root, modelPath, name string, logger *slog.Logger) StatusLED {
	switch name {
	case "", "none":
		return newNoop(logger)
	case "auto":
		model := readModel(modelPath)
		name = boardActivityLED(model)
		logger.Info("Detecting board status LED", "board_model", model, "led", name)
		if name == "" {
			return newNoop(logger)
		}
	}

	if _, err := os.Stat(filepath.Join(root, name)); err != nil {
		logger.Warn("Status LED not found, disabling", "led", name, "error", err)
		return newNoop(logger)
	}
	return newSysfs(root, name)
}

func boardActivityLED(model string) string {
	switch {
	case strings.Contains(model, "Raspberry Pi"):
		return "ACT"
	case strings.Contains(model, "NanoPC-T6"):
		return "usr_led"
	case strings.Contains(model, "Orange Pi"):
		return "green_led"
	default:
		return ""
	}
}

// readModel returns the device-tree model without its trailing NULs.
func readModel(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00")
}
