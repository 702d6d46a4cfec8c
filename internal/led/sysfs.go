package led

import (
	"fmt"
	"os"
	"path/filepath"
)

const sysfsLEDRoot = "/sys/class/leds"

// sysfsLED drives one LED through /sys/class/leds/<name>.
type sysfsLED struct {
	name string
	dir  string
}

func newSysfs(root, name string) *sysfsLED {
	return &sysfsLED{name: name, dir: filepath.Join(root, name)}
}

func (s *sysfsLED) Name() string { return s.name }

func (s *sysfsLED) Set(on bool, trigger string) error {
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("status LED %q: %w", s.name, err)
	}

	if trigger != "" {
		if err := os.WriteFile(filepath.Join(s.dir, "trigger"), []byte(trigger), 0o644); err != nil {
			return fmt.Errorf("failed to set LED trigger: %w", err)
		}
	}
	// A running trigger owns brightness.
	if trigger != "" && trigger != "none" {
		return nil
	}

	value := "0"
	if on {
		value = "1"
	}
	if err := os.WriteFile(filepath.Join(s.dir, "brightness"), []byte(value), 0o644); err != nil {
		return fmt.Errorf("failed to set LED brightness: %w", err)
	}
	return nil
}
