//go:build !linux

package gpio

import "fmt"

// OpenChip always fails off Linux; use the simulated chip instead.
func OpenChip(name string) (Chip, error) {
	return nil, fmt.Errorf("open chip %s: %w: character device GPIO requires linux", name, ErrDeviceUnavailable)
}

// LineInfo describes one line of a chip for the `lines` subcommand.
type LineInfo struct {
	Offset   int
	Name     string
	Consumer string
	Used     bool
}

// ListLines always fails off Linux.
func ListLines(name string) ([]LineInfo, error) {
	return nil, fmt.Errorf("open chip %s: %w", name, ErrDeviceUnavailable)
}

// Chips returns nothing off Linux.
func Chips() []string {
	return nil
}
