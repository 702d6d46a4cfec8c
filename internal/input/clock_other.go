//go:build !linux

package input

import "time"

var processStart = time.Now()

// Monotonic returns time since process start. Only the simulated chip is
// available off Linux, and its event timestamps are supplied by the caller.
func Monotonic() time.Duration {
	return time.Since(processStart)
}
