package led

import "log/slog"

// noop stands in when the board has no usable status LED.
type noop struct {
	logger *slog.Logger
}

func newNoop(logger *slog.Logger) *noop {
	return &noop{logger: logger}
}

func (n *noop) Name() string { return "" }

func (n *noop) Set(on bool, trigger string) error {
	n.logger.Debug("Status LED not available (no-op)", "on", on, "trigger", trigger)
	return nil
}
