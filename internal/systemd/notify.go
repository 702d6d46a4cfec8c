// Package systemd reports service state to systemd through sd_notify.
// Outside a systemd unit every call is a silent no-op.
package systemd

import (
	"log/slog"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends READY, STOPPING, STATUS and watchdog keepalives.
type Notifier struct {
	logger   *slog.Logger
	notify   func(state string) (bool, error)
	watchdog func() (time.Duration, error)

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewNotifier returns a Notifier backed by $NOTIFY_SOCKET.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		logger: logger,
		notify: func(state string) (bool, error) {
			return daemon.SdNotify(false, state)
		},
		watchdog: func() (time.Duration, error) {
			return daemon.SdWatchdogEnabled(false)
		},
	}
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(state)
	switch {
	case err != nil:
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
	case sent:
		n.logger.Debug("sd_notify sent", "state", state)
	}
}

// Ready tells systemd startup is complete and starts the watchdog
// keepalive if the unit has WatchdogSec set.
func (n *Notifier) Ready(status string) {
	n.send(daemon.SdNotifyReady + "\nSTATUS=" + status)
	n.startWatchdog()
}

// Status updates the unit's free-form status line.
func (n *Notifier) Status(status string) {
	n.send("STATUS=" + status)
}

// Stopping tells systemd shutdown has begun and stops the keepalive.
func (n *Notifier) Stopping() {
	n.stopWatchdog()
	n.send(daemon.SdNotifyStopping)
}

func (n *Notifier) startWatchdog() {
	interval, err := n.watchdog()
	if err != nil {
		n.logger.Warn("Invalid watchdog configuration", "error", err)
		return
	}
	if interval <= 0 {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stop != nil {
		return
	}
	n.stop = make(chan struct{})
	n.done = make(chan struct{})

	// ping at half the timeout, as sd_watchdog_enabled(3) recommends
	period := interval / 2
	n.logger.Info("Watchdog keepalive enabled", "timeout", interval, "period", period)
	go n.keepalive(period, n.stop, n.done)
}

func (n *Notifier) keepalive(period time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}

func (n *Notifier) stopWatchdog() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stop == nil {
		return
	}
	close(n.stop)
	<-n.done
	n.stop, n.done = nil, nil
}
