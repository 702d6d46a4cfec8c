package led

import (
	"log/slog"
	"sync"

	"github.com/smazurov/blinkd/internal/events"
)

// Manager mirrors the animation state onto the status LED: heartbeat while
// running, off when stopped.
type Manager struct {
	status      StatusLED
	bus         *events.Bus
	logger      *slog.Logger
	mu          sync.Mutex
	unsubscribe func()
}

// NewManager returns a manager for status fed by bus.
func NewManager(status StatusLED, bus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{status: status, bus: bus, logger: logger}
}

// Start subscribes to animation state changes.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubscribe != nil {
		return
	}
	m.unsubscribe = events.Subscribe(m.bus, m.handle)
	m.logger.Info("Status LED manager started", "led", m.status.Name())
}

// Stop unsubscribes and turns the status LED off.
func (m *Manager) Stop() {
	m.mu.Lock()
	unsub := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsub == nil {
		return
	}
	unsub()
	if err := m.status.Set(false, "none"); err != nil {
		m.logger.Warn("Failed to turn status LED off", "error", err)
	}
	m.logger.Info("Status LED manager stopped")
}

func (m *Manager) handle(e events.AnimationStateEvent) {
	var err error
	if e.Running {
		err = m.status.Set(true, "heartbeat")
	} else {
		err = m.status.Set(false, "none")
	}
	if err != nil {
		m.logger.Warn("Failed to update status LED", "running", e.Running, "error", err)
		return
	}
	m.logger.Debug("Status LED updated", "running", e.Running)
}
