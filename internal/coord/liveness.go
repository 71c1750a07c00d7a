package coord

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Monitor periodically sweeps the agent registry and marks agents idle
// once they have gone quiet for longer than the configured TTL. The
// sweep only flips status; agents are never deregistered.
type Monitor struct {
	state    *State
	ttl      time.Duration
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
	logger   *zap.Logger
}

// NewMonitor creates a staleness monitor. The sweep interval defaults to
// a quarter of the TTL.
func NewMonitor(state *State, ttl time.Duration, logger *zap.Logger) *Monitor {
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	return &Monitor{
		state:    state,
		ttl:      ttl,
		interval: interval,
		stop:     make(chan struct{}),
		logger:   logger,
	}
}

// Start launches the sweep loop in a goroutine.
func (m *Monitor) Start() {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.state.MarkStaleAgents(m.ttl)
			case <-m.stop:
				return
			}
		}
	}()
	m.logger.Info("agent staleness monitor started",
		zap.Duration("ttl", m.ttl),
		zap.Duration("interval", m.interval))
}

// Stop halts the sweep loop. Safe to call more than once.
func (m *Monitor) Stop() {
	m.once.Do(func() { close(m.stop) })
}
