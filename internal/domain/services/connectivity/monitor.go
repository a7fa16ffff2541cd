// Package connectivity owns the online/offline signal. Everything else
// asks the monitor instead of probing the network itself, so the whole
// system agrees on one answer at any moment.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/nimrid/Corre/pkg/logger"
	"github.com/nimrid/Corre/pkg/metrics"
)

// HealthChecker is the probe the monitor runs against the RPC node.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Monitor probes node health on an interval and publishes transitions.
type Monitor struct {
	checker  HealthChecker
	interval time.Duration
	logger   *logger.Logger

	mu     sync.RWMutex
	online bool
	subs   []chan bool

	stopCh  chan struct{}
	stopped sync.Once
}

// NewMonitor creates a connectivity monitor. The initial state is
// online; the first probe corrects it if the node is unreachable.
func NewMonitor(checker HealthChecker, interval time.Duration, logger *logger.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Monitor{
		checker:  checker,
		interval: interval,
		logger:   logger,
		online:   true,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the probe loop. It returns immediately.
func (m *Monitor) Start(ctx context.Context) {
	go m.loop(ctx)
}

func (m *Monitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	online := m.checker.Health(probeCtx) == nil

	m.mu.Lock()
	changed := online != m.online
	m.online = online
	subs := make([]chan bool, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	if !changed {
		return
	}

	if online {
		m.logger.Info("Connectivity restored")
		metrics.ConnectivityTransitions.WithLabelValues("online").Inc()
	} else {
		m.logger.Warn("Connectivity lost")
		metrics.ConnectivityTransitions.WithLabelValues("offline").Inc()
	}

	for _, ch := range subs {
		select {
		case ch <- online:
		default:
			// subscriber is behind; it will read current state on
			// its next IsOnline call
		}
	}
}

// IsOnline returns the current connectivity state.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Subscribe returns a channel receiving the new state on every
// transition.
func (m *Monitor) Subscribe() <-chan bool {
	ch := make(chan bool, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// Shutdown stops the probe loop.
func (m *Monitor) Shutdown(_ time.Duration) error {
	m.stopped.Do(func() { close(m.stopCh) })
	return nil
}
