// Package connectivity tracks whether the chat server is reachable and
// notifies subscribers on transitions.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/mvilela/papo/internal/bus"
	"go.uber.org/zap"
)

// Probe answers whether the server is currently reachable.
type Probe interface {
	Reachable(ctx context.Context) bool
}

// Monitor holds the online/offline signal. It starts online (fail open: a
// monitor that cannot determine state must not block operations that would
// otherwise just fail individually and queue reactively).
type Monitor struct {
	mu      sync.RWMutex
	offline bool
	subs    map[int]func(online bool)
	nextSub int

	probe    Probe
	interval time.Duration
	bus      *bus.Bus
	logger   *zap.Logger
	cancel   context.CancelFunc
}

// New creates a monitor. probe may be nil, in which case only explicit
// Set calls change the state.
func New(probe Probe, interval time.Duration, b *bus.Bus, logger *zap.Logger) *Monitor {
	return &Monitor{
		subs:     make(map[int]func(online bool)),
		probe:    probe,
		interval: interval,
		bus:      b,
		logger:   logger,
	}
}

// Offline reports whether the server is currently unreachable.
func (m *Monitor) Offline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.offline
}

// Subscribe registers a callback invoked on every transition. Returns an
// unsubscribe function.
func (m *Monitor) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Set feeds the reachability signal. A no-op unless the state changes.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	if m.offline == !online {
		m.mu.Unlock()
		return
	}
	m.offline = !online
	callbacks := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		callbacks = append(callbacks, fn)
	}
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Info("connectivity changed", zap.Bool("online", online))
	}
	for _, fn := range callbacks {
		fn(online)
	}
	if m.bus != nil {
		kind := bus.KindNetOffline
		if online {
			kind = bus.KindNetOnline
		}
		m.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: online})
	}
}

// Start begins the probe loop. No-op when the monitor has no probe.
func (m *Monitor) Start(ctx context.Context) {
	if m.probe == nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	go m.loop(ctx)
}

// Stop stops the probe loop.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Monitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Set(m.probe.Reachable(ctx))
		case <-ctx.Done():
			return
		}
	}
}
