// Package sync orchestrates the offline-first core: cache-first reads while
// offline, fetch-and-repopulate while online, and reconciliation of
// optimistic writes against server responses.
package sync

import (
	gosync "sync"

	"github.com/mvilela/papo/internal/bus"
	"github.com/mvilela/papo/internal/connectivity"
	"github.com/mvilela/papo/internal/gateway"
	"github.com/mvilela/papo/internal/queue"
	"github.com/mvilela/papo/internal/session"
	"github.com/mvilela/papo/internal/state"
	"github.com/mvilela/papo/internal/store"
	"go.uber.org/zap"
)

// Engine coordinates the local store, the remote gateway, the connectivity
// monitor, the mutation queue, and the in-memory projections. Session and
// connectivity are passed in at construction; nothing is looked up from
// ambient scope.
type Engine struct {
	db      *store.DB // nil degrades to network-only mode
	gw      *gateway.Client
	monitor *connectivity.Monitor
	view    *state.View
	opt     *state.Optimistic
	queue   *queue.Queue // nil when db is nil
	bus     *bus.Bus
	logger  *zap.Logger
	sess    session.Session

	states *tracker

	// convMu serializes conversation resolution so check-then-create from
	// the create path and the send-first-message path cannot race into two
	// conversations for the same pair.
	convMu gosync.Mutex

	pageMu gosync.Mutex
	pages  map[string]int // conversation id -> known page count
}

// NewEngine creates the sync engine. db and q may be nil together, in which
// case every read and write goes straight to the gateway.
func NewEngine(db *store.DB, gw *gateway.Client, monitor *connectivity.Monitor,
	view *state.View, opt *state.Optimistic, q *queue.Queue,
	b *bus.Bus, logger *zap.Logger, sess session.Session) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:      db,
		gw:      gw,
		monitor: monitor,
		view:    view,
		opt:     opt,
		queue:   q,
		bus:     b,
		logger:  logger,
		sess:    sess,
		states:  newTracker(b),
		pages:   make(map[string]int),
	}
}

// View exposes the observable state surface.
func (e *Engine) View() *state.View { return e.view }

// CollectionState returns a collection's current freshness.
func (e *Engine) CollectionState(c Collection) State { return e.states.current(c) }

// Outcome is the uniform result of every public mutation. Failures are
// carried here, not panicked across the boundary; Queued marks operations
// deferred to the mutation queue ("will sync when online").
type Outcome struct {
	OK      bool
	Queued  bool
	Message string
}

func success(msg string) Outcome { return Outcome{OK: true, Message: msg} }

func deferred(msg string) Outcome { return Outcome{OK: true, Queued: true, Message: msg} }

func failure(err error) Outcome { return Outcome{Message: err.Error()} }

// deferrable reports whether a failed remote write should be recorded in
// the mutation queue instead of surfacing to the caller: the device is
// offline (or the failure is network-level) and a durable queue exists.
// Server-side rejections are genuine errors regardless of connectivity.
func (e *Engine) deferrable(err error) bool {
	if e.queue == nil {
		return false
	}
	if gateway.IsRejection(err) {
		return false
	}
	return e.monitor.Offline() || gateway.IsTransport(err)
}

// offlineQueue reports whether a mutation should go straight to the queue
// without burning a network round trip: the device already knows it is
// offline and a durable queue exists.
func (e *Engine) offlineQueue() bool {
	return e.queue != nil && e.monitor.Offline()
}

// mark moves a collection's freshness, logging invalid transitions as
// invariant violations rather than failing the operation.
func (e *Engine) mark(c Collection, to State) {
	if err := e.states.transition(c, to); err != nil {
		e.logger.Warn("invariant violation", zap.Error(err))
	}
}

// cacheWrite runs a best-effort store write after a successful remote
// operation. The remote result is the source of truth, so failures are
// swallowed and logged.
func (e *Engine) cacheWrite(what string, fn func(db *store.DB) error) {
	if e.db == nil {
		return
	}
	if err := fn(e.db); err != nil {
		e.logger.Warn("cache write failed", zap.String("op", what), zap.Error(err))
	}
}
