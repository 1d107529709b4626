// Package queue is the durable FIFO of write intents recorded while the
// server is unreachable. Entries are drained strictly in enqueue order when
// connectivity resumes.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mvilela/papo/internal/bus"
	"github.com/mvilela/papo/internal/gateway"
	"github.com/mvilela/papo/internal/store"
	"go.uber.org/zap"
)

// Deferred operation kinds.
const (
	KindDeleteContact      = "delete_contact"
	KindBlockContact       = "block_contact"
	KindDeleteConversation = "delete_conversation"
	KindDeleteMessage      = "delete_message"
)

// ContactPayload carries contact-scoped operations.
type ContactPayload struct {
	ContactID string `json:"contact_id"`
	Blocked   bool   `json:"blocked,omitempty"`
}

// ConversationPayload carries conversation-scoped operations.
type ConversationPayload struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id,omitempty"`
}

// ErrUnappliable marks an entry that can never be replayed (unknown kind,
// corrupt payload). Appliers wrap it so Drain discards instead of retrying
// forever.
var ErrUnappliable = errors.New("unappliable queued op")

// Applier replays one queued operation against the server.
type Applier interface {
	Apply(ctx context.Context, op store.PendingOp) error
}

// Queue wraps the pending_ops table with drain semantics.
type Queue struct {
	db       *store.DB
	applier  Applier
	bus      *bus.Bus
	logger   *zap.Logger
	draining atomic.Bool
	cancel   context.CancelFunc
}

// New creates a mutation queue over db. db must be non-nil: without a cache
// there is nowhere to defer writes and callers surface errors directly.
func New(db *store.DB, applier Applier, b *bus.Bus, logger *zap.Logger) *Queue {
	return &Queue{db: db, applier: applier, bus: b, logger: logger}
}

// Bind sets the applier after construction, for wiring layers where the
// applier itself holds the queue. Must happen before Start or Drain.
func (q *Queue) Bind(a Applier) { q.applier = a }

// Enqueue appends an operation to the durable queue and returns immediately.
func (q *Queue) Enqueue(kind string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := q.db.AppendPending(kind, string(raw)); err != nil {
		return fmt.Errorf("append pending op: %w", err)
	}
	q.publish(bus.KindQueueEnqueued, kind)
	return nil
}

// Drain replays queued operations strictly in enqueue order, one at a time.
// Each entry is removed only after its remote application succeeds. A
// permanent rejection discards the entry with a diagnostic; a transient
// failure stops the drain, leaving the remaining queue intact for the next
// reconnect. Calling Drain while a drain is in progress is a no-op.
func (q *Queue) Drain(ctx context.Context) error {
	if !q.draining.CompareAndSwap(false, true) {
		return nil
	}
	defer q.draining.Store(false)

	ops, err := q.db.PendingOps()
	if err != nil {
		return fmt.Errorf("read pending ops: %w", err)
	}

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := q.applier.Apply(ctx, op)
		if err == nil {
			if err := q.db.RemovePending(op.Seq); err != nil {
				return fmt.Errorf("remove pending op %d: %w", op.Seq, err)
			}
			q.publish(bus.KindQueueApplied, op.Kind)
			continue
		}

		if gateway.IsRejection(err) || errors.Is(err, ErrUnappliable) {
			// Permanent: the server saw the request and said no (e.g. the
			// entity no longer exists). Retrying will not change the answer.
			if q.logger != nil {
				q.logger.Warn("discarding permanently failed queued op",
					zap.Int64("seq", op.Seq), zap.String("kind", op.Kind), zap.Error(err))
			}
			if err := q.db.RemovePending(op.Seq); err != nil {
				return fmt.Errorf("remove pending op %d: %w", op.Seq, err)
			}
			q.publish(bus.KindQueueDiscarded, op.Kind)
			continue
		}

		// Transient: still offline or timed out. Keep this entry and all
		// later ones; the next reconnect resumes here.
		if q.logger != nil {
			q.logger.Info("drain paused on transient failure",
				zap.Int64("seq", op.Seq), zap.String("kind", op.Kind), zap.Error(err))
		}
		q.publish(bus.KindQueuePaused, op.Kind)
		return nil
	}
	return nil
}

// Start subscribes to connectivity events and drains on every reconnect.
func (q *Queue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)
	ch, unsub := q.bus.Subscribe(string(bus.KindNetOnline), 16)

	go func() {
		defer unsub()
		for {
			select {
			case <-ch:
				if err := q.Drain(ctx); err != nil && q.logger != nil {
					q.logger.Error("queue drain failed", zap.Error(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the reconnect listener.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
}

func (q *Queue) publish(kind bus.Kind, opKind string) {
	if q.bus != nil {
		q.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: opKind})
	}
}
