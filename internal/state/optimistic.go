package state

import (
	"time"

	"github.com/mvilela/papo/internal/ident"
	"github.com/mvilela/papo/internal/store"
	"go.uber.org/zap"
)

// Optimistic materializes provisional records under temporary ids, then
// reconciles them with server-confirmed records or rolls them back.
// Provisional records live only in the view; the store sees a message first
// when it is confirmed.
type Optimistic struct {
	view   *View
	db     *store.DB // nil in network-only mode
	gen    ident.Generator
	logger *zap.Logger
}

// NewOptimistic creates the optimistic update manager over the given view
// and cache. db may be nil.
func NewOptimistic(view *View, db *store.DB, logger *zap.Logger) *Optimistic {
	return &Optimistic{view: view, db: db, logger: logger}
}

// Handle identifies a provisional record for later reconcile or rollback.
type Handle struct {
	ConversationID string
	ID             ident.ID
}

// Begin inserts a provisional message into the view and returns its handle
// along with the record as published.
func (o *Optimistic) Begin(conversationID, senderID, body string) (Handle, store.Message) {
	id := o.gen.NewTemporary()
	msg := store.Message{
		ID:             id.String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		SentAt:         time.Now().UnixMilli(),
		Synced:         false,
	}
	o.view.InsertMessage(msg)
	return Handle{ConversationID: conversationID, ID: id}, msg
}

// Reconcile replaces the provisional record with the server-confirmed one,
// atomically from the observer's point of view, and persists the confirmed
// record. A cache write failure is logged and swallowed: the remote write
// already succeeded and is the source of truth.
func (o *Optimistic) Reconcile(h Handle, confirmed store.Message) {
	confirmed.Synced = true
	if confirmed.ConversationID == "" {
		confirmed.ConversationID = h.ConversationID
	}

	if found := o.view.SwapMessage(h.ConversationID, h.ID.String(), confirmed); !found {
		// Reconciliation target missing; keep the confirmed record anyway.
		if o.logger != nil {
			o.logger.Warn("invariant violation: reconcile target missing",
				zap.String("conversation_id", h.ConversationID),
				zap.String("temp_id", h.ID.String()))
		}
	}

	if o.db == nil {
		return
	}
	if err := o.db.ReplaceMessage(h.ID.String(), &confirmed); err != nil {
		if o.logger != nil {
			o.logger.Warn("cache write after confirmed send failed",
				zap.Error(err), zap.String("message_id", confirmed.ID))
		}
	}
}

// Rollback removes the provisional record entirely, returning the
// conversation to its pre-send state.
func (o *Optimistic) Rollback(h Handle) {
	if !h.ID.Temporary() {
		return
	}
	o.view.RemoveMessage(h.ConversationID, h.ID.String())
}
