package sync

import (
	"context"

	"github.com/mvilela/papo/internal/gateway"
	"github.com/mvilela/papo/internal/queue"
	"github.com/mvilela/papo/internal/store"
	"go.uber.org/zap"
)

// Party is the resolved other participant of a conversation.
type Party struct {
	ID    string
	Name  string
	Photo string
}

// ConversationView is a conversation with its other party denormalized at
// read time. OtherParty is derived, never authoritative.
type ConversationView struct {
	store.Conversation
	OtherParty Party
}

// RefreshConversations performs a full-collection conversation sync, with
// the same degraded-cache fallback as contacts.
func (e *Engine) RefreshConversations(ctx context.Context) error {
	if e.monitor.Offline() {
		return e.loadConversationsFromCache()
	}

	convs, err := e.gw.ListConversations(ctx)
	if err != nil {
		e.states.demote(CollectionConversations)
		e.logger.Warn("conversation fetch failed", zap.Error(err))
		if gateway.IsTransport(err) {
			if cacheErr := e.loadConversationsFromCache(); cacheErr == nil {
				return nil
			}
		}
		return err
	}

	e.cacheWrite("replace conversations", func(db *store.DB) error {
		return db.ReplaceConversations(convs)
	})
	e.view.SetConversations(convs)
	e.mark(CollectionConversations, StateSynced)
	return nil
}

func (e *Engine) loadConversationsFromCache() error {
	if e.db == nil {
		return store.ErrUnavailable
	}
	convs, err := e.db.ListConversations()
	if err != nil {
		return err
	}
	e.view.SetConversations(convs)
	e.mark(CollectionConversations, StateCached)
	return nil
}

// Conversations returns the conversation projection with each other party
// resolved from the contact cache, falling back to the directory of known
// users.
func (e *Engine) Conversations() []ConversationView {
	convs := e.view.Conversations()
	out := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		out = append(out, ConversationView{Conversation: c, OtherParty: e.resolveParty(c)})
	}
	return out
}

func (e *Engine) resolveParty(c store.Conversation) Party {
	otherID := c.ParticipantA
	if otherID == e.sess.UserID {
		otherID = c.ParticipantB
	}
	if contact, ok := e.view.Contact(otherID); ok {
		return Party{ID: otherID, Name: contact.Name, Photo: contact.Photo}
	}
	if e.db != nil {
		if entry, err := e.db.GetDirectoryEntry(otherID); err == nil && entry != nil {
			return Party{ID: otherID, Name: entry.Name, Photo: entry.Photo}
		}
	}
	return Party{ID: otherID, Name: "Unknown user"}
}

// resolveExisting returns the conversation already covering the unordered
// pair (session user, contact), from the projection or the cache. Callers
// hold convMu.
func (e *Engine) resolveExisting(contactID string) (store.Conversation, bool) {
	if conv, ok := e.view.FindConversationByPair(e.sess.UserID, contactID); ok {
		return conv, true
	}
	if e.db != nil {
		if conv, err := e.db.FindConversationByPair(e.sess.UserID, contactID); err == nil && conv != nil {
			e.view.PutConversation(*conv)
			return *conv, true
		}
	}
	return store.Conversation{}, false
}

// CreateConversation returns the conversation with the given contact,
// reusing an existing one for the pair before asking the server for a new
// record. Serialized with the send-first-message path.
func (e *Engine) CreateConversation(ctx context.Context, contactID string) (store.Conversation, Outcome) {
	e.convMu.Lock()
	defer e.convMu.Unlock()
	return e.ensureConversation(ctx, contactID)
}

// ensureConversation is the shared check-then-create body. Callers hold
// convMu.
func (e *Engine) ensureConversation(ctx context.Context, contactID string) (store.Conversation, Outcome) {
	if conv, ok := e.resolveExisting(contactID); ok {
		return conv, success("conversation already exists")
	}

	conv, created, err := e.gw.CreateConversation(ctx, contactID)
	if err != nil {
		return store.Conversation{}, failure(err)
	}
	if !created {
		// The server knew about a conversation the cache did not.
		e.logger.Info("server returned existing conversation",
			zap.String("conversation_id", conv.ID))
	}

	e.view.PutConversation(*conv)
	e.cacheWrite("upsert conversation", func(db *store.DB) error {
		return db.UpsertConversation(conv)
	})
	return *conv, success("conversation created")
}

// DeleteConversation removes a conversation (and its local messages),
// queueing the removal when the server is unreachable.
func (e *Engine) DeleteConversation(ctx context.Context, id string) Outcome {
	if !e.offlineQueue() {
		err := e.gw.DeleteConversation(ctx, id)
		if err == nil {
			e.removeConversationLocally(id)
			return success("conversation removed")
		}
		if !e.deferrable(err) {
			return failure(err)
		}
	}

	if qErr := e.queue.Enqueue(queue.KindDeleteConversation, queue.ConversationPayload{ConversationID: id}); qErr != nil {
		e.logger.Error("failed to queue offline conversation delete", zap.Error(qErr))
		return failure(qErr)
	}
	e.removeConversationLocally(id)
	return deferred("conversation removal will sync when online")
}

func (e *Engine) removeConversationLocally(id string) {
	e.view.RemoveConversation(id)
	e.pageMu.Lock()
	delete(e.pages, id)
	e.pageMu.Unlock()
	e.cacheWrite("delete conversation", func(db *store.DB) error {
		return db.DeleteConversation(id)
	})
}
