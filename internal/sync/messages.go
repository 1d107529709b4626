package sync

import (
	"context"
	"errors"

	"github.com/mvilela/papo/internal/gateway"
	"github.com/mvilela/papo/internal/ident"
	"github.com/mvilela/papo/internal/queue"
	"github.com/mvilela/papo/internal/store"
	"go.uber.org/zap"
)

// errUnknownConversation guards sends against conversations that were
// removed under the caller.
var errUnknownConversation = errors.New("unknown conversation")

// LoadMessages merges the given page of a conversation into the
// projection. Pages are merged by id, so re-fetching page 1 after older
// pages never duplicates or reorders anything. Returns whether more pages
// remain.
func (e *Engine) LoadMessages(ctx context.Context, conversationID string, page int) (bool, error) {
	if e.monitor.Offline() {
		return false, e.loadMessagesFromCache(conversationID)
	}

	res, err := e.gw.ListMessages(ctx, conversationID, page, gateway.DefaultPerPage)
	if err != nil {
		e.states.demote(CollectionMessages)
		e.logger.Warn("message fetch failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		if gateway.IsTransport(err) {
			if cacheErr := e.loadMessagesFromCache(conversationID); cacheErr == nil {
				return false, nil
			}
		}
		return false, err
	}

	added := e.view.MergeMessages(conversationID, res.Messages)
	if added > 0 {
		e.cacheWrite("upsert messages", func(db *store.DB) error {
			for _, m := range res.Messages {
				if err := db.UpsertMessage(&m); err != nil {
					return err
				}
			}
			return nil
		})
	}
	e.mark(CollectionMessages, StateSynced)

	e.pageMu.Lock()
	if page > e.pages[conversationID] {
		e.pages[conversationID] = page
	}
	e.pageMu.Unlock()

	return res.Pages > page, nil
}

func (e *Engine) loadMessagesFromCache(conversationID string) error {
	if e.db == nil {
		return store.ErrUnavailable
	}
	msgs, err := e.db.ListMessages(conversationID)
	if err != nil {
		return err
	}
	e.view.MergeMessages(conversationID, msgs)
	e.mark(CollectionMessages, StateCached)
	return nil
}

// LoadedPages reports how deep into the conversation history pagination
// has gone so far.
func (e *Engine) LoadedPages(conversationID string) int {
	e.pageMu.Lock()
	defer e.pageMu.Unlock()
	return e.pages[conversationID]
}

// SendMessage sends text on an existing conversation. The message appears
// in the projection immediately and is either confirmed in place or rolled
// back. Sends are never queued for later.
func (e *Engine) SendMessage(ctx context.Context, conversationID, text string) Outcome {
	if _, ok := e.view.Conversation(conversationID); !ok {
		found := false
		if e.db != nil {
			if conv, err := e.db.GetConversation(conversationID); err == nil && conv != nil {
				e.view.PutConversation(*conv)
				found = true
			}
		}
		if !found {
			return failure(errUnknownConversation)
		}
	}

	h, _ := e.opt.Begin(conversationID, e.sess.UserID, text)

	confirmed, err := e.gw.SendMessage(ctx, conversationID, text)
	if err != nil {
		e.opt.Rollback(h)
		e.logger.Warn("send failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return failure(err)
	}

	e.opt.Reconcile(h, *confirmed)
	return success("message sent")
}

// SendFirstMessage resolves or creates the conversation with contactID and
// sends text on it. A failed send leaves the conversation in place so the
// caller can retry without creating a duplicate.
func (e *Engine) SendFirstMessage(ctx context.Context, contactID, text string) (store.Conversation, Outcome) {
	e.convMu.Lock()
	conv, out := e.ensureConversation(ctx, contactID)
	e.convMu.Unlock()
	if !out.OK {
		return store.Conversation{}, out
	}
	return conv, e.SendMessage(ctx, conv.ID, text)
}

// DeleteMessage removes a message, queueing the removal when the server is
// unreachable. An online rejection reloads the page so the optimistically
// removed message reappears.
func (e *Engine) DeleteMessage(ctx context.Context, conversationID, messageID string) Outcome {
	// A still-provisional message only exists locally; the server has no
	// record to delete.
	if ident.Parse(messageID).Temporary() {
		e.view.RemoveMessage(conversationID, messageID)
		return success("message removed")
	}

	e.view.RemoveMessage(conversationID, messageID)

	if !e.offlineQueue() {
		err := e.gw.DeleteMessage(ctx, conversationID, messageID)
		if err == nil {
			e.cacheWrite("delete message", func(db *store.DB) error {
				return db.DeleteMessage(messageID)
			})
			return success("message removed")
		}
		if !e.deferrable(err) {
			if _, reloadErr := e.LoadMessages(ctx, conversationID, 1); reloadErr != nil {
				e.logger.Warn("could not restore message after rejected delete", zap.Error(reloadErr))
			}
			return failure(err)
		}
	}

	payload := queue.ConversationPayload{ConversationID: conversationID, MessageID: messageID}
	if qErr := e.queue.Enqueue(queue.KindDeleteMessage, payload); qErr != nil {
		e.logger.Error("failed to queue offline message delete", zap.Error(qErr))
		return failure(qErr)
	}
	e.cacheWrite("delete message", func(db *store.DB) error {
		return db.DeleteMessage(messageID)
	})
	return deferred("message removal will sync when online")
}
