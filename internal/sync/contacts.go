package sync

import (
	"context"

	"github.com/mvilela/papo/internal/gateway"
	"github.com/mvilela/papo/internal/queue"
	"github.com/mvilela/papo/internal/store"
	"go.uber.org/zap"
)

// RefreshContacts performs a full-collection contact sync: fetch, clear,
// bulk-repopulate. Offline (or on a network-level fetch failure) the cached
// snapshot is served instead and the collection stays degraded.
func (e *Engine) RefreshContacts(ctx context.Context) error {
	if e.monitor.Offline() {
		return e.loadContactsFromCache()
	}

	contacts, err := e.gw.ListContacts(ctx)
	if err != nil {
		e.states.demote(CollectionContacts)
		e.logger.Warn("contact fetch failed", zap.Error(err))
		if gateway.IsTransport(err) {
			if cacheErr := e.loadContactsFromCache(); cacheErr == nil {
				return nil
			}
		}
		return err
	}

	e.cacheWrite("replace contacts", func(db *store.DB) error {
		return db.ReplaceContacts(contacts)
	})
	for _, c := range contacts {
		e.rememberUser(c.ID, c.Name, c.Photo)
	}
	e.view.SetContacts(contacts)
	e.mark(CollectionContacts, StateSynced)
	return nil
}

func (e *Engine) loadContactsFromCache() error {
	if e.db == nil {
		return store.ErrUnavailable
	}
	contacts, err := e.db.ListContacts()
	if err != nil {
		// No other data source exists offline, so this surfaces.
		return err
	}
	e.view.SetContacts(contacts)
	e.mark(CollectionContacts, StateCached)
	return nil
}

// AddContact registers a contact by email. Adds are online-only: the server
// must resolve the email to a user, so there is nothing meaningful to queue.
func (e *Engine) AddContact(ctx context.Context, email string) Outcome {
	contact, msg, err := e.gw.CreateContact(ctx, email)
	if err != nil {
		return failure(err)
	}
	if contact == nil {
		// Already in the list; the server answered 200 with just a message.
		return success(msg)
	}

	e.view.PutContact(*contact)
	e.cacheWrite("upsert contact", func(db *store.DB) error {
		return db.UpsertContact(contact)
	})
	e.rememberUser(contact.ID, contact.Name, contact.Photo)
	return success("contact added")
}

// DeleteContact removes a contact remotely, or queues the removal when the
// server is unreachable. Either way the contact disappears locally at once.
func (e *Engine) DeleteContact(ctx context.Context, id string) Outcome {
	if !e.offlineQueue() {
		err := e.gw.DeleteContact(ctx, id)
		if err == nil {
			e.removeContactLocally(id)
			return success("contact removed")
		}
		if !e.deferrable(err) {
			return failure(err)
		}
	}

	if qErr := e.queue.Enqueue(queue.KindDeleteContact, queue.ContactPayload{ContactID: id}); qErr != nil {
		e.logger.Error("failed to queue offline delete", zap.Error(qErr))
		return failure(qErr)
	}
	e.removeContactLocally(id)
	return deferred("contact removal will sync when online")
}

// SetContactBlocked blocks or unblocks a contact, queueing the change when
// the server is unreachable.
func (e *Engine) SetContactBlocked(ctx context.Context, id string, blocked bool) Outcome {
	if !e.offlineQueue() {
		confirmed, err := e.gw.SetContactBlocked(ctx, id, blocked)
		if err == nil {
			e.view.SetContactBlocked(id, confirmed)
			e.cacheWrite("set contact blocked", func(db *store.DB) error {
				return db.SetContactBlocked(id, confirmed)
			})
			if blocked {
				return success("contact blocked")
			}
			return success("contact unblocked")
		}
		if !e.deferrable(err) {
			return failure(err)
		}
	}

	if qErr := e.queue.Enqueue(queue.KindBlockContact, queue.ContactPayload{ContactID: id, Blocked: blocked}); qErr != nil {
		e.logger.Error("failed to queue offline block", zap.Error(qErr))
		return failure(qErr)
	}
	e.view.SetContactBlocked(id, blocked)
	e.cacheWrite("set contact blocked", func(db *store.DB) error {
		return db.SetContactBlocked(id, blocked)
	})
	return deferred("block change will sync when online")
}

func (e *Engine) removeContactLocally(id string) {
	e.view.RemoveContact(id)
	e.cacheWrite("delete contact", func(db *store.DB) error {
		return db.DeleteContact(id)
	})
}

// rememberUser records a user in the directory so other-party resolution
// still works after the contact itself is deleted.
func (e *Engine) rememberUser(id, name, photo string) {
	if id == "" {
		return
	}
	e.cacheWrite("upsert directory entry", func(db *store.DB) error {
		return db.UpsertDirectoryEntry(&store.DirectoryEntry{ID: id, Name: name, Photo: photo})
	})
}
