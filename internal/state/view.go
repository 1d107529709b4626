// Package state holds the in-memory projections of the cached collections.
// Projections are mutated only by the sync engine and the optimistic update
// manager; consumers subscribe to change events on the bus and read
// snapshots. The local store remains the durable owner; the view is derived.
package state

import (
	"sort"
	"sync"
	"time"

	"github.com/mvilela/papo/internal/bus"
	"github.com/mvilela/papo/internal/store"
)

// View is the current observable state: one mutable object per collection.
type View struct {
	mu            sync.RWMutex
	bus           *bus.Bus
	contacts      []store.Contact
	conversations []store.Conversation
	messages      map[string][]store.Message
}

// NewView creates an empty view publishing change events on b.
func NewView(b *bus.Bus) *View {
	return &View{
		bus:      b,
		messages: make(map[string][]store.Message),
	}
}

func (v *View) publish(kind bus.Kind, payload any) {
	if v.bus != nil {
		v.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
	}
}

// SetContacts replaces the contact projection.
func (v *View) SetContacts(contacts []store.Contact) {
	v.mu.Lock()
	v.contacts = append([]store.Contact(nil), contacts...)
	v.mu.Unlock()
	v.publish(bus.KindContactChanged, len(contacts))
}

// PutContact inserts or replaces one contact.
func (v *View) PutContact(c store.Contact) {
	v.mu.Lock()
	replaced := false
	for i := range v.contacts {
		if v.contacts[i].ID == c.ID {
			v.contacts[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		v.contacts = append(v.contacts, c)
	}
	v.mu.Unlock()
	v.publish(bus.KindContactChanged, c.ID)
}

// RemoveContact drops a contact from the projection.
func (v *View) RemoveContact(id string) {
	v.mu.Lock()
	out := v.contacts[:0]
	for _, c := range v.contacts {
		if c.ID != id {
			out = append(out, c)
		}
	}
	v.contacts = out
	v.mu.Unlock()
	v.publish(bus.KindContactChanged, id)
}

// SetContactBlocked flips the blocked flag on a contact in place.
func (v *View) SetContactBlocked(id string, blocked bool) {
	v.mu.Lock()
	for i := range v.contacts {
		if v.contacts[i].ID == id {
			v.contacts[i].Blocked = blocked
			break
		}
	}
	v.mu.Unlock()
	v.publish(bus.KindContactChanged, id)
}

// Contacts returns a snapshot of the contact projection.
func (v *View) Contacts() []store.Contact {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]store.Contact(nil), v.contacts...)
}

// Contact returns one contact by id.
func (v *View) Contact(id string) (store.Contact, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, c := range v.contacts {
		if c.ID == id {
			return c, true
		}
	}
	return store.Contact{}, false
}

// SetConversations replaces the conversation projection.
func (v *View) SetConversations(convs []store.Conversation) {
	v.mu.Lock()
	v.conversations = append([]store.Conversation(nil), convs...)
	v.mu.Unlock()
	v.publish(bus.KindConversationChanged, len(convs))
}

// PutConversation inserts or replaces one conversation.
func (v *View) PutConversation(c store.Conversation) {
	v.mu.Lock()
	replaced := false
	for i := range v.conversations {
		if v.conversations[i].ID == c.ID {
			v.conversations[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		v.conversations = append(v.conversations, c)
	}
	v.mu.Unlock()
	v.publish(bus.KindConversationChanged, c.ID)
}

// RemoveConversation drops a conversation and its message projection.
func (v *View) RemoveConversation(id string) {
	v.mu.Lock()
	out := v.conversations[:0]
	for _, c := range v.conversations {
		if c.ID != id {
			out = append(out, c)
		}
	}
	v.conversations = out
	delete(v.messages, id)
	v.mu.Unlock()
	v.publish(bus.KindConversationChanged, id)
}

// Conversations returns a snapshot of the conversation projection.
func (v *View) Conversations() []store.Conversation {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]store.Conversation(nil), v.conversations...)
}

// Conversation returns one conversation by id.
func (v *View) Conversation(id string) (store.Conversation, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, c := range v.conversations {
		if c.ID == id {
			return c, true
		}
	}
	return store.Conversation{}, false
}

// FindConversationByPair returns the conversation holding the unordered
// participant pair, checking both orderings.
func (v *View) FindConversationByPair(a, b string) (store.Conversation, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, c := range v.conversations {
		if (c.ParticipantA == a && c.ParticipantB == b) ||
			(c.ParticipantA == b && c.ParticipantB == a) {
			return c, true
		}
	}
	return store.Conversation{}, false
}

// MergeMessages adds messages whose id is not already present, leaving
// earlier pages and optimistic entries intact. Concurrent writers stay
// commutative as long as every id is globally unique. Returns the number of
// messages added.
func (v *View) MergeMessages(conversationID string, msgs []store.Message) int {
	v.mu.Lock()
	existing := v.messages[conversationID]
	seen := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		seen[m.ID] = struct{}{}
	}
	added := 0
	for _, m := range msgs {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		existing = append(existing, m)
		added++
	}
	v.messages[conversationID] = existing
	v.mu.Unlock()

	if added > 0 {
		v.publish(bus.KindMessageChanged, conversationID)
	}
	return added
}

// InsertMessage appends one message to a conversation's projection.
func (v *View) InsertMessage(m store.Message) {
	v.mu.Lock()
	v.messages[m.ConversationID] = append(v.messages[m.ConversationID], m)
	v.mu.Unlock()
	v.publish(bus.KindMessageChanged, m.ConversationID)
}

// RemoveMessage drops one message, reporting whether it was present.
func (v *View) RemoveMessage(conversationID, id string) bool {
	v.mu.Lock()
	msgs := v.messages[conversationID]
	found := false
	out := msgs[:0]
	for _, m := range msgs {
		if m.ID == id {
			found = true
			continue
		}
		out = append(out, m)
	}
	v.messages[conversationID] = out
	v.mu.Unlock()

	if found {
		v.publish(bus.KindMessageChanged, conversationID)
	}
	return found
}

// SwapMessage removes the record keyed by oldID and inserts m under one
// lock, so observers never see both or neither. The old entry is dropped
// even when m.ID is already present (a poll may have delivered the
// confirmed record first). Reports whether oldID was found.
func (v *View) SwapMessage(conversationID, oldID string, m store.Message) bool {
	v.mu.Lock()
	msgs := v.messages[conversationID]
	found := false
	exists := false
	out := msgs[:0]
	for _, cur := range msgs {
		if cur.ID == oldID {
			found = true
			continue
		}
		if cur.ID == m.ID {
			exists = true
		}
		out = append(out, cur)
	}
	if !exists {
		out = append(out, m)
	}
	v.messages[conversationID] = out
	v.mu.Unlock()

	v.publish(bus.KindMessageChanged, conversationID)
	return found
}

// Messages returns a conversation's messages freshly sorted ascending by
// send time. Display order is always computed here, never assumed from
// arrival order.
func (v *View) Messages(conversationID string) []store.Message {
	v.mu.RLock()
	msgs := append([]store.Message(nil), v.messages[conversationID]...)
	v.mu.RUnlock()

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].SentAt < msgs[j].SentAt
	})
	return msgs
}
