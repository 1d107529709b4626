package sync

import (
	"fmt"
	"slices"
	gosync "sync"
	"time"

	"github.com/mvilela/papo/internal/bus"
)

// Collection names one cached entity collection.
type Collection string

const (
	CollectionContacts      Collection = "contacts"
	CollectionConversations Collection = "conversations"
	CollectionMessages      Collection = "messages"
)

// State is a collection's sync freshness.
type State string

const (
	// StateEmpty means no local data has been loaded yet.
	StateEmpty State = "EMPTY"
	// StateCached means local data is present but possibly stale.
	StateCached State = "CACHED"
	// StateSynced means local data was confirmed fresh by a fetch in the
	// current session.
	StateSynced State = "SYNCED"
)

// validTransitions defines allowed freshness transitions. There is no way
// back to EMPTY: once data exists it can only go stale, not vanish.
var validTransitions = map[State][]State{
	StateEmpty:  {StateCached, StateSynced},
	StateCached: {StateSynced},
	StateSynced: {StateCached},
}

// StateChange is the payload for sync.state_changed events.
type StateChange struct {
	Collection Collection
	From       State
	To         State
}

// tracker enforces per-collection freshness transitions.
type tracker struct {
	mu     gosync.RWMutex
	states map[Collection]State
	bus    *bus.Bus
}

func newTracker(b *bus.Bus) *tracker {
	return &tracker{
		states: map[Collection]State{
			CollectionContacts:      StateEmpty,
			CollectionConversations: StateEmpty,
			CollectionMessages:      StateEmpty,
		},
		bus: b,
	}
}

func (t *tracker) current(c Collection) State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.states[c]
}

// transition moves a collection to a new state. Re-entering the current
// state is a no-op; an invalid transition is an error the caller logs.
func (t *tracker) transition(c Collection, to State) error {
	t.mu.Lock()
	from := t.states[c]
	if from == to {
		t.mu.Unlock()
		return nil
	}
	if !slices.Contains(validTransitions[from], to) {
		t.mu.Unlock()
		return fmt.Errorf("invalid %s transition from %s to %s", c, from, to)
	}
	t.states[c] = to
	t.mu.Unlock()

	if t.bus != nil {
		t.bus.Publish(bus.Event{
			Kind:      bus.KindSyncStateChanged,
			Timestamp: time.Now(),
			Payload:   StateChange{Collection: c, From: from, To: to},
		})
	}
	return nil
}

// demote marks a synced collection stale after a failed fetch. Collections
// that are not synced keep their state: a fetch failure does not erase what
// the cache already holds.
func (t *tracker) demote(c Collection) {
	if t.current(c) == StateSynced {
		_ = t.transition(c, StateCached)
	}
}
