package bus

import "time"

// Kind names a domain event. Kinds are dot-namespaced so subscribers can
// match a whole family by prefix ("queue.", "net.").
type Kind string

// The event vocabulary of the sync core.
const (
	KindContactChanged      Kind = "contact.changed"
	KindConversationChanged Kind = "conversation.changed"
	KindMessageChanged      Kind = "message.changed"
	KindNetOnline           Kind = "net.online"
	KindNetOffline          Kind = "net.offline"
	KindQueueEnqueued       Kind = "queue.enqueued"
	KindQueueApplied        Kind = "queue.applied"
	KindQueueDiscarded      Kind = "queue.discarded"
	KindQueuePaused         Kind = "queue.paused"
	KindSyncStateChanged    Kind = "sync.state_changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      Kind
	Timestamp time.Time
	Payload   any
}
