package store

// Contact is a cached contact. Synced is false while a local change has not
// been confirmed by the server.
type Contact struct {
	ID      string
	Name    string
	Email   string
	Photo   string
	Blocked bool
	Synced  bool
}

// Conversation is a cached two-party conversation. At most one conversation
// exists per unordered participant pair.
type Conversation struct {
	ID           string
	ParticipantA string
	ParticipantB string
}

// Message is a cached message. ID may be a temporary token until the send is
// confirmed; SentAt is unix milliseconds and orders the conversation.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Body           string
	SentAt         int64
	Synced         bool
}

// PendingOp is a deferred write recorded while offline, drained in seq order.
type PendingOp struct {
	Seq        int64
	Kind       string
	Payload    string
	EnqueuedAt int64
}

// DirectoryEntry is a known user kept for other-party resolution after the
// corresponding contact has been removed.
type DirectoryEntry struct {
	ID    string
	Name  string
	Photo string
}
