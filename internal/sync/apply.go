package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mvilela/papo/internal/queue"
	"github.com/mvilela/papo/internal/store"
)

// Apply replays one queued operation against the server. Entries that
// cannot be decoded or that name an unknown kind are reported as
// unappliable so the drain discards them instead of wedging the queue.
func (e *Engine) Apply(ctx context.Context, op store.PendingOp) error {
	switch op.Kind {
	case queue.KindDeleteContact:
		var p queue.ContactPayload
		if err := json.Unmarshal([]byte(op.Payload), &p); err != nil {
			return fmt.Errorf("%w: decode %s: %v", queue.ErrUnappliable, op.Kind, err)
		}
		return e.gw.DeleteContact(ctx, p.ContactID)

	case queue.KindBlockContact:
		var p queue.ContactPayload
		if err := json.Unmarshal([]byte(op.Payload), &p); err != nil {
			return fmt.Errorf("%w: decode %s: %v", queue.ErrUnappliable, op.Kind, err)
		}
		_, err := e.gw.SetContactBlocked(ctx, p.ContactID, p.Blocked)
		return err

	case queue.KindDeleteConversation:
		var p queue.ConversationPayload
		if err := json.Unmarshal([]byte(op.Payload), &p); err != nil {
			return fmt.Errorf("%w: decode %s: %v", queue.ErrUnappliable, op.Kind, err)
		}
		return e.gw.DeleteConversation(ctx, p.ConversationID)

	case queue.KindDeleteMessage:
		var p queue.ConversationPayload
		if err := json.Unmarshal([]byte(op.Payload), &p); err != nil {
			return fmt.Errorf("%w: decode %s: %v", queue.ErrUnappliable, op.Kind, err)
		}
		return e.gw.DeleteMessage(ctx, p.ConversationID, p.MessageID)
	}
	return fmt.Errorf("%w: unknown kind %q", queue.ErrUnappliable, op.Kind)
}
