package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/mvilela/papo/internal/store"
)

type wireConversation struct {
	ID           string     `json:"id"`
	ParticipantA string     `json:"id_usuario1"`
	ParticipantB string     `json:"id_usuario2"`
	OtherParty   *wireParty `json:"outro_usuario"`
}

type wireParty struct {
	ID    string `json:"id"`
	Name  string `json:"nome"`
	Photo string `json:"foto_perfil"`
}

func (w wireConversation) toStore() store.Conversation {
	return store.Conversation{
		ID:           w.ID,
		ParticipantA: w.ParticipantA,
		ParticipantB: w.ParticipantB,
	}
}

// ListConversations fetches the full conversation list.
func (c *Client) ListConversations(ctx context.Context) ([]store.Conversation, error) {
	var resp struct {
		Conversations []wireConversation `json:"conversas"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/conversas", nil, &resp); err != nil {
		return nil, err
	}
	convs := make([]store.Conversation, 0, len(resp.Conversations))
	for _, w := range resp.Conversations {
		convs = append(convs, w.toStore())
	}
	return convs, nil
}

// CreateConversation asks the server for a conversation with the given
// contact. created reports whether a new record was made (201) as opposed to
// the server returning an existing one (200).
func (c *Client) CreateConversation(ctx context.Context, contactID string) (*store.Conversation, bool, error) {
	var resp wireConversation
	body := map[string]string{"contato_id": contactID}
	status, err := c.do(ctx, http.MethodPost, "/conversas", body, &resp)
	if err != nil {
		return nil, false, err
	}
	conv := resp.toStore()
	return &conv, status == http.StatusCreated, nil
}

// DeleteConversation removes a conversation for the current user.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/conversas/"+url.PathEscape(id), nil, nil)
	return err
}
