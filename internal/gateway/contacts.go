package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mvilela/papo/internal/store"
)

type wireContact struct {
	ID      string `json:"id"`
	Name    string `json:"nome"`
	Email   string `json:"email"`
	Photo   string `json:"foto_perfil"`
	Blocked bool   `json:"bloqueio"`
}

func (w wireContact) toStore() store.Contact {
	return store.Contact{
		ID:      w.ID,
		Name:    w.Name,
		Email:   w.Email,
		Photo:   w.Photo,
		Blocked: w.Blocked,
		Synced:  true,
	}
}

// ListContacts fetches the full contact list.
func (c *Client) ListContacts(ctx context.Context) ([]store.Contact, error) {
	var resp struct {
		Contacts []wireContact `json:"contatos"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/contatos", nil, &resp); err != nil {
		return nil, err
	}
	contacts := make([]store.Contact, 0, len(resp.Contacts))
	for _, w := range resp.Contacts {
		contacts = append(contacts, w.toStore())
	}
	return contacts, nil
}

// CreateContact adds a contact by email. The server answers either with a
// {"contato": ...} envelope (created) or a bare message (already in the
// list); in the latter case the returned contact is nil.
func (c *Client) CreateContact(ctx context.Context, email string) (*store.Contact, string, error) {
	var resp struct {
		Contact *wireContact `json:"contato"`
		Message string       `json:"message"`
	}
	body := map[string]string{"email_contato": email}
	if _, err := c.do(ctx, http.MethodPost, "/contatos", body, &resp); err != nil {
		return nil, "", err
	}
	if resp.Contact == nil {
		return nil, resp.Message, nil
	}
	contact := resp.Contact.toStore()
	return &contact, resp.Message, nil
}

// DeleteContact removes a contact.
func (c *Client) DeleteContact(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/contatos/"+url.PathEscape(id), nil, nil)
	return err
}

// SetContactBlocked blocks or unblocks a contact and returns the
// server-confirmed blocked state.
func (c *Client) SetContactBlocked(ctx context.Context, id string, blocked bool) (bool, error) {
	var resp struct {
		Blocked bool `json:"bloqueado"`
	}
	path := fmt.Sprintf("/contatos/%s/desbloquear", url.PathEscape(id))
	var body any
	if blocked {
		path = fmt.Sprintf("/contatos/%s/bloquear", url.PathEscape(id))
		body = map[string]bool{"bloquear": true}
	}
	if _, err := c.do(ctx, http.MethodPut, path, body, &resp); err != nil {
		return false, err
	}
	return resp.Blocked, nil
}
