package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mvilela/papo/internal/store"
	"go.uber.org/zap"
)

// DefaultPerPage matches the server's message page size.
const DefaultPerPage = 20

type wireMessage struct {
	ID       string `json:"id"`
	SenderID string `json:"id_usuario"`
	Body     string `json:"texto"`
	SentAt   string `json:"data_envio"`
}

// naiveLayout covers timestamps the server emits without a zone suffix;
// those are taken as UTC.
const naiveLayout = "2006-01-02T15:04:05"

func (c *Client) messageFromWire(w wireMessage, conversationID string) store.Message {
	return store.Message{
		ID:             w.ID,
		ConversationID: conversationID,
		SenderID:       w.SenderID,
		Body:           w.Body,
		SentAt:         c.parseSentAt(w),
		Synced:         true,
	}
}

// parseSentAt resolves the wire timestamp. The server sends RFC 3339, a
// zone-less ISO form, or null; anything unreadable falls back to the local
// clock so the message sorts near its arrival instead of at the epoch.
func (c *Client) parseSentAt(w wireMessage) int64 {
	if w.SentAt != "" {
		if ts, err := time.Parse(time.RFC3339, w.SentAt); err == nil {
			return ts.UnixMilli()
		}
		if ts, err := time.Parse(naiveLayout, w.SentAt); err == nil {
			return ts.UnixMilli()
		}
		c.logger.Warn("unparseable message timestamp, using local clock",
			zap.String("message_id", w.ID), zap.String("data_envio", w.SentAt))
	}
	return time.Now().UnixMilli()
}

// MessagePage is one page of a conversation's messages.
type MessagePage struct {
	Messages []store.Message
	Pages    int
	Total    int
	Page     int
}

// SendMessage posts a message and returns the server-confirmed record.
func (c *Client) SendMessage(ctx context.Context, conversationID, text string) (*store.Message, error) {
	var resp wireMessage
	body := map[string]string{"texto": text}
	path := fmt.Sprintf("/conversas/%s/mensagens", url.PathEscape(conversationID))
	if _, err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	msg := c.messageFromWire(resp, conversationID)
	return &msg, nil
}

// ListMessages fetches one page of a conversation's messages.
func (c *Client) ListMessages(ctx context.Context, conversationID string, page, perPage int) (*MessagePage, error) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	var resp struct {
		Messages []wireMessage `json:"mensagens"`
		Pages    int           `json:"paginas"`
		Total    int           `json:"total"`
		Page     int           `json:"pagina_atual"`
	}
	path := fmt.Sprintf("/conversas/%s/mensagens?page=%d&per_page=%d",
		url.PathEscape(conversationID), page, perPage)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	out := &MessagePage{Pages: resp.Pages, Total: resp.Total, Page: resp.Page}
	if out.Pages <= 0 {
		out.Pages = 1
	}
	for _, w := range resp.Messages {
		out.Messages = append(out.Messages, c.messageFromWire(w, conversationID))
	}
	return out, nil
}

// DeleteMessage removes a message from a conversation.
func (c *Client) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	path := fmt.Sprintf("/conversas/%s/mensagens/%s",
		url.PathEscape(conversationID), url.PathEscape(messageID))
	_, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	return err
}
