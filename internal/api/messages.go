package api

import (
	"context"

	"github.com/mbeoliero/chatdesk/internal/entity"
)

// LoadSidebar fetches every conversation for the sidebar directory.
func (c *Client) LoadSidebar(ctx context.Context) ([]entity.ConversationSummary, error) {
	var result []entity.ConversationSummary
	if err := c.get(ctx, "/messages/users-in-sidebar", &result); err != nil {
		return nil, err
	}
	return result, nil
}

// LoadHistory fetches the full message history for one conversation.
func (c *Client) LoadHistory(ctx context.Context, customerId string) ([]entity.Message, error) {
	var result []entity.Message
	if err := c.get(ctx, "/messages/"+customerId, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// SendMessage sends a message and returns the server-canonical Message
// with its assigned id.
func (c *Client) SendMessage(ctx context.Context, customerId, text string) (*entity.Message, error) {
	var result entity.Message
	req := &SendMessageRequest{Text: text}
	if err := c.post(ctx, "/messages/"+customerId, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MarkConversationRead marks the whole conversation as read for the
// authenticated user. No body, no response data.
func (c *Client) MarkConversationRead(ctx context.Context, customerId string) error {
	return c.patch(ctx, "/messages/"+customerId, nil, nil)
}
