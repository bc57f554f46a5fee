package chatapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ListMessages returns one page of a conversation's messages, oldest first.
func (c *Client) ListMessages(ctx context.Context, conversationID, requestingUserID int64, limit, offset int) ([]Message, error) {
	path := fmt.Sprintf("/conversations/%d/messages", conversationID)
	query := url.Values{
		"requestingUserId": {strconv.FormatInt(requestingUserID, 10)},
		"limit":            {strconv.Itoa(limit)},
		"offset":           {strconv.Itoa(offset)},
	}
	result := []Message{}
	if err := c.get(ctx, path, query, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = []Message{}
	}
	return result, nil
}

// SendMessage posts a message and returns the server-confirmed record.
func (c *Client) SendMessage(ctx context.Context, conversationID int64, req *SendMessageRequest) (*Message, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, &ValidationError{Field: "content", Reason: "message is empty"}
	}
	path := fmt.Sprintf("/conversations/%d/messages", conversationID)
	var result Message
	if err := c.post(ctx, path, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
