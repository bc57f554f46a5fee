package chatapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ListConversations returns the conversations userID participates in.
func (c *Client) ListConversations(ctx context.Context, userID int64) ([]Conversation, error) {
	query := url.Values{"userId": {strconv.FormatInt(userID, 10)}}
	result := []Conversation{}
	if err := c.get(ctx, "/conversations", query, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = []Conversation{}
	}
	return result, nil
}

// ListParticipants returns the members of a conversation.
func (c *Client) ListParticipants(ctx context.Context, conversationID int64) ([]Participant, error) {
	path := fmt.Sprintf("/chats/conversations/%d/participants", conversationID)
	result := []Participant{}
	if err := c.get(ctx, path, nil, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = []Participant{}
	}
	return result, nil
}

// CreateConversation creates a direct or group conversation.
func (c *Client) CreateConversation(ctx context.Context, req *CreateConversationRequest) (*Conversation, error) {
	if len(req.ParticipantUserIDs) == 0 {
		return nil, &ValidationError{Field: "participantUserIds", Reason: "select at least one person"}
	}
	var result Conversation
	if err := c.post(ctx, "/conversations", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FindOrCreateDirect returns the direct conversation between two users, creating it if needed.
func (c *Client) FindOrCreateDirect(ctx context.Context, requestingUserID, otherUserID int64) (*Conversation, error) {
	if requestingUserID == otherUserID {
		return nil, &ValidationError{Field: "otherUserId", Reason: "cannot start a conversation with yourself"}
	}
	req := &DirectConversationRequest{RequestingUserID: requestingUserID, OtherUserID: otherUserID}
	var result Conversation
	if err := c.post(ctx, "/conversations/direct", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MarkRead records that userID has read the conversation up to now.
func (c *Client) MarkRead(ctx context.Context, conversationID, userID int64) error {
	path := fmt.Sprintf("/conversations/%d/read", conversationID)
	return c.post(ctx, path, &MarkReadRequest{UserID: userID}, nil)
}

// AddParticipant adds userIDToAdd to a conversation on behalf of performingUserID.
func (c *Client) AddParticipant(ctx context.Context, conversationID, performingUserID, userIDToAdd int64) (*AddParticipantResponse, error) {
	path := fmt.Sprintf("/conversations/%d/participants", conversationID)
	req := &AddParticipantRequest{PerformingUserID: performingUserID, UserIDToAdd: userIDToAdd}
	var result AddParticipantResponse
	if err := c.post(ctx, path, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
