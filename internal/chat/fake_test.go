package chat

import (
	"context"
	"sync"

	"github.com/matheus3301/lexchat/internal/chatapi"
)

// fakeBackend is an in-memory Backend. Hooks, when set, run instead of the
// default behaviour so tests can block or fail individual calls.
type fakeBackend struct {
	mu sync.Mutex

	conversations map[int64][]chatapi.Conversation
	pages         map[int][]chatapi.Message // by offset
	participants  map[int64][]chatapi.Participant
	users         []chatapi.UserSummary

	listConvCalls int
	listMsgCalls  []int // offsets

	onSend     func(ctx context.Context, conv int64, req *chatapi.SendMessageRequest) (*chatapi.Message, error)
	onMarkRead func(ctx context.Context, conv, user int64) error
	created    []*chatapi.CreateConversationRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		conversations: make(map[int64][]chatapi.Conversation),
		pages:         make(map[int][]chatapi.Message),
		participants:  make(map[int64][]chatapi.Participant),
	}
}

func (f *fakeBackend) ListConversations(ctx context.Context, userID int64) ([]chatapi.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listConvCalls++
	convs := f.conversations[userID]
	if convs == nil {
		return []chatapi.Conversation{}, nil
	}
	return append([]chatapi.Conversation(nil), convs...), nil
}

func (f *fakeBackend) ListMessages(ctx context.Context, conversationID, requestingUserID int64, limit, offset int) ([]chatapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listMsgCalls = append(f.listMsgCalls, offset)
	return append([]chatapi.Message{}, f.pages[offset]...), nil
}

func (f *fakeBackend) ListParticipants(ctx context.Context, conversationID int64) ([]chatapi.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.participants[conversationID], nil
}

func (f *fakeBackend) CreateConversation(ctx context.Context, req *chatapi.CreateConversationRequest) (*chatapi.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	return &chatapi.Conversation{ConversationID: 100, Title: req.Title, IsGroupChat: true}, nil
}

func (f *fakeBackend) FindOrCreateDirect(ctx context.Context, requestingUserID, otherUserID int64) (*chatapi.Conversation, error) {
	return &chatapi.Conversation{ConversationID: 200}, nil
}

func (f *fakeBackend) SendMessage(ctx context.Context, conversationID int64, req *chatapi.SendMessageRequest) (*chatapi.Message, error) {
	if f.onSend != nil {
		return f.onSend(ctx, conversationID, req)
	}
	return &chatapi.Message{
		MessageID:      chatapi.NumericMessageID(1),
		ConversationID: conversationID,
		SenderID:       req.SenderUserID,
		Content:        req.Content,
		MessageType:    req.MessageType,
	}, nil
}

func (f *fakeBackend) MarkRead(ctx context.Context, conversationID, userID int64) error {
	if f.onMarkRead != nil {
		return f.onMarkRead(ctx, conversationID, userID)
	}
	return nil
}

func (f *fakeBackend) AddParticipant(ctx context.Context, conversationID, performingUserID, userIDToAdd int64) (*chatapi.AddParticipantResponse, error) {
	return &chatapi.AddParticipantResponse{Message: "added"}, nil
}

func (f *fakeBackend) SearchUsers(ctx context.Context, query string) ([]chatapi.UserSummary, error) {
	return f.users, nil
}
