package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/lexchat/internal/bus"
	"github.com/matheus3301/lexchat/internal/cache"
	"github.com/matheus3301/lexchat/internal/chatapi"
	"github.com/matheus3301/lexchat/internal/session"
	"go.uber.org/zap"
)

// Backend is the subset of the REST client the service depends on.
type Backend interface {
	ListConversations(ctx context.Context, userID int64) ([]chatapi.Conversation, error)
	ListMessages(ctx context.Context, conversationID, requestingUserID int64, limit, offset int) ([]chatapi.Message, error)
	ListParticipants(ctx context.Context, conversationID int64) ([]chatapi.Participant, error)
	CreateConversation(ctx context.Context, req *chatapi.CreateConversationRequest) (*chatapi.Conversation, error)
	FindOrCreateDirect(ctx context.Context, requestingUserID, otherUserID int64) (*chatapi.Conversation, error)
	SendMessage(ctx context.Context, conversationID int64, req *chatapi.SendMessageRequest) (*chatapi.Message, error)
	MarkRead(ctx context.Context, conversationID, userID int64) error
	AddParticipant(ctx context.Context, conversationID, performingUserID, userIDToAdd int64) (*chatapi.AddParticipantResponse, error)
	SearchUsers(ctx context.Context, query string) ([]chatapi.UserSummary, error)
}

// Service mediates every chat read and write through the query cache.
type Service struct {
	api     Backend
	cache   *cache.Cache
	bus     *bus.Bus
	session *session.Session
	logger  *zap.Logger

	mu       sync.Mutex
	now      func() time.Time
	lastTemp int64
}

// NewService creates a chat service for sess. The cache is reset when the
// session logs out.
func NewService(api Backend, c *cache.Cache, b *bus.Bus, sess *session.Session, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		api:     api,
		cache:   c,
		bus:     b,
		session: sess,
		logger:  logger,
		now:     time.Now,
	}
	if sess != nil {
		sess.OnLogout(c.Reset)
	}
	return s
}

// Cache returns the underlying query cache.
func (s *Service) Cache() *cache.Cache { return s.cache }

// Session returns the session the service is scoped to.
func (s *Service) Session() *session.Session { return s.session }

// ConversationsKey is the cache key of a user's conversation list.
func ConversationsKey(userID int64) string {
	return fmt.Sprintf("conversations:%d", userID)
}

// MessagesKey is the cache key of one user's view of a thread.
func MessagesKey(conversationID, userID int64) string {
	return fmt.Sprintf("messages:%d:%d", conversationID, userID)
}

// ParticipantsKey is the cache key of a conversation's member list.
func ParticipantsKey(conversationID int64) string {
	return fmt.Sprintf("participants:%d", conversationID)
}

// summaryTags are invalidated by every write that changes list summaries.
func summaryTags(conversationID, userID int64) []cache.Tag {
	return []cache.Tag{
		cache.UserConversationsTag(userID),
		cache.ConversationListTag(),
		cache.ConversationTag(conversationID),
		cache.UnreadTotalTag(),
	}
}

// tempID returns a temporary message id that never repeats within the
// service even when two sends land in the same millisecond.
func (s *Service) tempID() (chatapi.MessageID, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	ms := now.UnixMilli()
	if ms <= s.lastTemp {
		ms = s.lastTemp + 1
	}
	s.lastTemp = ms
	return chatapi.TempMessageID(time.UnixMilli(ms)), now
}

// sender returns the summary attached to optimistic messages.
func (s *Service) sender(userID int64) *chatapi.UserSummary {
	if s.session != nil {
		if u, ok := s.session.User(); ok && u.UserID == userID {
			return &u
		}
	}
	return &chatapi.UserSummary{UserID: userID}
}

func requestID(err error) string {
	var he *chatapi.HTTPError
	if errors.As(err, &he) {
		return he.RequestID
	}
	return ""
}
