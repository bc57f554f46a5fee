package chat

import (
	"context"
	"time"

	"github.com/matheus3301/lexchat/internal/bus"
	"github.com/matheus3301/lexchat/internal/cache"
	"github.com/matheus3301/lexchat/internal/chatapi"
	"go.uber.org/zap"
)

// ReadEvent is the payload of bus.KindConversationRead.
type ReadEvent struct {
	ConversationID int64
	UserID         int64
}

// ListConversations returns userID's conversations, from cache when fresh.
func (s *Service) ListConversations(ctx context.Context, userID int64) ([]chatapi.Conversation, error) {
	return cache.QueryProvides(ctx, s.cache, ConversationsKey(userID),
		func(ctx context.Context) ([]chatapi.Conversation, error) {
			return s.api.ListConversations(ctx, userID)
		},
		func(convs []chatapi.Conversation) []cache.Tag {
			tags := make([]cache.Tag, 0, len(convs)+3)
			for _, c := range convs {
				tags = append(tags, cache.ConversationTag(c.ConversationID))
			}
			return append(tags,
				cache.UserConversationsTag(userID),
				cache.ConversationListTag(),
				cache.UnreadTotalTag())
		})
}

// CachedConversations returns the last fetched list without fetching.
func (s *Service) CachedConversations(userID int64) ([]chatapi.Conversation, bool) {
	return cache.PeekAs[[]chatapi.Conversation](s.cache, ConversationsKey(userID))
}

// CachedConversation returns one entry of the cached list.
func (s *Service) CachedConversation(userID, conversationID int64) (chatapi.Conversation, bool) {
	convs, ok := s.CachedConversations(userID)
	if !ok {
		return chatapi.Conversation{}, false
	}
	for _, c := range convs {
		if c.ConversationID == conversationID {
			return c, true
		}
	}
	return chatapi.Conversation{}, false
}

// UnreadTotal sums the unread counts of the cached list.
func (s *Service) UnreadTotal(userID int64) int {
	convs, _ := s.CachedConversations(userID)
	total := 0
	for _, c := range convs {
		total += c.Unread()
	}
	return total
}

// ListParticipants returns a conversation's members.
func (s *Service) ListParticipants(ctx context.Context, conversationID int64) ([]chatapi.Participant, error) {
	return cache.Query(ctx, s.cache, ParticipantsKey(conversationID),
		func(ctx context.Context) ([]chatapi.Participant, error) {
			return s.api.ListParticipants(ctx, conversationID)
		},
		cache.ConversationTag(conversationID))
}

// MarkRead zeroes userID's unread count for the conversation in the cached
// list before the request resolves, and restores it if the request fails.
func (s *Service) MarkRead(ctx context.Context, conversationID, userID int64) error {
	readAt := s.now().UTC()
	patch := cache.Patch(s.cache, ConversationsKey(userID),
		func(convs []chatapi.Conversation) ([]chatapi.Conversation, cache.Undo[[]chatapi.Conversation]) {
			return markReadPatch(convs, conversationID, readAt)
		})

	if err := s.api.MarkRead(ctx, conversationID, userID); err != nil {
		patch.Undo()
		s.logger.Error("mark read failed",
			zap.Int64("conversation_id", conversationID),
			zap.Int64("user_id", userID),
			zap.String("request_id", requestID(err)),
			zap.Error(err))
		return err
	}
	patch.Commit()
	s.cache.Invalidate(summaryTags(conversationID, userID)...)
	s.bus.Emit(bus.KindConversationRead, ReadEvent{ConversationID: conversationID, UserID: userID})
	return nil
}

func markReadPatch(convs []chatapi.Conversation, conversationID int64, readAt time.Time) ([]chatapi.Conversation, cache.Undo[[]chatapi.Conversation]) {
	idx := indexOfConversation(convs, conversationID)
	if idx < 0 {
		return convs, func(cur []chatapi.Conversation) []chatapi.Conversation { return cur }
	}
	prevUnread := convs[idx].UnreadCount
	prevReadAt := convs[idx].UserLastReadAt

	next := append([]chatapi.Conversation(nil), convs...)
	zero := 0
	next[idx].UnreadCount = &zero
	next[idx].UserLastReadAt = &readAt

	undo := func(cur []chatapi.Conversation) []chatapi.Conversation {
		i := indexOfConversation(cur, conversationID)
		if i < 0 {
			return cur
		}
		out := append([]chatapi.Conversation(nil), cur...)
		out[i].UnreadCount = prevUnread
		out[i].UserLastReadAt = prevReadAt
		return out
	}
	return next, undo
}

func indexOfConversation(convs []chatapi.Conversation, id int64) int {
	for i, c := range convs {
		if c.ConversationID == id {
			return i
		}
	}
	return -1
}

// CreateConversation creates a conversation owned by the session user.
func (s *Service) CreateConversation(ctx context.Context, req *chatapi.CreateConversationRequest) (*chatapi.Conversation, error) {
	conv, err := s.api.CreateConversation(ctx, req)
	if err != nil {
		s.logger.Warn("create conversation failed", zap.Int64("user_id", req.CreatorUserID), zap.Error(err))
		return nil, err
	}
	s.invalidateMembership(conv.ConversationID, append([]int64{req.CreatorUserID}, req.ParticipantUserIDs...))
	return conv, nil
}

// FindOrCreateDirect returns the one-to-one conversation between two users.
func (s *Service) FindOrCreateDirect(ctx context.Context, requestingUserID, otherUserID int64) (*chatapi.Conversation, error) {
	conv, err := s.api.FindOrCreateDirect(ctx, requestingUserID, otherUserID)
	if err != nil {
		s.logger.Warn("find or create direct failed", zap.Int64("user_id", requestingUserID), zap.Error(err))
		return nil, err
	}
	s.invalidateMembership(conv.ConversationID, []int64{requestingUserID, otherUserID})
	return conv, nil
}

// AddParticipant adds a member and refreshes the affected lists.
func (s *Service) AddParticipant(ctx context.Context, conversationID, performingUserID, userIDToAdd int64) (*chatapi.AddParticipantResponse, error) {
	resp, err := s.api.AddParticipant(ctx, conversationID, performingUserID, userIDToAdd)
	if err != nil {
		s.logger.Warn("add participant failed", zap.Int64("conversation_id", conversationID), zap.Error(err))
		return nil, err
	}
	s.invalidateMembership(conversationID, []int64{performingUserID, userIDToAdd})
	return resp, nil
}

// SearchUsers is not cached; each keystroke in the dialog is a fresh query.
func (s *Service) SearchUsers(ctx context.Context, query string) ([]chatapi.UserSummary, error) {
	return s.api.SearchUsers(ctx, query)
}

func (s *Service) invalidateMembership(conversationID int64, userIDs []int64) {
	tags := []cache.Tag{cache.ConversationListTag(), cache.ConversationTag(conversationID), cache.UnreadTotalTag()}
	for _, id := range userIDs {
		tags = append(tags, cache.UserConversationsTag(id))
	}
	s.cache.Invalidate(tags...)
}
