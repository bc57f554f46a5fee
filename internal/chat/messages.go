package chat

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/matheus3301/lexchat/internal/bus"
	"github.com/matheus3301/lexchat/internal/cache"
	"github.com/matheus3301/lexchat/internal/chatapi"
	"go.uber.org/zap"
)

// SendEvent is the payload of the message.* bus events.
type SendEvent struct {
	ConversationID int64
	TempID         chatapi.MessageID
	Message        *chatapi.Message
	Err            error
}

// ListMessages returns one page of a thread and merges it into the cached
// thread. Offset 0 replaces the cached thread and is served from cache while
// fresh; a later page is always fetched and prepended, skipping ids already
// present.
func (s *Service) ListMessages(ctx context.Context, conversationID, requestingUserID int64, limit, offset int) ([]chatapi.Message, error) {
	key := MessagesKey(conversationID, requestingUserID)
	if offset == 0 {
		if cached, ok := cache.GetAs[[]chatapi.Message](s.cache, key); ok {
			return cached, nil
		}
	}
	args := strconv.Itoa(limit) + ":" + strconv.Itoa(offset)
	return cache.QueryMerge(ctx, s.cache, key, args,
		func(ctx context.Context) ([]chatapi.Message, error) {
			return s.api.ListMessages(ctx, conversationID, requestingUserID, limit, offset)
		},
		func(existing, fetched []chatapi.Message) []chatapi.Message {
			return MergeMessages(existing, fetched, offset)
		},
		cache.MessagesTag(conversationID))
}

// CachedMessages returns the cached thread without fetching.
func (s *Service) CachedMessages(conversationID, userID int64) ([]chatapi.Message, bool) {
	return cache.PeekAs[[]chatapi.Message](s.cache, MessagesKey(conversationID, userID))
}

// MergeMessages combines a fetched page with the cached thread.
func MergeMessages(existing, fetched []chatapi.Message, offset int) []chatapi.Message {
	if offset == 0 {
		out := make([]chatapi.Message, len(fetched))
		copy(out, fetched)
		sortBySentAt(out)
		return out
	}
	seen := make(map[chatapi.MessageID]struct{}, len(existing))
	for _, m := range existing {
		seen[m.MessageID] = struct{}{}
	}
	out := make([]chatapi.Message, 0, len(fetched)+len(existing))
	for _, m := range fetched {
		if _, dup := seen[m.MessageID]; dup {
			continue
		}
		seen[m.MessageID] = struct{}{}
		out = append(out, m)
	}
	out = append(out, existing...)
	sortBySentAt(out)
	return out
}

func sortBySentAt(msgs []chatapi.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].SentAt.Before(msgs[j].SentAt)
	})
}

// SendMessage appends a temporary message to the cached thread, posts it,
// and swaps in the confirmed record. On failure the thread is restored and
// the error returned.
func (s *Service) SendMessage(ctx context.Context, conversationID, senderUserID int64, content, messageType string) (*chatapi.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &chatapi.ValidationError{Field: "content", Reason: "message is empty"}
	}
	if len(content) > chatapi.MaxContentLength {
		return nil, &chatapi.ValidationError{Field: "content", Reason: fmt.Sprintf("message is longer than %d bytes", chatapi.MaxContentLength)}
	}
	if messageType == "" {
		messageType = chatapi.MessageTypeText
	}

	tempID, now := s.tempID()
	temp := chatapi.Message{
		MessageID:      tempID,
		ConversationID: conversationID,
		SenderID:       senderUserID,
		Content:        content,
		MessageType:    messageType,
		SentAt:         now.UTC(),
		Sender:         s.sender(senderUserID),
	}
	key := MessagesKey(conversationID, senderUserID)
	patch := cache.Patch(s.cache, key, func(msgs []chatapi.Message) ([]chatapi.Message, cache.Undo[[]chatapi.Message]) {
		next := make([]chatapi.Message, len(msgs), len(msgs)+1)
		copy(next, msgs)
		return append(next, temp), func(cur []chatapi.Message) []chatapi.Message {
			return removeMessage(cur, tempID)
		}
	})

	msg, err := s.api.SendMessage(ctx, conversationID, &chatapi.SendMessageRequest{
		SenderUserID: senderUserID,
		Content:      content,
		MessageType:  messageType,
	})
	if err != nil {
		patch.Undo()
		s.logger.Error("send message failed",
			zap.Int64("conversation_id", conversationID),
			zap.String("temp_id", tempID.String()),
			zap.String("request_id", requestID(err)),
			zap.Error(err))
		s.bus.Emit(bus.KindMessageSendFailed, SendEvent{ConversationID: conversationID, TempID: tempID, Err: err})
		return nil, err
	}
	patch.Commit()

	confirmed := *msg
	cache.Patch(s.cache, key, func(msgs []chatapi.Message) ([]chatapi.Message, cache.Undo[[]chatapi.Message]) {
		return confirmMessage(msgs, tempID, confirmed), nil
	}).Commit()

	s.cache.Invalidate(summaryTags(conversationID, senderUserID)...)
	s.bus.Emit(bus.KindMessageSent, SendEvent{ConversationID: conversationID, TempID: tempID, Message: &confirmed})
	return &confirmed, nil
}

// confirmMessage replaces the temp entry with the server record, placed by
// its sent_at. When the record is already present, e.g. a refetch landed
// first, the temp entry is dropped instead.
func confirmMessage(msgs []chatapi.Message, tempID chatapi.MessageID, confirmed chatapi.Message) []chatapi.Message {
	for _, m := range msgs {
		if m.MessageID == confirmed.MessageID {
			return removeMessage(msgs, tempID)
		}
	}
	out := removeMessage(msgs, tempID)
	out = append(out, confirmed)
	// The server clock decides the final position.
	sortBySentAt(out)
	return out
}

func removeMessage(msgs []chatapi.Message, id chatapi.MessageID) []chatapi.Message {
	out := make([]chatapi.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.MessageID != id {
			out = append(out, m)
		}
	}
	return out
}
