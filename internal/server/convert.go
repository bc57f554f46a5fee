package server

import (
	"time"

	"github.com/matheus3301/lexchat/internal/chatapi"
	"github.com/matheus3301/lexchat/internal/store"
)

func millisTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func optionalTime(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := millisTime(ms)
	return &t
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalInt64(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}

func userSummary(u *store.User) chatapi.UserSummary {
	return chatapi.UserSummary{
		UserID:         u.ID,
		FullName:       u.FullName,
		Email:          optionalString(u.Email),
		Role:           optionalString(u.Role),
		ProfilePicture: optionalString(u.ProfilePicture),
	}
}

func participantRecord(p store.Participant) chatapi.Participant {
	return chatapi.Participant{
		UserID:         p.UserID,
		ConversationID: p.ConversationID,
		JoinedAt:       millisTime(p.JoinedAt),
		LastReadAt:     optionalTime(p.LastReadAt),
		User: chatapi.UserSummary{
			UserID:   p.UserID,
			FullName: p.FullName,
			Email:    optionalString(p.Email),
			Role:     optionalString(p.Role),
		},
	}
}

// flatParticipant is the participants endpoint shape: a user record with
// membership fields alongside.
type flatParticipant struct {
	chatapi.UserSummary
	ConversationID int64      `json:"conversation_id"`
	JoinedAt       time.Time  `json:"joined_at"`
	LastReadAt     *time.Time `json:"last_read_at,omitempty"`
}

func flatParticipantRecord(p store.Participant) flatParticipant {
	rec := participantRecord(p)
	return flatParticipant{
		UserSummary:    rec.User,
		ConversationID: rec.ConversationID,
		JoinedAt:       rec.JoinedAt,
		LastReadAt:     rec.LastReadAt,
	}
}

func conversationRecord(c store.Conversation, participants []store.Participant) chatapi.Conversation {
	unread := c.UnreadCount
	out := chatapi.Conversation{
		ConversationID: c.ID,
		Title:          optionalString(c.Title),
		IsGroupChat:    c.IsGroup,
		CreatorID:      optionalInt64(c.CreatorID),
		CreatedAt:      millisTime(c.CreatedAt),
		UpdatedAt:      millisTime(c.UpdatedAt),
		UserLastReadAt: optionalTime(c.LastReadAt),
		UnreadCount:    &unread,
		Participants:   make([]chatapi.Participant, 0, len(participants)),
	}
	if c.LastMessageID != 0 {
		out.LastMessageID = optionalInt64(c.LastMessageID)
		out.LastMessagePreview = &c.LastPreview
		out.LastMessageSentAt = optionalTime(c.LastSentAt)
		out.LastMessageSenderID = optionalInt64(c.LastSenderID)
		out.LastMessageSenderName = optionalString(c.LastSenderName)
	}
	for _, p := range participants {
		out.Participants = append(out.Participants, participantRecord(p))
	}
	return out
}

func messageRecord(m store.Message) chatapi.Message {
	return chatapi.Message{
		MessageID:      chatapi.NumericMessageID(m.ID),
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		MessageType:    m.MessageType,
		SentAt:         millisTime(m.SentAt),
		Sender:         &chatapi.UserSummary{UserID: m.SenderID, FullName: m.SenderName},
	}
}
