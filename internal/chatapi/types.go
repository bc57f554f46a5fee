package chatapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TempPrefix marks message ids that have not been confirmed by the server.
const TempPrefix = "temp_"

// MessageTypeText is the default message type.
const MessageTypeText = "text"

// MaxContentLength is the largest message body, in bytes, the backend accepts.
const MaxContentLength = 4000

// UserSummary is an immutable snapshot of a user.
type UserSummary struct {
	UserID         int64   `json:"user_id"`
	FullName       string  `json:"full_name"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
	Email          *string `json:"email,omitempty"`
	Role           *string `json:"role,omitempty"`
}

// MessageID is either a server-assigned number or a temporary "temp_<ts>" id.
type MessageID struct {
	num  int64
	temp string
}

// NumericMessageID returns a confirmed message id.
func NumericMessageID(n int64) MessageID {
	return MessageID{num: n}
}

// TempMessageID returns an unconfirmed id derived from t.
func TempMessageID(t time.Time) MessageID {
	return MessageID{temp: TempPrefix + strconv.FormatInt(t.UnixMilli(), 10)}
}

// IsTemp reports whether the id belongs to an unconfirmed send.
func (id MessageID) IsTemp() bool { return id.temp != "" }

// Int64 returns the numeric id, or 0 for temporary ids.
func (id MessageID) Int64() int64 { return id.num }

func (id MessageID) String() string {
	if id.temp != "" {
		return id.temp
	}
	return strconv.FormatInt(id.num, 10)
}

// MarshalJSON encodes numeric ids as numbers and temporary ids as strings.
func (id MessageID) MarshalJSON() ([]byte, error) {
	if id.temp != "" {
		return json.Marshal(id.temp)
	}
	return []byte(strconv.FormatInt(id.num, 10)), nil
}

// UnmarshalJSON accepts a JSON number, a numeric string, or a temp_ string.
func (id *MessageID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.HasPrefix(s, TempPrefix) {
			*id = MessageID{temp: s}
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid message id %q", s)
		}
		*id = MessageID{num: n}
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid message id %s: %w", data, err)
	}
	*id = MessageID{num: n}
	return nil
}

// Message is a chat message as returned by the backend.
type Message struct {
	MessageID      MessageID    `json:"message_id"`
	ConversationID int64        `json:"conversation_id"`
	SenderID       int64        `json:"sender_id"`
	Content        string       `json:"content"`
	MessageType    string       `json:"message_type"`
	SentAt         time.Time    `json:"sent_at"`
	Sender         *UserSummary `json:"sender,omitempty"`
}

// Pending reports whether the message is an unconfirmed optimistic send.
func (m Message) Pending() bool { return m.MessageID.IsTemp() }

// Conversation is one conversation summary. UnreadCount and UserLastReadAt
// are relative to the user that issued the fetch.
type Conversation struct {
	ConversationID        int64         `json:"conversation_id"`
	Title                 *string       `json:"title,omitempty"`
	IsGroupChat           bool          `json:"is_group_chat"`
	CreatorID             *int64        `json:"creator_id,omitempty"`
	LastMessageID         *int64        `json:"last_message_id,omitempty"`
	LastMessagePreview    *string       `json:"last_message_preview,omitempty"`
	LastMessageSentAt     *time.Time    `json:"last_message_sent_at,omitempty"`
	LastMessageSenderID   *int64        `json:"last_message_sender_id,omitempty"`
	LastMessageSenderName *string       `json:"last_message_sender_name,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
	UserLastReadAt        *time.Time    `json:"user_last_read_at,omitempty"`
	UnreadCount           *int          `json:"unread_count,omitempty"`
	Participants          []Participant `json:"participants,omitempty"`
}

// Unread returns the unread count for the requesting user, 0 when absent.
func (c Conversation) Unread() int {
	if c.UnreadCount == nil {
		return 0
	}
	return *c.UnreadCount
}

// Participant links a user to a conversation.
type Participant struct {
	UserID         int64       `json:"user_id"`
	ConversationID int64       `json:"conversation_id"`
	JoinedAt       time.Time   `json:"joined_at"`
	LastReadAt     *time.Time  `json:"last_read_at,omitempty"`
	User           UserSummary `json:"user"`
}

// UnmarshalJSON normalizes both wire shapes: a nested {"user": {...}} record
// and a flat user record carrying membership fields alongside.
func (p *Participant) UnmarshalJSON(data []byte) error {
	var wire struct {
		UserSummary
		ConversationID int64        `json:"conversation_id"`
		JoinedAt       time.Time    `json:"joined_at"`
		LastReadAt     *time.Time   `json:"last_read_at"`
		User           *UserSummary `json:"user"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	user := wire.UserSummary
	if wire.User != nil {
		user = *wire.User
		if user.UserID == 0 {
			user.UserID = wire.UserSummary.UserID
		}
	}
	*p = Participant{
		UserID:         user.UserID,
		ConversationID: wire.ConversationID,
		JoinedAt:       wire.JoinedAt,
		LastReadAt:     wire.LastReadAt,
		User:           user,
	}
	return nil
}

// CreateConversationRequest is the body of POST /conversations.
type CreateConversationRequest struct {
	CreatorUserID      int64   `json:"creatorUserId"`
	ParticipantUserIDs []int64 `json:"participantUserIds"`
	Title              *string `json:"title,omitempty"`
	IsGroup            *bool   `json:"isGroup,omitempty"`
}

// DirectConversationRequest is the body of POST /conversations/direct.
type DirectConversationRequest struct {
	RequestingUserID int64 `json:"requestingUserId"`
	OtherUserID      int64 `json:"otherUserId"`
}

// SendMessageRequest is the body of POST /conversations/{id}/messages.
type SendMessageRequest struct {
	SenderUserID int64  `json:"senderUserId"`
	Content      string `json:"content"`
	MessageType  string `json:"messageType,omitempty"`
}

// MarkReadRequest is the body of POST /conversations/{id}/read.
type MarkReadRequest struct {
	UserID int64 `json:"userId"`
}

// AddParticipantRequest is the body of POST /conversations/{id}/participants.
type AddParticipantRequest struct {
	PerformingUserID int64 `json:"performingUserId"`
	UserIDToAdd      int64 `json:"userIdToAdd"`
}

// AddParticipantResponse is the reply to AddParticipant.
type AddParticipantResponse struct {
	Message string `json:"message"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token and the authenticated user.
type LoginResponse struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}
