package cache

import "strconv"

// Tag types provided by chat queries.
const (
	TypeConversation      = "Conversation"
	TypeUserConversations = "UserConversations"
	TypeUnreadCount       = "UnreadCount"
	TypeMessages          = "Messages"
)

// Tag labels a cache entry so groups of entries can be invalidated together.
// An empty ID used for invalidation matches every entry of the type.
type Tag struct {
	Type string
	ID   string
}

func (t Tag) String() string {
	if t.ID == "" {
		return t.Type
	}
	return t.Type + ":" + t.ID
}

// Matches reports whether invalidating t affects an entry tagged with provided.
func (t Tag) Matches(provided Tag) bool {
	if t.Type != provided.Type {
		return false
	}
	return t.ID == "" || t.ID == provided.ID
}

// ConversationTag tags a single conversation.
func ConversationTag(id int64) Tag {
	return Tag{Type: TypeConversation, ID: strconv.FormatInt(id, 10)}
}

// ConversationListTag tags every conversation list.
func ConversationListTag() Tag {
	return Tag{Type: TypeConversation, ID: "LIST"}
}

// UserConversationsTag tags the conversation list of one user.
func UserConversationsTag(userID int64) Tag {
	return Tag{Type: TypeUserConversations, ID: strconv.FormatInt(userID, 10)}
}

// UnreadTotalTag tags anything that depends on the total unread count.
func UnreadTotalTag() Tag {
	return Tag{Type: TypeUnreadCount, ID: "TOTAL"}
}

// MessagesTag tags the cached thread of one conversation.
func MessagesTag(conversationID int64) Tag {
	return Tag{Type: TypeMessages, ID: strconv.FormatInt(conversationID, 10)}
}
