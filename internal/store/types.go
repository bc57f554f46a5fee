package store

// User is a registered account. Times are unix milliseconds.
type User struct {
	ID             int64
	FullName       string
	Email          string
	PasswordHash   string
	Role           string
	ProfilePicture string
	CreatedAt      int64
}

// Conversation is one conversation row as seen by a particular user.
// Zero values mean "absent" for the Last* fields and LastReadAt.
type Conversation struct {
	ID             int64
	Title          string
	IsGroup        bool
	CreatorID      int64
	CreatedAt      int64
	UpdatedAt      int64
	LastMessageID  int64
	LastPreview    string
	LastSentAt     int64
	LastSenderID   int64
	LastSenderName string
	LastReadAt     int64
	UnreadCount    int
}

// Participant is a conversation member joined with their user record.
type Participant struct {
	ConversationID int64
	UserID         int64
	JoinedAt       int64
	LastReadAt     int64
	FullName       string
	Email          string
	Role           string
}

// Message is a stored chat message.
type Message struct {
	ID             int64
	ConversationID int64
	SenderID       int64
	SenderName     string
	Content        string
	MessageType    string
	SentAt         int64
}
