package chat

import (
	"fmt"
	"strings"

	"github.com/matheus3301/lexchat/internal/chatapi"
)

// FilterConversations keeps conversations whose title or participant names
// contain query, ignoring case. selfID's own name never matches. An empty
// query keeps everything.
func FilterConversations(convs []chatapi.Conversation, query string, selfID int64) []chatapi.Conversation {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return convs
	}
	out := make([]chatapi.Conversation, 0, len(convs))
	for _, c := range convs {
		if conversationMatches(c, q, selfID) {
			out = append(out, c)
		}
	}
	return out
}

func conversationMatches(c chatapi.Conversation, q string, selfID int64) bool {
	if c.Title != nil && strings.Contains(strings.ToLower(*c.Title), q) {
		return true
	}
	for _, p := range c.Participants {
		if p.UserID == selfID {
			continue
		}
		if strings.Contains(strings.ToLower(p.User.FullName), q) {
			return true
		}
	}
	return false
}

// DisplayName is the label shown for a conversation to selfID: its title,
// otherwise the other participants' names, otherwise a numbered fallback.
func DisplayName(c chatapi.Conversation, selfID int64) string {
	if c.Title != nil && strings.TrimSpace(*c.Title) != "" {
		return *c.Title
	}
	var names []string
	for _, p := range c.Participants {
		if p.UserID == selfID || p.User.FullName == "" {
			continue
		}
		names = append(names, p.User.FullName)
	}
	if len(names) > 0 {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("Conversation #%d", c.ConversationID)
}

// Preview returns the last-message line for a conversation summary.
func Preview(c chatapi.Conversation, selfID int64) string {
	if c.LastMessagePreview == nil || *c.LastMessagePreview == "" {
		return ""
	}
	text := strings.ReplaceAll(*c.LastMessagePreview, "\n", " ")
	switch {
	case c.LastMessageSenderID != nil && *c.LastMessageSenderID == selfID:
		return "You: " + text
	case c.IsGroupChat && c.LastMessageSenderName != nil && *c.LastMessageSenderName != "":
		return *c.LastMessageSenderName + ": " + text
	}
	return text
}
