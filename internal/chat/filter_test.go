package chat

import (
	"testing"

	"github.com/matheus3301/lexchat/internal/chatapi"
)

func participant(id int64, name string) chatapi.Participant {
	return chatapi.Participant{UserID: id, User: chatapi.UserSummary{UserID: id, FullName: name}}
}

func TestFilterConversations(t *testing.T) {
	title := "Land dispute"
	convs := []chatapi.Conversation{
		{ConversationID: 1, Participants: []chatapi.Participant{participant(userA, "Ana"), participant(2, "John Doe")}},
		{ConversationID: 2, Participants: []chatapi.Participant{participant(userA, "Ana"), participant(3, "Mary Major")}},
		{ConversationID: 3, Title: &title, IsGroupChat: true},
	}

	tests := []struct {
		name  string
		query string
		want  []int64
	}{
		{"participant name, lower case", "john", []int64{1}},
		{"upper case", "JOHN DOE", []int64{1}},
		{"title", "dispute", []int64{3}},
		{"empty query", "", []int64{1, 2, 3}},
		{"whitespace query", "   ", []int64{1, 2, 3}},
		{"no match", "zed", nil},
		{"own name ignored", "ana", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterConversations(convs, tt.query, userA)
			var ids []int64
			for _, c := range got {
				ids = append(ids, c.ConversationID)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Errorf("ids = %v, want %v", ids, tt.want)
				}
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	title := "Estate of R."
	blank := "  "
	tests := []struct {
		name string
		conv chatapi.Conversation
		want string
	}{
		{"title wins", chatapi.Conversation{ConversationID: 1, Title: &title}, "Estate of R."},
		{"blank title falls back", chatapi.Conversation{ConversationID: 1, Title: &blank, Participants: []chatapi.Participant{participant(2, "John Doe")}}, "John Doe"},
		{"others joined", chatapi.Conversation{ConversationID: 1, Participants: []chatapi.Participant{participant(userA, "Ana"), participant(2, "John"), participant(3, "Mary")}}, "John, Mary"},
		{"numbered fallback", chatapi.Conversation{ConversationID: 9, Participants: []chatapi.Participant{participant(userA, "Ana")}}, "Conversation #9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayName(tt.conv, userA); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	text := "see you\ntomorrow"
	name := "John"
	var self, other int64 = userA, 2
	tests := []struct {
		name string
		conv chatapi.Conversation
		want string
	}{
		{"none", chatapi.Conversation{}, ""},
		{"own", chatapi.Conversation{LastMessagePreview: &text, LastMessageSenderID: &self}, "You: see you tomorrow"},
		{"group sender", chatapi.Conversation{IsGroupChat: true, LastMessagePreview: &text, LastMessageSenderID: &other, LastMessageSenderName: &name}, "John: see you tomorrow"},
		{"direct", chatapi.Conversation{LastMessagePreview: &text, LastMessageSenderID: &other, LastMessageSenderName: &name}, "see you tomorrow"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview(tt.conv, userA); got != tt.want {
				t.Errorf("Preview() = %q, want %q", got, tt.want)
			}
		})
	}
}
