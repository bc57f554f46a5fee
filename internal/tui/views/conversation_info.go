package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/lexchat/internal/chat"
	"github.com/matheus3301/lexchat/internal/chatapi"
	"github.com/matheus3301/lexchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationInfo displays detailed information about a conversation.
type ConversationInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewConversationInfo creates a new conversation info view.
func NewConversationInfo(theme *ui.Theme) *ConversationInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Conversation Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &ConversationInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (ci *ConversationInfo) Name() string { return "Details" }

// Init implements Component.
func (ci *ConversationInfo) Init() {}

// Start implements Component.
func (ci *ConversationInfo) Start() { ci.ScrollToBeginning() }

// Stop implements Component.
func (ci *ConversationInfo) Stop() {}

// Hints implements Component.
func (ci *ConversationInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
		{Key: ":", Description: "Command"},
		{Key: "?", Description: "Help"},
	}
}

// Update renders conversation details. A nil participants slice with a
// non-nil err shows the load failure in place of the member list.
func (ci *ConversationInfo) Update(conv chatapi.Conversation, participants []chatapi.Participant, err error, selfID int64) {
	ci.Clear()

	fg := ui.ColorName(ci.theme.FgColor)
	ct := ui.ColorName(ci.theme.CounterColor)
	name := chat.DisplayName(conv, selfID)

	kind := "Direct"
	if conv.IsGroupChat {
		kind = "Group"
	}
	lastActive := "-"
	if conv.LastMessageSentAt != nil {
		lastActive = conv.LastMessageSentAt.Local().Format(time.DateTime)
	}

	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, " [%s::b]%-13s[-:-:-] [%s]%s[-]\n", fg, label+":", ct, tview.Escape(sanitizeForTerminal(value)))
	}
	b.WriteString("\n")
	row("Name", name)
	row("ID", fmt.Sprintf("%d", conv.ConversationID))
	row("Type", kind)
	row("Created", conv.CreatedAt.Local().Format(time.DateTime))
	row("Unread", fmt.Sprintf("%d", conv.Unread()))
	row("Last Active", lastActive)
	row("Last Message", chat.Preview(conv, selfID))

	fmt.Fprintf(&b, "\n [%s::b]Participants[-:-:-]\n", fg)
	switch {
	case err != nil:
		fmt.Fprintf(&b, " [%s]%s[-]\n", ui.ColorName(ci.theme.ErrorColor), tview.Escape(err.Error()))
	case participants == nil:
		fmt.Fprintf(&b, " [%s]Loading...[-]\n", ui.ColorName(ci.theme.PendingColor))
	default:
		for _, p := range participants {
			label := p.User.FullName
			if p.UserID == selfID {
				label += " (you)"
			}
			if p.User.Role != nil && *p.User.Role != "" {
				label += " [" + *p.User.Role + "]"
			}
			if conv.CreatorID != nil && *conv.CreatorID == p.UserID {
				label += " creator"
			}
			fmt.Fprintf(&b, "  [%s]%s[-]\n", ct, tview.Escape(sanitizeForTerminal(label)))
		}
	}

	_, _ = fmt.Fprint(ci, b.String())
	ci.SetTitle(fmt.Sprintf(" %s Details ", tview.Escape(name)))
}
