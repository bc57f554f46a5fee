package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/lexchat/internal/chat"
	"github.com/matheus3301/lexchat/internal/chatapi"
	"github.com/matheus3301/lexchat/internal/tui/model"
	"github.com/matheus3301/lexchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// EmptyConversations is shown when the user has no conversations.
const EmptyConversations = "No conversations yet."

// ListData is what the conversation list renders.
type ListData struct {
	Conversations []chatapi.Conversation
	Loaded        bool
	Total         int
	Filter        string
	State         model.QueryState
	SelfID        int64
	Selected      int64
}

// ConversationList is the main conversation list view.
type ConversationList struct {
	*tview.Table
	theme *ui.Theme
	ids   []int64
}

// NewConversationList creates a new conversation list table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Conversations ")
	table.SetTitleColor(theme.TitleColor)

	return &ConversationList{
		Table: table,
		theme: theme,
	}
}

// Name implements Component.
func (cl *ConversationList) Name() string { return "Conversations" }

// Init implements Component.
func (cl *ConversationList) Init() {}

// Start implements Component.
func (cl *ConversationList) Start() {}

// Stop implements Component.
func (cl *ConversationList) Stop() {}

// Hints implements Component.
func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
		{Key: "n", Description: "New"},
		{Key: "r", Description: "Reload"},
		{Key: ":", Description: "Command"},
		{Key: "?", Description: "Help"},
		{Key: "q", Description: "Quit"},
		{Key: "1-9", Description: "Jump", Numeric: true},
	}
}

// Update re-renders the list, keeping the cursor on the same conversation.
func (cl *ConversationList) Update(d ListData) {
	keep := cl.SelectedID()
	if keep == 0 {
		keep = d.Selected
	}
	cl.Clear()
	cl.ids = cl.ids[:0]

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
		{" TYPE", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		cl.SetCell(0, col, cell)
	}

	if msg, color, ok := cl.placeholder(d); ok {
		cl.SetCell(1, 0, tview.NewTableCell(" "+msg).
			SetSelectable(false).
			SetTextColor(color).
			SetExpansion(1))
		cl.setTitle(d)
		return
	}

	row := 1
	for _, c := range d.Conversations {
		name := sanitizeForTerminal(chat.DisplayName(c, d.SelfID))
		nameColor := cl.theme.FgColor
		if n := c.Unread(); n > 0 {
			name = fmt.Sprintf("(%d) %s", n, name)
			nameColor = cl.theme.UnreadColor
		}
		kind := "DM"
		if c.IsGroupChat {
			kind = "GROUP"
		}

		cl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(name)).SetExpansion(1).SetTextColor(nameColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(chat.Preview(c, d.SelfID)))).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(formatTimestamp(lastActivity(c), time.Now())).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
		cl.SetCell(row, 3, tview.NewTableCell(kind).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
		cl.ids = append(cl.ids, c.ConversationID)
		row++
	}

	for i, id := range cl.ids {
		if id == keep {
			cl.Select(i+1, 0)
			break
		}
	}
	cl.setTitle(d)
}

// placeholder returns the single-row message shown instead of rows.
func (cl *ConversationList) placeholder(d ListData) (string, tcell.Color, bool) {
	switch {
	case len(d.Conversations) > 0:
		return "", 0, false
	case d.State.Err != nil:
		return "Could not load conversations: " + d.State.Err.Error() + " (r to retry)", cl.theme.ErrorColor, true
	case !d.Loaded:
		return "Loading conversations...", cl.theme.PendingColor, true
	case d.Filter != "":
		return "No conversations match " + d.Filter, cl.theme.PendingColor, true
	default:
		return EmptyConversations, cl.theme.PendingColor, true
	}
}

func (cl *ConversationList) setTitle(d ListData) {
	switch {
	case d.Filter != "":
		cl.SetTitle(fmt.Sprintf(" Conversations (%d/%d) filter: %s ", len(d.Conversations), d.Total, tview.Escape(d.Filter)))
	case d.State.Loading:
		cl.SetTitle(fmt.Sprintf(" Conversations (%d) refreshing ", d.Total))
	default:
		cl.SetTitle(fmt.Sprintf(" Conversations (%d) ", d.Total))
	}
}

// SelectedID returns the conversation under the cursor, or 0.
func (cl *ConversationList) SelectedID() int64 {
	row, _ := cl.GetSelection()
	return cl.ByIndex(row)
}

// ByIndex returns the id of the Nth visible conversation (1-based), or 0.
func (cl *ConversationList) ByIndex(n int) int64 {
	if n < 1 || n > len(cl.ids) {
		return 0
	}
	return cl.ids[n-1]
}

func lastActivity(c chatapi.Conversation) time.Time {
	if c.LastMessageSentAt != nil {
		return *c.LastMessageSentAt
	}
	return c.UpdatedAt
}

// formatTimestamp shows the clock time for today and the date otherwise.
func formatTimestamp(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.Local()
	now = now.Local()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	if t.Year() == now.Year() {
		return t.Format("Jan 02")
	}
	return t.Format("2006-01-02")
}
