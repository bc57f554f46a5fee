package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/lexchat/internal/chatapi"
	"github.com/matheus3301/lexchat/internal/thread"
	"github.com/matheus3301/lexchat/internal/tui/model"
	"github.com/matheus3301/lexchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// ThreadData is what the message thread renders.
type ThreadData struct {
	ConversationID int64
	Title          string
	IsGroup        bool
	Messages       []chatapi.Message
	SelfID         int64
	State          model.QueryState
	Pager          thread.State
	Exhausted      bool
}

// MessageThread displays messages and a composer for a single conversation.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *Composer
	anchor   thread.Anchor
	convID   int64
	title    string
	lines    int
	onTop    func()
}

// NewMessageThread creates a new message thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" Messages ")
	messages.SetTitleColor(theme.TitleColor)

	composer := NewComposer(theme)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
	}

	messages.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		row, _ := messages.GetScrollOffset()
		switch {
		case event.Key() == tcell.KeyUp, event.Key() == tcell.KeyRune && event.Rune() == 'k':
			if row == 0 {
				mt.reachedTop()
			}
		case event.Key() == tcell.KeyHome, event.Key() == tcell.KeyRune && event.Rune() == 'g':
			mt.reachedTop()
		}
		return event
	})

	return mt
}

// Name implements Component.
func (mt *MessageThread) Name() string {
	if mt.title != "" {
		return mt.title
	}
	return "Messages"
}

// Init implements Component.
func (mt *MessageThread) Init() {}

// Start implements Component.
func (mt *MessageThread) Start() {}

// Stop implements Component.
func (mt *MessageThread) Stop() {}

// Hints implements Component.
func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "k/g", Description: "Older"},
		{Key: "d", Description: "Details"},
		{Key: "r", Description: "Retry"},
		{Key: "Esc", Description: "Back"},
		{Key: ":", Description: "Command"},
		{Key: "?", Description: "Help"},
	}
}

// SetOnTop sets the callback fired when the user scrolls past the oldest
// loaded message.
func (mt *MessageThread) SetOnTop(fn func()) {
	mt.onTop = fn
}

func (mt *MessageThread) reachedTop() {
	if mt.onTop != nil {
		mt.onTop()
	}
}

// MarkAnchor records the current content height so the next Update keeps
// the viewport on the same message after older history is prepended.
func (mt *MessageThread) MarkAnchor() {
	mt.anchor.Mark(mt.lines)
}

// Update re-renders the thread.
func (mt *MessageThread) Update(d ThreadData) {
	_, _, width, height := mt.messages.GetInnerRect()
	if width <= 0 {
		width = 80
	}
	text, lines := renderThread(d, width, mt.theme, time.Now())

	row, _ := mt.messages.GetScrollOffset()
	atBottom := row+height >= mt.lines
	switched := d.ConversationID != mt.convID

	mt.convID = d.ConversationID
	mt.title = d.Title
	mt.messages.SetTitle(fmt.Sprintf(" %s ", tview.Escape(d.Title)))
	mt.messages.SetText(text)

	switch {
	case switched:
		mt.anchor = thread.Anchor{}
		mt.messages.ScrollToEnd()
	case mt.anchor.Pending() && d.Pager == thread.Loaded:
		mt.messages.ScrollTo(mt.anchor.Restore(row, lines), 0)
	case atBottom && !mt.anchor.Pending():
		mt.messages.ScrollToEnd()
	default:
		mt.messages.ScrollTo(row, 0)
	}
	mt.lines = lines
}

// Messages returns the messages text view (for focus management).
func (mt *MessageThread) Messages() *tview.TextView {
	return mt.messages
}

// Composer returns the composer (for focus management).
func (mt *MessageThread) Composer() *Composer {
	return mt.composer
}

// renderThread formats d as tview markup and returns it with its line count.
// Every line is pre-wrapped to width so the count matches the screen.
func renderThread(d ThreadData, width int, theme *ui.Theme, now time.Time) (string, int) {
	var b strings.Builder
	lines := 0
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
		lines++
	}
	dim := ui.ColorName(theme.PendingColor)
	errColor := ui.ColorName(theme.ErrorColor)

	// The first line is always a single status line so its height never
	// shifts the anchor.
	switch {
	case d.Pager == thread.LoadingInitial && len(d.Messages) == 0:
		line(fmt.Sprintf("[%s]Loading messages...[-]", dim))
		return b.String(), lines
	case d.State.Err != nil && len(d.Messages) == 0:
		line(fmt.Sprintf("[%s]Could not load messages: %s (r to retry)[-]", errColor, tview.Escape(d.State.Err.Error())))
		return b.String(), lines
	case len(d.Messages) == 0 && d.Pager == thread.Loaded:
		line(fmt.Sprintf("[%s]No messages yet. Say hello.[-]", dim))
		return b.String(), lines
	case d.State.Err != nil:
		line(fmt.Sprintf("[%s]Could not load older messages: %s (r to retry)[-]", errColor, tview.Escape(d.State.Err.Error())))
	case d.Pager == thread.LoadingMore:
		line(fmt.Sprintf("[%s]Loading older messages...[-]", dim))
	case d.Exhausted:
		line(fmt.Sprintf("[%s]Beginning of conversation[-]", dim))
	default:
		line(fmt.Sprintf("[%s]k at the top loads older messages[-]", dim))
	}

	own := ui.ColorName(theme.OwnMessageColor)
	var lastDay string
	for _, m := range d.Messages {
		day := dayLabel(m.SentAt, now)
		if day != lastDay {
			line("")
			line(fmt.Sprintf("[%s]--- %s ---[-]", dim, day))
			lastDay = day
		}

		sender := senderName(m, d.SelfID)
		header := fmt.Sprintf("[::b]%s[-:-:-] [::d]%s[-:-:-]", tview.Escape(sanitizeForTerminal(sender)), m.SentAt.Local().Format("15:04"))
		if m.SenderID == d.SelfID {
			header = fmt.Sprintf("[%s::b]%s[-:-:-] [::d]%s[-:-:-]", own, tview.Escape(sender), m.SentAt.Local().Format("15:04"))
		}
		if m.Pending() {
			header += fmt.Sprintf(" [%s]sending[-]", dim)
		}
		line(header)
		for _, l := range wrapText(sanitizeForTerminal(m.Content), width) {
			line(tview.Escape(l))
		}
	}
	return b.String(), lines
}

func dayLabel(t, now time.Time) string {
	t, now = t.Local(), now.Local()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return "Today"
	}
	return t.Format("Mon, Jan 2 2006")
}

func senderName(m chatapi.Message, selfID int64) string {
	if m.SenderID == selfID {
		return "You"
	}
	if m.Sender != nil && m.Sender.FullName != "" {
		return m.Sender.FullName
	}
	return fmt.Sprintf("User #%d", m.SenderID)
}
