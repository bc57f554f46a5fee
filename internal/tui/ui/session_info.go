package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// SessionData holds session information for display.
type SessionData struct {
	Session       string
	User          string
	Email         string
	Backend       string
	Conversations int
	Unread        int
	Polling       string
}

// SessionInfo displays session metadata in the header.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates a new session info panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the session info.
func (si *SessionInfo) Update(data *SessionData) {
	si.Clear()
	if data == nil {
		return
	}

	fgColor := ColorName(si.theme.FgColor)
	counterColor := ColorName(si.theme.CounterColor)
	unreadColor := counterColor
	if data.Unread > 0 {
		unreadColor = ColorName(si.theme.UnreadColor)
	}

	text := fmt.Sprintf(
		"[%s::b]Session:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]User:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]Email:[-:-:-]   [%s]%s[-]\n"+
			"[%s::b]Backend:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]Chats:[-:-:-]   [%s]%d[-]\n"+
			"[%s::b]Unread:[-:-:-]  [%s]%d[-]\n"+
			"[%s::b]Refresh:[-:-:-] [%s]%s[-]",
		fgColor, counterColor, tview.Escape(data.Session),
		fgColor, counterColor, tview.Escape(orDash(data.User)),
		fgColor, counterColor, tview.Escape(orDash(data.Email)),
		fgColor, counterColor, tview.Escape(orDash(data.Backend)),
		fgColor, counterColor, data.Conversations,
		fgColor, unreadColor, data.Unread,
		fgColor, counterColor, orDash(data.Polling),
	)

	_, _ = fmt.Fprint(si, text)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
