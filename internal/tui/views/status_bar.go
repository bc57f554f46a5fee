package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// StatusBar displays persistent session and refresh state.
type StatusBar struct {
	*tview.TextView
	session string
	user    string
	unread  int
	loading bool
	flash   string
}

// NewStatusBar creates a new status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv}
}

// SetSession updates the session name display.
func (sb *StatusBar) SetSession(name string) {
	sb.session = name
	sb.render()
}

// SetUser updates the signed-in user display. Empty means signed out.
func (sb *StatusBar) SetUser(name string) {
	sb.user = name
	sb.render()
}

// SetUnread updates the total unread count.
func (sb *StatusBar) SetUnread(n int) {
	sb.unread = n
	sb.render()
}

// SetLoading updates the refresh indicator.
func (sb *StatusBar) SetLoading(loading bool) {
	sb.loading = loading
	sb.render()
}

// SetFlash sets a temporary message.
func (sb *StatusBar) SetFlash(msg string) {
	sb.flash = msg
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	icon := " "
	if sb.loading {
		icon = "[green]~[-]"
	}
	user := sb.user
	if user == "" {
		user = "signed out"
	}

	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s %s | unread %d | %s",
		tview.Escape(sb.session), tview.Escape(user), icon, sb.unread, time.Now().Format("15:04"))
	if sb.flash != "" {
		line += fmt.Sprintf(" | [yellow]%s[-]", tview.Escape(sb.flash))
	}

	_, _ = fmt.Fprint(sb, line)
}
