package views

import (
	"fmt"

	"github.com/matheus3301/lexchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements Component.
func (hv *HelpView) Name() string { return "Help" }

// Init implements Component.
func (hv *HelpView) Init() {}

// Start implements Component.
func (hv *HelpView) Start() { hv.ScrollToBeginning() }

// Stop implements Component.
func (hv *HelpView) Stop() {}

// Hints implements Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

func (hv *HelpView) render() {
	kc := ui.ColorName(hv.theme.MenuKeyColor)
	key := func(k string) string { return fmt.Sprintf("[%s]%s[-:-:-]", kc, k) }

	help := fmt.Sprintf(`
  [::b]Global Keys[-:-:-]

  %s      Command mode       %s    Cancel / Go back
  %s      Filter mode        %s      Help
  %s      Quit               %s Quit immediately

  [::b]Conversation List[-:-:-]

  %s  Open conversation  %s      Clear filter
  %s    Jump to Nth row    %s      New conversation
  %s  Move down / up   %s      Reload (retry after an error)

  [::b]Message Thread[-:-:-]

  %s      Focus composer     %s      Conversation details
  %s  Load older (at top)  %s  Jump to oldest and load more
  %s      Retry a failed load  %s  Send (in composer)

  [::b]Commands (: mode)[-:-:-]

  %s        Start a conversation
  %s <name>    Open a conversation by name
  %s     Sign out of this session
  %s / %s     Show this help
  %s / %s     Quit application
`,
		key(":"), key("Esc"),
		key("/"), key("?"),
		key("q"), key("Ctrl-C"),
		key("Enter"), key("0"),
		key("1-9"), key("n"),
		key("Down/Up"), key("r"),
		key("i"), key("d"),
		key("k/Up"), key("g/Home"),
		key("r"), key("Enter"),
		key(":new"),
		key(":open"),
		key(":logout"),
		key(":help"), key(":h"),
		key(":quit"), key(":q"),
	)

	_, _ = fmt.Fprint(hv, help)
}
