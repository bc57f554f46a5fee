package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/lexchat/internal/chatapi"
	"github.com/matheus3301/lexchat/internal/tui/model"
	"github.com/matheus3301/lexchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// NewConversationDialog searches people and starts a direct or group
// conversation with them.
type NewConversationDialog struct {
	*tview.Flex
	theme   *ui.Theme
	search  *tview.InputField
	results *tview.Table
	form    *tview.Form
	group   *tview.Checkbox
	title   *tview.InputField
	status  *tview.TextView

	users  []chatapi.UserSummary
	picked []chatapi.UserSummary

	focus    func(p tview.Primitive)
	onSearch func(query string)
	onSubmit func(req model.NewConversation)
	onCancel func()
}

// NewNewConversationDialog creates the dialog.
func NewNewConversationDialog(theme *ui.Theme) *NewConversationDialog {
	d := &NewConversationDialog{theme: theme}

	d.search = tview.NewInputField().
		SetLabel(" Search people: ").
		SetFieldWidth(0)
	d.search.SetBackgroundColor(theme.BgColor)
	d.search.SetFieldBackgroundColor(theme.BgColor)
	d.search.SetFieldTextColor(theme.FgColor)
	d.search.SetLabelColor(theme.MenuKeyColor)
	d.search.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			if d.onSearch != nil {
				d.onSearch(strings.TrimSpace(d.search.GetText()))
			}
		case tcell.KeyTab, tcell.KeyDown:
			d.setFocus(d.results)
		case tcell.KeyEscape:
			d.cancel()
		}
	})

	d.results = tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	d.results.SetBorder(true)
	d.results.SetBorderColor(theme.BorderColor)
	d.results.SetBackgroundColor(theme.BgColor)
	d.results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	d.results.SetTitle(" People (Enter/Space to pick) ")
	d.results.SetTitleColor(theme.TitleColor)
	d.results.SetSelectedFunc(func(row, _ int) { d.toggle(row) })
	d.results.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyRune && event.Rune() == ' ':
			row, _ := d.results.GetSelection()
			d.toggle(row)
			return nil
		case event.Key() == tcell.KeyTab:
			d.setFocus(d.form)
			return nil
		case event.Key() == tcell.KeyBacktab:
			d.setFocus(d.search)
			return nil
		case event.Key() == tcell.KeyEscape:
			d.cancel()
			return nil
		}
		return event
	})

	d.group = tview.NewCheckbox().SetLabel("Group ")
	d.title = tview.NewInputField().SetLabel("Title ").SetFieldWidth(40)

	d.form = tview.NewForm().
		AddFormItem(d.group).
		AddFormItem(d.title).
		AddButton("Start", d.submit).
		AddButton("Cancel", d.cancel)
	d.form.SetBackgroundColor(theme.BgColor)
	d.form.SetFieldBackgroundColor(theme.BgColor)
	d.form.SetFieldTextColor(theme.FgColor)
	d.form.SetLabelColor(theme.MenuKeyColor)
	d.form.SetButtonBackgroundColor(theme.BorderColor)
	d.form.SetCancelFunc(d.cancel)
	d.form.SetHorizontal(true)

	d.status = tview.NewTextView().SetDynamicColors(true)
	d.status.SetBackgroundColor(theme.BgColor)

	d.Flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(d.search, 1, 0, true).
		AddItem(d.results, 0, 1, false).
		AddItem(d.form, 3, 0, false).
		AddItem(d.status, 2, 0, false)
	d.SetBorder(true)
	d.SetBorderColor(theme.BorderColor)
	d.SetBackgroundColor(theme.BgColor)
	d.SetTitle(" New Conversation ")
	d.SetTitleColor(theme.TitleColor)

	d.renderResults()
	return d
}

// Name implements Component.
func (d *NewConversationDialog) Name() string { return "New" }

// Init implements Component.
func (d *NewConversationDialog) Init() {}

// Start implements Component.
func (d *NewConversationDialog) Start() {}

// Stop implements Component.
func (d *NewConversationDialog) Stop() {}

// Hints implements Component.
func (d *NewConversationDialog) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Search / Pick"},
		{Key: "Tab", Description: "Next field"},
		{Key: "Esc", Description: "Cancel"},
	}
}

// SetFocusFunc sets how the dialog moves focus between its parts.
func (d *NewConversationDialog) SetFocusFunc(fn func(p tview.Primitive)) { d.focus = fn }

// SetOnSearch sets the callback for a submitted search query.
func (d *NewConversationDialog) SetOnSearch(fn func(query string)) { d.onSearch = fn }

// SetOnSubmit sets the callback for a validated request.
func (d *NewConversationDialog) SetOnSubmit(fn func(req model.NewConversation)) { d.onSubmit = fn }

// SetOnCancel sets the callback when the dialog is dismissed.
func (d *NewConversationDialog) SetOnCancel(fn func()) { d.onCancel = fn }

// SearchField returns the primitive that takes focus when the dialog opens.
func (d *NewConversationDialog) SearchField() *tview.InputField { return d.search }

// Reset clears every field for a fresh dialog.
func (d *NewConversationDialog) Reset() {
	d.search.SetText("")
	d.title.SetText("")
	d.group.SetChecked(false)
	d.users = nil
	d.picked = nil
	d.status.Clear()
	d.renderResults()
}

// SetResults shows a search outcome.
func (d *NewConversationDialog) SetResults(users []chatapi.UserSummary, err error) {
	if err != nil {
		d.SetError(fmt.Errorf("search failed: %w", err))
		return
	}
	d.users = users
	d.status.Clear()
	d.renderResults()
	if len(users) > 0 {
		d.setFocus(d.results)
	}
}

// SetError shows err inline under the form.
func (d *NewConversationDialog) SetError(err error) {
	d.status.Clear()
	if err != nil {
		_, _ = fmt.Fprintf(d.status, " [%s]%s[-]", ui.ColorName(d.theme.ErrorColor), tview.Escape(err.Error()))
	}
}

// Request returns the conversation request the current input describes.
func (d *NewConversationDialog) Request() model.NewConversation {
	return model.NewConversation{
		Group:  d.group.IsChecked(),
		Title:  d.title.GetText(),
		People: append([]chatapi.UserSummary(nil), d.picked...),
	}
}

func (d *NewConversationDialog) submit() {
	req := d.Request()
	if err := req.Validate(); err != nil {
		d.SetError(err)
		return
	}
	d.status.Clear()
	if d.onSubmit != nil {
		d.onSubmit(req)
	}
}

func (d *NewConversationDialog) cancel() {
	if d.onCancel != nil {
		d.onCancel()
	}
}

func (d *NewConversationDialog) setFocus(p tview.Primitive) {
	if d.focus != nil {
		d.focus(p)
	}
}

func (d *NewConversationDialog) toggle(row int) {
	i := row
	if i < 0 || i >= len(d.users) {
		return
	}
	u := d.users[i]
	for j, p := range d.picked {
		if p.UserID == u.UserID {
			d.picked = append(d.picked[:j], d.picked[j+1:]...)
			d.renderResults()
			return
		}
	}
	d.picked = append(d.picked, u)
	d.renderResults()
}

func (d *NewConversationDialog) isPicked(id int64) bool {
	for _, p := range d.picked {
		if p.UserID == id {
			return true
		}
	}
	return false
}

func (d *NewConversationDialog) renderResults() {
	row, _ := d.results.GetSelection()
	d.results.Clear()
	if len(d.users) == 0 {
		d.results.SetCell(0, 0, tview.NewTableCell(" Type a name or email and press Enter").
			SetSelectable(false).
			SetTextColor(d.theme.PendingColor))
	}
	for i, u := range d.users {
		mark := "[ ]"
		if d.isPicked(u.UserID) {
			mark = "[x]"
		}
		email := ""
		if u.Email != nil {
			email = *u.Email
		}
		d.results.SetCell(i, 0, tview.NewTableCell(" "+tview.Escape(mark)).SetTextColor(d.theme.UnreadColor))
		d.results.SetCell(i, 1, tview.NewTableCell(tview.Escape(sanitizeForTerminal(u.FullName))).SetExpansion(1).SetTextColor(d.theme.FgColor))
		d.results.SetCell(i, 2, tview.NewTableCell(tview.Escape(email)).SetExpansion(1).SetTextColor(d.theme.FgColor))
	}
	if row >= 0 && row < len(d.users) {
		d.results.Select(row, 0)
	}
	d.results.SetTitle(fmt.Sprintf(" People (%d picked, Enter/Space to pick) ", len(d.picked)))
}
