package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/lexchat/internal/chatapi"
	"github.com/matheus3301/lexchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// LoginView signs a user in or registers a new account.
type LoginView struct {
	*tview.Flex
	theme    *ui.Theme
	form     *tview.Form
	name     *tview.InputField
	email    *tview.InputField
	password *tview.InputField
	status   *tview.TextView

	onLogin    func(email, password string)
	onRegister func(req chatapi.RegisterRequest)
	onQuit     func()
}

// NewLoginView creates a new login view.
func NewLoginView(theme *ui.Theme) *LoginView {
	lv := &LoginView{theme: theme}

	lv.name = tview.NewInputField().SetLabel("Full name (register)").SetFieldWidth(40)
	lv.email = tview.NewInputField().SetLabel("Email").SetFieldWidth(40)
	lv.password = tview.NewInputField().SetLabel("Password").SetFieldWidth(40).SetMaskCharacter('*')

	lv.form = tview.NewForm().
		AddFormItem(lv.email).
		AddFormItem(lv.password).
		AddFormItem(lv.name).
		AddButton("Log in", lv.login).
		AddButton("Register", lv.register).
		AddButton("Quit", func() {
			if lv.onQuit != nil {
				lv.onQuit()
			}
		})
	lv.form.SetBackgroundColor(theme.BgColor)
	lv.form.SetFieldBackgroundColor(theme.BgColor)
	lv.form.SetFieldTextColor(theme.FgColor)
	lv.form.SetLabelColor(theme.MenuKeyColor)
	lv.form.SetButtonBackgroundColor(theme.BorderColor)

	lv.status = tview.NewTextView().SetDynamicColors(true)
	lv.status.SetBackgroundColor(theme.BgColor)

	lv.Flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(lv.form, 0, 1, true).
		AddItem(lv.status, 2, 0, false)
	lv.SetBorder(true)
	lv.SetBorderColor(theme.BorderColor)
	lv.SetBackgroundColor(theme.BgColor)
	lv.SetTitle(" Sign in ")
	lv.SetTitleColor(theme.TitleColor)
	return lv
}

// Name implements Component.
func (lv *LoginView) Name() string { return "Login" }

// Init implements Component.
func (lv *LoginView) Init() {}

// Start implements Component.
func (lv *LoginView) Start() {}

// Stop implements Component.
func (lv *LoginView) Stop() {}

// Hints implements Component.
func (lv *LoginView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Submit"},
		{Key: "Ctrl-C", Description: "Quit"},
	}
}

// SetOnLogin sets the callback for the login button.
func (lv *LoginView) SetOnLogin(fn func(email, password string)) { lv.onLogin = fn }

// SetOnRegister sets the callback for the register button.
func (lv *LoginView) SetOnRegister(fn func(req chatapi.RegisterRequest)) { lv.onRegister = fn }

// SetOnQuit sets the callback for the quit button.
func (lv *LoginView) SetOnQuit(fn func()) { lv.onQuit = fn }

// Form returns the form for focus management.
func (lv *LoginView) Form() *tview.Form { return lv.form }

// ShowMessage displays an informational line.
func (lv *LoginView) ShowMessage(msg string) {
	lv.status.Clear()
	_, _ = fmt.Fprintf(lv.status, " [%s]%s[-]", ui.ColorName(lv.theme.FlashInfoColor), tview.Escape(msg))
}

// ShowError displays err under the form.
func (lv *LoginView) ShowError(err error) {
	lv.status.Clear()
	_, _ = fmt.Fprintf(lv.status, " [%s]%s[-]", ui.ColorName(lv.theme.ErrorColor), tview.Escape(err.Error()))
}

// Reset empties the password, keeping the email for the next attempt.
func (lv *LoginView) Reset() {
	lv.password.SetText("")
	lv.status.Clear()
}

func (lv *LoginView) login() {
	email := strings.TrimSpace(lv.email.GetText())
	password := lv.password.GetText()
	if email == "" || password == "" {
		lv.ShowError(&chatapi.ValidationError{Field: "email", Reason: "email and password are required"})
		return
	}
	lv.ShowMessage("Signing in...")
	if lv.onLogin != nil {
		lv.onLogin(email, password)
	}
}

func (lv *LoginView) register() {
	req := chatapi.RegisterRequest{
		FullName: strings.TrimSpace(lv.name.GetText()),
		Email:    strings.TrimSpace(lv.email.GetText()),
		Password: lv.password.GetText(),
	}
	if req.FullName == "" || req.Email == "" || req.Password == "" {
		lv.ShowError(&chatapi.ValidationError{Field: "full_name", Reason: "name, email and password are required to register"})
		return
	}
	lv.ShowMessage("Creating account...")
	if lv.onRegister != nil {
		lv.onRegister(req)
	}
}
