package tui

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/lexchat/internal/bus"
	"github.com/matheus3301/lexchat/internal/cache"
	"github.com/matheus3301/lexchat/internal/chat"
	"github.com/matheus3301/lexchat/internal/chatapi"
	"github.com/matheus3301/lexchat/internal/receipt"
	"github.com/matheus3301/lexchat/internal/refresh"
	"github.com/matheus3301/lexchat/internal/thread"
	"github.com/matheus3301/lexchat/internal/tui/keys"
	"github.com/matheus3301/lexchat/internal/tui/model"
	"github.com/matheus3301/lexchat/internal/tui/ui"
	"github.com/matheus3301/lexchat/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

// Page names, also shown as breadcrumbs.
const (
	pageLogin   = "Login"
	pageList    = "Conversations"
	pageThread  = "Thread"
	pageDetails = "Details"
	pageNew     = "New"
	pageHelp    = "Help"
)

// Authenticator signs users in against the backend.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*chatapi.LoginResponse, error)
	Register(ctx context.Context, req *chatapi.RegisterRequest) (*chatapi.LoginResponse, error)
}

// Options wires the application to the chat stack.
type Options struct {
	Service      *chat.Service
	Auth         Authenticator
	Bus          *bus.Bus
	PageSize     int
	PollInterval time.Duration
	Backend      string
	Logger       *zap.Logger
}

// App is the main TUI application shell.
type App struct {
	app    *tview.Application
	theme  *ui.Theme
	pages  *ui.Pages
	layout *tview.Flex

	vm      *model.ViewModel
	svc     *chat.Service
	auth    Authenticator
	bus     *bus.Bus
	pager   *thread.Pager
	trigger *receipt.Trigger
	poller  *refresh.Poller
	flash   *ui.FlashModel
	logger  *zap.Logger

	registry   *keys.Registry
	components map[string]ui.Component

	info     *ui.SessionInfo
	menu     *ui.Menu
	crumbs   *ui.Crumbs
	flashBar *ui.FlashBar
	prompt   *ui.Prompt
	status   *views.StatusBar
	login    *views.LoginView
	list     *views.ConversationList
	thread   *views.MessageThread
	details  *views.ConversationInfo
	newConv  *views.NewConversationDialog
	help     *views.HelpView

	backend  string
	interval time.Duration
	pending  atomic.Bool
	polling  atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()
	flash := ui.NewFlashModel()
	svc := opts.Service

	pager := thread.NewPager(opts.PageSize, opts.Bus)
	trigger := receipt.NewTrigger(svc, svc.Session().UserID, opts.Bus, logger)
	vm := model.NewViewModel(svc, pager, trigger, flash, logger)

	a := &App{
		app:        tview.NewApplication(),
		theme:      theme,
		pages:      ui.NewPages(),
		vm:         vm,
		svc:        svc,
		auth:       opts.Auth,
		bus:        opts.Bus,
		pager:      pager,
		trigger:    trigger,
		flash:      flash,
		logger:     logger,
		registry:   keys.NewRegistry(),
		components: make(map[string]ui.Component),
		info:       ui.NewSessionInfo(theme),
		menu:       ui.NewMenu(theme),
		crumbs:     ui.NewCrumbs(theme),
		flashBar:   ui.NewFlashBar(theme),
		prompt:     ui.NewPrompt(theme),
		status:     views.NewStatusBar(),
		login:      views.NewLoginView(theme),
		list:       views.NewConversationList(theme),
		thread:     views.NewMessageThread(theme),
		details:    views.NewConversationInfo(theme),
		newConv:    views.NewNewConversationDialog(theme),
		help:       views.NewHelpView(theme),
		backend:    opts.Backend,
		interval:   opts.PollInterval,
		ctx:        ctx,
		cancel:     cancel,
	}
	a.poller = refresh.NewPoller(svc.Cache(), opts.PollInterval, trigger.Visible, vm.Refresh, logger)

	a.status.SetSession(svc.Session().Name())
	vm.SetOnChange(a.requestDraw)
	vm.SetOnUnauthorized(a.sessionExpired)

	a.setupBindings()
	for _, page := range []string{pageList, pageThread} {
		for _, c := range a.registry.Conflicts(page) {
			logger.Warn("conflicting key binding", zap.String("page", page), zap.String("binding", c))
		}
	}
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("quit", &keys.Action{
		Rune: 'q', Key: tcell.KeyRune,
		Description: "q:quit", Visible: true,
		Handler: func() {
			if a.pages.Depth() > 1 {
				a.back()
				return
			}
			a.Stop()
		},
	})
	a.registry.AddGlobal("help", &keys.Action{
		Rune: '?', Key: tcell.KeyRune,
		Description: "?:help", Visible: true,
		Handler: func() { a.push(pageHelp) },
	})
	a.registry.AddGlobal("command", &keys.Action{
		Rune: ':', Key: tcell.KeyRune,
		Description: "::command", Visible: true,
		Handler: func() { a.activatePrompt(ui.PromptCommand) },
	})

	a.registry.AddView(pageList, "filter", &keys.Action{
		Rune: '/', Key: tcell.KeyRune,
		Description: "/:filter", Visible: true,
		Handler: func() { a.activatePrompt(ui.PromptFilter) },
	})
	a.registry.AddView(pageList, "clear", &keys.Action{
		Rune: '0', Key: tcell.KeyRune,
		Description: "0:clear filter",
		Handler: func() { a.vm.SetFilter("") },
	})
	a.registry.AddView(pageList, "new", &keys.Action{
		Rune: 'n', Key: tcell.KeyRune,
		Description: "n:new", Visible: true,
		Handler: a.showNewConversation,
	})
	a.registry.AddView(pageList, "reload", &keys.Action{
		Rune: 'r', Key: tcell.KeyRune,
		Description: "r:reload", Visible: true,
		Handler: func() { go a.reloadList() },
	})
	for n := 1; n <= 9; n++ {
		a.registry.AddView(pageList, fmt.Sprintf("jump%d", n), &keys.Action{
			Rune: rune('0' + n), Key: tcell.KeyRune,
			Handler: func() {
				if id := a.list.ByIndex(n); id != 0 {
					a.open(id)
				}
			},
		})
	}

	a.registry.AddView(pageThread, "compose", &keys.Action{
		Rune: 'i', Key: tcell.KeyRune,
		Description: "i:compose", Visible: true,
		Handler: func() { a.app.SetFocus(a.thread.Composer()) },
	})
	a.registry.AddView(pageThread, "details", &keys.Action{
		Rune: 'd', Key: tcell.KeyRune,
		Description: "d:details", Visible: true,
		When: func() bool {
			_, ok := a.vm.SelectedConversation()
			return ok
		},
		Handler: a.showDetails,
	})
	a.registry.AddView(pageThread, "retry", &keys.Action{
		Rune: 'r', Key: tcell.KeyRune,
		Description: "r:retry", Visible: true,
		Handler: func() {
			go func() { _ = a.vm.RetryThread(a.ctx) }()
		},
	})
}

func (a *App) setupCallbacks() {
	a.list.SetSelectedFunc(func(row, _ int) {
		if id := a.list.ByIndex(row); id != 0 {
			a.open(id)
		}
	})

	a.thread.SetOnTop(a.loadOlder)
	a.thread.Composer().SetOnSend(func(text string) {
		go func() {
			if err := a.vm.Send(a.ctx, text); err != nil {
				a.app.QueueUpdateDraw(func() { a.thread.Composer().Restore(text) })
			}
		}()
	})
	a.thread.Composer().SetOnCancel(func() { a.app.SetFocus(a.thread.Messages()) })

	a.login.SetOnLogin(func(email, password string) {
		go a.signIn(func(ctx context.Context) (*chatapi.LoginResponse, error) {
			return a.auth.Login(ctx, email, password)
		})
	})
	a.login.SetOnRegister(func(req chatapi.RegisterRequest) {
		go a.signIn(func(ctx context.Context) (*chatapi.LoginResponse, error) {
			return a.auth.Register(ctx, &req)
		})
	})
	a.login.SetOnQuit(a.Stop)

	a.newConv.SetFocusFunc(func(p tview.Primitive) { a.app.SetFocus(p) })
	a.newConv.SetOnCancel(a.back)
	a.newConv.SetOnSearch(func(query string) {
		go func() {
			users, err := a.vm.SearchUsers(a.ctx, query)
			a.app.QueueUpdateDraw(func() { a.newConv.SetResults(users, err) })
		}()
	})
	a.newConv.SetOnSubmit(func(req model.NewConversation) {
		go func() {
			conv, err := a.vm.StartConversation(a.ctx, req)
			a.app.QueueUpdateDraw(func() {
				if err != nil && conv == nil {
					a.newConv.SetError(err)
					return
				}
				a.pages.Pop()
				a.push(pageThread)
				a.app.SetFocus(a.thread.Composer())
			})
		}()
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.deactivatePrompt()
		switch mode {
		case ui.PromptFilter:
			a.vm.SetFilter(text)
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(a.deactivatePrompt)
	a.prompt.SetCompletions(CommandNames())
	a.prompt.SetChangedFunc(func(text string) {
		if a.prompt.Mode() == ui.PromptFilter {
			a.vm.SetFilter(text)
		}
	})

	a.pages.SetOnChange(func(stack []string) {
		a.crumbs.Update(stack)
		a.updateMenu()
	})
}

func (a *App) setupLayout() {
	a.components[pageLogin] = a.login
	a.components[pageList] = a.list
	a.components[pageThread] = a.thread
	a.components[pageDetails] = a.details
	a.components[pageNew] = a.newConv
	a.components[pageHelp] = a.help

	for _, name := range []string{pageLogin, pageList, pageThread, pageDetails, pageNew, pageHelp} {
		a.pages.AddPage(name, a.components[name].(tview.Primitive), true, false)
	}

	header := tview.NewFlex().
		AddItem(a.info, 0, 2, false).
		AddItem(a.menu, 0, 2, false).
		AddItem(ui.NewLogo(a.theme), 18, 0, false)

	a.layout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 8, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false).
		AddItem(a.status, 1, 0, false)

	a.app.SetRoot(a.layout, true)
	a.app.SetInputCapture(a.handleKey)
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyCtrlC {
		a.Stop()
		return nil
	}

	current := a.pages.Current()
	// Forms and text inputs own every other key, Esc included.
	if ownsKeys(a.app.GetFocus()) || current == pageLogin || current == pageNew {
		return event
	}

	if event.Key() == tcell.KeyEscape {
		switch {
		case a.pages.Depth() > 1:
			a.back()
		case a.vm.Filter() != "":
			a.vm.SetFilter("")
		}
		return nil
	}

	if a.registry.HandleEvent(current, event) {
		return nil
	}
	return event
}

func (a *App) push(name string) {
	if a.pages.Current() == name {
		return
	}
	a.pages.Push(name)
	a.focusPage(name)
}

func (a *App) back() {
	if a.pages.Pop() == pageThread {
		a.vm.Close()
	}
	a.focusPage(a.pages.Current())
	a.render()
}

func (a *App) focusPage(name string) {
	if c, ok := a.components[name]; ok {
		c.Start()
	}
	switch name {
	case pageLogin:
		a.app.SetFocus(a.login.Form())
	case pageList:
		a.app.SetFocus(a.list)
	case pageThread:
		a.app.SetFocus(a.thread.Messages())
	case pageNew:
		a.app.SetFocus(a.newConv.SearchField())
	case pageDetails:
		a.app.SetFocus(a.details)
	case pageHelp:
		a.app.SetFocus(a.help)
	}
}

func (a *App) activatePrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	if mode == ui.PromptFilter {
		a.prompt.SetText(a.vm.Filter())
	}
	a.layout.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) deactivatePrompt() {
	a.layout.ResizeItem(a.prompt, 0, 0)
	a.focusPage(a.pages.Current())
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case CmdQuit:
		a.Stop()
	case CmdHelp:
		a.push(pageHelp)
	case CmdNew:
		a.showNewConversation()
	case CmdLogout:
		go a.logout("Signed out")
	case CmdOpen:
		a.openByName(cmd.Args)
	default:
		a.flash.Warn(fmt.Sprintf("unknown command %q", cmd.Name))
	}
}

func (a *App) openByName(name string) {
	if name == "" {
		a.flash.Warn("usage: :open <name>")
		return
	}
	convs, _ := a.svc.CachedConversations(a.vm.UserID())
	matches := chat.FilterConversations(convs, name, a.vm.UserID())
	if len(matches) == 0 {
		a.flash.Warn(fmt.Sprintf("no conversation matches %q", name))
		return
	}
	a.open(matches[0].ConversationID)
}

// open shows the thread for id and loads its first page.
func (a *App) open(id int64) {
	if !a.pages.PopTo(pageList) {
		a.pages.Reset(pageList)
	}
	a.push(pageThread)
	go func() { _ = a.vm.Select(a.ctx, id) }()
	a.render()
}

func (a *App) loadOlder() {
	if !a.pager.CanLoadMore(len(a.vm.Messages())) {
		return
	}
	a.thread.MarkAnchor()
	go func() { _, _ = a.vm.LoadMore(a.ctx) }()
}

func (a *App) showDetails() {
	conv, ok := a.vm.SelectedConversation()
	if !ok {
		return
	}
	a.details.Update(conv, nil, nil, a.vm.UserID())
	a.push(pageDetails)
	go func() {
		ps, err := a.vm.Participants(a.ctx)
		a.app.QueueUpdateDraw(func() {
			if current, ok := a.vm.SelectedConversation(); ok {
				conv = current
			}
			a.details.Update(conv, ps, err, a.vm.UserID())
		})
	}()
}

func (a *App) showNewConversation() {
	if !a.svc.Session().Authenticated() {
		return
	}
	a.newConv.Reset()
	a.push(pageNew)
}

func (a *App) reloadList() {
	a.svc.Cache().Invalidate(cache.ConversationListTag())
	_ = a.vm.LoadConversations(a.ctx)
}

func (a *App) signIn(call func(ctx context.Context) (*chatapi.LoginResponse, error)) {
	resp, err := call(a.ctx)
	if err == nil {
		err = a.svc.Session().Login(resp.User, resp.Token)
	}
	a.app.QueueUpdateDraw(func() {
		if err != nil {
			a.login.ShowError(err)
			return
		}
		a.login.Reset()
		a.flash.Info("Signed in as " + resp.User.FullName)
		a.enterChat()
	})
}

// enterChat switches to the conversation list and starts background work.
// Must run on the UI goroutine.
func (a *App) enterChat() {
	a.pages.Reset(pageList)
	a.focusPage(pageList)
	a.startPolling()
	a.render()
	go func() { _ = a.vm.LoadConversations(a.ctx) }()
}

func (a *App) startPolling() {
	if a.polling.CompareAndSwap(false, true) {
		a.poller.Start(a.ctx)
	}
}

func (a *App) stopPolling() {
	if a.polling.CompareAndSwap(true, false) {
		a.poller.Stop()
	}
}

func (a *App) logout(msg string) {
	a.stopPolling()
	if err := a.vm.Logout(); err != nil {
		a.logger.Warn("logout failed", zap.Error(err))
	}
	a.app.QueueUpdateDraw(func() {
		a.pages.Reset(pageLogin)
		a.focusPage(pageLogin)
		a.login.ShowMessage(msg)
		a.render()
	})
}

func (a *App) sessionExpired() {
	if !a.svc.Session().Authenticated() {
		return
	}
	a.logger.Info("session token rejected, signing out")
	go a.logout("Session expired, please sign in again")
}

// requestDraw schedules one render; calls while one is pending coalesce.
// Safe from any goroutine, including the UI goroutine.
func (a *App) requestDraw() {
	if !a.pending.CompareAndSwap(false, true) {
		return
	}
	go a.app.QueueUpdateDraw(func() {
		a.pending.Store(false)
		a.render()
	})
}

// render refreshes every view from the view model. UI goroutine only.
func (a *App) render() {
	self := a.vm.UserID()
	convs, loaded := a.vm.Conversations()
	all, _ := a.svc.CachedConversations(self)
	listState := a.vm.ListState()

	a.list.Update(views.ListData{
		Conversations: convs,
		Loaded:        loaded,
		Total:         len(all),
		Filter:        a.vm.Filter(),
		State:         listState,
		SelfID:        self,
		Selected:      a.vm.Selected(),
	})

	if id := a.vm.Selected(); id != 0 {
		conv, _ := a.vm.SelectedConversation()
		title := chat.DisplayName(conv, self)
		if conv.ConversationID == 0 {
			title = fmt.Sprintf("Conversation #%d", id)
		}
		a.thread.Update(views.ThreadData{
			ConversationID: id,
			Title:          title,
			IsGroup:        conv.IsGroupChat,
			Messages:       a.vm.Messages(),
			SelfID:         self,
			State:          a.vm.ThreadState(),
			Pager:          a.pager.State(),
			Exhausted:      a.pager.Exhausted(),
		})
		a.crumbs.SetLabel(pageThread, a.thread.Name())
	}

	user, _ := a.svc.Session().User()
	email := ""
	if user.Email != nil {
		email = *user.Email
	}
	polling := "off"
	if a.interval > 0 {
		polling = a.interval.String()
	}
	unread := a.vm.UnreadTotal()
	a.info.Update(&ui.SessionData{
		Session:       a.svc.Session().Name(),
		User:          user.FullName,
		Email:         email,
		Backend:       a.backend,
		Conversations: len(all),
		Unread:        unread,
		Polling:       polling,
	})
	a.status.SetUser(user.FullName)
	a.status.SetUnread(unread)
	a.status.SetLoading(listState.Loading || a.vm.ThreadState().Loading)
	a.status.SetFlash(a.flash.Get())
	a.flashBar.Update(a.flash.GetMessage())
	a.updateMenu()
}

func (a *App) updateMenu() {
	if c, ok := a.components[a.pages.Current()]; ok {
		a.menu.Update(c.Hints())
	}
}

// watch redraws on bus events and flash messages until ctx is done.
func (a *App) watch(ctx context.Context) {
	events, unsub := a.bus.Subscribe("", 64)
	defer unsub()
	expire := time.NewTicker(time.Second)
	defer expire.Stop()
	for {
		select {
		case evt := <-events:
			if evt.Kind == bus.KindMessageSendFailed {
				a.logger.Debug("send failed event", zap.Any("payload", evt.Payload))
			}
			a.requestDraw()
		case <-a.flash.Watch():
			a.requestDraw()
		case <-expire.C:
			a.requestDraw()
		case <-ctx.Done():
			return
		}
	}
}

// Run restores a saved login when there is one and starts the TUI.
func (a *App) Run() error {
	for _, c := range a.components {
		c.Init()
	}
	a.trigger.Start(a.ctx)
	go a.watch(a.ctx)

	if a.svc.Session().Authenticated() {
		a.enterChat()
	} else {
		a.pages.Reset(pageLogin)
		a.focusPage(pageLogin)
		a.render()
	}

	err := a.app.Run()
	a.shutdown()
	return err
}

func (a *App) shutdown() {
	a.cancel()
	a.stopPolling()
	a.trigger.Stop()
	for _, c := range a.components {
		c.Stop()
	}
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// ownsKeys reports whether p consumes keystrokes itself.
func ownsKeys(p tview.Primitive) bool {
	switch p.(type) {
	case *tview.InputField, *tview.Checkbox, *tview.Button, *views.Composer, *ui.Prompt:
		return true
	}
	return false
}
