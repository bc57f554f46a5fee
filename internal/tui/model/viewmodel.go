package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/matheus3301/lexchat/internal/chat"
	"github.com/matheus3301/lexchat/internal/chatapi"
	"github.com/matheus3301/lexchat/internal/thread"
	"go.uber.org/zap"
)

// ErrNoSelection is returned by thread operations when no conversation is open.
var ErrNoSelection = errors.New("no conversation selected")

// QueryState is the load state of one query as rendered by a view.
type QueryState struct {
	Loading bool
	Err     error
}

// Visibility tracks which conversation is on screen for read receipts.
type Visibility interface {
	SetVisible(conversationID int64)
	Visible() int64
}

// Notifier surfaces mutation outcomes to the user.
type Notifier interface {
	Info(msg string)
	Err(err error)
}

// ViewModel holds what the views render: the filtered conversation list,
// the selected thread and its pagination, and per-query load state.
type ViewModel struct {
	svc     *chat.Service
	pager   *thread.Pager
	visible Visibility
	notify  Notifier
	logger  *zap.Logger

	mu        sync.RWMutex
	filter    string
	list      QueryState
	thread    QueryState
	selected  int64
	selSeq    uint64
	selCancel context.CancelFunc
	onChange  func()
	onUnauth  func()
}

// NewViewModel creates a view model over svc.
func NewViewModel(svc *chat.Service, pager *thread.Pager, visible Visibility, notify Notifier, logger *zap.Logger) *ViewModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewModel{
		svc:     svc,
		pager:   pager,
		visible: visible,
		notify:  notify,
		logger:  logger,
	}
}

// SetOnChange registers the redraw callback. It may be called from any goroutine.
func (vm *ViewModel) SetOnChange(fn func()) {
	vm.mu.Lock()
	vm.onChange = fn
	vm.mu.Unlock()
}

// SetOnUnauthorized registers the callback run when the backend rejects
// the session token.
func (vm *ViewModel) SetOnUnauthorized(fn func()) {
	vm.mu.Lock()
	vm.onUnauth = fn
	vm.mu.Unlock()
}

// observe reports err to the unauthorized hook and returns it unchanged.
func (vm *ViewModel) observe(err error) error {
	if err == nil || !chatapi.IsUnauthorized(err) {
		return err
	}
	vm.mu.RLock()
	fn := vm.onUnauth
	vm.mu.RUnlock()
	if fn != nil {
		fn()
	}
	return err
}

func (vm *ViewModel) changed() {
	vm.mu.RLock()
	fn := vm.onChange
	vm.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// UserID returns the signed-in user.
func (vm *ViewModel) UserID() int64 { return vm.svc.Session().UserID() }

// Pager exposes the thread pagination state.
func (vm *ViewModel) Pager() *thread.Pager { return vm.pager }

// LoadConversations fetches the conversation list into the cache.
func (vm *ViewModel) LoadConversations(ctx context.Context) error {
	vm.mu.Lock()
	vm.list.Loading = true
	vm.mu.Unlock()
	vm.changed()

	_, err := vm.svc.ListConversations(ctx, vm.UserID())
	err = vm.observe(err)

	vm.mu.Lock()
	vm.list = QueryState{Err: err}
	vm.mu.Unlock()
	if err != nil && !errors.Is(err, context.Canceled) {
		vm.logger.Warn("load conversations failed", zap.Error(err))
	}
	vm.changed()
	return err
}

// ListState returns the conversation list query state.
func (vm *ViewModel) ListState() QueryState {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.list
}

// SetFilter changes the list filter.
func (vm *ViewModel) SetFilter(query string) {
	vm.mu.Lock()
	vm.filter = strings.TrimSpace(query)
	vm.mu.Unlock()
	vm.changed()
}

// Filter returns the active list filter.
func (vm *ViewModel) Filter() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.filter
}

// Conversations returns the cached list with the filter applied, and
// whether anything has been loaded yet.
func (vm *ViewModel) Conversations() ([]chatapi.Conversation, bool) {
	uid := vm.UserID()
	convs, ok := vm.svc.CachedConversations(uid)
	if !ok {
		return nil, false
	}
	return chat.FilterConversations(convs, vm.Filter(), uid), true
}

// UnreadTotal sums unread counts across the cached list.
func (vm *ViewModel) UnreadTotal() int { return vm.svc.UnreadTotal(vm.UserID()) }

// Selected returns the open conversation id, or 0.
func (vm *ViewModel) Selected() int64 {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.selected
}

// SelectedConversation returns the cached summary of the open conversation.
func (vm *ViewModel) SelectedConversation() (chatapi.Conversation, bool) {
	id := vm.Selected()
	if id == 0 {
		return chatapi.Conversation{}, false
	}
	return vm.svc.CachedConversation(vm.UserID(), id)
}

// ThreadState returns the selected thread's query state.
func (vm *ViewModel) ThreadState() QueryState {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.thread
}

// Messages returns the selected thread from the cache.
func (vm *ViewModel) Messages() []chatapi.Message {
	id := vm.Selected()
	if id == 0 {
		return nil
	}
	msgs, _ := vm.svc.CachedMessages(id, vm.UserID())
	return msgs
}

// Select opens a conversation and loads its first page. Selecting again
// cancels the previous selection's loads; their results are dropped.
func (vm *ViewModel) Select(ctx context.Context, conversationID int64) error {
	vm.mu.Lock()
	if vm.selCancel != nil {
		vm.selCancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	vm.selCancel = cancel
	vm.selSeq++
	seq := vm.selSeq
	vm.selected = conversationID
	vm.thread = QueryState{}
	vm.pager.Reset(conversationID)
	vm.mu.Unlock()

	if vm.visible != nil {
		vm.visible.SetVisible(conversationID)
	}
	if conversationID == 0 {
		vm.changed()
		return nil
	}
	return vm.loadInitial(ctx, seq, conversationID)
}

// Close leaves the open conversation.
func (vm *ViewModel) Close() {
	_ = vm.Select(context.Background(), 0)
}

func (vm *ViewModel) loadInitial(ctx context.Context, seq uint64, conversationID int64) error {
	req, err := vm.pager.Begin()
	if err != nil {
		return err
	}
	return vm.fetchPage(ctx, seq, conversationID, req)
}

// LoadMore fetches the next older page when the pager allows it. It
// reports whether a request was made.
func (vm *ViewModel) LoadMore(ctx context.Context) (bool, error) {
	id := vm.Selected()
	if id == 0 {
		return false, ErrNoSelection
	}
	req, err := vm.pager.LoadMore(len(vm.Messages()))
	if err != nil {
		return false, nil
	}
	vm.mu.RLock()
	seq := vm.selSeq
	vm.mu.RUnlock()
	return true, vm.fetchPage(ctx, seq, id, req)
}

func (vm *ViewModel) fetchPage(ctx context.Context, seq uint64, conversationID int64, req thread.Request) error {
	vm.mu.Lock()
	vm.thread.Loading = true
	vm.mu.Unlock()
	vm.changed()

	msgs, err := vm.svc.ListMessages(ctx, conversationID, vm.UserID(), req.Limit, req.Offset)
	err = vm.observe(err)

	vm.mu.Lock()
	if vm.selSeq != seq {
		// Superseded by another selection.
		vm.mu.Unlock()
		return err
	}
	if err != nil {
		_ = vm.pager.Fail()
		vm.thread = QueryState{Err: err}
	} else {
		_ = vm.pager.Complete(len(msgs))
		vm.thread = QueryState{}
	}
	vm.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		vm.logger.Warn("load messages failed",
			zap.Int64("conversation_id", conversationID),
			zap.Int("offset", req.Offset),
			zap.Error(err))
	}
	vm.changed()
	return err
}

// RetryThread repeats the failed thread load for the open conversation.
func (vm *ViewModel) RetryThread(ctx context.Context) error {
	vm.mu.RLock()
	id, seq, failed := vm.selected, vm.selSeq, vm.thread.Err != nil
	vm.mu.RUnlock()
	if id == 0 {
		return ErrNoSelection
	}
	if !failed {
		return nil
	}
	if vm.pager.State() == thread.Idle {
		return vm.loadInitial(ctx, seq, id)
	}
	_, err := vm.LoadMore(ctx)
	return err
}

// Refresh re-reads the list and the loaded window of the open thread.
// The poller calls it after marking both stale.
func (vm *ViewModel) Refresh(ctx context.Context) {
	_ = vm.LoadConversations(ctx)
	vm.mu.RLock()
	id, seq := vm.selected, vm.selSeq
	vm.mu.RUnlock()
	if id == 0 || vm.pager.State() != thread.Loaded {
		return
	}
	_, err := vm.svc.ListMessages(ctx, id, vm.UserID(), vm.pager.Window(), 0)
	err = vm.observe(err)
	vm.mu.Lock()
	if vm.selSeq == seq {
		vm.thread.Err = err
	}
	vm.mu.Unlock()
	vm.changed()
}

// Send posts text to the open conversation. Failures are flashed and returned.
func (vm *ViewModel) Send(ctx context.Context, text string) error {
	id := vm.Selected()
	if id == 0 {
		return ErrNoSelection
	}
	_, err := vm.svc.SendMessage(ctx, id, vm.UserID(), text, "")
	if vm.observe(err) != nil {
		vm.flashErr(fmt.Errorf("send failed: %w", err))
	}
	vm.changed()
	return err
}

// Participants fetches the member list of the open conversation.
func (vm *ViewModel) Participants(ctx context.Context) ([]chatapi.Participant, error) {
	id := vm.Selected()
	if id == 0 {
		return nil, ErrNoSelection
	}
	ps, err := vm.svc.ListParticipants(ctx, id)
	return ps, vm.observe(err)
}

// SearchUsers looks up people for the new-conversation dialog, excluding
// the signed-in user.
func (vm *ViewModel) SearchUsers(ctx context.Context, query string) ([]chatapi.UserSummary, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	users, err := vm.svc.SearchUsers(ctx, query)
	if err != nil {
		return nil, err
	}
	self := vm.UserID()
	out := users[:0:0]
	for _, u := range users {
		if u.UserID != self {
			out = append(out, u)
		}
	}
	return out, nil
}

// NewConversation is the new-conversation dialog's request.
type NewConversation struct {
	Group  bool
	Title  string
	People []chatapi.UserSummary
}

// Validate checks the dialog input before any request is made.
func (n NewConversation) Validate() error {
	if !n.Group {
		if len(n.People) != 1 {
			return &chatapi.ValidationError{Field: "people", Reason: "select exactly one person"}
		}
		return nil
	}
	if len(n.People) == 0 {
		return &chatapi.ValidationError{Field: "people", Reason: "select at least one person"}
	}
	if strings.TrimSpace(n.Title) == "" {
		return &chatapi.ValidationError{Field: "title", Reason: "a group needs a title"}
	}
	return nil
}

// StartConversation validates req, finds or creates the conversation and
// opens it.
func (vm *ViewModel) StartConversation(ctx context.Context, req NewConversation) (*chatapi.Conversation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	self := vm.UserID()
	var (
		conv *chatapi.Conversation
		err  error
	)
	if req.Group {
		ids := make([]int64, 0, len(req.People))
		for _, p := range req.People {
			ids = append(ids, p.UserID)
		}
		title := strings.TrimSpace(req.Title)
		group := true
		conv, err = vm.svc.CreateConversation(ctx, &chatapi.CreateConversationRequest{
			CreatorUserID:      self,
			ParticipantUserIDs: ids,
			Title:              &title,
			IsGroup:            &group,
		})
	} else {
		conv, err = vm.svc.FindOrCreateDirect(ctx, self, req.People[0].UserID)
	}
	if err != nil {
		vm.flashErr(fmt.Errorf("start conversation failed: %w", err))
		return nil, err
	}
	_ = vm.LoadConversations(ctx)
	if vm.notify != nil {
		vm.notify.Info("Conversation ready")
	}
	return conv, vm.Select(ctx, conv.ConversationID)
}

// Logout clears the session; the cache is reset with it.
func (vm *ViewModel) Logout() error {
	vm.Close()
	return vm.svc.Session().Logout()
}

func (vm *ViewModel) flashErr(err error) {
	if vm.notify != nil {
		vm.notify.Err(err)
	}
}
