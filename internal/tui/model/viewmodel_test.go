package model

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/lexchat/internal/bus"
	"github.com/matheus3301/lexchat/internal/cache"
	"github.com/matheus3301/lexchat/internal/chat"
	"github.com/matheus3301/lexchat/internal/chatapi"
	"github.com/matheus3301/lexchat/internal/session"
	"github.com/matheus3301/lexchat/internal/thread"
)

const self int64 = 7

type fakeBackend struct {
	mu            sync.Mutex
	conversations []chatapi.Conversation
	messages      map[int64][]chatapi.Message // by conversation, newest last
	users         []chatapi.UserSummary
	failMessages  error
	sendErr       error
	created       []*chatapi.CreateConversationRequest
	directWith    []int64
	msgCalls      []int
	gate          map[int64]chan struct{} // blocks ListMessages per conversation
}

func (f *fakeBackend) ListConversations(ctx context.Context, userID int64) ([]chatapi.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chatapi.Conversation{}, f.conversations...), nil
}

func (f *fakeBackend) ListMessages(ctx context.Context, conversationID, requestingUserID int64, limit, offset int) ([]chatapi.Message, error) {
	f.mu.Lock()
	gate := f.gate[conversationID]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgCalls = append(f.msgCalls, offset)
	if f.failMessages != nil {
		return nil, f.failMessages
	}
	all := f.messages[conversationID]
	end := len(all) - offset
	if end <= 0 {
		return []chatapi.Message{}, nil
	}
	start := max(end-limit, 0)
	return append([]chatapi.Message{}, all[start:end]...), nil
}

func (f *fakeBackend) ListParticipants(ctx context.Context, conversationID int64) ([]chatapi.Participant, error) {
	return nil, nil
}

func (f *fakeBackend) CreateConversation(ctx context.Context, req *chatapi.CreateConversationRequest) (*chatapi.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	conv := chatapi.Conversation{ConversationID: 300, Title: req.Title, IsGroupChat: true}
	f.conversations = append(f.conversations, conv)
	return &conv, nil
}

func (f *fakeBackend) FindOrCreateDirect(ctx context.Context, requestingUserID, otherUserID int64) (*chatapi.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.directWith = append(f.directWith, otherUserID)
	return &chatapi.Conversation{ConversationID: 200}, nil
}

func (f *fakeBackend) SendMessage(ctx context.Context, conversationID int64, req *chatapi.SendMessageRequest) (*chatapi.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &chatapi.Message{MessageID: chatapi.NumericMessageID(999), ConversationID: conversationID, SenderID: req.SenderUserID, Content: req.Content, SentAt: time.Now()}, nil
}

func (f *fakeBackend) MarkRead(ctx context.Context, conversationID, userID int64) error { return nil }

func (f *fakeBackend) AddParticipant(ctx context.Context, conversationID, performingUserID, userIDToAdd int64) (*chatapi.AddParticipantResponse, error) {
	return &chatapi.AddParticipantResponse{}, nil
}

func (f *fakeBackend) SearchUsers(ctx context.Context, query string) ([]chatapi.UserSummary, error) {
	return f.users, nil
}

type recordingNotifier struct {
	infos []string
	errs  []error
}

func (n *recordingNotifier) Info(msg string) { n.infos = append(n.infos, msg) }
func (n *recordingNotifier) Err(err error)   { n.errs = append(n.errs, err) }

type visibility struct{ id int64 }

func (v *visibility) SetVisible(id int64) { v.id = id }
func (v *visibility) Visible() int64      { return v.id }

func newTestViewModel(t *testing.T, api *fakeBackend, pageSize int) (*ViewModel, *visibility, *recordingNotifier) {
	t.Helper()
	b := bus.New()
	sess := session.NewAt("test", "")
	if err := sess.Login(chatapi.UserSummary{UserID: self, FullName: "Ana"}, "tok"); err != nil {
		t.Fatal(err)
	}
	svc := chat.NewService(api, cache.New(b, nil), b, sess, nil)
	vis := &visibility{}
	n := &recordingNotifier{}
	return NewViewModel(svc, thread.NewPager(pageSize, b), vis, n, nil), vis, n
}

func history(conv int64, n int) []chatapi.Message {
	base := time.UnixMilli(1_700_000_000_000)
	msgs := make([]chatapi.Message, n)
	for i := range msgs {
		msgs[i] = chatapi.Message{
			MessageID:      chatapi.NumericMessageID(int64(i + 1)),
			ConversationID: conv,
			SenderID:       2,
			Content:        "m",
			SentAt:         base.Add(time.Duration(i) * time.Second),
		}
	}
	return msgs
}

func person(id int64, name string) chatapi.Participant {
	return chatapi.Participant{UserID: id, User: chatapi.UserSummary{UserID: id, FullName: name}}
}

func TestConversationsFiltered(t *testing.T) {
	api := &fakeBackend{conversations: []chatapi.Conversation{
		{ConversationID: 1, Participants: []chatapi.Participant{person(self, "Ana"), person(2, "John Doe")}},
		{ConversationID: 2, Participants: []chatapi.Participant{person(self, "Ana"), person(3, "Mary Major")}},
	}}
	vm, _, _ := newTestViewModel(t, api, 10)

	if _, ok := vm.Conversations(); ok {
		t.Fatal("conversations reported loaded before any fetch")
	}
	if err := vm.LoadConversations(context.Background()); err != nil {
		t.Fatal(err)
	}
	vm.SetFilter("  mary ")
	got, ok := vm.Conversations()
	if !ok || len(got) != 1 || got[0].ConversationID != 2 {
		t.Fatalf("filtered = %+v, want conversation 2", got)
	}
	vm.SetFilter("")
	if got, _ := vm.Conversations(); len(got) != 2 {
		t.Errorf("unfiltered len = %d, want 2", len(got))
	}
}

func TestSelectLoadsFirstPageAndMarksVisible(t *testing.T) {
	api := &fakeBackend{messages: map[int64][]chatapi.Message{5: history(5, 3)}}
	vm, vis, _ := newTestViewModel(t, api, 10)

	changes := 0
	vm.SetOnChange(func() { changes++ })
	if err := vm.Select(context.Background(), 5); err != nil {
		t.Fatal(err)
	}
	if vis.id != 5 {
		t.Errorf("visible = %d, want 5", vis.id)
	}
	if got := len(vm.Messages()); got != 3 {
		t.Errorf("messages = %d, want 3", got)
	}
	if vm.Pager().State() != thread.Loaded || !vm.Pager().Exhausted() {
		t.Errorf("pager = %s exhausted=%v, want LOADED exhausted", vm.Pager().State(), vm.Pager().Exhausted())
	}
	if changes == 0 {
		t.Error("onChange never called")
	}

	vm.Close()
	if vis.id != 0 || vm.Selected() != 0 || vm.Messages() != nil {
		t.Errorf("after close visible=%d selected=%d", vis.id, vm.Selected())
	}
}

func TestLoadMoreMergesOlderPage(t *testing.T) {
	api := &fakeBackend{messages: map[int64][]chatapi.Message{5: history(5, 5)}}
	vm, _, _ := newTestViewModel(t, api, 2)
	ctx := context.Background()

	if err := vm.Select(ctx, 5); err != nil {
		t.Fatal(err)
	}
	for want := 4; want <= 5; want++ {
		ok, err := vm.LoadMore(ctx)
		if err != nil || !ok {
			t.Fatalf("LoadMore = %v, %v", ok, err)
		}
		if got := len(vm.Messages()); got != want {
			t.Fatalf("messages = %d, want %d", got, want)
		}
	}
	if ok, _ := vm.LoadMore(ctx); ok {
		t.Error("LoadMore requested a page after history was exhausted")
	}
	msgs := vm.Messages()
	for i := 1; i < len(msgs); i++ {
		if msgs[i].SentAt.Before(msgs[i-1].SentAt) {
			t.Fatalf("messages out of order at %d", i)
		}
	}
	if want := []int{0, 2, 4}; len(api.msgCalls) != len(want) {
		t.Errorf("offsets = %v, want %v", api.msgCalls, want)
	}
}

func TestThreadErrorAndRetry(t *testing.T) {
	api := &fakeBackend{
		messages:     map[int64][]chatapi.Message{5: history(5, 1)},
		failMessages: errors.New("boom"),
	}
	vm, _, _ := newTestViewModel(t, api, 10)
	ctx := context.Background()

	if err := vm.Select(ctx, 5); err == nil {
		t.Fatal("expected load error")
	}
	if vm.ThreadState().Err == nil || vm.Pager().State() != thread.Idle {
		t.Fatalf("state = %+v pager=%s", vm.ThreadState(), vm.Pager().State())
	}

	api.mu.Lock()
	api.failMessages = nil
	api.mu.Unlock()
	if err := vm.RetryThread(ctx); err != nil {
		t.Fatal(err)
	}
	if vm.ThreadState().Err != nil || len(vm.Messages()) != 1 {
		t.Errorf("after retry state=%+v messages=%d", vm.ThreadState(), len(vm.Messages()))
	}
}

func TestSendFailureFlashes(t *testing.T) {
	api := &fakeBackend{messages: map[int64][]chatapi.Message{}, sendErr: errors.New("offline")}
	vm, _, n := newTestViewModel(t, api, 10)
	ctx := context.Background()

	if err := vm.Send(ctx, "hi"); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("send without selection = %v", err)
	}
	if err := vm.Select(ctx, 5); err != nil {
		t.Fatal(err)
	}
	if err := vm.Send(ctx, "hi"); err == nil {
		t.Fatal("expected send error")
	}
	if len(n.errs) != 1 {
		t.Errorf("flashed errors = %d, want 1", len(n.errs))
	}
	if got := len(vm.Messages()); got != 0 {
		t.Errorf("optimistic message not rolled back, have %d", got)
	}
}

func TestNewConversationValidate(t *testing.T) {
	one := []chatapi.UserSummary{{UserID: 2}}
	two := []chatapi.UserSummary{{UserID: 2}, {UserID: 3}}
	tests := []struct {
		name    string
		req     NewConversation
		wantErr bool
	}{
		{"direct with one", NewConversation{People: one}, false},
		{"direct with none", NewConversation{}, true},
		{"direct with two", NewConversation{People: two}, true},
		{"group", NewConversation{Group: true, Title: "Case 12", People: two}, false},
		{"group without title", NewConversation{Group: true, Title: "  ", People: two}, true},
		{"group without people", NewConversation{Group: true, Title: "Case 12"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !chatapi.IsValidation(err) {
				t.Errorf("error %T is not a validation error", err)
			}
		})
	}
}

func TestStartConversation(t *testing.T) {
	api := &fakeBackend{messages: map[int64][]chatapi.Message{}}
	vm, vis, n := newTestViewModel(t, api, 10)
	ctx := context.Background()

	conv, err := vm.StartConversation(ctx, NewConversation{People: []chatapi.UserSummary{{UserID: 2}}})
	if err != nil {
		t.Fatal(err)
	}
	if conv.ConversationID != 200 || vis.id != 200 || len(api.directWith) != 1 || api.directWith[0] != 2 {
		t.Errorf("direct: conv=%d visible=%d with=%v", conv.ConversationID, vis.id, api.directWith)
	}

	_, err = vm.StartConversation(ctx, NewConversation{Group: true, Title: " Estate ", People: []chatapi.UserSummary{{UserID: 2}, {UserID: 3}}})
	if err != nil {
		t.Fatal(err)
	}
	if len(api.created) != 1 {
		t.Fatalf("created = %d, want 1", len(api.created))
	}
	req := api.created[0]
	if req.CreatorUserID != self || *req.Title != "Estate" || !*req.IsGroup || len(req.ParticipantUserIDs) != 2 {
		t.Errorf("create request = %+v", req)
	}
	if vm.Selected() != 300 {
		t.Errorf("selected = %d, want 300", vm.Selected())
	}
	if len(n.infos) != 2 {
		t.Errorf("infos = %v", n.infos)
	}
}

func TestSearchUsersExcludesSelf(t *testing.T) {
	api := &fakeBackend{users: []chatapi.UserSummary{{UserID: self}, {UserID: 2}}}
	vm, _, _ := newTestViewModel(t, api, 10)

	users, err := vm.SearchUsers(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].UserID != 2 {
		t.Errorf("users = %+v", users)
	}
	if users, _ := vm.SearchUsers(context.Background(), " "); users != nil {
		t.Errorf("blank query returned %+v", users)
	}
}

func TestSelectCancelsPreviousLoad(t *testing.T) {
	api := &fakeBackend{
		messages: map[int64][]chatapi.Message{5: history(5, 2), 6: history(6, 1)},
		gate:     map[int64]chan struct{}{5: make(chan struct{})},
	}
	vm, vis, _ := newTestViewModel(t, api, 10)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- vm.Select(ctx, 5) }()

	// Wait until the first load is in flight.
	for vm.Pager().State() != thread.LoadingInitial {
		time.Sleep(time.Millisecond)
	}
	if err := vm.Select(ctx, 6); err != nil {
		t.Fatal(err)
	}
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("first load = %v, want context.Canceled", err)
	}
	if vm.Selected() != 6 || vis.id != 6 {
		t.Fatalf("selected=%d visible=%d, want 6", vm.Selected(), vis.id)
	}
	if vm.ThreadState().Err != nil {
		t.Errorf("stale load leaked an error: %v", vm.ThreadState().Err)
	}
	if got := len(vm.Messages()); got != 1 {
		t.Errorf("messages = %d, want 1", got)
	}
}

func TestUnauthorizedHook(t *testing.T) {
	api := &fakeBackend{
		messages:     map[int64][]chatapi.Message{},
		failMessages: &chatapi.HTTPError{Status: 401, Message: "token expired"},
	}
	vm, _, _ := newTestViewModel(t, api, 10)

	calls := 0
	vm.SetOnUnauthorized(func() { calls++ })
	_ = vm.Select(context.Background(), 5)
	if calls != 1 {
		t.Errorf("unauthorized hook calls = %d, want 1", calls)
	}
}
