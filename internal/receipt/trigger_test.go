package receipt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/lexchat/internal/bus"
	"github.com/matheus3301/lexchat/internal/chatapi"
)

type fakeReader struct {
	mu    sync.Mutex
	convs map[int64]chatapi.Conversation
	calls []int64
	err   error
	block chan struct{}
}

func newFakeReader() *fakeReader {
	return &fakeReader{convs: make(map[int64]chatapi.Conversation)}
}

func (f *fakeReader) set(id int64, unread int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.convs[id] = chatapi.Conversation{ConversationID: id, UnreadCount: &unread}
}

func (f *fakeReader) CachedConversation(userID, conversationID int64) (chatapi.Conversation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[conversationID]
	return c, ok
}

func (f *fakeReader) MarkRead(ctx context.Context, conversationID, userID int64) error {
	f.mu.Lock()
	f.calls = append(f.calls, conversationID)
	block, err := f.block, f.err
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err == nil {
		f.set(conversationID, 0)
	}
	return err
}

func (f *fakeReader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestTrigger(r Reader) *Trigger {
	return NewTrigger(r, func() int64 { return 7 }, bus.New(), nil)
}

func TestFiresOncePerTransition(t *testing.T) {
	r := newFakeReader()
	r.block = make(chan struct{})
	r.set(42, 3)
	tr := newTestTrigger(r)

	tr.SetVisible(42)
	for range 3 {
		tr.Observe(&chatapi.Conversation{ConversationID: 42, UnreadCount: intPtr(3)})
	}
	close(r.block)
	tr.Wait()
	if r.callCount() != 1 {
		t.Fatalf("calls = %d, want 1", r.callCount())
	}

	// The successful read left a zero count; a fresh unread is a new transition.
	tr.refresh()
	tr.Observe(&chatapi.Conversation{ConversationID: 42, UnreadCount: intPtr(1)})
	tr.Wait()
	if r.callCount() != 2 {
		t.Errorf("calls = %d, want 2", r.callCount())
	}
}

func TestRearmsAfterZero(t *testing.T) {
	r := newFakeReader()
	r.err = errors.New("offline")
	r.set(42, 2)
	tr := newTestTrigger(r)

	tr.SetVisible(42)
	tr.Wait()
	// Rolled back to 2 after the failure: stays quiet.
	tr.Observe(&chatapi.Conversation{ConversationID: 42, UnreadCount: intPtr(2)})
	tr.Wait()
	if r.callCount() != 1 {
		t.Fatalf("calls after failure = %d, want 1", r.callCount())
	}

	r.err = nil
	tr.Observe(&chatapi.Conversation{ConversationID: 42, UnreadCount: intPtr(0)})
	tr.Observe(&chatapi.Conversation{ConversationID: 42, UnreadCount: intPtr(1)})
	tr.Wait()
	if r.callCount() != 2 {
		t.Errorf("calls = %d, want 2 after new unread", r.callCount())
	}
}

func TestIgnoresOtherConversations(t *testing.T) {
	r := newFakeReader()
	tr := newTestTrigger(r)
	tr.SetVisible(1)
	tr.Observe(&chatapi.Conversation{ConversationID: 2, UnreadCount: intPtr(5)})
	tr.Observe(nil)
	tr.Wait()
	if r.callCount() != 0 {
		t.Errorf("calls = %d, want 0", r.callCount())
	}
}

func TestNoFireWithoutUnread(t *testing.T) {
	r := newFakeReader()
	r.set(42, 0)
	tr := newTestTrigger(r)
	tr.SetVisible(42)
	tr.Wait()
	if r.callCount() != 0 {
		t.Errorf("calls = %d, want 0", r.callCount())
	}
}

func TestEachSwitchFires(t *testing.T) {
	r := newFakeReader()
	r.set(1, 1)
	r.set(2, 1)
	tr := newTestTrigger(r)
	tr.SetVisible(1)
	tr.Wait()
	tr.SetVisible(2)
	tr.Wait()
	r.set(1, 1)
	tr.SetVisible(1)
	tr.Wait()
	if r.callCount() != 3 {
		t.Errorf("calls = %d, want 3", r.callCount())
	}
}

func TestSwitchCancelsInflight(t *testing.T) {
	r := newFakeReader()
	r.block = make(chan struct{})
	r.set(1, 1)
	tr := newTestTrigger(r)

	tr.SetVisible(1)
	time.Sleep(20 * time.Millisecond)
	tr.SetVisible(0)

	done := make(chan struct{})
	go func() {
		tr.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("in-flight mark read was not cancelled")
	}
}

func TestStartReactsToCacheEvents(t *testing.T) {
	r := newFakeReader()
	b := bus.New()
	tr := NewTrigger(r, func() int64 { return 7 }, b, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Start(ctx)
	defer tr.Stop()

	r.set(42, 0)
	tr.SetVisible(42)

	r.set(42, 4)
	b.Emit(bus.KindCacheStored, nil)

	deadline := time.Now().Add(time.Second)
	for r.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if r.callCount() != 1 {
		t.Errorf("calls = %d, want 1", r.callCount())
	}
}

func intPtr(n int) *int { return &n }
