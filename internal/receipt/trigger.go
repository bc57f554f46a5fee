package receipt

import (
	"context"
	"sync"

	"github.com/matheus3301/lexchat/internal/bus"
	"github.com/matheus3301/lexchat/internal/chatapi"
	"go.uber.org/zap"
)

// Reader is the part of the chat service the trigger needs.
type Reader interface {
	CachedConversation(userID, conversationID int64) (chatapi.Conversation, bool)
	MarkRead(ctx context.Context, conversationID, userID int64) error
}

// Trigger marks the visible conversation read once each time it becomes
// visible with unread messages. It re-arms when the unread count is seen at
// zero or the visible conversation changes.
type Trigger struct {
	svc    Reader
	userID func() int64
	bus    *bus.Bus
	logger *zap.Logger

	mu       sync.Mutex
	ctx      context.Context
	visible  int64
	armed    bool
	inflight context.CancelFunc
	seq      uint64
	cancel   context.CancelFunc

	loop  sync.WaitGroup
	fires sync.WaitGroup
}

// NewTrigger creates a trigger acting on behalf of userID().
func NewTrigger(svc Reader, userID func() int64, b *bus.Bus, logger *zap.Logger) *Trigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trigger{
		svc:    svc,
		userID: userID,
		bus:    b,
		logger: logger,
		ctx:    context.Background(),
	}
}

// Start re-observes the visible conversation on every cache event.
func (t *Trigger) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	t.ctx = ctx
	t.cancel = cancel
	t.mu.Unlock()

	ch, unsub := t.bus.Subscribe("cache.", 64)
	t.loop.Add(1)
	go func() {
		defer t.loop.Done()
		defer unsub()
		for {
			select {
			case <-ch:
				t.refresh()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the subscription and cancels any request in flight.
func (t *Trigger) Stop() {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	if t.inflight != nil {
		t.inflight()
	}
	t.mu.Unlock()
	t.loop.Wait()
	t.fires.Wait()
}

// Visible returns the conversation currently on screen, or 0.
func (t *Trigger) Visible() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visible
}

// SetVisible records which conversation is on screen. A change cancels a
// mark-read still in flight for the previous one.
func (t *Trigger) SetVisible(conversationID int64) {
	t.mu.Lock()
	if conversationID == t.visible {
		t.mu.Unlock()
		return
	}
	if t.inflight != nil {
		t.inflight()
		t.inflight = nil
	}
	t.seq++
	t.visible = conversationID
	t.armed = true
	t.mu.Unlock()
	t.refresh()
}

func (t *Trigger) refresh() {
	id := t.Visible()
	if id == 0 {
		return
	}
	conv, ok := t.svc.CachedConversation(t.userID(), id)
	if !ok {
		return
	}
	t.Observe(&conv)
}

// Observe evaluates a conversation snapshot. Snapshots of conversations
// other than the visible one are ignored.
func (t *Trigger) Observe(conv *chatapi.Conversation) {
	if conv == nil {
		return
	}
	t.mu.Lock()
	if conv.ConversationID != t.visible || t.inflight != nil {
		t.mu.Unlock()
		return
	}
	if conv.Unread() == 0 {
		t.armed = true
		t.mu.Unlock()
		return
	}
	if !t.armed {
		t.mu.Unlock()
		return
	}
	t.armed = false
	ctx, cancel := context.WithCancel(t.ctx)
	t.inflight = cancel
	t.seq++
	seq := t.seq
	t.fires.Add(1)
	t.mu.Unlock()

	go t.fire(ctx, cancel, seq, conv.ConversationID)
}

func (t *Trigger) fire(ctx context.Context, cancel context.CancelFunc, seq uint64, conversationID int64) {
	defer t.fires.Done()
	defer cancel()
	err := t.svc.MarkRead(ctx, conversationID, t.userID())

	t.mu.Lock()
	if t.seq == seq {
		t.inflight = nil
		// A failure stays disarmed until the selection changes so a
		// rolled-back count does not refire in a loop.
		t.armed = err == nil
	}
	t.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		t.logger.Warn("read receipt failed", zap.Int64("conversation_id", conversationID), zap.Error(err))
	}
}

// Wait blocks until every request already fired has returned.
func (t *Trigger) Wait() {
	t.fires.Wait()
}
