package thread

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/lexchat/internal/bus"
)

// State is a thread's pagination state.
type State string

const (
	Idle           State = "IDLE"
	LoadingInitial State = "LOADING_INITIAL"
	Loaded         State = "LOADED"
	LoadingMore    State = "LOADING_MORE"
)

// validTransitions defines allowed state transitions. Reset to Idle is
// always allowed and not listed.
var validTransitions = map[State][]State{
	Idle:           {LoadingInitial},
	LoadingInitial: {Loaded, Idle},
	Loaded:         {LoadingMore},
	LoadingMore:    {Loaded},
}

// ErrNoMore is returned by LoadMore once the history is exhausted or the
// cached thread has not caught up with the requested window.
var ErrNoMore = errors.New("no more history")

// Request is one page to fetch.
type Request struct {
	Limit  int
	Offset int
}

// StateChange is the payload for bus.KindThreadState events.
type StateChange struct {
	ConversationID int64
	From           State
	To             State
}

// Pager tracks and enforces pagination of one conversation's history.
type Pager struct {
	mu             sync.RWMutex
	conversationID int64
	state          State
	limit          int
	offset         int
	exhausted      bool
	bus            *bus.Bus
}

// NewPager creates a pager in Idle state fetching limit messages per page.
func NewPager(limit int, b *bus.Bus) *Pager {
	if limit <= 0 {
		limit = 50
	}
	return &Pager{state: Idle, limit: limit, bus: b}
}

// State returns the current state.
func (p *Pager) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// ConversationID returns the conversation the pager is tracking.
func (p *Pager) ConversationID() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conversationID
}

// Limit returns the page size.
func (p *Pager) Limit() int { return p.limit }

// Offset returns the offset of the last requested page.
func (p *Pager) Offset() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.offset
}

// Exhausted reports whether the last page came back short.
func (p *Pager) Exhausted() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.exhausted
}

// Window is the limit that re-reads every loaded page from offset 0.
func (p *Pager) Window() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.offset + p.limit
}

// Reset returns to Idle for conversationID.
func (p *Pager) Reset(conversationID int64) {
	p.mu.Lock()
	from := p.state
	p.conversationID = conversationID
	p.state = Idle
	p.offset = 0
	p.exhausted = false
	p.mu.Unlock()
	p.publish(from, Idle)
}

// Begin starts the initial load.
func (p *Pager) Begin() (Request, error) {
	p.mu.Lock()
	if err := p.transitionLocked(LoadingInitial); err != nil {
		p.mu.Unlock()
		return Request{}, err
	}
	p.offset = 0
	p.exhausted = false
	req := Request{Limit: p.limit, Offset: 0}
	p.mu.Unlock()
	p.publish(Idle, LoadingInitial)
	return req, nil
}

// CanLoadMore reports whether scrolling to the top should request another
// page, given how many messages are cached.
func (p *Pager) CanLoadMore(cached int) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state == Loaded && !p.exhausted && cached >= p.offset+p.limit
}

// LoadMore advances to the next older page.
func (p *Pager) LoadMore(cached int) (Request, error) {
	p.mu.Lock()
	if p.state == Loaded && (p.exhausted || cached < p.offset+p.limit) {
		p.mu.Unlock()
		return Request{}, ErrNoMore
	}
	if err := p.transitionLocked(LoadingMore); err != nil {
		p.mu.Unlock()
		return Request{}, err
	}
	p.offset += p.limit
	req := Request{Limit: p.limit, Offset: p.offset}
	p.mu.Unlock()
	p.publish(Loaded, LoadingMore)
	return req, nil
}

// Complete settles a load that returned pageLen messages.
func (p *Pager) Complete(pageLen int) error {
	p.mu.Lock()
	from := p.state
	if err := p.transitionLocked(Loaded); err != nil {
		p.mu.Unlock()
		return err
	}
	p.exhausted = pageLen < p.limit
	p.mu.Unlock()
	p.publish(from, Loaded)
	return nil
}

// Fail settles a load that errored, returning to the last settled state.
func (p *Pager) Fail() error {
	p.mu.Lock()
	from := p.state
	var to State
	switch from {
	case LoadingInitial:
		to = Idle
	case LoadingMore:
		to = Loaded
		p.offset -= p.limit
	default:
		p.mu.Unlock()
		return fmt.Errorf("no load in progress in state %s", from)
	}
	if err := p.transitionLocked(to); err != nil {
		p.mu.Unlock()
		return err
	}
	p.mu.Unlock()
	p.publish(from, to)
	return nil
}

func (p *Pager) transitionLocked(to State) error {
	if !slices.Contains(validTransitions[p.state], to) {
		return fmt.Errorf("invalid transition from %s to %s", p.state, to)
	}
	p.state = to
	return nil
}

func (p *Pager) publish(from, to State) {
	if p.bus == nil || from == to {
		return
	}
	p.bus.Emit(bus.KindThreadState, StateChange{ConversationID: p.ConversationID(), From: from, To: to})
}
