package cache

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matheus3301/lexchat/internal/bus"
)

func TestTagMatches(t *testing.T) {
	tests := []struct {
		inv, provided Tag
		want          bool
	}{
		{ConversationTag(1), ConversationTag(1), true},
		{ConversationTag(1), ConversationTag(2), false},
		{Tag{Type: TypeConversation}, ConversationTag(2), true},
		{Tag{Type: TypeConversation}, ConversationListTag(), true},
		{ConversationListTag(), ConversationTag(2), false},
		{UserConversationsTag(7), ConversationTag(7), false},
	}
	for _, tt := range tests {
		if got := tt.inv.Matches(tt.provided); got != tt.want {
			t.Errorf("%s.Matches(%s) = %v, want %v", tt.inv, tt.provided, got, tt.want)
		}
	}
}

func TestTagString(t *testing.T) {
	if got := UnreadTotalTag().String(); got != "UnreadCount:TOTAL" {
		t.Errorf("String() = %q", got)
	}
	if got := (Tag{Type: TypeMessages}).String(); got != "Messages" {
		t.Errorf("String() = %q", got)
	}
}

func TestGetSkipsStaleButPeekDoesNot(t *testing.T) {
	c := New(nil, nil)
	c.Put("a", 1, ConversationTag(1))
	c.Put("b", 2, ConversationTag(2))

	keys := c.Invalidate(ConversationTag(1))
	if !reflect.DeepEqual(keys, []string{"a"}) {
		t.Errorf("invalidated keys = %v, want [a]", keys)
	}
	if _, ok := c.Get("a"); ok {
		t.Error("Get returned stale entry")
	}
	if v, ok := c.Peek("a"); !ok || v != 1 {
		t.Errorf("Peek = %v, %v", v, ok)
	}
	if !c.IsStale("a") || c.IsStale("b") {
		t.Error("staleness flags wrong")
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Errorf("Get(b) = %v, %v", v, ok)
	}
}

func TestInvalidateWholeType(t *testing.T) {
	c := New(nil, nil)
	c.Put("list", []int{}, ConversationListTag())
	c.Put("one", 1, ConversationTag(9))
	c.Put("msgs", 2, MessagesTag(9))

	keys := c.Invalidate(Tag{Type: TypeConversation})
	if !reflect.DeepEqual(keys, []string{"list", "one"}) {
		t.Errorf("keys = %v", keys)
	}
}

func TestInvalidatePublishesEvent(t *testing.T) {
	b := bus.New()
	events, unsub := b.Subscribe("cache.invalidated", 4)
	defer unsub()

	c := New(b, nil)
	c.Put("a", 1, UnreadTotalTag())
	c.Invalidate(UnreadTotalTag())

	select {
	case evt := <-events:
		payload, ok := evt.Payload.(InvalidatedEvent)
		if !ok || len(payload.Keys) != 1 || payload.Keys[0] != "a" {
			t.Errorf("payload = %#v", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no invalidation event")
	}
}

func TestResetAndKeys(t *testing.T) {
	c := New(nil, nil)
	c.Put("b", 1)
	c.Put("a", 1)
	if got := c.Keys(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Keys() = %v", got)
	}
	c.Remove("a")
	if got := c.Keys(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("Keys() after Remove = %v", got)
	}
	c.Reset()
	if got := c.Keys(); len(got) != 0 {
		t.Errorf("Keys() after Reset = %v", got)
	}
}

func TestQueryCachesUntilInvalidated(t *testing.T) {
	c := New(nil, nil)
	var calls int
	fetch := func(ctx context.Context) ([]string, error) {
		calls++
		return []string{"x"}, nil
	}
	ctx := context.Background()
	for range 3 {
		if _, err := Query(ctx, c, "k", fetch, ConversationListTag()); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	c.Invalidate(ConversationListTag())
	if _, err := Query(ctx, c, "k", fetch, ConversationListTag()); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("calls after invalidate = %d, want 2", calls)
	}
}

func TestQueryErrorDoesNotCache(t *testing.T) {
	c := New(nil, nil)
	boom := errors.New("boom")
	_, err := Query(context.Background(), c, "k", func(ctx context.Context) (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if _, ok := c.Peek("k"); ok {
		t.Error("failed query left an entry")
	}
}

func TestQueryDedupesConcurrentCalls(t *testing.T) {
	c := New(nil, nil)
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Query(context.Background(), c, "k", fetch)
			if err != nil {
				t.Error(err)
			}
			results[i] = v
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("fetch calls = %d, want 1", calls.Load())
	}
	for i, v := range results {
		if v != 42 {
			t.Errorf("results[%d] = %d", i, v)
		}
	}
}

func TestQueryHonoursCallerCancellation(t *testing.T) {
	c := New(nil, nil)
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Query(ctx, c, "k", func(context.Context) (int, error) {
		<-release
		return 1, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestQuerySharedFetchSurvivesOneCallerLeaving(t *testing.T) {
	c := New(nil, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) (string, error) {
		select {
		case <-started:
		default:
			close(started)
		}
		select {
		case <-release:
			return "page", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := Query(first, c, "k", fetch)
		firstErr <- err
	}()
	<-started

	type result struct {
		v   string
		err error
	}
	live := make(chan result, 1)
	go func() {
		v, err := Query(context.Background(), c, "k", fetch)
		live <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller err = %v, want context.Canceled", err)
	}
	close(release)

	got := <-live
	if got.err != nil || got.v != "page" {
		t.Fatalf("live caller = (%q, %v), want (page, nil)", got.v, got.err)
	}
	if v, ok := GetAs[string](c, "k"); !ok || v != "page" {
		t.Errorf("cached = (%q, %v), want page", v, ok)
	}
}

func TestQueryCancelsFetchWhenEveryCallerLeaves(t *testing.T) {
	c := New(nil, nil)
	started := make(chan struct{})
	fetchErr := make(chan error, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Query(ctx, c, "k", func(ctx context.Context) (int, error) {
			close(started)
			<-ctx.Done()
			fetchErr <- ctx.Err()
			return 0, ctx.Err()
		})
	}()
	<-started
	cancel()
	<-done

	select {
	case err := <-fetchErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("fetch ctx err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("abandoned fetch was not cancelled")
	}

	v, err := Query(context.Background(), c, "k", func(context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Errorf("query after abandoned fetch = (%d, %v), want (7, nil)", v, err)
	}
}

func TestQueryAfterResetDoesNotWriteBack(t *testing.T) {
	c := New(nil, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Query(context.Background(), c, "k", func(context.Context) (string, error) {
			close(started)
			<-release
			return "old user", nil
		})
	}()
	<-started
	c.Reset()
	close(release)
	<-done

	if _, ok := c.Peek("k"); ok {
		t.Error("fetch begun before Reset repopulated the cache")
	}
}

func TestQueryMerge(t *testing.T) {
	c := New(nil, nil)
	appendMerge := func(existing, fetched []int) []int {
		out := append([]int{}, fetched...)
		return append(out, existing...)
	}
	ctx := context.Background()

	page := func(vals ...int) Fetcher[[]int] {
		return func(context.Context) ([]int, error) { return vals, nil }
	}
	if _, err := QueryMerge(ctx, c, "m", "0", page(3, 4), appendMerge); err != nil {
		t.Fatal(err)
	}
	got, err := QueryMerge(ctx, c, "m", "2", page(1, 2), appendMerge)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []int{1, 2, 3, 4}) {
		t.Errorf("merged = %v", got)
	}
	cached, _ := GetAs[[]int](c, "m")
	if !reflect.DeepEqual(cached, got) {
		t.Errorf("cached = %v, returned = %v", cached, got)
	}
}

func TestPatchAndUndo(t *testing.T) {
	b := bus.New()
	events, unsub := b.Subscribe("cache.patched", 4)
	defer unsub()

	c := New(b, nil)
	c.Put("list", []int{1, 2})

	res := Patch(c, "list", func(cur []int) ([]int, Undo[[]int]) {
		next := append(append([]int{}, cur...), 3)
		return next, func(now []int) []int { return now[:len(now)-1] }
	})
	if !res.Applied() {
		t.Fatal("patch not applied")
	}
	if got, _ := PeekAs[[]int](c, "list"); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("after patch = %v", got)
	}
	<-events

	res.Undo()
	res.Undo()
	if got, _ := PeekAs[[]int](c, "list"); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("after undo = %v", got)
	}
}

func TestPatchCommitKeepsValue(t *testing.T) {
	c := New(nil, nil)
	c.Put("n", 1)
	res := Patch(c, "n", func(cur int) (int, Undo[int]) {
		return cur + 1, func(now int) int { return now - 1 }
	})
	res.Commit()
	res.Undo()
	if got, _ := PeekAs[int](c, "n"); got != 2 {
		t.Errorf("value = %d, want 2", got)
	}
}

func TestPatchMissingKeyIsNoop(t *testing.T) {
	c := New(nil, nil)
	called := false
	res := Patch(c, "nope", func(cur int) (int, Undo[int]) {
		called = true
		return cur, nil
	})
	if res.Applied() || called {
		t.Error("patch on missing key should not apply")
	}
	res.Undo()
	if _, ok := c.Peek("nope"); ok {
		t.Error("undo created an entry")
	}
}

func TestPatchKeepsStaleness(t *testing.T) {
	c := New(nil, nil)
	c.Put("n", 1, ConversationListTag())
	c.Invalidate(ConversationListTag())
	Patch(c, "n", func(cur int) (int, Undo[int]) {
		return 5, func(int) int { return cur }
	})
	if !c.IsStale("n") {
		t.Error("patch refreshed a stale entry")
	}
}
