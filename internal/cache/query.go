package cache

import (
	"context"
	"fmt"
)

// Fetcher loads a query result from the backend.
type Fetcher[T any] func(ctx context.Context) (T, error)

// GetAs returns the fresh value under key when it has type T.
func GetAs[T any](c *Cache, key string) (T, bool) {
	v, ok := c.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// PeekAs returns the value under key, fresh or stale, when it has type T.
func PeekAs[T any](c *Cache, key string) (T, bool) {
	v, ok := c.Peek(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Query returns the fresh value cached under key, fetching and storing it
// with tags otherwise. Concurrent queries for the same key share one fetch.
func Query[T any](ctx context.Context, c *Cache, key string, fetch Fetcher[T], tags ...Tag) (T, error) {
	return QueryProvides(ctx, c, key, fetch, func(T) []Tag { return tags })
}

// QueryProvides is Query with tags derived from the fetched value.
func QueryProvides[T any](ctx context.Context, c *Cache, key string, fetch Fetcher[T], provides func(T) []Tag) (T, error) {
	if v, ok := GetAs[T](c, key); ok {
		return v, nil
	}
	epoch := c.currentEpoch()
	v, err := c.flight(ctx, key, func(ctx context.Context) (any, error) {
		fetched, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.putAt(epoch, key, fetched, provides(fetched))
		return fetched, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// QueryMerge always fetches and stores merge(existing, fetched) under key.
// args distinguishes calls that write into the same key with different
// arguments; identical (key, args) calls in flight share one fetch.
func QueryMerge[T any](ctx context.Context, c *Cache, key, args string, fetch Fetcher[T], merge func(existing T, fetched T) T, tags ...Tag) (T, error) {
	epoch := c.currentEpoch()
	v, err := c.flight(ctx, key+"?"+args, func(ctx context.Context) (any, error) {
		fetched, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		merged, ok := c.mergeAt(epoch, key, tags, func(old any, ok bool) any {
			var existing T
			if ok {
				if typed, match := old.(T); match {
					existing = typed
				}
			}
			return merge(existing, fetched)
		})
		if !ok {
			// Reset while fetching: hand the caller the page without caching it.
			return merge(*new(T), fetched), nil
		}
		return merged, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// flightCall is the shared context of one in-flight fetch and the number of
// callers still waiting on it.
type flightCall struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// flight runs fn once per key among concurrent callers. Each caller stops
// waiting as soon as its own ctx is done. The fetch itself runs detached from
// any single caller and is cancelled only once every waiter has left.
func (c *Cache) flight(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	fc := c.join(ctx, key)
	defer c.leave(key, fc)

	ch := c.group.DoChan(key, func() (v any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("query %s panicked: %v", key, r)
			}
		}()
		return fn(fc.ctx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) join(ctx context.Context, key string) *flightCall {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()
	fc, ok := c.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		fc = &flightCall{ctx: fctx, cancel: cancel}
		c.flights[key] = fc
	}
	fc.waiters++
	return fc
}

// leave drops one waiter. The last one out cancels the fetch and forgets it,
// so a later caller starts afresh instead of joining a cancelled fetch.
func (c *Cache) leave(key string, fc *flightCall) {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()
	fc.waiters--
	if fc.waiters > 0 {
		return
	}
	if c.flights[key] == fc {
		delete(c.flights, key)
	}
	c.group.Forget(key)
	fc.cancel()
}
