package cache

import "sync"

// Undo reverses one patch when applied to the current value.
type Undo[T any] func(current T) T

// PatchResult tracks one optimistic update. Exactly one of Undo or Commit
// takes effect; later calls are no-ops.
type PatchResult struct {
	c       *Cache
	key     string
	applied bool

	once sync.Once
	undo func(any) (any, bool)
}

// Applied reports whether the patch changed a cached value.
func (p *PatchResult) Applied() bool { return p.applied }

// Undo applies the inverse of the patch to whatever the entry holds now.
// It does nothing when the patch was not applied, was already undone or
// committed, or the entry has since been removed.
func (p *PatchResult) Undo() {
	if !p.applied {
		return
	}
	p.once.Do(func() {
		p.c.update(p.key, p.undo)
	})
}

// Commit drops the inverse so the patched value stays.
func (p *PatchResult) Commit() {
	p.once.Do(func() {})
}

// Patch rewrites the value cached under key in place. apply must return a
// new value without mutating its argument, together with the inverse.
// Patching a missing key is a no-op.
func Patch[T any](c *Cache, key string, apply func(T) (T, Undo[T])) *PatchResult {
	res := &PatchResult{c: c, key: key}
	var inverse Undo[T]
	res.applied = c.update(key, func(old any) (any, bool) {
		current, ok := old.(T)
		if !ok {
			return nil, false
		}
		next, undo := apply(current)
		inverse = undo
		return next, true
	})
	if res.applied && inverse != nil {
		res.undo = func(old any) (any, bool) {
			current, ok := old.(T)
			if !ok {
				return nil, false
			}
			return inverse(current), true
		}
	} else if res.applied {
		res.undo = func(any) (any, bool) { return nil, false }
	}
	return res
}
