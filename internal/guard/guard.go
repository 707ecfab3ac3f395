// Package guard provides process-wide named mutual exclusion.
//
// Every caller that locks the same name is serialized, no matter which
// goroutine or session it runs for. Waiting honours context cancellation,
// so a caller whose request is abandoned never blocks forever and never
// ends up holding a lock it did not ask for.
//
// Ordering between waiters is not FIFO.
package guard

import (
	"context"
	"sync"
)

// Registry hands out named locks. The zero value is not usable; use
// NewRegistry.
//
// Thread-safety: Registry is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// entry is the single-slot semaphore behind one name. refs counts the
// holder and every waiter.
type entry struct {
	ch   chan struct{}
	refs int
}

// NewRegistry creates an empty lock registry.
func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*entry)}
}

// ref returns the entry for name, creating it on first use, and counts the
// caller in.
func (r *Registry) ref(name string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.locks[name]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		r.locks[name] = e
	}
	e.refs++
	return e
}

func (r *Registry) unref(e *entry) {
	r.mu.Lock()
	e.refs--
	r.mu.Unlock()
}

// unlocker releases a held entry once; extra calls are no-ops.
func (r *Registry) unlocker(e *entry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			r.unref(e)
		})
	}
}

// Lock blocks until the named lock is acquired or ctx is done.
//
// On success it returns an unlock function that must be called exactly
// once; extra calls are no-ops. On cancellation it returns ctx.Err() and
// the lock is not held.
func (r *Registry) Lock(ctx context.Context, name string) (unlock func(), err error) {
	// Prefer a cancelled context over a free lock.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e := r.ref(name)
	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		r.unref(e)
		return nil, ctx.Err()
	}
	return r.unlocker(e), nil
}

// TryLock acquires the named lock only if it is free.
func (r *Registry) TryLock(name string) (unlock func(), ok bool) {
	e := r.ref(name)
	select {
	case e.ch <- struct{}{}:
	default:
		r.unref(e)
		return nil, false
	}
	return r.unlocker(e), true
}

// Held reports whether the named lock is currently held.
// Intended for diagnostics and tests; the answer may be stale immediately.
func (r *Registry) Held(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.locks[name]
	return ok && len(e.ch) == 1
}

// Forget drops the entry for name if nobody holds or waits for it, and
// reports whether it did. A later Lock on the name starts from a fresh
// entry.
func (r *Registry) Forget(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.locks[name]
	if !ok || e.refs > 0 {
		return false
	}
	delete(r.locks, name)
	return true
}

// Len returns the number of names with an entry.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
