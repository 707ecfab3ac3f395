package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/roach88/lunchdesk/internal/clock"
	"github.com/roach88/lunchdesk/internal/guard"
)

// ErrWrongUser is returned when a session is addressed by a user other
// than the one who created it.
var ErrWrongUser = errors.New("session belongs to another user")

// ErrNoSession is returned by AcquireExisting for an unknown session.
var ErrNoSession = errors.New("no such session")

// Store holds sessions in memory.
//
// Thread-safety: Store is safe for concurrent use. A *Session returned by
// Acquire may only be touched until its release function is called.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	locks    *guard.Registry
	clock    clock.Clock
}

// NewStore creates an empty store. A nil clock means the wall clock.
func NewStore(c clock.Clock) *Store {
	if c == nil {
		c = clock.Real()
	}
	return &Store{
		sessions: make(map[string]*Session),
		locks:    guard.NewRegistry(),
		clock:    c,
	}
}

func lockName(id string) string { return "session:" + id }

// Acquire returns the session with exclusive access, creating an idle one
// on first use. It blocks while another caller holds the session.
//
// The release function must be called exactly once.
func (st *Store) Acquire(ctx context.Context, id, userID string) (*Session, func(), error) {
	unlock, err := st.locks.Lock(ctx, lockName(id))
	if err != nil {
		return nil, nil, fmt.Errorf("acquire session %s: %w", id, err)
	}

	st.mu.Lock()
	s, ok := st.sessions[id]
	if !ok {
		s = &Session{
			ID:        id,
			UserID:    userID,
			State:     StateIdle,
			UpdatedAt: st.clock.Now(),
		}
		st.sessions[id] = s
	}
	st.mu.Unlock()

	if s.UserID != userID {
		unlock()
		return nil, nil, fmt.Errorf("acquire session %s: %w", id, ErrWrongUser)
	}
	return s, unlock, nil
}

// AcquireExisting is Acquire for a session that must already exist, on
// behalf of whichever user owns it.
func (st *Store) AcquireExisting(ctx context.Context, id string) (*Session, func(), error) {
	st.mu.Lock()
	_, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		return nil, nil, fmt.Errorf("acquire session %s: %w", id, ErrNoSession)
	}

	unlock, err := st.locks.Lock(ctx, lockName(id))
	if err != nil {
		return nil, nil, fmt.Errorf("acquire session %s: %w", id, err)
	}

	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		// Forgotten while we waited.
		unlock()
		return nil, nil, fmt.Errorf("acquire session %s: %w", id, ErrNoSession)
	}
	return s, unlock, nil
}

// Len returns the number of known sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Expired returns the IDs of sessions with a flow in progress that have
// been idle for at least d, sorted. Sessions currently held by another
// caller are busy by definition and skipped.
func (st *Store) Expired(d time.Duration) []string {
	now := st.clock.Now()

	st.mu.Lock()
	candidates := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		candidates = append(candidates, s)
	}
	st.mu.Unlock()

	var ids []string
	for _, s := range candidates {
		unlock, ok := st.locks.TryLock(lockName(s.ID))
		if !ok {
			continue
		}
		if s.Active() && s.Idle(now, d) {
			ids = append(ids, s.ID)
		}
		unlock()
	}
	sort.Strings(ids)
	return ids
}

// Forget removes sessions with no flow in progress that have been idle for
// at least d, together with their lock entries, and returns their IDs
// sorted. Sessions currently held by another caller are skipped.
func (st *Store) Forget(d time.Duration) []string {
	now := st.clock.Now()

	st.mu.Lock()
	candidates := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		candidates = append(candidates, id)
	}
	st.mu.Unlock()

	var ids []string
	for _, id := range candidates {
		unlock, ok := st.locks.TryLock(lockName(id))
		if !ok {
			continue
		}
		st.mu.Lock()
		s, ok := st.sessions[id]
		removed := ok && !s.Active() && s.Idle(now, d)
		if removed {
			delete(st.sessions, id)
		}
		st.mu.Unlock()
		unlock()

		if removed {
			st.locks.Forget(lockName(id))
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
