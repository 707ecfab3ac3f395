package transport

import (
	"context"
	"sync"

	"github.com/roach88/lunchdesk/internal/flow"
)

// Mailbox holds undelivered commands per session. It implements
// flow.Outbox.
//
// Thread-safety: Mailbox is safe for concurrent use.
type Mailbox struct {
	mu      sync.Mutex
	pending map[string][]flow.Command
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{pending: make(map[string][]flow.Command)}
}

// Deliver appends commands for a session.
func (m *Mailbox) Deliver(ctx context.Context, sessionID string, cmds []flow.Command) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[sessionID] = append(m.pending[sessionID], cmds...)
}

// Drain removes and returns the commands waiting for a session, oldest
// first. It never returns nil.
func (m *Mailbox) Drain(sessionID string) []flow.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmds := m.pending[sessionID]
	delete(m.pending, sessionID)
	if cmds == nil {
		cmds = []flow.Command{}
	}
	return cmds
}

// Discard drops whatever is still waiting for a session. It has the
// signature of session.ForgetFunc so undrained notices expire with their
// session.
func (m *Mailbox) Discard(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, sessionID)
}

// Len returns the number of sessions with commands waiting.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
