package flow

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/lunchdesk/internal/allocator"
	"github.com/roach88/lunchdesk/internal/guard"
	"github.com/roach88/lunchdesk/internal/menu"
	"github.com/roach88/lunchdesk/internal/session"
	"github.com/roach88/lunchdesk/internal/store"
	"github.com/roach88/lunchdesk/internal/testutil"
	"github.com/roach88/lunchdesk/internal/token"
)

type recordingOutbox struct {
	mu   sync.Mutex
	sent map[string][]Command
}

func (o *recordingOutbox) Deliver(ctx context.Context, sessionID string, cmds []Command) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sent == nil {
		o.sent = make(map[string][]Command)
	}
	o.sent[sessionID] = append(o.sent[sessionID], cmds...)
}

type testEnv struct {
	t        *testing.T
	store    *store.Store
	clock    *testutil.FakeClock
	locks    *guard.Registry
	sessions *session.Store
	alloc    *allocator.Allocator
	outbox   *recordingOutbox
	engine   *Engine
}

func newTestEnv(t *testing.T, m menu.DailyMenu, opts ...EngineOption) *testEnv {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.SaveMenu(context.Background(), m, true))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		t:      t,
		store:  st,
		clock:  testutil.NewFakeClock(testutil.Morning),
		locks:  guard.NewRegistry(),
		outbox: &recordingOutbox{},
	}
	env.sessions = session.NewStore(env.clock)
	env.alloc = allocator.New(st,
		allocator.WithClock(env.clock),
		allocator.WithLocks(env.locks),
		allocator.WithIDGenerator(token.NewSequenceGenerator("order")),
		allocator.WithLogger(logger),
	)

	base := []EngineOption{
		WithClock(env.clock),
		WithTokenGenerator(token.NewSequenceGenerator("tok")),
		WithOutbox(env.outbox),
		WithLogger(logger),
	}
	env.engine = New(env.sessions, store.NewMenuCache(st, 0, env.clock.Now), st, env.alloc, append(base, opts...)...)
	return env
}

func (env *testEnv) send(sessionID, userID string, kind EventKind, payload string) []Command {
	env.t.Helper()
	cmds, err := env.engine.Handle(context.Background(), Update{
		SessionID: sessionID,
		UserID:    userID,
		Kind:      kind,
		Payload:   payload,
	})
	require.NoError(env.t, err)
	return cmds
}

func (env *testEnv) command(user, name string) []Command {
	env.t.Helper()
	return env.send("chat-"+user, user, KindCommand, name)
}

func (env *testEnv) text(user, text string) []Command {
	env.t.Helper()
	return env.send("chat-"+user, user, KindText, text)
}

// choose answers the last prompt in cmds with the option labelled label.
func (env *testEnv) choose(user string, cmds []Command, label string) []Command {
	env.t.Helper()
	return env.send("chat-"+user, user, KindChoice, optionToken(env.t, cmds, label))
}

// walk issues a command and then picks labels in order.
func (env *testEnv) walk(user, cmd string, labels ...string) []Command {
	env.t.Helper()
	cmds := env.command(user, cmd)
	for _, l := range labels {
		cmds = env.choose(user, cmds, l)
	}
	return cmds
}

// snapshot returns a copy of the session state.
func (env *testEnv) snapshot(user string) session.Session {
	env.t.Helper()
	s, release, err := env.sessions.Acquire(context.Background(), "chat-"+user, user)
	require.NoError(env.t, err)
	defer release()
	cp := *s
	cp.Draft = s.Draft.Clone()
	return cp
}

func (env *testEnv) activeOrders() int {
	env.t.Helper()
	orders, err := env.store.ListOrders(context.Background(), testutil.MenuDate, false)
	require.NoError(env.t, err)
	return len(orders)
}

func lastPrompt(t *testing.T, cmds []Command) Command {
	t.Helper()
	require.NotEmpty(t, cmds)
	return cmds[len(cmds)-1]
}

func optionToken(t *testing.T, cmds []Command, label string) string {
	t.Helper()
	for _, o := range lastPrompt(t, cmds).Options {
		if o.Label == label {
			return o.Token
		}
	}
	require.Failf(t, "option not offered", "label %q not in %v", label, labels(lastPrompt(t, cmds)))
	return ""
}

func labels(c Command) []string {
	out := make([]string, len(c.Options))
	for i, o := range c.Options {
		out[i] = o.Label
	}
	return out
}
