package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/lunchdesk/internal/clock"
	"github.com/roach88/lunchdesk/internal/menu"
	"github.com/roach88/lunchdesk/internal/order"
	"github.com/roach88/lunchdesk/internal/session"
	"github.com/roach88/lunchdesk/internal/token"
)

// Errors returned by Handle for updates the transport should reject.
var (
	ErrMissingIdentity = errors.New("update has no session or user")
	ErrUnknownKind     = errors.New("unknown update kind")
)

// DefaultIdleTimeout is how long a flow may wait for an answer before
// Expire aborts it.
const DefaultIdleTimeout = 10 * time.Minute

// MenuSource provides the menu snapshot taken at flow entry.
// *store.MenuCache implements it.
type MenuSource interface {
	ActiveMenu(ctx context.Context) (menu.DailyMenu, error)
}

// Orders is the read side of order storage. *store.Store implements it.
type Orders interface {
	TableUsageCounts(ctx context.Context, menuID string) (map[string]int, error)
	FindActiveOrderForUser(ctx context.Context, userID, menuID string) (*order.Order, error)
}

// Committer places and withdraws orders. *allocator.Allocator implements it.
type Committer interface {
	Commit(ctx context.Context, draft order.Draft) (order.Order, error)
	Withdraw(ctx context.Context, userID string) (order.Order, error)
}

// Outbox receives commands produced outside of Handle, such as the notice
// sent when an idle flow is expired.
type Outbox interface {
	Deliver(ctx context.Context, sessionID string, cmds []Command)
}

// logOutbox is the default Outbox. It only logs.
type logOutbox struct {
	logger *slog.Logger
}

func (o logOutbox) Deliver(ctx context.Context, sessionID string, cmds []Command) {
	for _, c := range cmds {
		o.logger.Info("undelivered command", "session_id", sessionID, "kind", string(c.Kind), "text", c.Text)
	}
}

// stepFunc handles one event in one state and returns the replies.
type stepFunc func(e *Engine, ctx context.Context, s *session.Session, payload string) []Command

type transitionKey struct {
	state session.State
	kind  EventKind
}

// Engine drives ordering conversations.
//
// Thread-safety model:
//   - Handle() and Expire(): safe from any goroutine
//   - Updates for the same session are serialized by the session store
//   - Updates for different sessions run concurrently; the only shared
//     resource they contend for is the allocator's commit lock
type Engine struct {
	sessions    *session.Store
	menus       MenuSource
	orders      Orders
	committer   Committer
	tokens      token.Generator
	refs        *session.Sequence
	clock       clock.Clock
	outbox      Outbox
	idleTimeout time.Duration
	logger      *slog.Logger
	transitions map[transitionKey]stepFunc
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTokenGenerator sets the generator for choice tokens.
func WithTokenGenerator(g token.Generator) EngineOption {
	return func(e *Engine) { e.tokens = g }
}

// WithClock sets the clock.
func WithClock(c clock.Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// WithOutbox sets where asynchronous commands go.
func WithOutbox(o Outbox) EngineOption {
	return func(e *Engine) { e.outbox = o }
}

// WithIdleTimeout sets how long a flow may stay unanswered.
func WithIdleTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.idleTimeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithRefSequence sets the sequence used to stamp prompt references.
func WithRefSequence(seq *session.Sequence) EngineOption {
	return func(e *Engine) { e.refs = seq }
}

// New creates an Engine.
func New(sessions *session.Store, menus MenuSource, orders Orders, committer Committer, opts ...EngineOption) *Engine {
	e := &Engine{
		sessions:    sessions,
		menus:       menus,
		orders:      orders,
		committer:   committer,
		tokens:      token.UUIDv7Generator{},
		refs:        session.NewSequence(),
		clock:       clock.Real(),
		idleTimeout: DefaultIdleTimeout,
		logger:      slog.Default(),
		transitions: newTransitions(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.outbox == nil {
		e.outbox = logOutbox{logger: e.logger}
	}
	return e
}

var flowStates = []session.State{
	session.StateItemSelection,
	session.StateCondimentSelection,
	session.StateSideDishSelection,
	session.StateTableSelection,
	session.StateConfirmation,
}

func newTransitions() map[transitionKey]stepFunc {
	t := map[transitionKey]stepFunc{
		{session.StateIdle, KindCommand}: (*Engine).runCommand,
		{session.StateIdle, KindText}:    (*Engine).idleText,
		{session.StateIdle, KindChoice}:  (*Engine).staleChoice,

		{session.StateItemSelection, KindChoice}:      (*Engine).acceptItem,
		{session.StateCondimentSelection, KindChoice}: (*Engine).acceptCondiment,
		{session.StateSideDishSelection, KindChoice}:  (*Engine).acceptSideDish,
		{session.StateTableSelection, KindChoice}:     (*Engine).acceptTable,
		{session.StateConfirmation, KindChoice}:       (*Engine).acceptConfirmation,
	}
	for _, st := range flowStates {
		t[transitionKey{st, KindCommand}] = (*Engine).interrupt
		t[transitionKey{st, KindText}] = (*Engine).rejectText
	}
	return t
}

// Handle processes one update and returns the replies for its session.
//
// Errors are reserved for updates that cannot be attributed to a session
// (missing identity, unknown kind, session owned by another user, context
// cancelled while waiting for the session). Everything else, including
// failed commits, is answered with Commands.
func (e *Engine) Handle(ctx context.Context, u Update) ([]Command, error) {
	if u.SessionID == "" || u.UserID == "" {
		return nil, ErrMissingIdentity
	}

	kind, payload := classify(u)

	s, release, err := e.acquire(ctx, u, kind)
	if err != nil {
		return nil, err
	}
	defer release()

	step, ok := e.transitions[transitionKey{s.State, kind}]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, u.Kind)
	}

	from := s.State
	cmds := step(e, ctx, s, payload)
	s.UpdatedAt = e.clock.Now()

	e.logger.Debug("update handled",
		"session_id", s.ID,
		"kind", string(kind),
		"from", string(from),
		"to", string(s.State),
	)
	return cmds, nil
}

// acquire locks the session an update belongs to. Only a top-level
// command creates a session; anything else from an unknown session is
// answered as if idle, without storing one.
func (e *Engine) acquire(ctx context.Context, u Update, kind EventKind) (*session.Session, func(), error) {
	if kind == KindCommand {
		return e.sessions.Acquire(ctx, u.SessionID, u.UserID)
	}

	s, release, err := e.sessions.AcquireExisting(ctx, u.SessionID)
	if errors.Is(err, session.ErrNoSession) {
		transient := &session.Session{ID: u.SessionID, UserID: u.UserID, State: session.StateIdle}
		return transient, func() {}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if s.UserID != u.UserID {
		release()
		return nil, nil, fmt.Errorf("acquire session %s: %w", u.SessionID, session.ErrWrongUser)
	}
	return s, release, nil
}

// Expire aborts the session's flow if it has been idle for the configured
// timeout. It is safe to call in any state; an idle or recently active
// session is left alone. The abort notice goes to the Outbox.
func (e *Engine) Expire(ctx context.Context, sessionID string) error {
	return e.stop(ctx, sessionID, func(s *session.Session) bool {
		return s.Idle(e.clock.Now(), e.idleTimeout)
	}, "idle timeout", msgTimedOut)
}

// Abort stops the session's flow now, whatever its step, through the same
// path as an invalid reply. A session without a flow is left alone. The
// notice goes to the Outbox.
func (e *Engine) Abort(ctx context.Context, sessionID, reason string) error {
	return e.stop(ctx, sessionID, func(*session.Session) bool { return true }, reason, msgStopped)
}

func (e *Engine) stop(ctx context.Context, sessionID string, due func(*session.Session) bool, reason, text string) error {
	s, release, err := e.sessions.AcquireExisting(ctx, sessionID)
	if err != nil {
		return err
	}

	var cmds []Command
	if s.Active() && due(s) {
		cmds = e.abort(s, errors.New(reason), text)
	}
	release()

	if len(cmds) > 0 {
		e.outbox.Deliver(ctx, sessionID, cmds)
	}
	return nil
}
