package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/lunchdesk/internal/allocator"
	"github.com/roach88/lunchdesk/internal/flow"
	"github.com/roach88/lunchdesk/internal/menu"
	"github.com/roach88/lunchdesk/internal/session"
	"github.com/roach88/lunchdesk/internal/store"
	"github.com/roach88/lunchdesk/internal/testutil"
	"github.com/roach88/lunchdesk/internal/token"
	"github.com/roach88/lunchdesk/internal/transport"
)

// Harness is a wired service with deterministic clock and tokens.
type Harness struct {
	store    *store.Store
	menuID   string
	clock    *testutil.FakeClock
	sessions *session.Store
	reaper   *session.Reaper
	mailbox  *transport.Mailbox
	router   http.Handler
	users    []string

	mu   sync.Mutex
	last map[string][]flow.Command
}

func sessionID(user string) string { return "chat-" + user }

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// An error means the scenario could not be set up; failed expectations
// are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with service logs sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	m, err := menu.LoadFile(scenario.Menu)
	if err != nil {
		return nil, fmt.Errorf("failed to load menu: %w", err)
	}
	if err := st.SaveMenu(ctx, m, true); err != nil {
		return nil, fmt.Errorf("failed to save menu: %w", err)
	}

	for _, u := range scenario.Users {
		if err := st.SavePrincipal(ctx, store.Principal{ID: u, Name: u, Enabled: true}); err != nil {
			return nil, fmt.Errorf("failed to save user: %w", err)
		}
	}
	for _, u := range scenario.Disabled {
		if err := st.SavePrincipal(ctx, store.Principal{ID: u, Name: u, Enabled: false}); err != nil {
			return nil, fmt.Errorf("failed to save user: %w", err)
		}
	}

	start, err := time.Parse(time.RFC3339, scenario.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid start: %w", err)
	}
	idle := flow.DefaultIdleTimeout
	if scenario.IdleTimeout != "" {
		if idle, err = time.ParseDuration(scenario.IdleTimeout); err != nil {
			return nil, fmt.Errorf("invalid idle_timeout: %w", err)
		}
	}

	h := &Harness{
		store:   st,
		menuID:  m.ID,
		clock:   testutil.NewFakeClock(start),
		mailbox: transport.NewMailbox(),
		users:   append(append([]string{}, scenario.Users...), scenario.Disabled...),
		last:    make(map[string][]flow.Command),
	}
	h.sessions = session.NewStore(h.clock)

	alloc := allocator.New(st,
		allocator.WithClock(h.clock),
		allocator.WithIDGenerator(token.NewSequenceGenerator("order")),
		allocator.WithLogger(logger),
	)
	eng := flow.New(h.sessions, store.NewMenuCache(st, 0, h.clock.Now), st, alloc,
		flow.WithClock(h.clock),
		flow.WithTokenGenerator(token.NewSequenceGenerator("tok")),
		flow.WithOutbox(h.mailbox),
		flow.WithIdleTimeout(idle),
		flow.WithLogger(logger),
	)
	h.reaper = session.NewReaper(h.sessions, idle, time.Hour, eng.Expire, logger,
		session.WithForgetHook(h.mailbox.Discard))

	gin.SetMode(gin.ReleaseMode)
	h.router = transport.NewRouter(transport.NewServer(eng, st, h.mailbox, st.DB(), logger))

	result := NewResult()
	for i, step := range scenario.Steps {
		h.execute(ctx, i, step, result)
	}

	for _, msg := range h.evaluate(ctx, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// pending is a resolved user step ready to be sent.
type pending struct {
	index  string
	step   Step
	update flow.Update
	input  string
}

func (h *Harness) execute(ctx context.Context, i int, step Step, result *Result) {
	label := fmt.Sprintf("step %d", i)

	switch {
	case step.Advance != "":
		d, _ := time.ParseDuration(step.Advance)
		h.clock.Advance(d)
		result.AddNote("clock +" + step.Advance)

	case step.Expire:
		result.AddNote("idle sweep")
		h.reaper.Sweep(ctx)
		for _, u := range h.users {
			cmds := h.mailbox.Drain(sessionID(u))
			if len(cmds) == 0 {
				continue
			}
			h.remember(u, cmds)
			result.Transcript = append(result.Transcript, Exchange{User: u, Input: "(idle)", Replies: replies(cmds)})
		}

	case step.EditMenu != "":
		m, err := menu.LoadFile(step.EditMenu)
		if err == nil {
			err = h.store.SaveMenu(ctx, m, true)
		}
		if err != nil {
			result.AddError(fmt.Sprintf("%s: edit menu: %v", label, err))
			return
		}
		h.menuID = m.ID
		result.AddNote("menu replaced")

	case len(step.Together) > 0:
		batch := make([]pending, 0, len(step.Together))
		for j, sub := range step.Together {
			p, err := h.resolve(fmt.Sprintf("%s.%d", label, j), sub)
			if err != nil {
				result.AddError(err.Error())
				return
			}
			batch = append(batch, p)
		}

		out := make([]Exchange, len(batch))
		var wg sync.WaitGroup
		for j := range batch {
			wg.Add(1)
			go func(j int) {
				defer wg.Done()
				out[j] = h.send(ctx, batch[j])
			}(j)
		}
		wg.Wait()

		for j, ex := range out {
			result.Transcript = append(result.Transcript, ex)
			h.check(ctx, batch[j], ex, result)
		}

	default:
		p, err := h.resolve(label, step)
		if err != nil {
			result.AddError(err.Error())
			return
		}
		ex := h.send(ctx, p)
		result.Transcript = append(result.Transcript, ex)
		h.check(ctx, p, ex, result)
	}
}

// resolve turns a user step into an update, looking up option labels in
// the user's last prompt.
func (h *Harness) resolve(label string, step Step) (pending, error) {
	u := flow.Update{SessionID: sessionID(step.User), UserID: step.User}
	var input string

	switch {
	case step.Send != "":
		u.Kind = flow.KindText
		if strings.HasPrefix(step.Send, "/") {
			u.Kind = flow.KindCommand
		}
		u.Payload = step.Send
		input = step.Send
	case step.Token != "":
		u.Kind = flow.KindChoice
		u.Payload = step.Token
		input = "token " + step.Token
	default:
		tok, offered := h.lookup(step.User, step.Choose)
		if tok == "" {
			return pending{}, fmt.Errorf("%s: %s was not offered %q (offered %v)", label, step.User, step.Choose, offered)
		}
		u.Kind = flow.KindChoice
		u.Payload = tok
		input = "choose " + step.Choose
	}
	return pending{index: label, step: step, update: u, input: input}, nil
}

func (h *Harness) lookup(user, label string) (string, []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cmds := h.last[user]
	if len(cmds) == 0 {
		return "", nil
	}
	var offered []string
	for _, o := range cmds[len(cmds)-1].Options {
		if o.Label == label {
			return o.Token, nil
		}
		offered = append(offered, o.Label)
	}
	return "", offered
}

func (h *Harness) remember(user string, cmds []flow.Command) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last[user] = cmds
}

// send posts the update through the HTTP adapter.
func (h *Harness) send(ctx context.Context, p pending) Exchange {
	ex := Exchange{User: p.update.UserID, Input: p.input}

	body, err := json.Marshal(p.update)
	if err != nil {
		ex.Error = err.Error()
		return ex
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/updates", bytes.NewReader(body)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		var failure struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &failure)
		ex.Error = fmt.Sprintf("HTTP %d: %s", w.Code, failure.Error)
		return ex
	}

	var resp struct {
		Commands []flow.Command `json:"commands"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		ex.Error = "decode response: " + err.Error()
		return ex
	}
	h.remember(p.update.UserID, resp.Commands)
	ex.Replies = replies(resp.Commands)
	return ex
}

func (h *Harness) check(ctx context.Context, p pending, ex Exchange, result *Result) {
	exp := p.step.Expect
	if exp == nil {
		return
	}

	if exp.Contains != "" {
		found := false
		for _, r := range ex.Replies {
			if strings.Contains(r.Text, exp.Contains) {
				found = true
				break
			}
		}
		if !found {
			result.AddError(fmt.Sprintf("%s: no reply to %s contains %q", p.index, ex.User, exp.Contains))
		}
	}

	if exp.Options != nil {
		var got []string
		if len(ex.Replies) > 0 {
			got = ex.Replies[len(ex.Replies)-1].Options
		}
		if !equalStrings(got, exp.Options) {
			result.AddError(fmt.Sprintf("%s: %s was offered %v, want %v", p.index, ex.User, got, exp.Options))
		}
	}

	if exp.State != "" {
		state, err := h.state(ctx, ex.User)
		if err != nil {
			result.AddError(fmt.Sprintf("%s: %v", p.index, err))
		} else if string(state) != exp.State {
			result.AddError(fmt.Sprintf("%s: %s is in state %s, want %s", p.index, ex.User, state, exp.State))
		}
	}
}

// state returns the flow state of a user's session; users that never
// spoke are idle.
func (h *Harness) state(ctx context.Context, user string) (session.State, error) {
	s, release, err := h.sessions.AcquireExisting(ctx, sessionID(user))
	if errors.Is(err, session.ErrNoSession) {
		return session.StateIdle, nil
	}
	if err != nil {
		return "", err
	}
	defer release()
	return s.State, nil
}

func replies(cmds []flow.Command) []Reply {
	out := make([]Reply, len(cmds))
	for i, c := range cmds {
		r := Reply{Kind: string(c.Kind), Ref: c.Ref, Text: c.Text}
		for _, o := range c.Options {
			r.Options = append(r.Options, o.Label)
		}
		out[i] = r
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
