package session

import (
	"time"

	"github.com/roach88/lunchdesk/internal/menu"
	"github.com/roach88/lunchdesk/internal/order"
)

// State is a step of the ordering flow.
type State string

const (
	StateIdle               State = "idle"
	StateItemSelection      State = "item_selection"
	StateCondimentSelection State = "condiment_selection"
	StateSideDishSelection  State = "side_dish_selection"
	StateTableSelection     State = "table_selection"
	StateConfirmation       State = "confirmation"
)

// Session is the state of one conversation.
type Session struct {
	ID     string
	UserID string
	State  State

	// Course is the route of the current flow. Empty while idle.
	Course order.Course

	// Draft is the order being assembled. Zero while idle.
	Draft order.Draft

	// Menu is the snapshot taken at flow entry. Prompts are rendered from
	// it; commits always reload the authoritative menu instead.
	Menu *menu.DailyMenu

	// Prompt is the choice the user is expected to answer, if any.
	Prompt *Prompt

	UpdatedAt time.Time
}

// Prompt records the options of a rendered choice.
type Prompt struct {
	// Ref identifies the rendered message.
	Ref string

	// Options maps the token sent with each option to its value.
	Options map[string]string
}

// Lookup returns the value behind a choice token.
func (p *Prompt) Lookup(token string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p.Options[token]
	return v, ok
}

// Active reports whether a flow is in progress.
func (s *Session) Active() bool {
	return s.State != StateIdle
}

// Reset discards the flow and returns the session to idle.
func (s *Session) Reset(now time.Time) {
	s.State = StateIdle
	s.Course = ""
	s.Draft = order.Draft{}
	s.Menu = nil
	s.Prompt = nil
	s.UpdatedAt = now
}

// Begin starts a new flow for course on a menu snapshot, discarding any
// previous draft. The flow starts at item selection.
func (s *Session) Begin(snapshot menu.DailyMenu, course order.Course, now time.Time) {
	s.Reset(now)
	s.Menu = &snapshot
	s.State = StateItemSelection
	s.Course = course
	s.Draft = order.Draft{MenuID: snapshot.ID, OwnerID: s.UserID}
}

// Idle reports whether the session has gone without activity for at least d.
func (s *Session) Idle(now time.Time, d time.Duration) bool {
	return now.Sub(s.UpdatedAt) >= d
}
