package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/lunchdesk/internal/menu"
	"github.com/roach88/lunchdesk/internal/order"
	"github.com/roach88/lunchdesk/internal/session"
)

// Option values that are not menu entries. The menu schema rejects names
// containing NUL.
const (
	continueValue = "\x00continue"
	confirmValue  = "\x00confirm"
	cancelValue   = "\x00cancel"
)

var (
	errNoFreeTable = errors.New("no free table")
	errCancelled   = errors.New("cancelled by user")
)

// enter starts a flow for course if the user may order right now.
func (e *Engine) enter(ctx context.Context, s *session.Session, course order.Course) []Command {
	m, ok, cmds := e.loadMenu(ctx)
	if !ok {
		return cmds
	}

	now := e.clock.Now()
	if !m.Open(now) {
		return e.say(fmt.Sprintf(msgClosed, m.DeadlineLabel()))
	}

	existing, err := e.orders.FindActiveOrderForUser(ctx, s.UserID, m.ID)
	if err != nil {
		e.logger.Error("order lookup failed", "session_id", s.ID, "user_id", s.UserID, "error", err)
		return e.say(msgTryAgain)
	}
	if existing != nil {
		return e.say(msgAlreadyOrdered)
	}

	heading := msgChooseFirst
	items := plainChoices(m.FirstCourseNames())
	if course == order.CourseSecond {
		heading = msgChooseSecond
		items = plainChoices(m.SecondCourses)
	}
	if len(items) == 0 {
		return e.say(msgNoCourse)
	}
	if m.AdditionalInfo != "" {
		heading = m.AdditionalInfo + "\n\n" + heading
	}

	s.Begin(m, course, now)
	e.logger.Info("flow started",
		"event", "flow_started",
		"session_id", s.ID,
		"user_id", s.UserID,
		"course", string(course),
		"menu_id", m.ID,
	)
	return e.ask(s, heading, items)
}

// loadMenu fetches an enabled menu for flow entry or answers why there is
// none.
func (e *Engine) loadMenu(ctx context.Context) (menu.DailyMenu, bool, []Command) {
	m, err := e.menus.ActiveMenu(ctx)
	if isNotFound(err) {
		return menu.DailyMenu{}, false, e.say(msgNoMenu)
	}
	if err != nil {
		e.logger.Error("menu lookup failed", "error", err)
		return menu.DailyMenu{}, false, e.say(msgTryAgain)
	}
	if !m.Enabled {
		return menu.DailyMenu{}, false, e.say(msgNoMenu)
	}
	return m, true, nil
}

// choose resolves a choice token against the current prompt.
func (e *Engine) choose(s *session.Session, payload string) (string, bool) {
	return s.Prompt.Lookup(payload)
}

func (e *Engine) rejectChoice(s *session.Session) []Command {
	return e.abort(s, order.NewUserInputError("unknown choice"), msgInvalidChoice)
}

func (e *Engine) acceptItem(ctx context.Context, s *session.Session, payload string) []Command {
	value, ok := e.choose(s, payload)
	if !ok {
		return e.rejectChoice(s)
	}

	if s.Course == order.CourseFirst {
		fc, ok := s.Menu.FirstCourse(value)
		if !ok {
			return e.rejectChoice(s)
		}
		s.Draft.First = &order.FirstCourseSelection{Item: fc.Name}
		if len(fc.Condiments) == 0 {
			return e.toTables(ctx, s, "")
		}
		s.State = session.StateCondimentSelection
		return e.ask(s, fmt.Sprintf(msgChooseCondiment, fc.Name), plainChoices(fc.Condiments))
	}

	s.Draft.Second = &order.SecondCourseSelection{Item: value, SideDishes: []string{}}
	if len(s.Menu.SideDishes) == 0 {
		return e.toTables(ctx, s, "")
	}
	s.State = session.StateSideDishSelection
	return e.askSideDish(s)
}

func (e *Engine) acceptCondiment(ctx context.Context, s *session.Session, payload string) []Command {
	value, ok := e.choose(s, payload)
	if !ok {
		return e.rejectChoice(s)
	}
	s.Draft.First.Condiment = value
	return e.toTables(ctx, s, "")
}

// askSideDish offers the side dishes not picked yet plus Continue, which
// is the only option once every side dish has been picked.
func (e *Engine) askSideDish(s *session.Session) []Command {
	picked := s.Draft.Second.SideDishes

	var choices []choice
	for _, side := range s.Menu.SideDishes {
		if !containsName(picked, side) {
			choices = append(choices, choice{value: side, label: side})
		}
	}
	choices = append(choices, choice{value: continueValue, label: labelContinue})

	text := fmt.Sprintf(msgChooseSide, s.Draft.Second.Item)
	if len(picked) > 0 {
		text += "\n" + fmt.Sprintf(msgSidesSoFar, strings.Join(picked, ", "))
	}
	return e.ask(s, text, choices)
}

func (e *Engine) acceptSideDish(ctx context.Context, s *session.Session, payload string) []Command {
	value, ok := e.choose(s, payload)
	if !ok {
		return e.rejectChoice(s)
	}
	if value == continueValue {
		return e.toTables(ctx, s, "")
	}
	s.Draft.Second.SideDishes = append(s.Draft.Second.SideDishes, value)
	return e.askSideDish(s)
}

// toTables offers the enabled tables of the snapshot that still have a free
// seat, counted live. The flow aborts when none is left.
func (e *Engine) toTables(ctx context.Context, s *session.Session, notice string) []Command {
	counts, err := e.orders.TableUsageCounts(ctx, s.Menu.ID)
	if err != nil {
		e.logger.Error("table usage lookup failed", "session_id", s.ID, "menu_id", s.Menu.ID, "error", err)
		return e.abort(s, fmt.Errorf("table usage lookup: %w", err), msgSorry)
	}

	var choices []choice
	for _, t := range s.Menu.EnabledTables() {
		free := t.SeatCapacity - counts[t.ID]
		if free <= 0 {
			continue
		}
		choices = append(choices, choice{value: t.ID, label: fmt.Sprintf("%s (%d free)", t.Name, free)})
	}
	if len(choices) == 0 {
		return e.abort(s, errNoFreeTable, msgAllTablesFull)
	}

	s.State = session.StateTableSelection
	text := msgPickTable
	if notice != "" {
		text = notice + "\n" + text
	}
	return e.ask(s, text, choices)
}

func (e *Engine) acceptTable(ctx context.Context, s *session.Session, payload string) []Command {
	value, ok := e.choose(s, payload)
	if !ok {
		return e.rejectChoice(s)
	}
	s.Draft.TableID = value
	s.State = session.StateConfirmation
	return e.ask(s, fmt.Sprintf(msgConfirm, s.Draft.Summary(), tableName(s, value)), []choice{
		{value: confirmValue, label: labelConfirm},
		{value: cancelValue, label: labelCancel},
	})
}

// acceptConfirmation commits the draft. A full table sends the user back to
// table selection; every other failure ends the flow.
func (e *Engine) acceptConfirmation(ctx context.Context, s *session.Session, payload string) []Command {
	value, ok := e.choose(s, payload)
	if !ok {
		return e.rejectChoice(s)
	}
	if value == cancelValue {
		return e.abort(s, errCancelled, msgCancelled)
	}

	summary := s.Draft.Summary()
	table := tableName(s, s.Draft.TableID)

	o, err := e.committer.Commit(ctx, s.Draft.Clone())
	if err == nil {
		e.logger.Info("flow completed",
			"event", "flow_completed",
			"session_id", s.ID,
			"user_id", s.UserID,
			"order_id", o.ID,
		)
		return e.finish(s, fmt.Sprintf(msgPlaced, summary, table))
	}

	switch order.CodeOf(err) {
	case order.ErrCodeTableFull:
		s.Draft.TableID = ""
		return e.toTables(ctx, s, msgTableTaken)
	case order.ErrCodeValidation:
		return e.abort(s, err, fmt.Sprintf(msgNotPlaced, userMessage(err)))
	case order.ErrCodeDeadlineExceeded:
		return e.abort(s, err, "Sorry, "+userMessage(err)+".")
	case order.ErrCodeAlreadyOrdered:
		return e.abort(s, err, msgAlreadyOrdered)
	case order.ErrCodeNoMenu:
		return e.abort(s, err, msgNoMenu)
	default:
		return e.abort(s, err, msgSorry)
	}
}

func containsName(set []string, v string) bool {
	key := menu.Normalize(v)
	for _, s := range set {
		if menu.Normalize(s) == key {
			return true
		}
	}
	return false
}
