package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/lunchdesk/internal/allocator"
	"github.com/roach88/lunchdesk/internal/order"
	"github.com/roach88/lunchdesk/internal/session"
	"github.com/roach88/lunchdesk/internal/store"
)

// runCommand handles a top-level command on an idle session.
func (e *Engine) runCommand(ctx context.Context, s *session.Session, name string) []Command {
	switch name {
	case CmdFirst:
		return e.enter(ctx, s, order.CourseFirst)
	case CmdSecond:
		return e.enter(ctx, s, order.CourseSecond)
	case CmdStatus:
		return e.status(ctx, s)
	case CmdWithdraw:
		return e.withdraw(ctx, s)
	case CmdCancel:
		return e.say(msgNothingToCancel)
	default:
		return e.say(msgWelcome)
	}
}

// interrupt aborts the flow in progress and runs the command as if the
// session had been idle. /cancel only aborts.
func (e *Engine) interrupt(ctx context.Context, s *session.Session, name string) []Command {
	cmds := e.abort(s, fmt.Errorf("interrupted by %s", name), msgCancelled)
	if name == CmdCancel {
		return cmds
	}
	return append(cmds, e.runCommand(ctx, s, name)...)
}

func (e *Engine) rejectText(ctx context.Context, s *session.Session, _ string) []Command {
	return e.abort(s, order.NewUserInputError("text instead of choice"), msgUseButtons)
}

func (e *Engine) idleText(ctx context.Context, s *session.Session, _ string) []Command {
	return e.say(msgHint)
}

func (e *Engine) staleChoice(ctx context.Context, s *session.Session, _ string) []Command {
	return e.say(msgExpiredButton)
}

func (e *Engine) status(ctx context.Context, s *session.Session) []Command {
	m, ok, cmds := e.loadMenu(ctx)
	if !ok {
		return cmds
	}

	existing, err := e.orders.FindActiveOrderForUser(ctx, s.UserID, m.ID)
	if err != nil {
		e.logger.Error("order lookup failed", "session_id", s.ID, "user_id", s.UserID, "error", err)
		return e.say(msgTryAgain)
	}
	if existing == nil {
		return e.say(msgNoOrder)
	}

	d := existing.Draft()
	name := existing.TableID
	if t, ok := m.Table(existing.TableID); ok {
		name = t.Name
	}
	return e.say(fmt.Sprintf(msgYourOrder, m.Date, d.Summary(), name))
}

func (e *Engine) withdraw(ctx context.Context, s *session.Session) []Command {
	o, err := e.committer.Withdraw(ctx, s.UserID)
	switch {
	case err == nil:
		d := o.Draft()
		return e.say(fmt.Sprintf(msgWithdrawn, d.Summary()))
	case errors.Is(err, allocator.ErrNoActiveOrder):
		return e.say(msgNothingToWithdraw)
	case order.IsDeadlineExceeded(err):
		return e.say(fmt.Sprintf(msgTooLateWithdraw, userMessage(err)))
	case order.IsNoMenu(err):
		return e.say(msgNoMenu)
	default:
		e.logger.Error("withdraw failed", "session_id", s.ID, "user_id", s.UserID, "error", err)
		return e.say(msgTryAgain)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
