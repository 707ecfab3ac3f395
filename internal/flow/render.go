package flow

import (
	"errors"

	"github.com/roach88/lunchdesk/internal/order"
	"github.com/roach88/lunchdesk/internal/session"
)

// choice is an option before it gets a token.
type choice struct {
	value string
	label string
}

func plainChoices(values []string) []choice {
	out := make([]choice, len(values))
	for i, v := range values {
		out[i] = choice{value: v, label: v}
	}
	return out
}

// ask renders a choice prompt with fresh tokens. The first prompt of a
// flow is a new message; later steps edit it in place.
func (e *Engine) ask(s *session.Session, text string, choices []choice) []Command {
	opts := make([]Option, len(choices))
	values := make(map[string]string, len(choices))
	for i, c := range choices {
		tok := e.tokens.Generate()
		values[tok] = c.value
		opts[i] = Option{Token: tok, Label: c.label}
	}

	if s.Prompt == nil {
		s.Prompt = &session.Prompt{Ref: e.refs.Ref(), Options: values}
		return []Command{{Kind: CommandPrompt, Ref: s.Prompt.Ref, Text: text, Options: opts}}
	}
	s.Prompt.Options = values
	return []Command{{Kind: CommandEditPrevious, Ref: s.Prompt.Ref, Text: text, Options: opts}}
}

// say sends a plain message.
func (e *Engine) say(text string) []Command {
	return []Command{{Kind: CommandPrompt, Ref: e.refs.Ref(), Text: text}}
}

// finish ends the flow and replaces its prompt with text.
func (e *Engine) finish(s *session.Session, text string) []Command {
	var ref string
	if s.Prompt != nil {
		ref = s.Prompt.Ref
	}
	s.Reset(e.clock.Now())

	if ref == "" {
		return e.say(text)
	}
	return []Command{{Kind: CommandEditPrevious, Ref: ref, Text: text}}
}

// abort discards the draft. Nothing has been persisted at this point.
func (e *Engine) abort(s *session.Session, cause error, text string) []Command {
	attrs := []any{
		"event", "flow_aborted",
		"session_id", s.ID,
		"user_id", s.UserID,
		"state", string(s.State),
		"reason", cause.Error(),
	}
	if code := order.CodeOf(cause); code != "" {
		attrs = append(attrs, "code", string(code))
	}
	e.logger.Info("flow aborted", attrs...)
	return e.finish(s, text)
}

// userMessage extracts the user-safe message of an order error.
func userMessage(err error) string {
	var oe *order.Error
	if errors.As(err, &oe) {
		return oe.Message
	}
	return "unexpected error"
}

// tableName returns the display name of a table in the session's snapshot.
func tableName(s *session.Session, id string) string {
	if s.Menu != nil {
		if t, ok := s.Menu.Table(id); ok {
			return t.Name
		}
	}
	return id
}
