package flow

import "strings"

// EventKind classifies an inbound update.
type EventKind string

const (
	KindCommand EventKind = "command"
	KindText    EventKind = "text"
	KindChoice  EventKind = "choice"
)

// Update is one inbound message from the transport.
type Update struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Kind      EventKind `json:"kind"`
	Payload   string    `json:"payload"`
}

// CommandKind is the kind of outbound command.
type CommandKind string

const (
	// CommandPrompt sends a new message.
	CommandPrompt CommandKind = "prompt"

	// CommandEditPrevious replaces the message identified by Ref.
	CommandEditPrevious CommandKind = "edit_previous"
)

// Option is one selectable answer of a prompt.
type Option struct {
	Token string `json:"token"`
	Label string `json:"label"`
}

// Command is an outbound instruction for the transport. A command without
// options is plain text; with options it is a choice prompt.
type Command struct {
	Kind    CommandKind `json:"kind"`
	Ref     string      `json:"ref"`
	Text    string      `json:"text"`
	Options []Option    `json:"options,omitempty"`
}

// Top-level commands.
const (
	CmdStart    = "/start"
	CmdFirst    = "/first"
	CmdSecond   = "/second"
	CmdCancel   = "/cancel"
	CmdStatus   = "/status"
	CmdWithdraw = "/withdraw"
)

var knownCommands = map[string]bool{
	CmdStart:    true,
	CmdFirst:    true,
	CmdSecond:   true,
	CmdCancel:   true,
	CmdStatus:   true,
	CmdWithdraw: true,
}

// classify resolves the effective event kind and payload of an update.
// Text that is exactly a known command counts as that command; an unknown
// command counts as text.
func classify(u Update) (EventKind, string) {
	payload := strings.TrimSpace(u.Payload)
	switch u.Kind {
	case KindCommand, KindText:
		fields := strings.Fields(payload)
		if len(fields) == 0 {
			return KindText, ""
		}
		name := strings.ToLower(fields[0])
		// Telegram-style "/first@lunchbot".
		if at := strings.IndexByte(name, '@'); at > 0 {
			name = name[:at]
		}
		if knownCommands[name] {
			return KindCommand, name
		}
		return KindText, payload
	default:
		return u.Kind, payload
	}
}
