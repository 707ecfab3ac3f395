package harness

// Reply is one outbound command as seen in a transcript.
type Reply struct {
	Kind    string   `json:"kind"`
	Ref     string   `json:"ref"`
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
}

// Exchange is one step of a transcript: a user's input and the replies,
// or a note about something the scenario did (clock moved, menu edited).
type Exchange struct {
	User    string  `json:"user,omitempty"`
	Input   string  `json:"input,omitempty"`
	Replies []Reply `json:"replies,omitempty"`
	Note    string  `json:"note,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step ran and every expectation held.
	Pass bool `json:"pass"`

	// Transcript lists the exchanges in step order.
	Transcript []Exchange `json:"transcript"`

	// Errors contains failed expectations and assertions.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Transcript: []Exchange{},
		Errors:     []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddNote records a scenario action in the transcript.
func (r *Result) AddNote(note string) {
	r.Transcript = append(r.Transcript, Exchange{Note: note})
}
