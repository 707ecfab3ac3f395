package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted conversation with expected outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Menu is the path of the menu file loaded before the first step.
	// Relative paths are resolved against the scenario file.
	Menu string `yaml:"menu"`

	// Start is the RFC 3339 wall clock time at the first step.
	Start string `yaml:"start"`

	// IdleTimeout is how long a flow may wait before expire aborts it.
	// Defaults to 10m.
	IdleTimeout string `yaml:"idle_timeout,omitempty"`

	// Users are registered as enabled principals. Steps may only name
	// these users.
	Users []string `yaml:"users"`

	// Disabled are registered as disabled principals.
	Disabled []string `yaml:"disabled,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions check the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scenario action. Exactly one of Send, Choose, Token,
// Advance, Expire, EditMenu or Together is set.
type Step struct {
	// User sends the message (Send, Choose, Token).
	User string `yaml:"user,omitempty"`

	// Send is a command ("/first") or free text.
	Send string `yaml:"send,omitempty"`

	// Choose picks the option with this label from the user's last prompt.
	Choose string `yaml:"choose,omitempty"`

	// Token sends a raw choice payload, e.g. a forged or stale token.
	Token string `yaml:"token,omitempty"`

	// Advance moves the clock by a duration ("5m").
	Advance string `yaml:"advance,omitempty"`

	// Expire runs one sweep of the idle session reaper.
	Expire bool `yaml:"expire,omitempty"`

	// EditMenu replaces the active menu with the file at this path.
	EditMenu string `yaml:"edit_menu,omitempty"`

	// Together runs user steps concurrently.
	Together []Step `yaml:"together,omitempty"`

	// Expect checks the replies of this step.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect checks the replies to one step.
type Expect struct {
	// Contains must be a substring of one of the reply texts.
	Contains string `yaml:"contains,omitempty"`

	// Options are the exact option labels of the last reply.
	Options []string `yaml:"options,omitempty"`

	// State is the user's session state after the step.
	State string `yaml:"state,omitempty"`
}

// Assertion checks the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	User      string   `yaml:"user,omitempty"`
	Table     string   `yaml:"table,omitempty"`
	State     string   `yaml:"state,omitempty"`
	Count     *int     `yaml:"count,omitempty"`
	Item      string   `yaml:"item,omitempty"`
	Condiment string   `yaml:"condiment,omitempty"`
	Sides     []string `yaml:"sides,omitempty"`
}

// Assertion type constants.
const (
	AssertOrderCount   = "order_count"
	AssertOrder        = "order"
	AssertNoOrder      = "no_order"
	AssertSessionState = "session_state"
	AssertStateCount   = "state_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	scenario.Menu = resolve(base, scenario.Menu)
	for i := range scenario.Steps {
		scenario.Steps[i].EditMenu = resolve(base, scenario.Steps[i].EditMenu)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Menu == "" {
		return fmt.Errorf("menu is required")
	}
	if _, err := os.Stat(s.Menu); err != nil {
		return fmt.Errorf("menu file not found: %s", s.Menu)
	}
	if _, err := time.Parse(time.RFC3339, s.Start); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if s.IdleTimeout != "" {
		if _, err := time.ParseDuration(s.IdleTimeout); err != nil {
			return fmt.Errorf("idle_timeout: %w", err)
		}
	}
	if len(s.Users) == 0 {
		return fmt.Errorf("users list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	users := make(map[string]bool)
	for _, u := range append(append([]string{}, s.Users...), s.Disabled...) {
		if users[u] {
			return fmt.Errorf("user %q listed twice", u)
		}
		users[u] = true
	}

	for i, step := range s.Steps {
		if err := validateStep(step, users, false); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a, users); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	return nil
}

func validateStep(step Step, users map[string]bool, nested bool) error {
	set := 0
	for _, present := range []bool{
		step.Send != "", step.Choose != "", step.Token != "",
		step.Advance != "", step.Expire, step.EditMenu != "", len(step.Together) > 0,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one of send, choose, token, advance, expire, edit_menu, together is required")
	}

	userStep := step.Send != "" || step.Choose != "" || step.Token != ""
	switch {
	case userStep && step.User == "":
		return fmt.Errorf("user is required")
	case userStep && !users[step.User]:
		return fmt.Errorf("unknown user %q", step.User)
	case !userStep && step.User != "":
		return fmt.Errorf("user is only valid with send, choose or token")
	case nested && !userStep:
		return fmt.Errorf("together may only contain send, choose or token steps")
	}

	if step.Advance != "" {
		if _, err := time.ParseDuration(step.Advance); err != nil {
			return fmt.Errorf("advance: %w", err)
		}
	}
	if step.EditMenu != "" {
		if _, err := os.Stat(step.EditMenu); err != nil {
			return fmt.Errorf("menu file not found: %s", step.EditMenu)
		}
	}
	if step.Expect != nil && !userStep {
		return fmt.Errorf("expect is only valid on send, choose or token steps")
	}

	for i, sub := range step.Together {
		if err := validateStep(sub, users, true); err != nil {
			return fmt.Errorf("together[%d]: %w", i, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion, users map[string]bool) error {
	needUser := func() error {
		if a.User == "" {
			return fmt.Errorf("%s: user is required", a.Type)
		}
		if !users[a.User] {
			return fmt.Errorf("%s: unknown user %q", a.Type, a.User)
		}
		return nil
	}

	switch a.Type {
	case AssertOrderCount:
		if a.Count == nil {
			return fmt.Errorf("order_count: count is required")
		}
	case AssertOrder, AssertNoOrder:
		return needUser()
	case AssertSessionState:
		if a.State == "" {
			return fmt.Errorf("session_state: state is required")
		}
		return needUser()
	case AssertStateCount:
		if a.State == "" || a.Count == nil {
			return fmt.Errorf("state_count: state and count are required")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
