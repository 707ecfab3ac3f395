package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Render formats a transcript as plain text:
//
//	scenario: first-course
//
//	> alice: /first
//	< prompt p-1
//	  Choose your first course:
//	  [Pasta] [Risotto]
//
//	~ clock +5m
//
// Reply lines name the command kind and message ref; option labels are
// listed in brackets under the text. Notes start with "~" and transport
// errors with "!".
func Render(name string, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)

	for _, ex := range result.Transcript {
		b.WriteString("\n")
		if ex.Note != "" {
			fmt.Fprintf(&b, "~ %s\n", ex.Note)
			continue
		}
		fmt.Fprintf(&b, "> %s: %s\n", ex.User, ex.Input)
		if ex.Error != "" {
			fmt.Fprintf(&b, "! %s\n", ex.Error)
		}
		for _, r := range ex.Replies {
			fmt.Fprintf(&b, "< %s %s\n", r.Kind, r.Ref)
			for _, line := range strings.Split(r.Text, "\n") {
				fmt.Fprintf(&b, "  %s\n", line)
			}
			if len(r.Options) > 0 {
				labels := make([]string, len(r.Options))
				for i, o := range r.Options {
					labels[i] = "[" + o + "]"
				}
				fmt.Fprintf(&b, "  %s\n", strings.Join(labels, " "))
			}
		}
	}

	if len(result.Errors) > 0 {
		b.WriteString("\n")
		for _, e := range result.Errors {
			fmt.Fprintf(&b, "! %s\n", e)
		}
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its transcript against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an already executed result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Render(name, result))
}
