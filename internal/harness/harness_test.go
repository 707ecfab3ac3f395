package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestGoldenScenarios(t *testing.T) {
	for _, name := range []string{"first_course", "second_course", "aborts", "deadline", "menu_edit"} {
		t.Run(name, func(t *testing.T) {
			scenario := loadTestScenario(t, name)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestCapacityRace(t *testing.T) {
	scenario := loadTestScenario(t, "capacity_race")

	for i := 0; i < 5; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)
		require.True(t, result.Pass, "errors: %v", result.Errors)

		placed, full := 0, 0
		for _, ex := range result.Transcript[len(result.Transcript)-3:] {
			require.Len(t, ex.Replies, 1)
			switch ex.Replies[0].Text {
			case "Order placed: Risotto at Nook. Enjoy your lunch!":
				placed++
			case "Sorry, all tables are full today.":
				full++
			default:
				t.Fatalf("unexpected reply %q", ex.Replies[0].Text)
			}
		}
		assert.Equal(t, 1, placed)
		assert.Equal(t, 2, full)
	}
}

func TestRun_FailedExpectations(t *testing.T) {
	scenario := loadTestScenario(t, "first_course")
	scenario.Steps[0].Expect = &Expect{Contains: "Welcome", Options: []string{"Soup"}, State: "confirmation"}
	two := 2
	scenario.Assertions = []Assertion{
		{Type: AssertOrderCount, Count: &two},
		{Type: AssertNoOrder, User: "ada"},
		{Type: AssertOrder, User: "ada", Item: "Risotto"},
		{Type: AssertSessionState, User: "ada", State: "confirmation"},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 7)
	assert.Contains(t, result.Errors[0], `contains "Welcome"`)
	assert.Contains(t, result.Errors[1], "[Soup]")
	assert.Contains(t, result.Errors[2], "want confirmation")
	assert.Contains(t, result.Errors[3], "assertion 0")
	assert.Contains(t, result.Errors[4], "no active order for ada")
	assert.Contains(t, result.Errors[5], "item Pasta")
	assert.Contains(t, result.Errors[6], "expected confirmation, got idle")
}

func TestRun_ChoiceNotOffered(t *testing.T) {
	scenario := loadTestScenario(t, "first_course")
	scenario.Steps = []Step{
		{User: "ada", Send: "/first"},
		{User: "ada", Choose: "Soup"},
	}
	scenario.Assertions = nil

	result, err := Run(scenario)
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `ada was not offered "Soup" (offered [Pasta Risotto])`)
	assert.Len(t, result.Transcript, 1)
}

func TestRun_UnknownAndDisabledUsers(t *testing.T) {
	scenario := loadTestScenario(t, "first_course")
	scenario.Disabled = []string{"eve"}
	scenario.Steps = []Step{{User: "eve", Send: "/first"}}
	scenario.Assertions = nil

	result, err := Run(scenario)
	require.NoError(t, err)

	require.Len(t, result.Transcript, 1)
	assert.Equal(t, "HTTP 403: user disabled", result.Transcript[0].Error)
	assert.Empty(t, result.Transcript[0].Replies)
}

func TestRun_BadMenu(t *testing.T) {
	scenario := loadTestScenario(t, "first_course")
	scenario.Menu = filepath.Join("testdata", "missing.yaml")

	_, err := Run(scenario)
	assert.ErrorContains(t, err, "failed to load menu")
}
