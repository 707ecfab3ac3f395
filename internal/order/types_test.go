package order

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraft_Course(t *testing.T) {
	tests := []struct {
		name  string
		draft Draft
		want  Course
	}{
		{"neither", Draft{}, ""},
		{"first", Draft{First: &FirstCourseSelection{Item: "Pasta"}}, CourseFirst},
		{"second", Draft{Second: &SecondCourseSelection{Item: "Steak"}}, CourseSecond},
		{"both", Draft{First: &FirstCourseSelection{Item: "Pasta"}, Second: &SecondCourseSelection{Item: "Steak"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.draft.Course())
		})
	}
}

func TestDraft_Complete(t *testing.T) {
	d := Draft{MenuID: "m", OwnerID: "u", First: &FirstCourseSelection{Item: "Pasta"}}
	assert.False(t, d.Complete(), "table missing")

	d.TableID = "t1"
	assert.True(t, d.Complete())
}

func TestDraft_CloneIsDeep(t *testing.T) {
	d := Draft{Second: &SecondCourseSelection{Item: "Steak", SideDishes: []string{"Fries"}}}
	c := d.Clone()

	c.Second.SideDishes[0] = "Salad"
	c.Second.Item = "Fish"

	assert.Equal(t, "Fries", d.Second.SideDishes[0])
	assert.Equal(t, "Steak", d.Second.Item)
}

func TestDraft_Summary(t *testing.T) {
	d := Draft{First: &FirstCourseSelection{Item: "Pasta", Condiment: "Pesto"}}
	assert.Equal(t, "Pasta with Pesto", d.Summary())

	d = Draft{Second: &SecondCourseSelection{Item: "Steak", SideDishes: []string{"Fries", "Salad"}}}
	assert.Equal(t, "Steak with Fries, Salad", d.Summary())

	d = Draft{}
	assert.Equal(t, "(empty)", d.Summary())
}

func TestError_Predicates(t *testing.T) {
	wrapped := fmt.Errorf("commit: %w", NewTableFullError("t1", 2, 2))

	assert.True(t, IsTableFull(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.Equal(t, ErrCodeTableFull, CodeOf(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(fmt.Errorf("plain")))
}

func TestError_NoMenuAndUserInput(t *testing.T) {
	noMenu := fmt.Errorf("commit: %w", NewNoMenuError())
	assert.True(t, IsNoMenu(noMenu))
	assert.False(t, IsValidation(noMenu))

	input := NewUserInputError("unknown choice")
	assert.True(t, IsUserInput(input))
	assert.Equal(t, "USER_INPUT: unknown choice", input.Error())
}

func TestError_UnwrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewPersistenceError(cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "PERSISTENCE")
	assert.Contains(t, err.Error(), "disk full")
}

func TestNewDeadlineError_CarriesDeadline(t *testing.T) {
	err := NewDeadlineError("13:00")
	assert.True(t, IsDeadlineExceeded(err))
	assert.Equal(t, "13:00", err.Details["deadline"])
	assert.Contains(t, err.Message, "13:00")
}
