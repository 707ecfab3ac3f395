package menu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validMenuYAML = `
date: "2026-10-17"
deadline: "13:00"
timezone: UTC
rating_opens: "14:30"
first_courses:
  - name: Pasta
    condiments: [Pesto, Tomato]
  - name: Risotto
second_courses: [Chicken]
side_dishes: [Fries, Salad]
tables:
  - id: window
    name: Window table
    seats: 2
  - id: patio
    name: Patio
    seats: 6
    enabled: false
additional_info: Dessert is on the house.
`

func TestParse_Valid(t *testing.T) {
	m, err := Parse([]byte(validMenuYAML))
	require.NoError(t, err)

	assert.Equal(t, "2026-10-17", m.ID, "id defaults to date")
	assert.True(t, m.Enabled, "enabled defaults to true")
	assert.Equal(t, "2026-10-17T13:00:00Z", m.Deadline.Format("2006-01-02T15:04:05Z07:00"))
	assert.Equal(t, "14:30", m.RatingOpensAt.Format("15:04"))

	require.Len(t, m.FirstCourses, 2)
	assert.Equal(t, []string{"Pesto", "Tomato"}, m.FirstCourses[0].Condiments)
	assert.Empty(t, m.FirstCourses[1].Condiments)

	require.Len(t, m.Tables, 2)
	assert.Equal(t, Table{ID: "window", Name: "Window table", SeatCapacity: 2, Enabled: true}, m.Tables[0])
	assert.False(t, m.Tables[1].Enabled)
	assert.Equal(t, "Dessert is on the house.", m.AdditionalInfo)
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "bad deadline",
			yaml: "date: \"2026-10-17\"\ndeadline: \"25:00\"\nsecond_courses: [A]\ntables: [{id: t, name: T, seats: 1}]\n",
			want: "menu does not match schema",
		},
		{
			name: "zero seats",
			yaml: "date: \"2026-10-17\"\ndeadline: \"12:00\"\nsecond_courses: [A]\ntables: [{id: t, name: T, seats: 0}]\n",
			want: "menu does not match schema",
		},
		{
			name: "no tables",
			yaml: "date: \"2026-10-17\"\ndeadline: \"12:00\"\nsecond_courses: [A]\n",
			want: "menu does not match schema",
		},
		{
			name: "no courses",
			yaml: "date: \"2026-10-17\"\ndeadline: \"12:00\"\ntables: [{id: t, name: T, seats: 1}]\n",
			want: "at least one first or second course",
		},
		{
			name: "duplicate table",
			yaml: "date: \"2026-10-17\"\ndeadline: \"12:00\"\nsecond_courses: [A]\ntables: [{id: t, name: T, seats: 1}, {id: t, name: U, seats: 1}]\n",
			want: "duplicate table id",
		},
		{
			name: "NUL in second course",
			yaml: "date: \"2026-10-17\"\ndeadline: \"12:00\"\nsecond_courses: [\"A\\0B\"]\ntables: [{id: t, name: T, seats: 1}]\n",
			want: "menu does not match schema",
		},
		{
			name: "NUL in side dish",
			yaml: "date: \"2026-10-17\"\ndeadline: \"12:00\"\nsecond_courses: [A]\nside_dishes: [\"\\0continue\"]\ntables: [{id: t, name: T, seats: 1}]\n",
			want: "menu does not match schema",
		},
		{
			name: "NUL in condiment",
			yaml: "date: \"2026-10-17\"\ndeadline: \"12:00\"\nfirst_courses: [{name: Pasta, condiments: [\"\\0cancel\"]}]\ntables: [{id: t, name: T, seats: 1}]\n",
			want: "menu does not match schema",
		},
		{
			name: "unknown field",
			yaml: "date: \"2026-10-17\"\ndeadline: \"12:00\"\ndesserts: [Cake]\n",
			want: "failed to parse menu YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_InvalidTimezone(t *testing.T) {
	doc := "date: \"2026-10-17\"\ndeadline: \"12:00\"\ntimezone: Mars/Olympus\nsecond_courses: [A]\ntables: [{id: t, name: T, seats: 1}]\n"
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timezone")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validMenuYAML), 0644))

	m, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-17", m.Date)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read menu file")
}
