package menu

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// FirstCourseOption is a first-course dish and the condiments it may carry.
type FirstCourseOption struct {
	Name       string   `json:"name"`
	Condiments []string `json:"condiments"`
}

// Table is a shared table guests reserve a seat at.
type Table struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SeatCapacity int    `json:"seat_capacity"`
	Enabled      bool   `json:"enabled"`
}

// DailyMenu is the per-day record of orderable items, eligible tables and
// the ordering deadline. Values are treated as immutable snapshots.
type DailyMenu struct {
	ID             string              `json:"id"`
	Date           string              `json:"date"`
	Deadline       time.Time           `json:"deadline"`
	Enabled        bool                `json:"enabled"`
	FirstCourses   []FirstCourseOption `json:"first_courses"`
	SecondCourses  []string            `json:"second_courses"`
	SideDishes     []string            `json:"side_dishes"`
	Tables         []Table             `json:"tables"`
	AdditionalInfo string              `json:"additional_info,omitempty"`

	// RatingOpensAt is when orders on this menu may be rated.
	// Zero means ratings open at the deadline.
	RatingOpensAt time.Time `json:"rating_opens_at,omitempty"`
}

// DeadlineLayout is how deadlines are shown to users.
const DeadlineLayout = "15:04"

// Open reports whether orders are still accepted at now.
func (m *DailyMenu) Open(now time.Time) bool {
	return now.Before(m.Deadline)
}

// DeadlineLabel formats the deadline for user-facing messages.
func (m *DailyMenu) DeadlineLabel() string {
	return m.Deadline.Format(DeadlineLayout)
}

// RatingOpen reports whether the rating window has opened at now.
func (m *DailyMenu) RatingOpen(now time.Time) bool {
	opens := m.RatingOpensAt
	if opens.IsZero() {
		opens = m.Deadline
	}
	return !now.Before(opens)
}

// FirstCourse looks up a first course by name.
func (m *DailyMenu) FirstCourse(name string) (FirstCourseOption, bool) {
	key := Normalize(name)
	for _, fc := range m.FirstCourses {
		if Normalize(fc.Name) == key {
			return fc, true
		}
	}
	return FirstCourseOption{}, false
}

// Table looks up a table by ID.
func (m *DailyMenu) Table(id string) (Table, bool) {
	for _, t := range m.Tables {
		if t.ID == id {
			return t, true
		}
	}
	return Table{}, false
}

// EnabledTables returns the tables guests may currently pick, in menu order.
func (m *DailyMenu) EnabledTables() []Table {
	var out []Table
	for _, t := range m.Tables {
		if t.Enabled {
			out = append(out, t)
		}
	}
	return out
}

// FirstCourseNames returns the first-course dish names in menu order.
func (m *DailyMenu) FirstCourseNames() []string {
	names := make([]string, 0, len(m.FirstCourses))
	for _, fc := range m.FirstCourses {
		names = append(names, fc.Name)
	}
	return names
}

// Normalize returns the comparison key for a dish or table name.
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func contains(set []string, v string) bool {
	key := Normalize(v)
	for _, s := range set {
		if Normalize(s) == key {
			return true
		}
	}
	return false
}
