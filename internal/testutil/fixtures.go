package testutil

import (
	"time"

	"github.com/roach88/lunchdesk/internal/menu"
)

// MenuDate is the date of the fixture menu.
const MenuDate = "2026-10-17"

// Deadline is the fixture menu's ordering deadline (13:00 UTC).
var Deadline = time.Date(2026, 10, 17, 13, 0, 0, 0, time.UTC)

// Morning is a time comfortably before Deadline.
var Morning = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

// Menu returns a fresh fixture menu:
//
//   - first courses: Pasta (Pesto, Tomato), Risotto (no condiments)
//   - second courses: Chicken, Fish
//   - side dishes: Fries, Salad
//   - tables: window (2 seats), patio (4 seats), closed (disabled)
//
// Each call returns independent slices so tests may edit the result.
func Menu() menu.DailyMenu {
	return menu.DailyMenu{
		ID:       MenuDate,
		Date:     MenuDate,
		Deadline: Deadline,
		Enabled:  true,
		FirstCourses: []menu.FirstCourseOption{
			{Name: "Pasta", Condiments: []string{"Pesto", "Tomato"}},
			{Name: "Risotto", Condiments: []string{}},
		},
		SecondCourses: []string{"Chicken", "Fish"},
		SideDishes:    []string{"Fries", "Salad"},
		Tables: []menu.Table{
			{ID: "window", Name: "Window", SeatCapacity: 2, Enabled: true},
			{ID: "patio", Name: "Patio", SeatCapacity: 4, Enabled: true},
			{ID: "closed", Name: "Closed", SeatCapacity: 8, Enabled: false},
		},
	}
}
