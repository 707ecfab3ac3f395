package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/lunchdesk/internal/menu"
	"github.com/roach88/lunchdesk/internal/order"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testMenu creates a menu with one table "t1" of the given capacity.
func testMenu(id string, capacity int) menu.DailyMenu {
	return menu.DailyMenu{
		ID:       id,
		Date:     "2026-10-17",
		Deadline: time.Date(2026, 10, 17, 13, 0, 0, 0, time.UTC),
		Enabled:  true,
		FirstCourses: []menu.FirstCourseOption{
			{Name: "Pasta", Condiments: []string{"Pesto"}},
		},
		SecondCourses: []string{"Chicken"},
		SideDishes:    []string{"Fries", "Salad"},
		Tables: []menu.Table{
			{ID: "t1", Name: "Window", SeatCapacity: capacity, Enabled: true},
		},
	}
}

func saveTestMenu(t *testing.T, s *Store, m menu.DailyMenu) {
	t.Helper()
	if err := s.SaveMenu(context.Background(), m, true); err != nil {
		t.Fatalf("SaveMenu() failed: %v", err)
	}
}

// createTestOrder creates a first-course order with minimal required fields.
func createTestOrder(id, menuID, ownerID, tableID string) order.Order {
	return order.Order{
		ID:        id,
		MenuID:    menuID,
		OwnerID:   ownerID,
		First:     &order.FirstCourseSelection{Item: "Pasta", Condiment: "Pesto"},
		TableID:   tableID,
		CreatedAt: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC),
	}
}
