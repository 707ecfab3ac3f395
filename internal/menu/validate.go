package menu

import (
	"fmt"

	"github.com/roach88/lunchdesk/internal/order"
)

// Validate checks a draft against a menu snapshot.
//
// It returns nil when the draft can be committed against snapshot, or an
// *order.Error with code VALIDATION naming the first offending field. The
// allocator calls it again on a freshly reloaded menu inside the commit
// critical section; a draft that passed against an older snapshot can still
// fail here.
func Validate(draft order.Draft, snapshot DailyMenu) error {
	if draft.MenuID != snapshot.ID {
		return order.NewValidationError(fmt.Sprintf("the order belongs to menu %q, today's menu is %q", draft.MenuID, snapshot.ID))
	}
	if !snapshot.Enabled {
		return order.NewValidationError("today's menu is not available")
	}

	switch {
	case draft.First != nil && draft.Second != nil:
		return order.NewValidationError("an order must contain either a first or a second course, not both")
	case draft.First == nil && draft.Second == nil:
		return order.NewValidationError("an order must contain a first or a second course")
	case draft.First != nil:
		if err := validateFirst(draft.First, snapshot); err != nil {
			return err
		}
	default:
		if err := validateSecond(draft.Second, snapshot); err != nil {
			return err
		}
	}

	if draft.TableID != "" {
		t, ok := snapshot.Table(draft.TableID)
		if !ok {
			return order.NewValidationError(fmt.Sprintf("table %q is no longer available", draft.TableID))
		}
		if !t.Enabled {
			return order.NewValidationError(fmt.Sprintf("table %q is closed today", t.Name))
		}
	}

	return nil
}

func validateFirst(sel *order.FirstCourseSelection, snapshot DailyMenu) error {
	fc, ok := snapshot.FirstCourse(sel.Item)
	if !ok {
		return order.NewValidationError(fmt.Sprintf("%q is no longer on the menu", sel.Item))
	}
	if sel.Condiment != "" && !contains(fc.Condiments, sel.Condiment) {
		return order.NewValidationError(fmt.Sprintf("condiment %q is no longer available for %q", sel.Condiment, fc.Name))
	}
	return nil
}

func validateSecond(sel *order.SecondCourseSelection, snapshot DailyMenu) error {
	if !contains(snapshot.SecondCourses, sel.Item) {
		return order.NewValidationError(fmt.Sprintf("%q is no longer on the menu", sel.Item))
	}
	seen := make(map[string]bool, len(sel.SideDishes))
	for _, side := range sel.SideDishes {
		if !contains(snapshot.SideDishes, side) {
			return order.NewValidationError(fmt.Sprintf("side dish %q is no longer available", side))
		}
		key := Normalize(side)
		if seen[key] {
			return order.NewValidationError(fmt.Sprintf("side dish %q was picked twice", side))
		}
		seen[key] = true
	}
	return nil
}
