package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/lunchdesk/internal/order"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// evaluate checks the assertions against the final state and returns one
// message per failure.
func (h *Harness) evaluate(ctx context.Context, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := h.assert(ctx, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return failures
}

func (h *Harness) assert(ctx context.Context, a Assertion) error {
	switch a.Type {
	case AssertOrderCount:
		return h.assertOrderCount(ctx, a)
	case AssertOrder:
		return h.assertOrder(ctx, a)
	case AssertNoOrder:
		o, err := h.store.FindActiveOrderForUser(ctx, a.User, h.menuID)
		if err != nil {
			return err
		}
		if o != nil {
			return &AssertionError{Type: a.Type, Expected: "no active order for " + a.User, Actual: describe(*o)}
		}
		return nil
	case AssertSessionState:
		state, err := h.state(ctx, a.User)
		if err != nil {
			return err
		}
		if string(state) != a.State {
			return &AssertionError{Type: a.Type, Expected: a.State, Actual: string(state)}
		}
		return nil
	case AssertStateCount:
		n := 0
		for _, u := range h.users {
			state, err := h.state(ctx, u)
			if err != nil {
				return err
			}
			if string(state) == a.State {
				n++
			}
		}
		if n != *a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d sessions in %s", *a.Count, a.State),
				Actual:   fmt.Sprintf("%d", n),
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertOrderCount counts active orders on the current menu, optionally
// at one table.
func (h *Harness) assertOrderCount(ctx context.Context, a Assertion) error {
	orders, err := h.store.ListOrders(ctx, h.menuID, false)
	if err != nil {
		return err
	}
	n := 0
	for _, o := range orders {
		if a.Table == "" || o.TableID == a.Table {
			n++
		}
	}
	if n != *a.Count {
		where := ""
		if a.Table != "" {
			where = " at " + a.Table
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d orders%s", *a.Count, where),
			Actual:   fmt.Sprintf("%d", n),
		}
	}
	return nil
}

// assertOrder checks the user's active order; unset fields match anything.
func (h *Harness) assertOrder(ctx context.Context, a Assertion) error {
	o, err := h.store.FindActiveOrderForUser(ctx, a.User, h.menuID)
	if err != nil {
		return err
	}
	if o == nil {
		return &AssertionError{Type: a.Type, Expected: "an active order for " + a.User, Actual: "none"}
	}

	var mismatches []string
	if a.Table != "" && o.TableID != a.Table {
		mismatches = append(mismatches, "table "+o.TableID)
	}
	if a.Item != "" && itemOf(*o) != a.Item {
		mismatches = append(mismatches, "item "+itemOf(*o))
	}
	if a.Condiment != "" && (o.First == nil || o.First.Condiment != a.Condiment) {
		mismatches = append(mismatches, "condiment mismatch")
	}
	if a.Sides != nil {
		var sides []string
		if o.Second != nil {
			sides = o.Second.SideDishes
		}
		if !equalStrings(sides, a.Sides) {
			mismatches = append(mismatches, fmt.Sprintf("sides %v", sides))
		}
	}

	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s %s at %s", a.User, a.Item, a.Table),
			Actual:   describe(*o) + " (" + strings.Join(mismatches, ", ") + ")",
		}
	}
	return nil
}

func itemOf(o order.Order) string {
	switch {
	case o.First != nil:
		return o.First.Item
	case o.Second != nil:
		return o.Second.Item
	default:
		return ""
	}
}

func describe(o order.Order) string {
	return fmt.Sprintf("%s: %s at %s", o.OwnerID, itemOf(o), o.TableID)
}
