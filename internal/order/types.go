package order

import (
	"fmt"
	"strings"
	"time"
)

// Course identifies which route a flow takes through the menu.
type Course string

const (
	CourseFirst  Course = "first"
	CourseSecond Course = "second"
)

// FirstCourseSelection is a first-course item with an optional condiment.
type FirstCourseSelection struct {
	Item      string `json:"item"`
	Condiment string `json:"condiment,omitempty"`
}

// SecondCourseSelection is a second-course item with zero or more side dishes
// in the order they were picked.
type SecondCourseSelection struct {
	Item       string   `json:"item"`
	SideDishes []string `json:"side_dishes"`
}

// Draft is an order in progress. It is discarded on abort or flow re-entry.
type Draft struct {
	MenuID  string                 `json:"menu_id"`
	OwnerID string                 `json:"owner_id"`
	First   *FirstCourseSelection  `json:"first,omitempty"`
	Second  *SecondCourseSelection `json:"second,omitempty"`
	TableID string                 `json:"table_id,omitempty"`
}

// Course reports which branch the draft populates. Empty when neither or
// both are set.
func (d *Draft) Course() Course {
	switch {
	case d.First != nil && d.Second == nil:
		return CourseFirst
	case d.Second != nil && d.First == nil:
		return CourseSecond
	default:
		return ""
	}
}

// Complete reports whether the draft carries everything the allocator needs.
func (d *Draft) Complete() bool {
	return d.MenuID != "" && d.OwnerID != "" && d.TableID != "" && d.Course() != ""
}

// Clone returns a deep copy so callers can hand the draft across the commit
// boundary without sharing slices.
func (d *Draft) Clone() Draft {
	c := Draft{MenuID: d.MenuID, OwnerID: d.OwnerID, TableID: d.TableID}
	if d.First != nil {
		f := *d.First
		c.First = &f
	}
	if d.Second != nil {
		s := SecondCourseSelection{Item: d.Second.Item}
		s.SideDishes = append([]string{}, d.Second.SideDishes...)
		c.Second = &s
	}
	return c
}

// Summary renders the selection as a single human-readable line.
func (d *Draft) Summary() string {
	switch d.Course() {
	case CourseFirst:
		if d.First.Condiment != "" {
			return fmt.Sprintf("%s with %s", d.First.Item, d.First.Condiment)
		}
		return d.First.Item
	case CourseSecond:
		if len(d.Second.SideDishes) > 0 {
			return fmt.Sprintf("%s with %s", d.Second.Item, strings.Join(d.Second.SideDishes, ", "))
		}
		return d.Second.Item
	default:
		return "(empty)"
	}
}

// Order is a persisted, committed lunch order.
type Order struct {
	ID          string                 `json:"id"`
	OwnerID     string                 `json:"owner_id"`
	MenuID      string                 `json:"menu_id"`
	First       *FirstCourseSelection  `json:"first,omitempty"`
	Second      *SecondCourseSelection `json:"second,omitempty"`
	TableID     string                 `json:"table_id"`
	CreatedAt   time.Time              `json:"created_at"`
	Rating      *int                   `json:"rating,omitempty"`
	CancelledAt *time.Time             `json:"cancelled_at,omitempty"`
}

// Active reports whether the order still occupies a seat.
func (o *Order) Active() bool {
	return o.CancelledAt == nil
}

// Draft returns the selection part of the order as a Draft.
func (o *Order) Draft() Draft {
	d := Draft{MenuID: o.MenuID, OwnerID: o.OwnerID, First: o.First, Second: o.Second, TableID: o.TableID}
	return d.Clone()
}

// MinRating and MaxRating bound the rating scale.
const (
	MinRating = 1
	MaxRating = 5
)
