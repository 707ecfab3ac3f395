package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/lunchdesk/internal/menu"
	"github.com/roach88/lunchdesk/internal/order"
)

// timeLayout is used for every timestamp column.
const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// marshalMenu converts a DailyMenu to JSON TEXT for the document column.
func marshalMenu(m menu.DailyMenu) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal menu: %w", err)
	}
	return string(data), nil
}

func unmarshalMenu(doc string) (menu.DailyMenu, error) {
	var m menu.DailyMenu
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		return menu.DailyMenu{}, fmt.Errorf("unmarshal menu: %w", err)
	}
	return m, nil
}

// orderColumns flattens the course selection into row values.
type orderColumns struct {
	course     string
	item       string
	condiment  string
	sideDishes string
}

func columnsFor(o order.Order) (orderColumns, error) {
	switch {
	case o.First != nil && o.Second == nil:
		return orderColumns{
			course:     string(order.CourseFirst),
			item:       o.First.Item,
			condiment:  o.First.Condiment,
			sideDishes: "[]",
		}, nil
	case o.Second != nil && o.First == nil:
		sides := o.Second.SideDishes
		if sides == nil {
			sides = []string{}
		}
		data, err := json.Marshal(sides)
		if err != nil {
			return orderColumns{}, fmt.Errorf("marshal side dishes: %w", err)
		}
		return orderColumns{
			course:     string(order.CourseSecond),
			item:       o.Second.Item,
			sideDishes: string(data),
		}, nil
	default:
		return orderColumns{}, fmt.Errorf("order %s must have exactly one course", o.ID)
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const orderSelect = `
	SELECT id, menu_id, owner_id, course, item, condiment, side_dishes,
	       table_id, created_at, rating, cancelled_at
	FROM orders`

func scanOrder(row rowScanner) (order.Order, error) {
	var (
		o           order.Order
		course      string
		item        string
		condiment   string
		sidesJSON   string
		createdAt   string
		rating      sql.NullInt64
		cancelledAt sql.NullString
	)

	if err := row.Scan(
		&o.ID, &o.MenuID, &o.OwnerID, &course, &item, &condiment, &sidesJSON,
		&o.TableID, &createdAt, &rating, &cancelledAt,
	); err != nil {
		return order.Order{}, err
	}

	switch order.Course(course) {
	case order.CourseFirst:
		o.First = &order.FirstCourseSelection{Item: item, Condiment: condiment}
	case order.CourseSecond:
		var sides []string
		if err := json.Unmarshal([]byte(sidesJSON), &sides); err != nil {
			return order.Order{}, fmt.Errorf("unmarshal side dishes: %w", err)
		}
		o.Second = &order.SecondCourseSelection{Item: item, SideDishes: sides}
	default:
		return order.Order{}, fmt.Errorf("order %s has unknown course %q", o.ID, course)
	}

	t, err := parseTime(createdAt)
	if err != nil {
		return order.Order{}, err
	}
	o.CreatedAt = t

	if rating.Valid {
		r := int(rating.Int64)
		o.Rating = &r
	}
	if cancelledAt.Valid {
		t, err := parseTime(cancelledAt.String)
		if err != nil {
			return order.Order{}, err
		}
		o.CancelledAt = &t
	}

	return o, nil
}
