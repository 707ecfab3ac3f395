package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/lunchdesk/internal/menu"
	"github.com/roach88/lunchdesk/internal/order"
)

// Principal is an identified user allowed to talk to the service.
type Principal struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// ActiveMenu returns the currently active menu.
// Returns ErrNotFound if no menu has been activated.
func (s *Store) ActiveMenu(ctx context.Context) (menu.DailyMenu, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `
		SELECT document FROM menus WHERE active = 1 LIMIT 1
	`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return menu.DailyMenu{}, ErrNotFound
	}
	if err != nil {
		return menu.DailyMenu{}, fmt.Errorf("read active menu: %w", err)
	}
	return unmarshalMenu(doc)
}

// Menu returns a menu by ID. Returns ErrNotFound if it does not exist.
func (s *Store) Menu(ctx context.Context, id string) (menu.DailyMenu, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM menus WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return menu.DailyMenu{}, ErrNotFound
	}
	if err != nil {
		return menu.DailyMenu{}, fmt.Errorf("read menu %s: %w", id, err)
	}
	return unmarshalMenu(doc)
}

// TableUsageCounts returns the number of active orders per table for a menu.
// Tables without orders are absent from the map.
func (s *Store) TableUsageCounts(ctx context.Context, menuID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT table_id, COUNT(*) FROM orders
		WHERE menu_id = ? AND cancelled_at IS NULL
		GROUP BY table_id
		ORDER BY table_id
	`, menuID)
	if err != nil {
		return nil, fmt.Errorf("query table usage: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var tableID string
		var n int
		if err := rows.Scan(&tableID, &n); err != nil {
			return nil, fmt.Errorf("scan table usage: %w", err)
		}
		counts[tableID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table usage: %w", err)
	}
	return counts, nil
}

// FindActiveOrderForUser returns the user's active order for a menu, or nil
// if there is none.
func (s *Store) FindActiveOrderForUser(ctx context.Context, userID, menuID string) (*order.Order, error) {
	row := s.db.QueryRowContext(ctx, orderSelect+`
		WHERE owner_id = ? AND menu_id = ? AND cancelled_at IS NULL
		LIMIT 1
	`, userID, menuID)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active order: %w", err)
	}
	return &o, nil
}

// Order returns an order by ID, cancelled or not.
// Returns ErrNotFound if it does not exist.
func (s *Store) Order(ctx context.Context, id string) (order.Order, error) {
	row := s.db.QueryRowContext(ctx, orderSelect+` WHERE id = ?`, id)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return order.Order{}, ErrNotFound
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("read order %s: %w", id, err)
	}
	return o, nil
}

// ListOrders returns the orders of a menu ordered by creation time.
// Cancelled orders are included only when includeCancelled is true.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ListOrders(ctx context.Context, menuID string, includeCancelled bool) ([]order.Order, error) {
	query := orderSelect + ` WHERE menu_id = ?`
	if !includeCancelled {
		query += ` AND cancelled_at IS NULL`
	}
	query += ` ORDER BY created_at ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, menuID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []order.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

// Principal returns a known user. Returns ErrNotFound if unknown.
func (s *Store) Principal(ctx context.Context, id string) (Principal, error) {
	var p Principal
	var enabled int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, enabled FROM principals WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return Principal{}, ErrNotFound
	}
	if err != nil {
		return Principal{}, fmt.Errorf("read principal %s: %w", id, err)
	}
	p.Enabled = enabled == 1
	return p, nil
}
