package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/lunchdesk/internal/menu"
	"github.com/roach88/lunchdesk/internal/order"
)

// SaveMenu inserts or replaces a menu document.
// When activate is true the menu becomes the one ActiveMenu returns and any
// previously active menu is deactivated in the same transaction.
func (s *Store) SaveMenu(ctx context.Context, m menu.DailyMenu, activate bool) error {
	doc, err := marshalMenu(m)
	if err != nil {
		return fmt.Errorf("save menu: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save menu: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if activate {
		if _, err := tx.ExecContext(ctx, `UPDATE menus SET active = 0 WHERE active = 1`); err != nil {
			return fmt.Errorf("save menu: deactivate: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO menus (id, date, document, active, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			document = excluded.document,
			active = CASE WHEN excluded.active = 1 THEN 1 ELSE menus.active END,
			updated_at = excluded.updated_at
	`,
		m.ID,
		m.Date,
		doc,
		boolToInt(activate),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save menu: upsert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save menu: commit: %w", err)
	}
	return nil
}

// SavePrincipal inserts or updates a known user.
func (s *Store) SavePrincipal(ctx context.Context, p Principal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO principals (id, name, enabled)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, enabled = excluded.enabled
	`, p.ID, p.Name, boolToInt(p.Enabled))
	if err != nil {
		return fmt.Errorf("save principal: %w", err)
	}
	return nil
}

// CreateOrder atomically inserts a new order.
//
// The row is only written while the number of active orders for
// (o.MenuID, o.TableID) is below capacity; otherwise ErrTableFull is
// returned and nothing is written. A second active order for the same user
// and menu fails with ErrDuplicateOrder. Any other failure leaves no row.
func (s *Store) CreateOrder(ctx context.Context, o order.Order, capacity int) error {
	cols, err := columnsFor(o)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO orders
		(id, menu_id, owner_id, course, item, condiment, side_dishes, table_id, created_at)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE (
			SELECT COUNT(*) FROM orders
			WHERE menu_id = ? AND table_id = ? AND cancelled_at IS NULL
		) < ?
	`,
		o.ID,
		o.MenuID,
		o.OwnerID,
		cols.course,
		cols.item,
		cols.condiment,
		cols.sideDishes,
		o.TableID,
		formatTime(o.CreatedAt),
		o.MenuID,
		o.TableID,
		capacity,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("create order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create order: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTableFull
	}

	return nil
}

// CancelOrder marks an active order as cancelled, freeing its seat.
// Returns ErrNotFound if no active order has the given ID.
func (s *Store) CancelOrder(ctx context.Context, orderID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE orders SET cancelled_at = ?
		WHERE id = ? AND cancelled_at IS NULL
	`, formatTime(at), orderID)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("cancel order: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRating records the rating of an active order. A rating can only be set
// once; a second call returns ErrAlreadyRated.
func (s *Store) SetRating(ctx context.Context, orderID string, rating int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE orders SET rating = ?
		WHERE id = ? AND rating IS NULL AND cancelled_at IS NULL
	`, rating, orderID)
	if err != nil {
		return fmt.Errorf("set rating: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set rating: rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	o, err := s.Order(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Rating != nil {
		return ErrAlreadyRated
	}
	return ErrNotFound
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
