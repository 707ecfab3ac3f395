package allocator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/lunchdesk/internal/clock"
	"github.com/roach88/lunchdesk/internal/guard"
	"github.com/roach88/lunchdesk/internal/menu"
	"github.com/roach88/lunchdesk/internal/notify"
	"github.com/roach88/lunchdesk/internal/order"
	"github.com/roach88/lunchdesk/internal/store"
	"github.com/roach88/lunchdesk/internal/token"
)

// CommitLockName is the lock every commit attempt shares.
const CommitLockName = "order-commit"

// Store is the persistence the allocator needs. *store.Store implements it.
type Store interface {
	ActiveMenu(ctx context.Context) (menu.DailyMenu, error)
	Menu(ctx context.Context, id string) (menu.DailyMenu, error)
	TableUsageCounts(ctx context.Context, menuID string) (map[string]int, error)
	FindActiveOrderForUser(ctx context.Context, userID, menuID string) (*order.Order, error)
	CreateOrder(ctx context.Context, o order.Order, capacity int) error
	CancelOrder(ctx context.Context, orderID string, at time.Time) error
	Order(ctx context.Context, id string) (order.Order, error)
	SetRating(ctx context.Context, orderID string, rating int) error
}

// ValidateFunc checks a draft against a menu snapshot.
type ValidateFunc func(draft order.Draft, snapshot menu.DailyMenu) error

// Allocator serializes order commits and enforces table capacity.
//
// Thread-safety: all methods are safe for concurrent use.
type Allocator struct {
	store    Store
	locks    *guard.Registry
	clock    clock.Clock
	ids      token.Generator
	validate ValidateFunc
	notifier notify.Notifier
	logger   *slog.Logger
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithClock sets the clock used for deadline checks and timestamps.
func WithClock(c clock.Clock) Option {
	return func(a *Allocator) { a.clock = c }
}

// WithIDGenerator sets the order ID generator.
func WithIDGenerator(g token.Generator) Option {
	return func(a *Allocator) { a.ids = g }
}

// WithNotifier sets where successful commits are announced.
func WithNotifier(n notify.Notifier) Option {
	return func(a *Allocator) { a.notifier = n }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Allocator) { a.logger = l }
}

// WithLocks shares a lock registry with other components.
func WithLocks(r *guard.Registry) Option {
	return func(a *Allocator) { a.locks = r }
}

// WithValidator replaces menu.Validate.
func WithValidator(v ValidateFunc) Option {
	return func(a *Allocator) { a.validate = v }
}

// New creates an Allocator over s.
//
// Defaults: real clock, UUIDv7 order IDs, menu.Validate, notifications
// discarded, slog.Default logger, private lock registry.
func New(s Store, opts ...Option) *Allocator {
	a := &Allocator{
		store:    s,
		locks:    guard.NewRegistry(),
		clock:    clock.Real(),
		ids:      token.UUIDv7Generator{},
		validate: menu.Validate,
		notifier: notify.Discard{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Commit persists draft as a new Order if, at this instant and against the
// authoritative menu, it is valid, on time, unique for the user, and its
// table has a free seat.
//
// Errors are *order.Error values:
//   - VALIDATION: draft incomplete or inconsistent with the reloaded menu
//   - DEADLINE_EXCEEDED: now >= reloaded deadline
//   - ALREADY_ORDERED: the user already holds an active order
//   - TABLE_FULL: no free seat; the caller may offer another table
//   - PERSISTENCE: storage failure; no order was written
func (a *Allocator) Commit(ctx context.Context, draft order.Draft) (order.Order, error) {
	if !draft.Complete() {
		return order.Order{}, order.NewValidationError("the order is incomplete")
	}

	o, err := a.commitLocked(ctx, draft.Clone())
	if err != nil {
		a.logCommitFailure(draft, err)
		return order.Order{}, err
	}

	a.logger.Info("order committed",
		"event", "order_committed",
		"order_id", o.ID,
		"user_id", o.OwnerID,
		"menu_id", o.MenuID,
		"table_id", o.TableID,
	)

	// Outside the lock; Notify must not block.
	a.notifier.Notify(ctx, notify.Event{
		Kind:    notify.KindOrderCommitted,
		OrderID: o.ID,
		UserID:  o.OwnerID,
		MenuID:  o.MenuID,
		TableID: o.TableID,
		Summary: draft.Summary(),
		At:      o.CreatedAt,
	})

	return o, nil
}

// commitLocked runs the critical section. The deferred unlock covers every
// return and panic.
func (a *Allocator) commitLocked(ctx context.Context, draft order.Draft) (order.Order, error) {
	unlock, err := a.locks.Lock(ctx, CommitLockName)
	if err != nil {
		return order.Order{}, order.NewPersistenceError(fmt.Errorf("acquire %s lock: %w", CommitLockName, err))
	}
	defer unlock()

	fresh, err := a.reloadMenu(ctx)
	if err != nil {
		return order.Order{}, err
	}

	if err := a.validate(draft, fresh); err != nil {
		return order.Order{}, err
	}

	now := a.clock.Now()
	if !fresh.Open(now) {
		return order.Order{}, order.NewDeadlineError(fresh.DeadlineLabel())
	}

	existing, err := a.store.FindActiveOrderForUser(ctx, draft.OwnerID, fresh.ID)
	if err != nil {
		return order.Order{}, order.NewPersistenceError(err)
	}
	if existing != nil {
		return order.Order{}, alreadyOrdered(existing.ID)
	}

	table, ok := fresh.Table(draft.TableID)
	if !ok {
		// Validate already checks this; keep the lookup total.
		return order.Order{}, order.NewValidationError(fmt.Sprintf("table %q is no longer available", draft.TableID))
	}

	counts, err := a.store.TableUsageCounts(ctx, fresh.ID)
	if err != nil {
		return order.Order{}, order.NewPersistenceError(err)
	}
	if used := counts[table.ID]; used >= table.SeatCapacity {
		return order.Order{}, order.NewTableFullError(table.ID, used, table.SeatCapacity)
	}

	o := order.Order{
		ID:        a.ids.Generate(),
		OwnerID:   draft.OwnerID,
		MenuID:    fresh.ID,
		First:     draft.First,
		Second:    draft.Second,
		TableID:   table.ID,
		CreatedAt: now,
	}

	switch err := a.store.CreateOrder(ctx, o, table.SeatCapacity); {
	case err == nil:
		return o, nil
	case errors.Is(err, store.ErrTableFull):
		return order.Order{}, order.NewTableFullError(table.ID, table.SeatCapacity, table.SeatCapacity)
	case errors.Is(err, store.ErrDuplicateOrder):
		return order.Order{}, alreadyOrdered("")
	default:
		return order.Order{}, order.NewPersistenceError(err)
	}
}

// reloadMenu fetches the active menu straight from the store.
func (a *Allocator) reloadMenu(ctx context.Context) (menu.DailyMenu, error) {
	fresh, err := a.store.ActiveMenu(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return menu.DailyMenu{}, order.NewNoMenuError()
	}
	if err != nil {
		return menu.DailyMenu{}, order.NewPersistenceError(err)
	}
	return fresh, nil
}

func (a *Allocator) logCommitFailure(draft order.Draft, err error) {
	attrs := []any{
		"event", "order_rejected",
		"code", string(order.CodeOf(err)),
		"user_id", draft.OwnerID,
		"menu_id", draft.MenuID,
		"table_id", draft.TableID,
		"error", err,
	}
	if order.IsPersistence(err) {
		a.logger.Error("order commit failed", attrs...)
		return
	}
	a.logger.Info("order commit rejected", attrs...)
}

func alreadyOrdered(orderID string) *order.Error {
	e := &order.Error{
		Code:    order.ErrCodeAlreadyOrdered,
		Message: "you already have an order for today",
	}
	if orderID != "" {
		e.Details = map[string]string{"order_id": orderID}
	}
	return e
}
