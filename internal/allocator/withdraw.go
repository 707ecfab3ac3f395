package allocator

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/lunchdesk/internal/notify"
	"github.com/roach88/lunchdesk/internal/order"
	"github.com/roach88/lunchdesk/internal/store"
)

// ErrNoActiveOrder is returned by Withdraw when the user has nothing to withdraw.
var ErrNoActiveOrder = errors.New("no active order")

// Withdraw cancels the user's active order on the active menu, freeing the
// seat. It is refused once the deadline has passed.
//
// Withdraw takes the commit lock so a seat is never freed in the middle of
// another user's capacity check.
func (a *Allocator) Withdraw(ctx context.Context, userID string) (order.Order, error) {
	o, err := a.withdrawLocked(ctx, userID)
	if err != nil {
		return order.Order{}, err
	}

	a.logger.Info("order withdrawn",
		"event", "order_withdrawn",
		"order_id", o.ID,
		"user_id", o.OwnerID,
		"table_id", o.TableID,
	)
	a.notifier.Notify(ctx, notify.Event{
		Kind:    notify.KindOrderWithdrawn,
		OrderID: o.ID,
		UserID:  o.OwnerID,
		MenuID:  o.MenuID,
		TableID: o.TableID,
		At:      *o.CancelledAt,
	})
	return o, nil
}

func (a *Allocator) withdrawLocked(ctx context.Context, userID string) (order.Order, error) {
	unlock, err := a.locks.Lock(ctx, CommitLockName)
	if err != nil {
		return order.Order{}, order.NewPersistenceError(fmt.Errorf("acquire %s lock: %w", CommitLockName, err))
	}
	defer unlock()

	fresh, err := a.reloadMenu(ctx)
	if err != nil {
		return order.Order{}, err
	}

	now := a.clock.Now()
	if !fresh.Open(now) {
		return order.Order{}, order.NewDeadlineError(fresh.DeadlineLabel())
	}

	existing, err := a.store.FindActiveOrderForUser(ctx, userID, fresh.ID)
	if err != nil {
		return order.Order{}, order.NewPersistenceError(err)
	}
	if existing == nil {
		return order.Order{}, ErrNoActiveOrder
	}

	if err := a.store.CancelOrder(ctx, existing.ID, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return order.Order{}, ErrNoActiveOrder
		}
		return order.Order{}, order.NewPersistenceError(err)
	}

	existing.CancelledAt = &now
	return *existing, nil
}
