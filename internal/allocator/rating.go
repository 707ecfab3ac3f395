package allocator

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/lunchdesk/internal/order"
	"github.com/roach88/lunchdesk/internal/store"
)

// Rating errors.
var (
	ErrRatingOutOfRange = fmt.Errorf("rating must be between %d and %d", order.MinRating, order.MaxRating)
	ErrRatingClosed     = errors.New("ratings are not open yet")
	ErrNotOwner         = errors.New("order belongs to another user")
)

// Rate records a rating for an order owned by userID. Ratings open at the
// menu's rating time and can be given once.
//
// Errors: ErrRatingOutOfRange, ErrRatingClosed, ErrNotOwner,
// store.ErrNotFound, store.ErrAlreadyRated.
func (a *Allocator) Rate(ctx context.Context, userID, orderID string, rating int) error {
	if rating < order.MinRating || rating > order.MaxRating {
		return ErrRatingOutOfRange
	}

	o, err := a.store.Order(ctx, orderID)
	if err != nil {
		return err
	}
	if o.OwnerID != userID {
		return ErrNotOwner
	}
	if !o.Active() {
		return store.ErrNotFound
	}

	m, err := a.store.Menu(ctx, o.MenuID)
	if err != nil {
		return fmt.Errorf("load menu %s: %w", o.MenuID, err)
	}
	if !m.RatingOpen(a.clock.Now()) {
		return ErrRatingClosed
	}

	if err := a.store.SetRating(ctx, orderID, rating); err != nil {
		return err
	}

	a.logger.Info("order rated",
		"event", "order_rated",
		"order_id", orderID,
		"user_id", userID,
		"rating", rating,
	)
	return nil
}
