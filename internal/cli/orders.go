package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/lunchdesk/internal/allocator"
	"github.com/roach88/lunchdesk/internal/order"
	"github.com/roach88/lunchdesk/internal/store"
)

// NewOrdersCommand creates the orders command group.
func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List and rate orders",
	}
	cmd.AddCommand(newOrdersListCommand(rootOpts))
	cmd.AddCommand(newOrdersRateCommand(rootOpts))
	return cmd
}

// OrdersListOptions holds flags for the orders list command.
type OrdersListOptions struct {
	*RootOptions
	MenuID string
	All    bool
}

func newOrdersListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrdersListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the orders of a menu",
		Long: `List the orders placed on the active menu, or on --menu.

Withdrawn orders are hidden unless --all is given.

Example:
  lunchdesk orders list
  lunchdesk orders list --menu 2026-10-17 --all --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrdersList(opts, cmd)
		},
	}

	addDBFlag(cmd)
	cmd.Flags().StringVar(&opts.MenuID, "menu", "", "menu id (default: active menu)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "include withdrawn orders")
	return cmd
}

func runOrdersList(opts *OrdersListOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	logger := newLogger(opts.RootOptions, cfg, cmd.ErrOrStderr())
	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := cmd.Context()
	menuID := opts.MenuID
	if menuID == "" {
		m, err := st.ActiveMenu(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "no active menu", err)
		}
		menuID = m.ID
	}

	orders, err := st.ListOrders(ctx, menuID, opts.All)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list orders", err)
	}

	out := formatter(opts.RootOptions, cmd)
	if opts.Format == "json" {
		return out.Success(orders)
	}
	if len(orders) == 0 {
		return out.Success(fmt.Sprintf("No orders for %s.", menuID))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Orders for %s:\n", menuID)
	for _, o := range orders {
		b.WriteString(formatOrderLine(o))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Total: %d", len(orders))
	return out.Success(b.String())
}

func formatOrderLine(o order.Order) string {
	d := o.Draft()
	line := fmt.Sprintf("  %-10s %-10s %s", o.OwnerID, o.TableID, d.Summary())
	if o.Rating != nil {
		line += fmt.Sprintf(" [rated %d]", *o.Rating)
	}
	if o.CancelledAt != nil {
		line += " [withdrawn]"
	}
	return line
}

// OrdersRateOptions holds flags for the orders rate command.
type OrdersRateOptions struct {
	*RootOptions
	User string
}

func newOrdersRateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrdersRateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rate <order-id> <1-5>",
		Short: "Rate an order",
		Long: `Record a rating from 1 to 5 for an order.

Ratings open at the menu's rating time (the deadline when unset) and each
order can be rated once, by its owner.

Example:
  lunchdesk orders rate 0192f0c4-... 4 --user ada`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrdersRate(opts, args[0], args[1], cmd)
		},
	}

	addDBFlag(cmd)
	cmd.Flags().StringVar(&opts.User, "user", "", "id of the user giving the rating (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runOrdersRate(opts *OrdersRateOptions, orderID, value string, cmd *cobra.Command) error {
	rating, err := strconv.Atoi(value)
	if err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid rating %q", value))
	}

	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	logger := newLogger(opts.RootOptions, cfg, cmd.ErrOrStderr())
	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	alloc := allocator.New(st, allocator.WithLogger(logger))
	if err := alloc.Rate(cmd.Context(), opts.User, orderID, rating); err != nil {
		switch {
		case errors.Is(err, allocator.ErrRatingOutOfRange):
			return WrapExitError(ExitCommandError, "rating rejected", err)
		case errors.Is(err, store.ErrNotFound):
			return NewExitError(ExitFailure, fmt.Sprintf("order %s not found", orderID))
		default:
			return WrapExitError(ExitFailure, "rating rejected", err)
		}
	}

	out := formatter(opts.RootOptions, cmd)
	if opts.Format == "json" {
		return out.Success(map[string]any{"order_id": orderID, "rating": rating})
	}
	return out.Success(fmt.Sprintf("Order %s rated %d.", orderID, rating))
}
