package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/lunchdesk/internal/menu"
)

// NewMenuCommand creates the menu command group.
func NewMenuCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Load and inspect daily menus",
	}
	cmd.AddCommand(newMenuLoadCommand(rootOpts))
	cmd.AddCommand(newMenuShowCommand(rootOpts))
	return cmd
}

// MenuLoadOptions holds flags for the menu load command.
type MenuLoadOptions struct {
	*RootOptions
	Inactive bool
}

func newMenuLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MenuLoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <menu.yaml>",
		Short: "Load a menu file into the database",
		Long: `Check a YAML menu file against the menu schema and store it.

The loaded menu becomes the active menu unless --inactive is given.
Loading a file with the same id again replaces the stored menu; orders
already placed are kept and checked again at their next commit.

Example:
  lunchdesk menu load ./menus/2026-10-17.yaml --db ./lunchdesk.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenuLoad(opts, args[0], cmd)
		},
	}

	addDBFlag(cmd)
	cmd.Flags().BoolVar(&opts.Inactive, "inactive", false, "store the menu without activating it")
	return cmd
}

func runMenuLoad(opts *MenuLoadOptions, path string, cmd *cobra.Command) error {
	m, err := menu.LoadFile(path)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid menu", err)
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

	if err := st.SaveMenu(cmd.Context(), m, !opts.Inactive); err != nil {
		return WrapExitError(ExitFailure, "failed to save menu", err)
	}

	out := formatter(opts.RootOptions, cmd)
	out.VerboseLog("menu %s: %d first courses, %d second courses, %d tables, deadline %s",
		m.ID, len(m.FirstCourses), len(m.SecondCourses), len(m.Tables), m.Deadline.Format(time.RFC3339))
	if opts.Format == "json" {
		return out.Success(map[string]any{"id": m.ID, "active": !opts.Inactive})
	}
	state := "active"
	if opts.Inactive {
		state = "inactive"
	}
	return out.Success(fmt.Sprintf("Menu %s loaded (%s)", m.ID, state))
}

func newMenuShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [menu-id]",
		Short: "Show the active menu or a menu by id",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runMenuShow(rootOpts, id, cmd)
		},
	}
	addDBFlag(cmd)
	return cmd
}

func runMenuShow(opts *RootOptions, id string, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts, cmd)
	if err != nil {
		return err
	}
	logger := newLogger(opts, cfg, cmd.ErrOrStderr())
	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := cmd.Context()
	var m menu.DailyMenu
	if id == "" {
		m, err = st.ActiveMenu(ctx)
	} else {
		m, err = st.Menu(ctx, id)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "menu not found", err)
	}

	usage, err := st.TableUsageCounts(ctx, m.ID)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to count orders", err)
	}

	out := formatter(opts, cmd)
	if opts.Format == "json" {
		return out.Success(map[string]any{"menu": m, "usage": usage})
	}
	return out.Success(renderMenu(m, usage))
}

func renderMenu(m menu.DailyMenu, usage map[string]int) string {
	var b strings.Builder
	status := "enabled"
	if !m.Enabled {
		status = "disabled"
	}
	fmt.Fprintf(&b, "Menu %s (%s), orders close at %s\n", m.ID, status, m.Deadline.Format(time.RFC3339))

	if len(m.FirstCourses) > 0 {
		b.WriteString("\nFirst courses:\n")
		for _, fc := range m.FirstCourses {
			if len(fc.Condiments) > 0 {
				fmt.Fprintf(&b, "  %s (%s)\n", fc.Name, strings.Join(fc.Condiments, ", "))
			} else {
				fmt.Fprintf(&b, "  %s\n", fc.Name)
			}
		}
	}
	if len(m.SecondCourses) > 0 {
		b.WriteString("\nSecond courses:\n")
		for _, sc := range m.SecondCourses {
			fmt.Fprintf(&b, "  %s\n", sc)
		}
	}
	if len(m.SideDishes) > 0 {
		fmt.Fprintf(&b, "\nSide dishes: %s\n", strings.Join(m.SideDishes, ", "))
	}

	b.WriteString("\nTables:\n")
	for _, t := range m.Tables {
		if !t.Enabled {
			fmt.Fprintf(&b, "  %-10s %s, closed\n", t.ID, t.Name)
			continue
		}
		fmt.Fprintf(&b, "  %-10s %s, %d/%d seats taken\n", t.ID, t.Name, usage[t.ID], t.SeatCapacity)
	}

	if m.AdditionalInfo != "" {
		fmt.Fprintf(&b, "\n%s\n", m.AdditionalInfo)
	}
	return strings.TrimRight(b.String(), "\n")
}
