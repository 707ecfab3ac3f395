package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/lunchdesk/internal/store"
)

// NewUserCommand creates the user command group.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage known users",
	}
	cmd.AddCommand(newUserAddCommand(rootOpts))
	return cmd
}

// UserAddOptions holds flags for the user add command.
type UserAddOptions struct {
	*RootOptions
	Name     string
	Disabled bool
}

func newUserAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UserAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <user-id>",
		Short: "Register or update a user",
		Long: `Register a user so their updates are accepted.

The id is the identifier the messaging transport sends as user_id.
Adding an existing id updates its name and enabled flag.

Example:
  lunchdesk user add 42 --name "Ada"
  lunchdesk user add 42 --disabled`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserAdd(opts, args[0], cmd)
		},
	}

	addDBFlag(cmd)
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name (default: the id)")
	cmd.Flags().BoolVar(&opts.Disabled, "disabled", false, "register the user as disabled")
	return cmd
}

func runUserAdd(opts *UserAddOptions, id string, cmd *cobra.Command) error {
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

	p := store.Principal{ID: id, Name: opts.Name, Enabled: !opts.Disabled}
	if p.Name == "" {
		p.Name = id
	}
	if err := st.SavePrincipal(cmd.Context(), p); err != nil {
		return WrapExitError(ExitFailure, "failed to save user", err)
	}

	out := formatter(opts.RootOptions, cmd)
	if opts.Format == "json" {
		return out.Success(p)
	}
	state := "enabled"
	if !p.Enabled {
		state = "disabled"
	}
	return out.Success(fmt.Sprintf("User %s (%s) %s.", p.ID, p.Name, state))
}
