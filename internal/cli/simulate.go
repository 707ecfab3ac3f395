package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/lunchdesk/internal/config"
	"github.com/roach88/lunchdesk/internal/harness"
)

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "Play a scripted conversation and print the transcript",
		Long: `Run a conversation scenario against an in-memory service and print
what each user saw.

The run uses a fake clock and sequential tokens, so sequential scenarios
print the same transcript every time. Nothing is written to the database.

Exit codes:
  0 - All expectations held
  1 - An expectation or assertion failed
  2 - Command error (invalid scenario, missing menu, etc.)

Example:
  lunchdesk simulate ./scenarios/first_course.yaml
  lunchdesk simulate ./scenarios/capacity_race.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runSimulate(opts *RootOptions, path string, cmd *cobra.Command) error {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	logs := io.Discard
	if opts.Verbose {
		logs = cmd.ErrOrStderr()
	}
	logger := newLogger(opts, config.Default(), logs)

	result, err := harness.RunWithLogger(scenario, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Pass {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_SCENARIO_FAILED",
				Message: fmt.Sprintf("%d check(s) failed", len(result.Errors)),
			}
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	} else {
		if _, err := w.Write(harness.Render(scenario.Name, result)); err != nil {
			return err
		}
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}
