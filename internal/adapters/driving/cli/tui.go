package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/intunesync/internal/adapters/driving/tui"
	"github.com/custodia-labs/intunesync/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/intunesync/internal/core/domain"
)

// launchTUI shows the live progress view for job. Replaced in tests.
var launchTUI = runTUI

func runTUI(cmd *cobra.Command, job tui.Job) (result *messages.RunFinished, err error) {
	if !isTerminal(cmd.OutOrStdout()) || !isTerminal(os.Stdin) {
		return nil, fmt.Errorf("%w: --tui needs an interactive terminal", domain.ErrConfiguration)
	}

	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI error: %v", r)
		}
	}()

	result, err = tui.Run(cmd.Context(), tui.NewPorts(syncOrchestrator), job)
	if err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}
	return result, nil
}
