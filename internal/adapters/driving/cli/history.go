package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/intunesync/internal/core/domain"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history [report-id]",
	Short: "Show past sync runs",
	Long: `Without an argument, lists recent runs newest first.
With a report ID, shows the outcome for every device in that run.

History is recorded while audit.enabled is true.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", domain.DefaultHistoryListLimit, "maximum number of runs to list")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if reportService == nil {
		return errors.New("report service not configured")
	}

	if len(args) == 1 {
		return showReport(cmd, args[0])
	}

	reports, err := reportService.List(cmd.Context(), historyLimit)
	if err != nil {
		return historyError(err)
	}

	if historyJSON {
		if reports == nil {
			reports = []domain.ResultReport{}
		}
		return printJSON(cmd, reports)
	}

	renderReportList(cmd.OutOrStdout(), outputStyles(cmd), reports)
	return nil
}

func showReport(cmd *cobra.Command, id string) error {
	report, err := reportService.Get(cmd.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("no run with id %q", id)
	}
	if err != nil {
		return historyError(err)
	}

	if historyJSON {
		return printJSON(cmd, report)
	}

	renderReport(cmd.OutOrStdout(), outputStyles(cmd), report)
	return nil
}

func historyError(err error) error {
	if errors.Is(err, domain.ErrAuditUnavailable) {
		return fmt.Errorf("%w: enable it with 'intunesync config set audit.enabled true'", err)
	}
	return fmt.Errorf("failed to read history: %w", err)
}
