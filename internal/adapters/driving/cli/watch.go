package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/intunesync/internal/adapters/driving/watch"
	"github.com/custodia-labs/intunesync/internal/logger"
)

var watchColumn string

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Sync device lists dropped into a folder",
	Long: `Watches a folder and runs a name sync for every .txt or .csv file that
appears in it. Files already in the folder are processed first.

A processed file is renamed to <file>.done, or to <file>.failed when it
could not be read or the device list could not be fetched. One file is
processed at a time. Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchColumn, "column", "c", "", "CSV column holding device names (default watch.column)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	st := outputStyles(cmd)
	out := cmd.OutOrStdout()
	logger.SetTimestamps(true)
	defer logger.SetTimestamps(false)

	w, err := watch.New(watch.Config{
		Dir:      args[0],
		Column:   csvColumn(watchColumn),
		Sync:     syncOrchestrator,
		Progress: progressPrinter(out, st),
		OnResult: func(res watch.Result) {
			name := filepath.Base(res.Path)
			switch {
			case res.Err != nil:
				fmt.Fprintln(out, st.Error.Render(fmt.Sprintf("%s: %v", name, res.Err)))
			case res.Report != nil:
				renderSummary(out, st, res.Report)
			}
			if res.MovedTo != "" {
				fmt.Fprintln(out, st.Muted.Render(fmt.Sprintf("%s -> %s", name, filepath.Base(res.MovedTo))))
			}
		},
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", args[0])
	return w.Run(cmd.Context())
}
