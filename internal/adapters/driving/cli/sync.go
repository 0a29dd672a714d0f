package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/intunesync/internal/adapters/driving/tui"
	"github.com/custodia-labs/intunesync/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driving"
	"github.com/custodia-labs/intunesync/internal/input"
	"github.com/custodia-labs/intunesync/internal/logger"
)

var (
	syncJSON        bool
	syncTUI         bool
	syncFailOnError bool
	syncFile        string
	syncColumn      string
	syncPlatforms   []string
	syncListColumns bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Trigger a sync on managed devices",
	Long: `Asks managed devices to check in with Intune.

Devices are processed one at a time, spaced by sync.delay_ms. Press Ctrl+C
to stop early; devices already processed keep their result.`,
}

var syncDevicesCmd = &cobra.Command{
	Use:   "devices [names...]",
	Short: "Sync devices by exact name",
	Long: `Syncs each named device in the order given. Names are matched exactly
against the device name; a name without a match is reported as not found.

Names can be passed as arguments (comma separated lists are split), read
from a text file with one name per line, or from a CSV column.

Examples:
  intunesync sync devices PC-001 PC-002
  intunesync sync devices --file devices.txt
  intunesync sync devices --file export.csv --column "Device name"
  intunesync sync devices --file export.csv --list-columns`,
	RunE: runSyncDevices,
}

var syncPlatformCmd = &cobra.Command{
	Use:   "platform <platform>",
	Short: "Sync every device of one platform",
	Long: `Syncs every managed device of a platform.
Platforms: Windows, macOS, iOS (includes iPadOS), Android, Linux.`,
	Args: cobra.ExactArgs(1),
	RunE: runSyncPlatform,
}

var syncAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Sync every device, one platform at a time",
	Long: `Runs a platform sync for each platform in turn. A platform whose device
list cannot be fetched is reported and the remaining platforms continue.

The platform list comes from --platforms, then sync.platforms, then the
default (Windows, macOS, iOS, Android).`,
	Args: cobra.NoArgs,
	RunE: runSyncAll,
}

func init() {
	syncCmd.PersistentFlags().BoolVar(&syncJSON, "json", false, "print the report as JSON")
	syncCmd.PersistentFlags().BoolVar(&syncTUI, "tui", false, "show a live progress view")
	syncCmd.PersistentFlags().BoolVar(&syncFailOnError, "fail-on-error", false,
		"exit non-zero when any device fails or is not found")

	syncDevicesCmd.Flags().StringVarP(&syncFile, "file", "f", "", "read names from a .txt or .csv file")
	syncDevicesCmd.Flags().StringVarP(&syncColumn, "column", "c", "", "CSV column holding device names (default watch.column)")
	syncDevicesCmd.Flags().BoolVar(&syncListColumns, "list-columns", false, "print the CSV header of --file and exit")
	syncAllCmd.Flags().StringSliceVar(&syncPlatforms, "platforms", nil, "platforms to sync, in order")

	syncCmd.AddCommand(syncDevicesCmd)
	syncCmd.AddCommand(syncPlatformCmd)
	syncCmd.AddCommand(syncAllCmd)
	rootCmd.AddCommand(syncCmd)
}

func runSyncDevices(cmd *cobra.Command, args []string) error {
	if syncListColumns {
		return printColumns(cmd, syncFile)
	}

	var names []string
	for _, arg := range args {
		names = append(names, input.ParseList(arg)...)
	}

	if syncFile != "" {
		fromFile, err := input.ReadFile(syncFile, csvColumn(syncColumn))
		if err != nil {
			return err
		}
		names = append(names, fromFile...)
	}

	if len(names) == 0 {
		return fmt.Errorf("%w: no device names given (pass names or --file)", domain.ErrConfiguration)
	}

	return runJob(cmd, tui.Job{Kind: tui.JobNames, Names: names})
}

func runSyncPlatform(cmd *cobra.Command, args []string) error {
	platform, err := domain.ParsePlatform(args[0])
	if err != nil {
		return err
	}
	return runJob(cmd, tui.Job{Kind: tui.JobPlatform, Platform: platform})
}

func runSyncAll(cmd *cobra.Command, _ []string) error {
	platforms, err := selectedPlatforms(syncPlatforms)
	if err != nil {
		return err
	}
	return runJob(cmd, tui.Job{Kind: tui.JobAllPlatforms, Platforms: platforms})
}

// printColumns lists the header of a CSV file, one column per line.
func printColumns(cmd *cobra.Command, path string) error {
	if path == "" || !input.IsCSV(path) {
		return fmt.Errorf("%w: --list-columns needs a .csv --file", domain.ErrConfiguration)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", domain.ErrConfiguration, path, err)
	}
	defer f.Close()

	columns, err := input.Columns(f)
	if err != nil {
		return err
	}
	for _, c := range columns {
		fmt.Fprintln(cmd.OutOrStdout(), c)
	}
	return nil
}

// selectedPlatforms resolves the flag value, then the configured list.
func selectedPlatforms(flag []string) ([]domain.Platform, error) {
	if len(flag) > 0 {
		return domain.ParsePlatforms(flag)
	}
	if settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return nil, fmt.Errorf("failed to get settings: %w", err)
		}
		if len(settings.Sync.Platforms) > 0 {
			return settings.Sync.Platforms, nil
		}
	}
	return domain.DefaultPlatforms(), nil
}

// csvColumn resolves the CSV column from the flag, then watch.column.
func csvColumn(flag string) string {
	if flag != "" {
		return flag
	}
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			return settings.Watch.Column
		}
	}
	return domain.DefaultWatchColumn
}

// runJob runs a sync job in the selected output mode and maps the result
// to the command's error.
func runJob(cmd *cobra.Command, job tui.Job) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}
	if syncJSON && syncTUI {
		return fmt.Errorf("%w: --json and --tui cannot be combined", domain.ErrConfiguration)
	}

	ctx := cmd.Context()
	logger.Debug("sync: %s", job.Title())

	var result *messages.RunFinished
	switch {
	case syncTUI:
		r, err := launchTUI(cmd, job)
		if err != nil {
			return err
		}
		result = r
	case syncJSON:
		r := job.Run(ctx, syncOrchestrator, driving.SyncOptions{})
		result = &r
	default:
		st := outputStyles(cmd)
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, st.Title.Render(job.Title()))
		r := job.Run(ctx, syncOrchestrator, driving.SyncOptions{Progress: progressPrinter(out, st)})
		result = &r
		fmt.Fprintln(out)
		switch {
		case r.Report != nil:
			renderSummary(out, st, r.Report)
		case r.Aggregate != nil:
			renderAggregate(out, st, r.Aggregate)
		}
	}

	if syncJSON {
		switch {
		case result.Report != nil:
			if err := printJSON(cmd, result.Report); err != nil {
				return err
			}
		case result.Aggregate != nil:
			if err := printJSON(cmd, result.Aggregate); err != nil {
				return err
			}
		}
	}

	return runError(result)
}

// runError maps a finished run to the command's error.
func runError(result *messages.RunFinished) error {
	if result.Err != nil {
		if result.Cancelled() {
			return fmt.Errorf("sync cancelled: %w", result.Err)
		}
		return remoteError("sync failed", result.Err)
	}
	if !syncFailOnError {
		return nil
	}
	if result.Report != nil && result.Report.HasProblems() {
		return ErrRunProblems
	}
	if result.Aggregate != nil && result.Aggregate.HasProblems() {
		return ErrRunProblems
	}
	return nil
}
