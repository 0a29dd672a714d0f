// Package cli provides the intunesync command-line interface.
// Commands are thin wrappers over the driving ports; main wires the
// services in with SetServices before calling Execute.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/intunesync/internal/core/ports/driving"
	"github.com/custodia-labs/intunesync/internal/logger"
)

// ErrRunProblems is returned by sync commands run with --fail-on-error when
// any device failed or was not found.
var ErrRunProblems = errors.New("run finished with failed or missing devices")

var (
	version = "dev"
	verbose bool

	syncOrchestrator driving.BulkSyncOrchestrator
	deviceService    driving.DeviceService
	reportService    driving.ReportService
	settingsService  driving.SettingsService

	// envOverridden reports whether a setting comes from the environment.
	envOverridden func(key string) bool
)

var rootCmd = &cobra.Command{
	Use:   "intunesync",
	Short: "Trigger Intune device syncs in bulk",
	Long: `intunesync resolves managed devices by name or platform and asks each
one to check in with Intune, one at a time at a fixed pace.

Configure the app registration first:
  intunesync config set graph.tenant_id <tenant>
  intunesync config set graph.client_id <client>
  intunesync config set-secret
  intunesync auth check`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Services holds the driving ports the commands call into.
type Services struct {
	Sync     driving.BulkSyncOrchestrator
	Devices  driving.DeviceService
	Reports  driving.ReportService
	Settings driving.SettingsService

	// EnvOverridden, if set, marks settings supplied by the environment.
	EnvOverridden func(key string) bool
}

// SetServices injects the services used by every command.
func SetServices(s Services) {
	syncOrchestrator = s.Sync
	deviceService = s.Devices
	reportService = s.Reports
	settingsService = s.Settings
	envOverridden = s.EnvOverridden
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
