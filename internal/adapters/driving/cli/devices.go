package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/intunesync/internal/core/domain"
)

var (
	devicesPlatform string
	devicesJSON     bool
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Inspect managed devices",
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List managed devices without syncing them",
	Long: `Lists managed devices with their platform, assigned user and last
check-in time. Devices that never checked in show "never".`,
	Args: cobra.NoArgs,
	RunE: runDevicesList,
}

func init() {
	devicesListCmd.Flags().StringVarP(&devicesPlatform, "platform", "p", "", "only list devices of this platform")
	devicesListCmd.Flags().BoolVar(&devicesJSON, "json", false, "output devices as JSON")
	devicesCmd.AddCommand(devicesListCmd)
	rootCmd.AddCommand(devicesCmd)
}

func runDevicesList(cmd *cobra.Command, _ []string) error {
	if deviceService == nil {
		return errors.New("device service not configured")
	}

	var platform domain.Platform
	if devicesPlatform != "" {
		p, err := domain.ParsePlatform(devicesPlatform)
		if err != nil {
			return err
		}
		platform = p
	}

	devices, err := deviceService.List(cmd.Context(), platform)
	if err != nil {
		return remoteError("failed to list devices", err)
	}

	if devicesJSON {
		if devices == nil {
			devices = []domain.Device{}
		}
		return printJSON(cmd, devices)
	}

	renderDevices(cmd.OutOrStdout(), outputStyles(cmd), devices)
	return nil
}
