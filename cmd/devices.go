package cmd

import (
	"github.com/mj1618/swipegen/internal/observability"
	"github.com/mj1618/swipegen/internal/output"
	"github.com/mj1618/swipegen/internal/platform"
	"github.com/mj1618/swipegen/internal/platform/adb"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List attached Android devices",
	Long:  "List the devices adb can see, with their state and attributes. --info adds build properties for each online device.",
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.Flags().Bool("info", false, "Query model, brand and OS version of each online device")
}

type deviceEntry struct {
	adb.DeviceEntry `yaml:",inline"`
	Info            map[string]string `yaml:"info,omitempty" json:"info,omitempty"`
}

func runDevices(cmd *cobra.Command, args []string) error {
	withInfo, _ := cmd.Flags().GetBool("info")
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	devices, err := adb.ListDevices(ctx, cfg.Device.ADBPath, nil)
	if err != nil {
		return err
	}

	entries := make([]deviceEntry, 0, len(devices))
	for _, d := range devices {
		e := deviceEntry{DeviceEntry: d}
		if withInfo && d.State == "device" {
			c := adb.New(platform.ProviderOptions{Serial: d.Serial, ADBPath: cfg.Device.ADBPath}, nil)
			info, err := c.DeviceInfo(ctx)
			if err != nil {
				observability.GetLogger().Warn("Device info unavailable", zap.String("serial", d.Serial), zap.Error(err))
			} else {
				e.Info = info
			}
		}
		entries = append(entries, e)
	}
	return output.Fprint(cmd.OutOrStdout(), entries)
}
