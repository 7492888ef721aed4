package cmd

import (
	"github.com/mj1618/swipegen/internal/explorer"
	"github.com/mj1618/swipegen/internal/output"
	"github.com/spf13/cobra"
)

var launchCmd = &cobra.Command{
	Use:   "launch <package>",
	Short: "Start an app, optionally stopping it first",
	Long: `Start an app by package name. With --restart the app is force-stopped
first, which is how every exploration begins.

Examples:
  swipegen launch com.android.settings
  swipegen launch --restart com.example.app`,
	Args: cobra.ExactArgs(1),
	RunE: runLaunch,
}

func init() {
	rootCmd.AddCommand(launchCmd)
	launchCmd.Flags().Bool("restart", false, "Force-stop the app before starting it")
}

type launchResult struct {
	OK        bool   `yaml:"ok"        json:"ok"`
	Package   string `yaml:"package"   json:"package"`
	Restarted bool   `yaml:"restarted" json:"restarted"`
	Current   string `yaml:"current,omitempty" json:"current,omitempty"`
}

func runLaunch(cmd *cobra.Command, args []string) error {
	restart, _ := cmd.Flags().GetBool("restart")
	pkg := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dev, err := newDevice(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if restart {
		if err := dev.AppStop(ctx, pkg); err != nil {
			return err
		}
		if err := explorer.Sleep(ctx, cfg.Timing.StopWait); err != nil {
			return err
		}
	}
	if err := dev.AppStart(ctx, pkg); err != nil {
		return err
	}
	if err := explorer.Sleep(ctx, cfg.Timing.StartWait); err != nil {
		return err
	}

	res := launchResult{OK: true, Package: pkg, Restarted: restart}
	if current, err := dev.CurrentPackage(ctx); err == nil {
		res.Current = current
	}
	return output.Fprint(cmd.OutOrStdout(), res)
}
