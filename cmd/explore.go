package cmd

import (
	"fmt"

	"github.com/mj1618/swipegen/internal/explorer"
	"github.com/mj1618/swipegen/internal/observability"
	"github.com/mj1618/swipegen/internal/output"
	"github.com/mj1618/swipegen/internal/report"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var exploreCmd = &cobra.Command{
	Use:   "explore [package...]",
	Short: "Run a depth-2 exploration of one or more apps",
	Long: `Reset each app, probe its root screen with two whole-screen swipes, the
detector's slidable regions and up to --max-l1-clicks clickable regions, and
descend one level below every interaction that changed the screen.

One JSON report per app is written to the logs directory. Packages come from
the arguments, or from explore.packages in the config file.

Examples:
  swipegen explore com.android.settings
  swipegen explore --max-l1-clicks 3 --max-l2-interactions 2 com.example.app
  swipegen explore --metrics-addr :9090`,
	RunE: runExplore,
}

func init() {
	rootCmd.AddCommand(exploreCmd)
	exploreCmd.Flags().Int("max-l1-clicks", 5, "Cap on clickable regions tried on the root screen")
	exploreCmd.Flags().Int("max-l2-interactions", 3, "Cap on interactions tried on each level-2 screen")
	exploreCmd.Flags().String("logs-dir", "", "Directory for reports (default: explore.logs_dir)")
	exploreCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	_ = viper.BindPFlag("explore.max_l1_clicks", exploreCmd.Flags().Lookup("max-l1-clicks"))
	_ = viper.BindPFlag("explore.max_l2_interactions", exploreCmd.Flags().Lookup("max-l2-interactions"))
	_ = viper.BindPFlag("explore.logs_dir", exploreCmd.Flags().Lookup("logs-dir"))
	_ = viper.BindPFlag("metrics.addr", exploreCmd.Flags().Lookup("metrics-addr"))
}

func runExplore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	packages := args
	if len(packages) == 0 {
		packages = cfg.Explore.Packages
	}
	if len(packages) == 0 {
		return fmt.Errorf("no packages to explore: pass them as arguments or set explore.packages")
	}

	ctx := cmd.Context()
	logger := observability.GetLogger()
	dev, err := newDevice(cfg)
	if err != nil {
		return err
	}
	m := newMetrics(ctx, cfg)
	det, err := newDetector(ctx, cfg, m)
	if err != nil {
		return err
	}

	engine := explorer.NewEngineFromConfig(cfg, dev, det, m, logger)
	writer := report.NewWriter(cfg.Explore.LogsDir, logger)

	entries := make([]output.ExploreEntry, 0, len(packages))
	failed := 0
	for _, pkg := range packages {
		if ctx.Err() != nil {
			break
		}
		path, r, err := writer.Run(ctx, engine, dev, pkg)
		if err != nil {
			failed++
			logger.Error("Exploration failed", zap.String("package", pkg), zap.Error(err))
			entries = append(entries, output.ExploreEntry{App: pkg, Error: err.Error()})
			continue
		}
		entries = append(entries, output.ExploreEntry{App: pkg, Report: path, Summary: &r.Summary})
	}

	if err := output.Fprint(cmd.OutOrStdout(), entries); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d explorations failed", failed, len(packages))
	}
	return nil
}
