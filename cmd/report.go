package cmd

import (
	"github.com/mj1618/swipegen/internal/model"
	"github.com/mj1618/swipegen/internal/output"
	"github.com/mj1618/swipegen/internal/report"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Check a saved exploration report and print its summary",
	Long: `Load a report written by explore, check that no level-2 exploration hangs
below an unchanged screen, and print its run metadata and summary. Use --full
to print the whole result tree.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().Bool("full", false, "Print the whole report, not only the summary")
}

type reportSummary struct {
	RunID      string            `yaml:"run_id"      json:"run_id"`
	AppPackage string            `yaml:"app_package" json:"app_package"`
	Timestamp  string            `yaml:"timestamp"   json:"timestamp"`
	Device     map[string]string `yaml:"device"      json:"device"`
	Summary    model.Summary     `yaml:"summary"     json:"summary"`
}

func runReport(cmd *cobra.Command, args []string) error {
	full, _ := cmd.Flags().GetBool("full")
	r, err := report.Load(args[0])
	if err != nil {
		return err
	}
	if err := r.Results.Validate(); err != nil {
		return err
	}
	if full {
		return output.Fprint(cmd.OutOrStdout(), r)
	}
	return output.Fprint(cmd.OutOrStdout(), reportSummary{
		RunID:      r.RunID,
		AppPackage: r.AppPackage,
		Timestamp:  r.Timestamp,
		Device:     r.Device,
		Summary:    r.Results.Summary(),
	})
}
