package cmd

import (
	"github.com/mj1618/swipegen/internal/output"
	"github.com/mj1618/swipegen/internal/screendiff"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <before> <after>",
	Short: "Compare two screenshots",
	Long: `Compare two image files the way the explorer judges a screen change: both
are converted to grayscale, the second is resized to the first, and the share
of pixels differing by more than 10 grey levels is the ratio.

Examples:
  swipegen diff before.png after.png
  swipegen diff --threshold 0.005 --bbox 0,100,1000,900 before.png after.png`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().Float64("threshold", 0.01, "Ratio above which the screen counts as changed")
	diffCmd.Flags().String("bbox", "", "Restrict the comparison to x1,y1,x2,y2 on the 0-1000 grid")
}

func runDiff(cmd *cobra.Command, args []string) error {
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	bbox, _ := cmd.Flags().GetString("bbox")
	box, err := parseOptionalBBox(bbox)
	if err != nil {
		return err
	}

	ratio, ok, err := screendiff.CompareFiles(args[0], args[1], box)
	if err != nil {
		return err
	}
	return output.Fprint(cmd.OutOrStdout(), output.DiffResult{
		Before:    args[0],
		After:     args[1],
		Ratio:     ratio,
		Threshold: threshold,
		Changed:   ok && ratio > threshold,
	})
}
