package cmd

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/mj1618/swipegen/internal/model"
	"github.com/spf13/cobra"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Draw detected regions onto a screenshot",
	Long: `Run the region detector on a screenshot and write a copy with every region
outlined: clickable in red, slidable in blue. Labels are the region index and
description, matching the order printed by analyze.

Examples:
  swipegen annotate --output annotated.png
  swipegen annotate --image screen.png --output annotated.png`,
	RunE: runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)
	annotateCmd.Flags().String("image", "", "Annotate this image file instead of a fresh device screenshot")
	annotateCmd.Flags().String("output", "annotated.png", "Output PNG path")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("image")
	out, _ := cmd.Flags().GetString("output")

	ctx := cmd.Context()
	img, _, err := sourceImage(ctx, path)
	if err != nil {
		return err
	}
	det, err := newDetector(ctx, cfg, nil)
	if err != nil {
		return err
	}
	a, err := det.Analyze(ctx, img)
	if err != nil {
		return err
	}

	regions := make([]model.Region, 0, len(a.Clickable)+len(a.Slidable))
	regions = append(regions, a.Clickable...)
	regions = append(regions, a.Slidable...)
	annotated := AnnotateRegions(img, regions)

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := png.Encode(f, annotated); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d clickable, %d slidable\n", out, len(a.Clickable), len(a.Slidable))
	return nil
}
