package cmd

import (
	"context"
	"fmt"
	"image"

	"github.com/mj1618/swipegen/internal/output"
	"github.com/mj1618/swipegen/internal/screendiff"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Detect clickable and slidable regions",
	Long: `Send a screenshot to the region detector and print the clickable and
slidable regions it proposes. Boxes are on the 0-1000 grid.

Examples:
  swipegen analyze
  swipegen analyze --image screenshots/L1_Home_1700000000000.png --format json`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().String("image", "", "Analyze this image file instead of a fresh device screenshot")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("image")

	ctx := cmd.Context()
	img, source, err := sourceImage(ctx, path)
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

	b := img.Bounds()
	return output.Fprint(cmd.OutOrStdout(), output.AnalyzeResult{
		Source:    source,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Clickable: a.Clickable,
		Slidable:  a.Slidable,
	})
}

// sourceImage loads path, or captures the device screen when path is empty.
func sourceImage(ctx context.Context, path string) (image.Image, string, error) {
	if path != "" {
		img, err := screendiff.Load(path)
		if err != nil {
			return nil, "", fmt.Errorf("load %s: %w", path, err)
		}
		return img, path, nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	dev, err := newDevice(cfg)
	if err != nil {
		return nil, "", err
	}
	img, err := dev.Screenshot(ctx)
	if err != nil {
		return nil, "", err
	}
	return img, "device", nil
}
