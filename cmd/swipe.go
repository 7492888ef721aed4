package cmd

import (
	"fmt"

	"github.com/mj1618/swipegen/internal/explorer"
	"github.com/mj1618/swipegen/internal/model"
	"github.com/mj1618/swipegen/internal/output"
	"github.com/spf13/cobra"
)

var swipeCmd = &cobra.Command{
	Use:   "swipe",
	Short: "Swipe or drag across a region and report whether the screen changed",
	Long: `Swipe along the midline of a grid box, from 90% to 10% of its height
(vertical) or width (horizontal). Without --bbox the whole screen is used.
Prints the formatted action record.

Examples:
  swipegen swipe
  swipegen swipe --direction horizontal --bbox 0,300,1000,600
  swipegen swipe --kind drag --bbox 400,100,600,900`,
	RunE: runSwipe,
}

func init() {
	rootCmd.AddCommand(swipeCmd)
	swipeCmd.Flags().String("bbox", "", "Area x1,y1,x2,y2 on the 0-1000 grid (default: whole screen)")
	swipeCmd.Flags().String("direction", "vertical", "Swipe axis: vertical, horizontal")
	swipeCmd.Flags().String("kind", "swipe", "Gesture: swipe, drag")
	swipeCmd.Flags().String("description", "", "Record intent")
}

func runSwipe(cmd *cobra.Command, args []string) error {
	bbox, _ := cmd.Flags().GetString("bbox")
	direction, _ := cmd.Flags().GetString("direction")
	kindFlag, _ := cmd.Flags().GetString("kind")
	description, _ := cmd.Flags().GetString("description")

	kind, err := model.ParseActionKind(kindFlag)
	if err != nil || kind == model.ActionTap {
		return fmt.Errorf("--kind must be swipe or drag, got %q", kindFlag)
	}
	region := fullScreen(direction, description)
	box, err := parseOptionalBBox(bbox)
	if err != nil {
		return err
	}
	if box != nil {
		region.BBox = *box
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dev, err := newDevice(cfg)
	if err != nil {
		return err
	}

	out, err := newExecutor(cfg, dev, nil).Execute(cmd.Context(), explorer.Step{
		Candidate: explorer.Candidate{Region: region, Kind: kind},
		Name:      "cli_" + string(kind),
		Level:     1,
	})
	if err != nil {
		return err
	}
	return output.Fprint(cmd.OutOrStdout(), output.NewActionResult(out.Node))
}
