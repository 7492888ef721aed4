package cmd

import (
	"fmt"

	"github.com/mj1618/swipegen/internal/explorer"
	"github.com/mj1618/swipegen/internal/model"
	"github.com/mj1618/swipegen/internal/output"
	"github.com/spf13/cobra"
)

var tapCmd = &cobra.Command{
	Use:   "tap",
	Short: "Tap a region and report whether the screen changed",
	Long: `Tap the centre of a grid box, or a raw pixel position, then wait for the
screen to settle and compare before and after screenshots. Prints the
formatted action record.

Examples:
  swipegen tap --bbox 100,200,300,260 --description "search button"
  swipegen tap --x 540 --y 960`,
	RunE: runTap,
}

func init() {
	rootCmd.AddCommand(tapCmd)
	tapCmd.Flags().String("bbox", "", "Target x1,y1,x2,y2 on the 0-1000 grid")
	tapCmd.Flags().Int("x", 0, "Tap at X pixel")
	tapCmd.Flags().Int("y", 0, "Tap at Y pixel")
	tapCmd.Flags().String("description", "", "What the target is, used for the record intent")
}

func runTap(cmd *cobra.Command, args []string) error {
	bbox, _ := cmd.Flags().GetString("bbox")
	x, _ := cmd.Flags().GetInt("x")
	y, _ := cmd.Flags().GetInt("y")
	description, _ := cmd.Flags().GetString("description")
	hasXY := cmd.Flags().Changed("x") && cmd.Flags().Changed("y")

	box, err := parseOptionalBBox(bbox)
	if err != nil {
		return err
	}
	if box == nil && !hasXY {
		return fmt.Errorf("specify --bbox, or --x and --y")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dev, err := newDevice(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var region model.Region
	if box != nil {
		region = model.Region{BBox: *box, Category: model.CategoryClickable}
	} else {
		w, h, err := dev.WindowSize(ctx)
		if err != nil {
			return err
		}
		region = model.RegionAt(float64(x), float64(y), w, h)
	}
	region.Description = description

	out, err := newExecutor(cfg, dev, nil).Execute(ctx, explorer.Step{
		Candidate: explorer.Candidate{Region: region, Kind: model.ActionTap},
		Name:      "cli_tap",
		Level:     1,
	})
	if err != nil {
		return err
	}
	return output.Fprint(cmd.OutOrStdout(), output.NewActionResult(out.Node))
}
