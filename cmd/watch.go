package cmd

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/mj1618/swipegen/internal/explorer"
	"github.com/mj1618/swipegen/internal/output"
	"github.com/mj1618/swipegen/internal/screendiff"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream screen change events as JSON lines",
	Long: `Capture the screen every --interval and compare it with the previous
capture. Each change above --threshold is written to stdout as one JSON object
per line, with the foreground package at that moment.

Examples:
  swipegen watch
  swipegen watch --interval 500ms --count 20 --all`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Duration("interval", time.Second, "Time between captures")
	watchCmd.Flags().Int("count", 0, "Stop after this many comparisons (0 = until interrupted)")
	watchCmd.Flags().Float64("threshold", 0.01, "Ratio above which a capture counts as changed")
	watchCmd.Flags().Bool("all", false, "Emit every comparison, not only changes")
}

type changeEvent struct {
	Seq     int     `json:"seq"`
	Time    string  `json:"time"`
	Package string  `json:"package,omitempty"`
	Ratio   float64 `json:"ratio"`
	Changed bool    `json:"changed"`
}

// watchSource is what the watch loop needs from a device.
type watchSource interface {
	Screenshot(ctx context.Context) (image.Image, error)
	CurrentPackage(ctx context.Context) (string, error)
}

type watchOptions struct {
	Interval  time.Duration
	Count     int
	Threshold float64
	All       bool
	Sleep     explorer.SleepFunc
	Now       func() time.Time
}

func runWatch(cmd *cobra.Command, args []string) error {
	interval, _ := cmd.Flags().GetDuration("interval")
	count, _ := cmd.Flags().GetInt("count")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	all, _ := cmd.Flags().GetBool("all")
	if interval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dev, err := newDevice(cfg)
	if err != nil {
		return err
	}

	err = watch(cmd.Context(), dev, cmd.OutOrStdout(), watchOptions{
		Interval:  interval,
		Count:     count,
		Threshold: threshold,
		All:       all,
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watch compares consecutive captures until Count comparisons are done or ctx
// ends. A failed capture is skipped and the previous image kept.
func watch(ctx context.Context, src watchSource, w io.Writer, opts watchOptions) error {
	if opts.Sleep == nil {
		opts.Sleep = explorer.Sleep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	prev, err := src.Screenshot(ctx)
	if err != nil {
		return fmt.Errorf("initial capture: %w", err)
	}

	for seq := 1; opts.Count <= 0 || seq <= opts.Count; seq++ {
		if err := opts.Sleep(ctx, opts.Interval); err != nil {
			return err
		}
		cur, err := src.Screenshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		ratio, ok := screendiff.Compare(prev, cur, nil)
		changed := ok && ratio > opts.Threshold
		prev = cur
		if !changed && !opts.All {
			continue
		}

		ev := changeEvent{
			Seq:     seq,
			Time:    opts.Now().UTC().Format(time.RFC3339Nano),
			Ratio:   ratio,
			Changed: changed,
		}
		if pkg, err := src.CurrentPackage(ctx); err == nil {
			ev.Package = pkg
		}
		if err := output.FprintJSON(w, ev, false); err != nil {
			return err
		}
	}
	return nil
}
