package cmd

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"os"

	"github.com/mj1618/swipegen/internal/detector"
	"github.com/spf13/cobra"
)

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Capture the device screen",
	Long:  "Capture the device screen as PNG, written to a file or to stdout as base64.",
	RunE:  runScreenshot,
}

func init() {
	rootCmd.AddCommand(screenshotCmd)
	screenshotCmd.Flags().String("output", "", "Output file path (default: stdout as base64)")
	screenshotCmd.Flags().Float64("scale", 1.0, "Scale factor 0.1-1.0")
}

func runScreenshot(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	scale, _ := cmd.Flags().GetFloat64("scale")
	if scale < 0.1 || scale > 1 {
		return fmt.Errorf("--scale must be between 0.1 and 1.0")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dev, err := newDevice(cfg)
	if err != nil {
		return err
	}
	img, err := dev.Screenshot(cmd.Context())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, detector.Downscale(img, scale)); err != nil {
		return err
	}

	if output != "" {
		return os.WriteFile(output, buf.Bytes(), 0644)
	}

	// Default: write to stdout as base64 for easy agent consumption
	w := cmd.OutOrStdout()
	encoder := base64.NewEncoder(base64.StdEncoding, w)
	if _, err := encoder.Write(buf.Bytes()); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}
