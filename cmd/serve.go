package cmd

import (
	"fmt"

	"github.com/mj1618/swipegen/internal/observability"
	"github.com/mj1618/swipegen/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an MCP server exposing swipegen tools",
	Long: `Start a Model Context Protocol (MCP) server that exposes analyze, diff,
screenshot, tap, swipe, explore and device_info as tools, so agents can drive
the device without shell overhead.

Supported transports:
  stdio             Standard I/O (default, for MCP clients)
  streamable-http   Streamable HTTP transport (for remote agents)

Examples:
  swipegen serve
  swipegen serve --transport streamable-http --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	serveCmd.Flags().Int("port", 8080, "HTTP port for streamable-http transport")
}

func runServe(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")
	if transport != "stdio" && transport != "streamable-http" {
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", transport)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	dev, err := newDevice(cfg)
	if err != nil {
		return err
	}
	m := newMetrics(ctx, cfg)
	det, err := newDetector(ctx, cfg, m)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	srv := server.New(server.Deps{
		Device:   dev,
		Detector: det,
		Config:   cfg,
		Metrics:  m,
		Logger:   observability.GetLogger(),
	})
	if transport == "streamable-http" {
		return srv.ServeHTTP(ctx, fmt.Sprintf(":%d", port))
	}
	return srv.ServeStdio()
}
