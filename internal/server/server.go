// Package server exposes swipegen operations as Model Context Protocol tools.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/mj1618/swipegen/internal/config"
	"github.com/mj1618/swipegen/internal/detector"
	"github.com/mj1618/swipegen/internal/explorer"
	"github.com/mj1618/swipegen/internal/metrics"
	"github.com/mj1618/swipegen/internal/platform"
	"github.com/mj1618/swipegen/internal/report"
	"github.com/mj1618/swipegen/internal/version"
	"go.uber.org/zap"
)

// Deps are the collaborators the tools act through.
type Deps struct {
	Device   platform.Device
	Detector detector.Detector
	Config   *config.Config
	Metrics  *metrics.Collector
	Logger   *zap.Logger
}

// Server wraps the MCP server with the device and detector.
type Server struct {
	dev     platform.Device
	det     detector.Detector
	cfg     *config.Config
	metrics *metrics.Collector
	logger  *zap.Logger
	reports *report.Writer
	sleep   explorer.SleepFunc

	// deviceMu serializes tools that touch the device; it is one input
	// surface.
	deviceMu sync.Mutex
	mcp      *mcpserver.MCPServer
}

// New creates a server with every tool registered.
func New(d Deps) *Server {
	if d.Config == nil {
		d.Config = config.NewDefaultConfig()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	logger := d.Logger.With(zap.String("component", "mcp"))
	s := &Server{
		dev:     d.Device,
		det:     d.Detector,
		cfg:     d.Config,
		metrics: d.Metrics,
		logger:  logger,
		reports: report.NewWriter(d.Config.Explore.LogsDir, d.Logger),
		sleep:   explorer.Sleep,
		mcp:     mcpserver.NewMCPServer("swipegen", version.Version),
	}
	s.registerTools()
	return s
}

// ServeStdio serves over standard input and output.
func (s *Server) ServeStdio() error {
	return mcpserver.ServeStdio(s.mcp)
}

// ServeHTTP serves the streamable HTTP transport on addr until ctx is done.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening", zap.String("addr", addr))
		errCh <- httpServer.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	// analyze
	s.mcp.AddTool(
		mcp.NewTool("analyze",
			mcp.WithDescription("Detect clickable and slidable regions on the current screen or an image file. Boxes are on a 0-1000 grid."),
			mcp.WithString("image", mcp.Description("Image file to analyze instead of a fresh screenshot")),
		),
		s.handleAnalyze,
	)

	// diff
	s.mcp.AddTool(
		mcp.NewTool("diff",
			mcp.WithDescription("Compare two screenshots and report the changed-pixel ratio and verdict"),
			mcp.WithString("before", mcp.Description("First image path"), mcp.Required()),
			mcp.WithString("after", mcp.Description("Second image path"), mcp.Required()),
			mcp.WithNumber("threshold", mcp.Description("Changed-pixel ratio above which the screen counts as changed (default: tap threshold)")),
			mcp.WithString("bbox", mcp.Description("Restrict the comparison to x1,y1,x2,y2 on the 0-1000 grid")),
		),
		s.handleDiff,
	)

	// screenshot
	s.mcp.AddTool(
		mcp.NewTool("screenshot",
			mcp.WithDescription("Capture the device screen as a PNG image"),
			mcp.WithNumber("scale", mcp.Description("Scale factor 0.1-1.0 (default: 0.5)")),
		),
		s.handleScreenshot,
	)

	// tap
	s.mcp.AddTool(
		mcp.NewTool("tap",
			mcp.WithDescription("Tap the centre of a grid box or a pixel position and report whether the screen changed"),
			mcp.WithString("bbox", mcp.Description("Target x1,y1,x2,y2 on the 0-1000 grid")),
			mcp.WithNumber("x", mcp.Description("Tap at X pixel")),
			mcp.WithNumber("y", mcp.Description("Tap at Y pixel")),
			mcp.WithString("description", mcp.Description("What the target is, used for the record intent")),
		),
		s.handleTap,
	)

	// swipe
	s.mcp.AddTool(
		mcp.NewTool("swipe",
			mcp.WithDescription("Swipe across a grid box (whole screen by default) and report whether the screen changed"),
			mcp.WithString("bbox", mcp.Description("Area x1,y1,x2,y2 on the 0-1000 grid")),
			mcp.WithString("direction", mcp.Description("vertical (default) or horizontal")),
			mcp.WithString("kind", mcp.Description("swipe (default) or drag")),
			mcp.WithString("description", mcp.Description("Record intent")),
		),
		s.handleSwipe,
	)

	// explore
	s.mcp.AddTool(
		mcp.NewTool("explore",
			mcp.WithDescription("Run a depth-2 exploration of an app, save the report and return its summary. Takes minutes."),
			mcp.WithString("package", mcp.Description("Android package name"), mcp.Required()),
			mcp.WithNumber("max-l1-clicks", mcp.Description("Cap on level-1 clicks (default from config)")),
			mcp.WithNumber("max-l2-interactions", mcp.Description("Cap on level-2 interactions (default from config)")),
		),
		s.handleExplore,
	)

	// device_info
	s.mcp.AddTool(
		mcp.NewTool("device_info",
			mcp.WithDescription("Describe the connected device and the foreground package"),
		),
		s.handleDeviceInfo,
	)
}
