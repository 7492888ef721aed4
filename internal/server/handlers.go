package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mj1618/swipegen/internal/detector"
	"github.com/mj1618/swipegen/internal/explorer"
	"github.com/mj1618/swipegen/internal/model"
	"github.com/mj1618/swipegen/internal/output"
	"github.com/mj1618/swipegen/internal/platform"
	"github.com/mj1618/swipegen/internal/screendiff"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// toText serializes a tool result to YAML.
func toText(v interface{}) string {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(b)
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) executor(pkg string) *explorer.Executor {
	return explorer.NewExecutor(s.dev, explorer.ExecutorOptions{
		Package: pkg,
		Shots:   explorer.NewStore(s.cfg.Device.ScreenshotDir, s.dev),
		Timing:  s.cfg.Timing,
		Change:  s.cfg.Change,
		Metrics: s.metrics,
		Logger:  s.logger,
		Sleep:   s.sleep,
	})
}

func (s *Server) handleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	path := stringParam(params, "image", "")

	var img image.Image
	source := path
	if path != "" {
		loaded, err := screendiff.Load(path)
		if err != nil {
			return toolError(fmt.Errorf("load %s: %w", path, err)), nil
		}
		img = loaded
	} else {
		s.deviceMu.Lock()
		shot, err := s.dev.Screenshot(ctx)
		s.deviceMu.Unlock()
		if err != nil {
			return toolError(err), nil
		}
		img = shot
		source = "device"
	}

	a, err := s.det.Analyze(ctx, img)
	if err != nil {
		return toolError(err), nil
	}
	b := img.Bounds()
	return mcp.NewToolResultText(toText(output.AnalyzeResult{
		Source:    source,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Clickable: a.Clickable,
		Slidable:  a.Slidable,
	})), nil
}

func (s *Server) handleDiff(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	beforePath := stringParam(params, "before", "")
	afterPath := stringParam(params, "after", "")
	threshold := floatParam(params, "threshold", s.cfg.Change.TapThreshold)
	if beforePath == "" || afterPath == "" {
		return mcp.NewToolResultError("before and after are required"), nil
	}

	res, err := diffFiles(beforePath, afterPath, stringParam(params, "bbox", ""), threshold)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(toText(res)), nil
}

// diffFiles compares two image files, optionally within a grid bbox. An
// incomparable pair reports ratio 0 and no change.
func diffFiles(beforePath, afterPath, bbox string, threshold float64) (output.DiffResult, error) {
	res := output.DiffResult{Before: beforePath, After: afterPath, Threshold: threshold}
	var box *[4]float64
	if bbox != "" {
		b, err := platform.ParseBBox(bbox)
		if err != nil {
			return res, err
		}
		box = &b
	}
	ratio, ok, err := screendiff.CompareFiles(beforePath, afterPath, box)
	if err != nil {
		return res, err
	}
	res.Ratio = ratio
	res.Changed = ok && ratio > threshold
	return res, nil
}

func (s *Server) handleScreenshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	scale := floatParam(params, "scale", 0.5)
	if scale < 0.1 || scale > 1 {
		return mcp.NewToolResultError("scale must be between 0.1 and 1.0"), nil
	}

	s.deviceMu.Lock()
	img, err := s.dev.Screenshot(ctx)
	s.deviceMu.Unlock()
	if err != nil {
		return toolError(err), nil
	}

	scaled := detector.Downscale(img, scale)
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return toolError(err), nil
	}
	b := scaled.Bounds()
	return mcp.NewToolResultImage(
		fmt.Sprintf("screenshot %dx%d", b.Dx(), b.Dy()),
		base64.StdEncoding.EncodeToString(buf.Bytes()),
		"image/png",
	), nil
}

func (s *Server) handleTap(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()

	s.deviceMu.Lock()
	defer s.deviceMu.Unlock()

	var region model.Region
	switch {
	case stringParam(params, "bbox", "") != "":
		box, err := platform.ParseBBox(stringParam(params, "bbox", ""))
		if err != nil {
			return toolError(err), nil
		}
		region = model.Region{BBox: box, Category: model.CategoryClickable}
	case hasParam(params, "x") && hasParam(params, "y"):
		w, h, err := s.dev.WindowSize(ctx)
		if err != nil {
			return toolError(err), nil
		}
		region = model.RegionAt(floatParam(params, "x", 0), floatParam(params, "y", 0), w, h)
	default:
		return mcp.NewToolResultError("specify bbox, or x and y"), nil
	}
	region.Description = stringParam(params, "description", "")

	return s.act(ctx, explorer.Candidate{Region: region, Kind: model.ActionTap}, "mcp_tap")
}

func (s *Server) handleSwipe(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()

	kind, err := model.ParseActionKind(stringParam(params, "kind", string(model.ActionSwipe)))
	if err != nil || kind == model.ActionTap {
		return mcp.NewToolResultError("kind must be swipe or drag"), nil
	}
	region := model.Region{
		BBox:        [4]float64{0, 0, model.GridSize, model.GridSize},
		Category:    model.CategorySlidable,
		Direction:   stringParam(params, "direction", "vertical"),
		Description: stringParam(params, "description", ""),
	}
	if bbox := stringParam(params, "bbox", ""); bbox != "" {
		box, err := platform.ParseBBox(bbox)
		if err != nil {
			return toolError(err), nil
		}
		region.BBox = box
	}

	s.deviceMu.Lock()
	defer s.deviceMu.Unlock()
	return s.act(ctx, explorer.Candidate{Region: region, Kind: kind}, "mcp_"+string(kind))
}

// act executes one interaction. The caller holds deviceMu.
func (s *Server) act(ctx context.Context, c explorer.Candidate, name string) (*mcp.CallToolResult, error) {
	out, err := s.executor("").Execute(ctx, explorer.Step{Candidate: c, Name: name, Level: 1})
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(toText(output.NewActionResult(out.Node))), nil
}

func (s *Server) handleExplore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	pkg := stringParam(params, "package", "")
	if pkg == "" {
		return mcp.NewToolResultError("package is required"), nil
	}

	cfg := *s.cfg
	cfg.Explore.MaxL1Clicks = intParam(params, "max-l1-clicks", cfg.Explore.MaxL1Clicks)
	cfg.Explore.MaxL2Interactions = intParam(params, "max-l2-interactions", cfg.Explore.MaxL2Interactions)
	if cfg.Explore.MaxL1Clicks < 0 || cfg.Explore.MaxL2Interactions < 0 {
		return mcp.NewToolResultError("caps must not be negative"), nil
	}

	s.deviceMu.Lock()
	defer s.deviceMu.Unlock()

	engine := explorer.NewEngine(s.dev, s.det, explorer.EngineOptions{
		Shots: explorer.NewStore(cfg.Device.ScreenshotDir, s.dev),
		Limits: explorer.Limits{
			MaxL1Clicks:       cfg.Explore.MaxL1Clicks,
			MaxL2Interactions: cfg.Explore.MaxL2Interactions,
		},
		Timing:  cfg.Timing,
		Change:  cfg.Change,
		Metrics: s.metrics,
		Logger:  s.logger,
		Sleep:   s.sleep,
	})
	path, r, err := s.reports.Run(ctx, engine, s.dev, pkg)
	if err != nil {
		s.logger.Error("Exploration failed", zap.String("package", pkg), zap.Error(err))
		return mcp.NewToolResultError(toText(output.ExploreEntry{App: pkg, Error: err.Error()})), nil
	}
	return mcp.NewToolResultText(toText(output.ExploreEntry{App: pkg, Report: path, Summary: &r.Summary})), nil
}

type deviceInfoResult struct {
	Device         map[string]string `yaml:"device" json:"device"`
	CurrentPackage string            `yaml:"current_package,omitempty" json:"current_package,omitempty"`
}

func (s *Server) handleDeviceInfo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.deviceMu.Lock()
	defer s.deviceMu.Unlock()

	info, err := s.dev.DeviceInfo(ctx)
	if err != nil {
		return toolError(err), nil
	}
	res := deviceInfoResult{Device: info}
	if pkg, err := s.dev.CurrentPackage(ctx); err == nil {
		res.CurrentPackage = pkg
	}
	return mcp.NewToolResultText(toText(res)), nil
}
