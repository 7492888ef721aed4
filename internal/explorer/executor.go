// Package explorer drives depth-2 UI exploration of an app: it executes
// detector-proposed interactions on a device, judges whether the screen
// changed, and assembles the result tree.
package explorer

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mj1618/swipegen/internal/config"
	"github.com/mj1618/swipegen/internal/format"
	"github.com/mj1618/swipegen/internal/metrics"
	"github.com/mj1618/swipegen/internal/model"
	"github.com/mj1618/swipegen/internal/platform"
	"github.com/mj1618/swipegen/internal/screendiff"
	"go.uber.org/zap"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Candidate pairs a region with the action chosen for it.
type Candidate struct {
	Region model.Region
	Kind   model.ActionKind
}

// Step is one interaction request.
type Step struct {
	Candidate
	// Name prefixes the before/after screenshot files.
	Name string
	// Level is 1 or 2 and only labels logs and metrics.
	Level int
	// AutoBack recovers the app after a change.
	AutoBack bool
}

// Outcome is a persisted interaction. After is nil when the post-action
// capture failed.
type Outcome struct {
	Node  model.ExplorationNode
	After *Shot
}

// Executor runs single interactions against one device. It is not safe for
// concurrent use; the device is a single input surface.
type Executor struct {
	dev     platform.Device
	pkg     string
	shots   *Store
	timing  config.TimingConfig
	change  config.ChangeConfig
	metrics *metrics.Collector
	logger  *zap.Logger
	sleep   SleepFunc
	now     func() time.Time
}

// ExecutorOptions configures an Executor. Zero Timing and Change fall back to
// the config defaults.
type ExecutorOptions struct {
	Package string
	Shots   *Store
	Timing  config.TimingConfig
	Change  config.ChangeConfig
	Metrics *metrics.Collector
	Logger  *zap.Logger
	Sleep   SleepFunc
}

// NewExecutor returns an Executor for pkg on dev.
func NewExecutor(dev platform.Device, opts ExecutorOptions) *Executor {
	defaults := config.NewDefaultConfig()
	if opts.Timing == (config.TimingConfig{}) {
		opts.Timing = defaults.Timing
	}
	if opts.Change == (config.ChangeConfig{}) {
		opts.Change = defaults.Change
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	if opts.Shots == nil {
		opts.Shots = NewStore(defaults.Device.ScreenshotDir, dev)
	}
	return &Executor{
		dev:     dev,
		pkg:     opts.Package,
		shots:   opts.Shots,
		timing:  opts.Timing,
		change:  opts.Change,
		metrics: opts.Metrics,
		logger:  opts.Logger.With(zap.String("component", "executor"), zap.String("package", opts.Package)),
		sleep:   opts.Sleep,
		now:     time.Now,
	}
}

// gesture is the device-space plan for one interaction.
type gesture struct {
	record   model.ActionRecord
	x1, y1   float64
	x2, y2   float64
	duration time.Duration
	settle   time.Duration
	thresh   float64
}

// Execute runs one interaction. A nil Outcome comes with an *AbortError and
// means no record was produced. Context cancellation is returned as is.
func (e *Executor) Execute(ctx context.Context, step Step) (*Outcome, error) {
	log := e.logger.With(zap.String("step", step.Name), zap.Int("level", step.Level), zap.String("kind", string(step.Kind)))
	log.Info("Testing interaction", zap.String("description", step.Region.Description))

	before, err := e.shots.Capture(ctx, step.Name+"_before")
	if err != nil {
		return nil, e.abort(ctx, step, StagePreShot, err)
	}

	w, h, err := e.dev.WindowSize(ctx)
	if err != nil {
		return nil, e.abort(ctx, step, StageCompute, err)
	}
	g, err := e.plan(step.Candidate, w, h)
	if err != nil {
		return nil, e.abort(ctx, step, StageCompute, err)
	}

	if err := e.perform(ctx, step.Kind, g); err != nil {
		return nil, e.abort(ctx, step, StageExecute, err)
	}
	if err := e.sleep(ctx, g.settle); err != nil {
		return nil, err
	}

	node := model.ExplorationNode{
		Type:             step.Kind,
		ActionData:       g.record,
		ScreenshotBefore: before.Path,
		RegionInfo:       step.Region,
	}

	after, err := e.shots.Capture(ctx, step.Name+"_after")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("Post-action capture failed, assuming no change", zap.Error(err))
	} else {
		node.ScreenshotAfter = &after.Path
		ratio, ok := screendiff.Compare(before.Image, after.Image, nil)
		node.HasChanged = ok && ratio > g.thresh
		log.Debug("Change verdict", zap.Float64("ratio", ratio), zap.Float64("threshold", g.thresh), zap.Bool("changed", node.HasChanged))
	}

	node.ActionData.Success = node.HasChanged
	node.ActionData.Timestamp = float64(e.now().UnixNano()) / 1e9

	outcome := metrics.OutcomeUnchanged
	if node.HasChanged {
		outcome = metrics.OutcomeChanged
	}
	e.metrics.RecordInteraction(string(step.Kind), step.Level, outcome)
	log.Info("Interaction done", zap.Bool("changed", node.HasChanged))

	if step.AutoBack && node.HasChanged {
		log.Info("Auto-back triggered")
		if err := e.sleep(ctx, e.timing.BackDelay); err != nil {
			return nil, err
		}
		if err := e.Recover(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("Recovery failed", zap.Error(err))
		}
	}

	return &Outcome{Node: node, After: after}, nil
}

// Recover brings the target package back to the foreground.
func (e *Executor) Recover(ctx context.Context) error {
	e.metrics.RecordRecovery()
	return platform.Recover(ctx, e.dev, e.pkg)
}

func (e *Executor) abort(ctx context.Context, step Step, stage Stage, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	e.metrics.RecordInteraction(string(step.Kind), step.Level, metrics.OutcomeAborted)
	e.logger.Warn("Interaction aborted",
		zap.String("step", step.Name),
		zap.String("stage", string(stage)),
		zap.Error(err))
	return &AbortError{Stage: stage, Err: err}
}

// plan computes device-space geometry and the unexecuted record.
func (e *Executor) plan(c Candidate, w, h int) (gesture, error) {
	if w <= 0 || h <= 0 {
		return gesture{}, fmt.Errorf("invalid window size %dx%d", w, h)
	}
	f := format.New(w, h)
	box := c.Region.PixelBox(w, h)

	switch c.Kind {
	case model.ActionTap:
		x := (box[0] + box[2]) / 2
		y := (box[1] + box[3]) / 2
		return gesture{
			record: f.Tap(x, y, &box, c.Region.Description),
			x1:     x,
			y1:     y,
			settle: e.timing.TapSettle,
			thresh: e.change.TapThreshold,
		}, nil

	case model.ActionSwipe, model.ActionDrag:
		left, right := math.Min(box[0], box[2]), math.Max(box[0], box[2])
		top, bottom := math.Min(box[1], box[3]), math.Max(box[1], box[3])
		bw, bh := right-left, bottom-top

		sx, ex := left+bw*0.5, left+bw*0.5
		sy, ey := top+bh*0.9, top+bh*0.1
		if strings.Contains(strings.ToLower(c.Region.Direction), "horiz") {
			sx, ex = left+bw*0.9, left+bw*0.1
			sy, ey = top+bh*0.5, top+bh*0.5
		}
		ms := int(e.timing.SwipeDuration.Milliseconds())
		return gesture{
			record:   f.Swipe(sx, sy, ex, ey, ms, &box, c.Region.Description, c.Kind),
			x1:       sx,
			y1:       sy,
			x2:       ex,
			y2:       ey,
			duration: e.timing.SwipeDuration,
			settle:   e.timing.SwipeSettle,
			thresh:   e.change.SwipeThreshold,
		}, nil
	}
	return gesture{}, fmt.Errorf("unsupported action %q", c.Kind)
}

func (e *Executor) perform(ctx context.Context, kind model.ActionKind, g gesture) error {
	px := func(v float64) int { return int(math.Round(v)) }
	switch kind {
	case model.ActionTap:
		return e.dev.Click(ctx, px(g.x1), px(g.y1))
	case model.ActionDrag:
		return e.dev.Drag(ctx, px(g.x1), px(g.y1), px(g.x2), px(g.y2), g.duration)
	default:
		return e.dev.Swipe(ctx, px(g.x1), px(g.y1), px(g.x2), px(g.y2), g.duration)
	}
}
