package explorer

import (
	"context"
	"fmt"
	"image"

	"github.com/mj1618/swipegen/internal/config"
	"github.com/mj1618/swipegen/internal/detector"
	"github.com/mj1618/swipegen/internal/metrics"
	"github.com/mj1618/swipegen/internal/model"
	"github.com/mj1618/swipegen/internal/platform"
	"go.uber.org/zap"
)

// Limits bounds the traversal.
type Limits struct {
	MaxL1Clicks       int
	MaxL2Interactions int
}

// Engine explores one app to depth 2.
type Engine struct {
	dev      platform.Device
	detector detector.Detector
	shots    *Store
	limits   Limits
	timing   config.TimingConfig
	change   config.ChangeConfig
	metrics  *metrics.Collector
	logger   *zap.Logger
	base     *zap.Logger // unscoped, handed to executors
	sleep    SleepFunc
}

// EngineOptions configures an Engine. Zero Timing and Change fall back to the
// config defaults.
type EngineOptions struct {
	Shots   *Store
	Limits  Limits
	Timing  config.TimingConfig
	Change  config.ChangeConfig
	Metrics *metrics.Collector
	Logger  *zap.Logger
	Sleep   SleepFunc
}

// NewEngine returns an Engine using dev and det.
func NewEngine(dev platform.Device, det detector.Detector, opts EngineOptions) *Engine {
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
	return &Engine{
		dev:      dev,
		detector: det,
		shots:    opts.Shots,
		limits:   opts.Limits,
		timing:   opts.Timing,
		change:   opts.Change,
		metrics:  opts.Metrics,
		logger:   opts.Logger.With(zap.String("component", "engine")),
		base:     opts.Logger,
		sleep:    opts.Sleep,
	}
}

// NewEngineFromConfig wires an Engine from the loaded configuration.
func NewEngineFromConfig(cfg *config.Config, dev platform.Device, det detector.Detector, m *metrics.Collector, logger *zap.Logger) *Engine {
	return NewEngine(dev, det, EngineOptions{
		Shots: NewStore(cfg.Device.ScreenshotDir, dev),
		Limits: Limits{
			MaxL1Clicks:       cfg.Explore.MaxL1Clicks,
			MaxL2Interactions: cfg.Explore.MaxL2Interactions,
		},
		Timing:  cfg.Timing,
		Change:  cfg.Change,
		Metrics: m,
		Logger:  logger,
	})
}

// Explore resets pkg, analyzes its root screen and walks the level-1 slides
// then clicks, descending one level below every action that changed the
// screen. The returned error is ErrAppReset (wrapped) when the app could not
// be started, a capture error when the root screen could not be read, or the
// context error.
func (e *Engine) Explore(ctx context.Context, pkg string) (*model.ResultTree, error) {
	log := e.logger.With(zap.String("package", pkg))
	exec := e.executor(pkg)

	log.Info("Starting depth-2 exploration")
	if err := e.resetApp(ctx, pkg); err != nil {
		return nil, err
	}
	if err := e.sleep(ctx, e.timing.PostReset); err != nil {
		return nil, err
	}

	root, err := e.shots.Capture(ctx, "L1_Home")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("capture root screen: %w", err)
	}

	log.Info("Analyzing root screen")
	analysis, err := e.analyze(ctx, root.Image)
	if err != nil {
		return nil, err
	}

	slides := candidates(model.ActionSwipe, append(model.HomeSwipes(), analysis.Slidable...))
	clicks := candidates(model.ActionTap, limit(analysis.Clickable, e.limits.MaxL1Clicks))

	tree := model.NewResultTree()

	log.Info("Running level-1 slides", zap.Int("count", len(slides)))
	for i, c := range slides {
		node, err := e.levelOne(ctx, exec, c, "Slide", i)
		if err != nil {
			return nil, err
		}
		if node != nil {
			tree.L1Slides = append(tree.L1Slides, *node)
		}
	}

	log.Info("Running level-1 clicks", zap.Int("count", len(clicks)))
	for i, c := range clicks {
		node, err := e.levelOne(ctx, exec, c, "Click", i)
		if err != nil {
			return nil, err
		}
		if node != nil {
			tree.L1Clicks = append(tree.L1Clicks, *node)
		}
	}

	s := tree.Summary()
	log.Info("Exploration finished",
		zap.Int("l1_slides", s.L1Slides),
		zap.Int("l1_clicks", s.L1Clicks),
		zap.Int("l2_actions", s.L2Actions))
	return tree, nil
}

func (e *Engine) executor(pkg string) *Executor {
	return NewExecutor(e.dev, ExecutorOptions{
		Package: pkg,
		Shots:   e.shots,
		Timing:  e.timing,
		Change:  e.change,
		Metrics: e.metrics,
		Logger:  e.base,
		Sleep:   e.sleep,
	})
}

// resetApp stops and restarts pkg. Only a failed start is fatal. The stop
// wait is skipped when the stop itself failed.
func (e *Engine) resetApp(ctx context.Context, pkg string) error {
	if err := e.dev.AppStop(ctx, pkg); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.logger.Warn("Failed to stop app", zap.String("package", pkg), zap.Error(err))
	} else if err := e.sleep(ctx, e.timing.StopWait); err != nil {
		return err
	}
	if err := e.dev.AppStart(ctx, pkg); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: start %s: %v", ErrAppReset, pkg, err)
	}
	return e.sleep(ctx, e.timing.StartWait)
}

// analyze runs the detector. A detector failure is logged and treated as an
// empty analysis; only context cancellation is returned.
func (e *Engine) analyze(ctx context.Context, img image.Image) (*detector.Analysis, error) {
	a, err := e.detector.Analyze(ctx, img)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warn("Region detection failed, continuing without candidates", zap.Error(err))
		return detector.Split(nil), nil
	}
	if a == nil {
		return detector.Split(nil), nil
	}
	return a, nil
}

// levelOne executes one level-1 candidate without auto-back and descends
// below it. A nil node with a nil error means the candidate was skipped.
func (e *Engine) levelOne(ctx context.Context, exec *Executor, c Candidate, label string, index int) (*model.LevelOneNode, error) {
	out, err := exec.Execute(ctx, Step{
		Candidate: c,
		Name:      fmt.Sprintf("L1_%s_%d", label, index),
		Level:     1,
	})
	if err != nil {
		if IsAbort(err) {
			return nil, nil
		}
		return nil, err
	}

	node := &model.LevelOneNode{ExplorationNode: out.Node}
	if !out.Node.HasChanged || out.After == nil {
		return node, nil
	}

	l2, err := e.levelTwo(ctx, exec, out.After, label, index)
	if err != nil {
		return nil, err
	}
	node.L2Exploration = l2
	return node, nil
}

// levelTwo explores the screen reached by a level-1 action and then issues
// exactly one recovery, whatever happened below.
func (e *Engine) levelTwo(ctx context.Context, exec *Executor, screen *Shot, label string, parent int) ([]model.ExplorationNode, error) {
	log := e.logger.With(zap.String("parent", fmt.Sprintf("L1_%s_%d", label, parent)))
	log.Info("Entering level 2")

	analysis, err := e.analyze(ctx, screen.Image)
	if err != nil {
		return nil, err
	}

	var cands []Candidate
	cands = append(cands, candidates(model.ActionSwipe, analysis.Slidable)...)
	cands = append(cands, candidates(model.ActionTap, analysis.Clickable)...)
	cands = limit(cands, e.limits.MaxL2Interactions)

	nodes := []model.ExplorationNode{}
	if len(cands) == 0 {
		log.Info("No interactive regions on level-2 screen")
	}
	for j, c := range cands {
		out, err := exec.Execute(ctx, Step{
			Candidate: c,
			Name:      fmt.Sprintf("L1_%s_%d_L2_%d", label, parent, j),
			Level:     2,
			AutoBack:  true,
		})
		if err != nil {
			if IsAbort(err) {
				continue
			}
			return nil, err
		}
		nodes = append(nodes, out.Node)
	}

	log.Info("Leaving level 2, returning to root")
	if err := exec.Recover(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("Recovery failed", zap.Error(err))
	}
	return nodes, nil
}

func candidates(kind model.ActionKind, regions []model.Region) []Candidate {
	out := make([]Candidate, len(regions))
	for i, r := range regions {
		out[i] = Candidate{Region: r, Kind: kind}
	}
	return out
}

// limit returns the first n items. A negative n means no limit.
func limit[T any](items []T, n int) []T {
	if n < 0 || len(items) <= n {
		return items
	}
	return items[:n]
}
