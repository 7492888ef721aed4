package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/mj1618/swipegen/internal/detector"
	"github.com/mj1618/swipegen/internal/metrics"
	"github.com/mj1618/swipegen/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func clickable(n int) []model.Region {
	out := make([]model.Region, n)
	for i := range out {
		y := float64(100 * (i + 1))
		out[i] = model.Region{
			BBox:        [4]float64{100, y, 300, y + 50},
			Category:    model.CategoryClickable,
			Description: fmt.Sprintf("button %d", i),
		}
	}
	return out
}

func slidable(n int) []model.Region {
	out := make([]model.Region, n)
	for i := range out {
		out[i] = model.Region{
			BBox:        [4]float64{0, 500, 1000, 900},
			Category:    model.CategorySlidable,
			Direction:   "vertical",
			Description: fmt.Sprintf("list %d", i),
		}
	}
	return out
}

func analysis(clicks, slides []model.Region) *detector.Analysis {
	a := detector.Split(nil)
	a.Clickable = append(a.Clickable, clicks...)
	a.Slidable = append(a.Slidable, slides...)
	return a
}

func newTestEngine(t *testing.T, dev *fakeDevice, det detector.Detector, limits Limits) (*Engine, *sleepRecorder) {
	t.Helper()
	sleeps := &sleepRecorder{}
	e := NewEngine(dev, det, EngineOptions{
		Shots:  NewStore(t.TempDir(), dev),
		Limits: limits,
		Logger: zaptest.NewLogger(t),
		Sleep:  sleeps.Sleep,
	})
	return e, sleeps
}

func TestExplore_ResetSequence(t *testing.T) {
	dev := newFakeDevice()
	e, sleeps := newTestEngine(t, dev, &fakeDetector{}, Limits{MaxL1Clicks: 5, MaxL2Interactions: 3})

	_, err := e.Explore(context.Background(), testPkg)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(dev.calls), 2)
	assert.Equal(t, []string{"stop " + testPkg, "start " + testPkg}, dev.calls[:2])
	require.GreaterOrEqual(t, len(sleeps.durations), 3)
	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second, 1500 * time.Millisecond}, sleeps.durations[:3])
}

func TestExplore_HomeSwipesFirstThenClicks(t *testing.T) {
	dev := newFakeDevice()
	det := &fakeDetector{results: []detectorResult{{analysis: analysis(clickable(1), slidable(1))}}}
	e, _ := newTestEngine(t, dev, det, Limits{MaxL1Clicks: 5, MaxL2Interactions: 3})

	tree, err := e.Explore(context.Background(), testPkg)
	require.NoError(t, err)

	require.Len(t, tree.L1Slides, 3)
	assert.Equal(t, "vertical", tree.L1Slides[0].RegionInfo.Direction)
	assert.Equal(t, "horizontal", tree.L1Slides[1].RegionInfo.Direction)
	assert.Equal(t, "list 0", tree.L1Slides[2].RegionInfo.Description)
	require.Len(t, tree.L1Clicks, 1)
	assert.Equal(t, model.ActionTap, tree.L1Clicks[0].Type)

	lastSwipe := dev.indexOf(dev.callsWithPrefix("swipe")[2])
	firstClick := dev.indexOf(dev.callsWithPrefix("click")[0])
	assert.Less(t, lastSwipe, firstClick, "slides run before clicks")

	for _, n := range append(tree.L1Slides, tree.L1Clicks...) {
		assert.False(t, n.HasChanged)
		assert.Nil(t, n.L2Exploration, "no descent below an unchanged screen")
	}
	assert.Empty(t, dev.callsWithPrefix("current"), "no recovery when nothing changed")
	assert.Len(t, det.images, 1, "only the root screen is analyzed")
	assert.NoError(t, tree.Validate())
}

func TestExplore_MaxL1Clicks(t *testing.T) {
	dev := newFakeDevice()
	det := &fakeDetector{results: []detectorResult{{analysis: analysis(clickable(5), nil)}}}
	e, _ := newTestEngine(t, dev, det, Limits{MaxL1Clicks: 2, MaxL2Interactions: 3})

	tree, err := e.Explore(context.Background(), testPkg)
	require.NoError(t, err)

	// button i spans y in [100(i+1), 100(i+1)+50] on the grid.
	assert.Equal(t, []string{"click 216 240", "click 216 432"}, dev.callsWithPrefix("click"))
	require.Len(t, tree.L1Clicks, 2)
	assert.Equal(t, "button 0", tree.L1Clicks[0].RegionInfo.Description)
	assert.Equal(t, "button 1", tree.L1Clicks[1].RegionInfo.Description)
}

func TestExplore_ChangeDescendsWithoutImmediateBack(t *testing.T) {
	dev := newFakeDevice()
	var currentAtDescent []string
	det := &fakeDetector{}
	dev.react = func(d *fakeDevice, call string) {
		if call == "click 216 240" {
			d.setScreen(screenB)
		}
	}
	det.results = []detectorResult{
		{analysis: analysis(clickable(1), nil)},
		{analysis: analysis(nil, nil)},
	}
	e, _ := newTestEngine(t, dev, &recordingDetector{inner: det, onCall: func() {
		currentAtDescent = dev.callsWithPrefix("current")
	}}, Limits{MaxL1Clicks: 5, MaxL2Interactions: 3})

	tree, err := e.Explore(context.Background(), testPkg)
	require.NoError(t, err)

	require.Len(t, det.images, 2, "level-2 analysis follows a changed level-1 action")
	assert.Same(t, screenB, det.images[1], "level 2 analyzes the post-action screen")
	assert.Empty(t, currentAtDescent, "level-1 actions do not back out before descent")

	require.Len(t, tree.L1Clicks, 1)
	assert.True(t, tree.L1Clicks[0].HasChanged)
	assert.True(t, tree.L1Clicks[0].ActionData.Success)
}

func TestExplore_EmptyDescentStillRecoversOnce(t *testing.T) {
	dev := newFakeDevice()
	dev.react = func(d *fakeDevice, call string) {
		if call == "click 216 240" {
			d.setScreen(screenB)
			d.current = "com.other"
		}
		if call == "start "+testPkg {
			d.setScreen(screenA)
			d.current = testPkg
		}
	}
	det := &fakeDetector{results: []detectorResult{
		{analysis: analysis(clickable(1), nil)},
		{analysis: analysis(nil, nil)},
	}}
	reg := prometheus.NewRegistry()
	e, _ := newTestEngine(t, dev, det, Limits{MaxL1Clicks: 5, MaxL2Interactions: 3})
	e.metrics = metrics.NewCollector(reg, nil)

	tree, err := e.Explore(context.Background(), testPkg)
	require.NoError(t, err)

	require.Len(t, tree.L1Clicks, 1)
	l2 := tree.L1Clicks[0].L2Exploration
	require.NotNil(t, l2)
	assert.Empty(t, l2)
	assert.Equal(t, []string{"current"}, dev.callsWithPrefix("current"), "exactly one recovery")
	assert.Equal(t, []string{"start " + testPkg, "start " + testPkg}, dev.callsWithPrefix("start"), "reset plus one relaunch")

	b, err := json.Marshal(tree.L1Clicks[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), `"l2_exploration":[]`)

	expected := `
# HELP swipegen_recoveries_total Recovery operations issued to return to the app
# TYPE swipegen_recoveries_total counter
swipegen_recoveries_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "swipegen_recoveries_total"))
}

func TestExplore_LevelTwoCandidatesAndNaming(t *testing.T) {
	dev := newFakeDevice()
	dev.react = func(d *fakeDevice, call string) {
		if call == "click 216 240" {
			d.setScreen(screenB)
		}
	}
	det := &fakeDetector{results: []detectorResult{
		{analysis: analysis(clickable(1), nil)},
		{analysis: analysis(clickable(3), slidable(2))},
	}}
	e, _ := newTestEngine(t, dev, det, Limits{MaxL1Clicks: 5, MaxL2Interactions: 3})

	tree, err := e.Explore(context.Background(), testPkg)
	require.NoError(t, err)

	require.Len(t, tree.L1Clicks, 1)
	l2 := tree.L1Clicks[0].L2Exploration
	require.Len(t, l2, 3, "capped at max_l2_interactions")
	assert.Equal(t, model.ActionSwipe, l2[0].Type)
	assert.Equal(t, model.ActionSwipe, l2[1].Type)
	assert.Equal(t, model.ActionTap, l2[2].Type, "slides come before clicks")
	assert.Equal(t, "button 0", l2[2].RegionInfo.Description)

	assert.Contains(t, l2[0].ScreenshotBefore, "L1_Click_0_L2_0_before_")
	assert.Contains(t, l2[2].ScreenshotBefore, "L1_Click_0_L2_2_before_")
	assert.Contains(t, tree.L1Clicks[0].ScreenshotBefore, "L1_Click_0_before_")
	assert.Contains(t, tree.L1Slides[1].ScreenshotBefore, "L1_Slide_1_before_")
	assert.NoError(t, tree.Validate())
}

func TestExplore_LevelTwoAbortsAreSkipped(t *testing.T) {
	dev := newFakeDevice()
	dev.react = func(d *fakeDevice, call string) {
		if call == "click 216 240" {
			d.setScreen(screenB)
			// Every swipe from here on fails.
			d.swipeErr = errBoom
		}
	}
	det := &fakeDetector{results: []detectorResult{
		{analysis: analysis(clickable(1), nil)},
		{analysis: analysis(nil, slidable(2))},
	}}
	e, _ := newTestEngine(t, dev, det, Limits{MaxL1Clicks: 5, MaxL2Interactions: 3})

	tree, err := e.Explore(context.Background(), testPkg)
	require.NoError(t, err)

	l2 := tree.L1Clicks[0].L2Exploration
	require.NotNil(t, l2)
	assert.Empty(t, l2)
	assert.Len(t, dev.callsWithPrefix("current"), 1)
}

func TestExplore_LevelTwoAutoBack(t *testing.T) {
	dev := newFakeDevice()
	dev.react = func(d *fakeDevice, call string) {
		switch call {
		case "click 216 240":
			d.setScreen(screenB)
		case "click 216 528":
			d.setScreen(screenC)
		}
	}
	l2 := []model.Region{{BBox: [4]float64{100, 250, 300, 300}, Category: model.CategoryClickable}}
	det := &fakeDetector{results: []detectorResult{
		{analysis: analysis(clickable(1), nil)},
		{analysis: analysis(l2, nil)},
	}}
	e, _ := newTestEngine(t, dev, det, Limits{MaxL1Clicks: 5, MaxL2Interactions: 3})

	tree, err := e.Explore(context.Background(), testPkg)
	require.NoError(t, err)

	require.Len(t, tree.L1Clicks[0].L2Exploration, 1)
	assert.True(t, tree.L1Clicks[0].L2Exploration[0].HasChanged)
	assert.Len(t, dev.callsWithPrefix("current"), 2, "auto-back after the level-2 change plus the closing recovery")
}

func TestExplore_DetectorFailureIsEmptyAnalysis(t *testing.T) {
	dev := newFakeDevice()
	det := &fakeDetector{results: []detectorResult{{err: errBoom}}}
	e, _ := newTestEngine(t, dev, det, Limits{MaxL1Clicks: 5, MaxL2Interactions: 3})

	tree, err := e.Explore(context.Background(), testPkg)
	require.NoError(t, err)
	assert.Len(t, tree.L1Slides, 2, "home swipes still run")
	assert.Empty(t, tree.L1Clicks)
}

func TestExplore_LevelTwoDetectorFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.react = func(d *fakeDevice, call string) {
		if call == "click 216 240" {
			d.setScreen(screenB)
		}
	}
	det := &fakeDetector{results: []detectorResult{
		{analysis: analysis(clickable(1), nil)},
		{err: errBoom},
	}}
	e, _ := newTestEngine(t, dev, det, Limits{MaxL1Clicks: 5, MaxL2Interactions: 3})

	tree, err := e.Explore(context.Background(), testPkg)
	require.NoError(t, err)
	require.NotNil(t, tree.L1Clicks[0].L2Exploration)
	assert.Empty(t, tree.L1Clicks[0].L2Exploration)
	assert.Len(t, dev.callsWithPrefix("current"), 1)
}

func TestExplore_AppResetFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.startErr = errBoom
	det := &fakeDetector{}
	e, _ := newTestEngine(t, dev, det, Limits{MaxL1Clicks: 5})

	tree, err := e.Explore(context.Background(), testPkg)
	assert.Nil(t, tree)
	assert.ErrorIs(t, err, ErrAppReset)
	assert.Empty(t, det.images)
}

func TestExplore_StopFailureIsNotFatal(t *testing.T) {
	dev := newFakeDevice()
	dev.stopErr = errBoom
	e, sleeps := newTestEngine(t, dev, &fakeDetector{}, Limits{MaxL1Clicks: 5})

	_, err := e.Explore(context.Background(), testPkg)
	assert.NoError(t, err)
	require.GreaterOrEqual(t, len(sleeps.durations), 2)
	assert.Equal(t, []time.Duration{3 * time.Second, 1500 * time.Millisecond}, sleeps.durations[:2],
		"no stop wait after a failed stop")
}

func TestExplore_ExecutorLogsCarryOneComponent(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	dev := newFakeDevice()
	det := &fakeDetector{results: []detectorResult{{analysis: analysis(clickable(1), nil)}}}
	e := NewEngine(dev, det, EngineOptions{
		Shots:  NewStore(t.TempDir(), dev),
		Limits: Limits{MaxL1Clicks: 5},
		Logger: zap.New(core),
		Sleep:  (&sleepRecorder{}).Sleep,
	})

	_, err := e.Explore(context.Background(), testPkg)
	require.NoError(t, err)

	executorLines := 0
	for _, entry := range logs.All() {
		components := 0
		for _, f := range entry.Context {
			if f.Key == "component" {
				components++
			}
		}
		assert.Equal(t, 1, components, "entry %q", entry.Message)
		if entry.ContextMap()["component"] == "executor" {
			executorLines++
		}
	}
	assert.Positive(t, executorLines)
}

func TestExplore_RootCaptureFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.shotErrs = map[int]error{0: errBoom}
	det := &fakeDetector{}
	e, _ := newTestEngine(t, dev, det, Limits{MaxL1Clicks: 5})

	_, err := e.Explore(context.Background(), testPkg)
	require.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrAppReset)
	assert.Empty(t, det.images)
}

func TestExplore_AbortedLevelOneSkipped(t *testing.T) {
	dev := newFakeDevice()
	dev.swipeErr = errBoom
	det := &fakeDetector{results: []detectorResult{{analysis: analysis(clickable(1), nil)}}}
	e, _ := newTestEngine(t, dev, det, Limits{MaxL1Clicks: 5})

	tree, err := e.Explore(context.Background(), testPkg)
	require.NoError(t, err)
	assert.Empty(t, tree.L1Slides)
	assert.Len(t, tree.L1Clicks, 1)
}

func TestExplore_Cancelled(t *testing.T) {
	dev := newFakeDevice()
	e, _ := newTestEngine(t, dev, &fakeDetector{}, Limits{MaxL1Clicks: 5})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tree, err := e.Explore(ctx, testPkg)
	assert.Nil(t, tree)
	assert.ErrorIs(t, err, context.Canceled)
}

// recordingDetector calls onCall before delegating.
type recordingDetector struct {
	inner  detector.Detector
	onCall func()
	calls  int
}

func (r *recordingDetector) Analyze(ctx context.Context, img image.Image) (*detector.Analysis, error) {
	r.calls++
	if r.calls > 1 {
		r.onCall()
	}
	return r.inner.Analyze(ctx, img)
}
