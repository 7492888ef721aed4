// Package format converts raw pixel-space interaction parameters into
// normalized action records.
package format

import (
	"math"

	"github.com/mj1618/swipegen/internal/model"
)

// FastSpeed is the velocity, in normalized units per second, above which a
// gesture is labelled fast: crossing the full grid in under one second.
const FastSpeed = 1000.0

// Formatter normalizes coordinates for a fixed screen size. The zero value is
// not usable; construct with New.
type Formatter struct {
	W, H int
}

// New returns a Formatter for a w x h pixel screen.
func New(w, h int) *Formatter {
	return &Formatter{W: w, H: h}
}

// normalizeAxis rounds half to even so records match the reference data set.
func normalizeAxis(v float64, extent int) int {
	if extent <= 0 {
		return 0
	}
	n := math.RoundToEven(v / float64(extent) * model.GridSize)
	switch {
	case math.IsNaN(n):
		return 0
	case n <= 0:
		return 0
	case n >= model.GridSize:
		return model.GridSize
	}
	return int(n)
}

// Normalize maps a pixel coordinate onto the [0,1000] grid, clamping each
// axis independently. It never fails.
func (f *Formatter) Normalize(x, y float64) model.Point {
	return model.Point{normalizeAxis(x, f.W), normalizeAxis(y, f.H)}
}

// NormalizeBBox normalizes both corners independently. Corner order is kept.
func (f *Formatter) NormalizeBBox(b [4]float64) [4]int {
	p1 := f.Normalize(b[0], b[1])
	p2 := f.Normalize(b[2], b[3])
	return [4]int{p1[0], p1[1], p2[0], p2[1]}
}

// Distance is the Euclidean distance between two normalized points,
// truncated toward zero.
func Distance(a, b model.Point) int {
	dx := float64(b[0] - a[0])
	dy := float64(b[1] - a[1])
	return int(math.Sqrt(dx*dx + dy*dy))
}

// Direction returns a compass label for swipes and an angle in radians in
// [0, 2π) for drags. A swipe whose |dx| equals |dy| is treated as vertical.
func Direction(a, b model.Point, kind model.ActionKind) model.Direction {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	if kind == model.ActionDrag {
		return model.AngleDirection(dragAngle(dx, dy))
	}
	if abs(dx) > abs(dy) {
		if dx > 0 {
			return model.LabelDirection("right")
		}
		return model.LabelDirection("left")
	}
	if dy > 0 {
		return model.LabelDirection("down")
	}
	return model.LabelDirection("up")
}

func dragAngle(dx, dy int) float64 {
	angle := math.Atan2(float64(dy), float64(dx))
	if angle < 0 {
		angle += 2 * math.Pi
	}
	angle = math.Round(angle*1e4) / 1e4
	// Angles just below 2π round up to it; wrap so the range stays half-open.
	if angle >= math.Round(2*math.Pi*1e4)/1e4 {
		angle = 0
	}
	return angle
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Speed labels a gesture fast when it covers more than FastSpeed normalized
// units per second. A non-positive duration is instantaneous and so fast.
func Speed(distance, durationMs int) string {
	if durationMs <= 0 {
		return model.SpeedFast
	}
	velocity := float64(distance) / (float64(durationMs) / 1000)
	if velocity > FastSpeed {
		return model.SpeedFast
	}
	return model.SpeedSlow
}

// Tap builds a tap record. bbox may be nil.
func (f *Formatter) Tap(x, y float64, bbox *[4]float64, description string) model.ActionRecord {
	intent := "tap the specified position"
	if description != "" {
		intent = "tap " + description
	}
	return model.ActionRecord{
		Action:   model.ActionTap,
		Position: f.Normalize(x, y),
		BBox:     f.normalizeOptional(bbox),
		Intent:   intent,
	}
}

// Swipe builds a swipe or drag record. The intent is the raw description.
func (f *Formatter) Swipe(sx, sy, ex, ey float64, durationMs int, bbox *[4]float64, description string, kind model.ActionKind) model.ActionRecord {
	start := f.Normalize(sx, sy)
	end := f.Normalize(ex, ey)
	dist := Distance(start, end)
	return model.ActionRecord{
		Action:    kind,
		Start:     start,
		End:       end,
		Duration:  durationMs,
		Direction: Direction(start, end, kind),
		Distance:  dist,
		Speed:     Speed(dist, durationMs),
		BBox:      f.normalizeOptional(bbox),
		Intent:    description,
	}
}

func (f *Formatter) normalizeOptional(b *[4]float64) *[4]int {
	if b == nil {
		return nil
	}
	n := f.NormalizeBBox(*b)
	return &n
}
