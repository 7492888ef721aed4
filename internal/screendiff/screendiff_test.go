package screendiff

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// patch returns a copy of base with the rectangle r painted at intensity v.
func patch(base *image.Gray, r image.Rectangle, v uint8) *image.Gray {
	out := image.NewGray(base.Bounds())
	copy(out.Pix, base.Pix)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			out.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return out
}

func TestChanged_IdenticalImages(t *testing.T) {
	img := Uniform(108, 192, 128)
	assert.False(t, Changed(img, img, nil, TapThreshold))
	assert.False(t, Changed(img, Uniform(108, 192, 128), nil, 1e-9))
}

func TestChanged_IdenticalNeverChangedProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := rapid.IntRange(1, 40).Draw(rt, "w")
		h := rapid.IntRange(1, 40).Draw(rt, "h")
		g := image.NewGray(image.Rect(0, 0, w, h))
		for i := range g.Pix {
			g.Pix[i] = rapid.Uint8().Draw(rt, "px")
		}
		th := rapid.Float64Range(1e-9, 1).Draw(rt, "threshold")
		if Changed(g, g, nil, th) {
			rt.Fatal("identical images reported as changed")
		}
	})
}

func TestChanged_MaximallyDifferent(t *testing.T) {
	black := Uniform(50, 50, 0)
	white := Uniform(50, 50, 255)
	ratio, ok := Compare(black, white, nil)
	require.True(t, ok)
	assert.Equal(t, 1.0, ratio)
	assert.True(t, Changed(black, white, nil, 0.999))
}

func TestChanged_PixelDeltaBoundary(t *testing.T) {
	base := Uniform(10, 10, 100)
	assert.False(t, Changed(base, Uniform(10, 10, 110), nil, 0), "delta of exactly 10 does not count")
	assert.True(t, Changed(base, Uniform(10, 10, 111), nil, 0))
}

func TestChanged_Thresholds(t *testing.T) {
	// 1080x1920 scaled down by 10 keeps the same ratios.
	base := Uniform(108, 192, 40)
	total := 108 * 192

	// Just over 1% of pixels changed.
	n := total/100 + 10
	tap := patch(base, image.Rect(0, 0, 108, n/108+1), 200)
	assert.True(t, Changed(base, tap, nil, TapThreshold))

	// One row of 192 is about 0.52%: enough for a swipe, not for a tap.
	small := patch(base, image.Rect(0, 0, 108, 1), 200)
	ratio, ok := Compare(base, small, nil)
	require.True(t, ok)
	assert.InDelta(t, 1.0/192, ratio, 1e-12)
	assert.False(t, Changed(base, small, nil, TapThreshold))
	assert.True(t, Changed(base, small, nil, SwipeThreshold))
}

func TestChanged_Region(t *testing.T) {
	base := Uniform(100, 100, 0)
	after := patch(base, image.Rect(0, 0, 10, 10), 255)

	inside := image.Rect(0, 0, 20, 20)
	ratio, ok := Compare(base, after, &inside)
	require.True(t, ok)
	assert.InDelta(t, 0.25, ratio, 1e-12)

	outside := image.Rect(50, 50, 100, 100)
	assert.False(t, Changed(base, after, &outside, 0))

	reversed := image.Rect(20, 20, 0, 0)
	ratio, ok = Compare(base, after, &reversed)
	require.True(t, ok)
	assert.InDelta(t, 0.25, ratio, 1e-12)
}

func TestChanged_Failures(t *testing.T) {
	img := Uniform(10, 10, 0)
	assert.False(t, Changed(nil, img, nil, 0))
	assert.False(t, Changed(img, nil, nil, 0))

	off := image.Rect(500, 500, 600, 600)
	_, ok := Compare(img, Uniform(10, 10, 255), &off)
	assert.False(t, ok, "crop outside the frame cannot be compared")
}

func TestChanged_ResizesSecondImage(t *testing.T) {
	before := Uniform(100, 200, 50)
	assert.False(t, Changed(before, Uniform(50, 100, 50), nil, 0))
	assert.True(t, Changed(before, Uniform(50, 100, 200), nil, 0.5))
}

func TestChanged_NonZeroOrigin(t *testing.T) {
	a := Uniform(20, 20, 10)
	shifted := a.SubImage(image.Rect(5, 5, 15, 15))
	assert.False(t, Changed(shifted, Uniform(10, 10, 10), nil, 0))
}

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestChangedFiles(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", Uniform(30, 30, 0))
	b := writePNG(t, dir, "b.png", Uniform(30, 30, 255))

	assert.True(t, ChangedFiles(a, b, nil, TapThreshold))
	assert.False(t, ChangedFiles(a, a, nil, TapThreshold))
	assert.False(t, ChangedFiles(a, filepath.Join(dir, "missing.png"), nil, TapThreshold))

	junk := filepath.Join(dir, "junk.png")
	require.NoError(t, os.WriteFile(junk, []byte("not an image"), 0o644))
	assert.False(t, ChangedFiles(junk, a, nil, TapThreshold))
}

func TestCompareFiles_GridBox(t *testing.T) {
	dir := t.TempDir()
	base := Uniform(100, 100, 0)
	// Change only the bottom half.
	changed := patch(base, image.Rect(0, 50, 100, 100), 255)
	a := writePNG(t, dir, "a.png", base)
	b := writePNG(t, dir, "b.png", changed)

	ratio, ok, err := CompareFiles(a, b, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0.5, ratio, 1e-9)

	top := [4]float64{0, 0, 1000, 500}
	ratio, ok, err = CompareFiles(a, b, &top)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, ratio)

	bottom := [4]float64{1000, 1000, 0, 500}
	ratio, _, err = CompareFiles(a, b, &bottom)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, ratio, 1e-9)

	_, _, err = CompareFiles(a, filepath.Join(dir, "missing.png"), nil)
	assert.Error(t, err)
}
