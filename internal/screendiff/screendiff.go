// Package screendiff judges whether the screen changed between two captures.
package screendiff

import (
	"image"
	"image/color"
	stddraw "image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/mj1618/swipegen/internal/model"
	xdraw "golang.org/x/image/draw"
)

// PixelDelta is the 8-bit intensity difference a pixel must exceed to count
// as changed.
const PixelDelta = 10

// Default thresholds for full-screen verification.
const (
	TapThreshold   = 0.01
	SwipeThreshold = 0.005
)

// Compare returns the fraction of pixels whose intensity differs by more than
// PixelDelta. If region is non-nil both images are cropped to it first; if
// sizes then differ, after is resized to match before. ok is false when the
// comparison cannot be made.
func Compare(before, after image.Image, region *image.Rectangle) (ratio float64, ok bool) {
	if before == nil || after == nil {
		return 0, false
	}
	a := grayscale(before)
	b := grayscale(after)

	if region != nil {
		a = crop(a, *region)
		b = crop(b, *region)
		if a == nil || b == nil {
			return 0, false
		}
	}

	if a.Bounds().Empty() || b.Bounds().Empty() {
		return 0, false
	}
	if a.Bounds().Size() != b.Bounds().Size() {
		b = resize(b, a.Bounds().Size())
	}

	w, h := a.Bounds().Dx(), a.Bounds().Dy()
	changed := 0
	for y := 0; y < h; y++ {
		ra := a.Pix[y*a.Stride : y*a.Stride+w]
		rb := b.Pix[y*b.Stride : y*b.Stride+w]
		for x := 0; x < w; x++ {
			d := int(ra[x]) - int(rb[x])
			if d < 0 {
				d = -d
			}
			if d > PixelDelta {
				changed++
			}
		}
	}
	return float64(changed) / float64(w*h), true
}

// Changed reports whether more than threshold of the pixels changed. Any
// failure to compare counts as no change.
func Changed(before, after image.Image, region *image.Rectangle, threshold float64) bool {
	ratio, ok := Compare(before, after, region)
	return ok && ratio > threshold
}

// ChangedFiles is Changed over two image files on disk.
func ChangedFiles(beforePath, afterPath string, region *image.Rectangle, threshold float64) bool {
	before, err := Load(beforePath)
	if err != nil {
		return false
	}
	after, err := Load(afterPath)
	if err != nil {
		return false
	}
	return Changed(before, after, region, threshold)
}

// CompareFiles loads two image files and compares them. gridBox, when set,
// is a region on the normalized 0-1000 grid of the first image. A load
// failure is returned as an error; an incomparable pair gives ok false.
func CompareFiles(beforePath, afterPath string, gridBox *[4]float64) (ratio float64, ok bool, err error) {
	before, err := Load(beforePath)
	if err != nil {
		return 0, false, err
	}
	after, err := Load(afterPath)
	if err != nil {
		return 0, false, err
	}
	var region *image.Rectangle
	if gridBox != nil {
		b := before.Bounds()
		r := model.Region{BBox: *gridBox}.PixelRect(b.Dx(), b.Dy())
		region = &r
	}
	ratio, ok = Compare(before, after, region)
	return ratio, ok, nil
}

// Load decodes a PNG or JPEG file.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

// grayscale returns a copy of img as an 8-bit intensity image rebased to the
// origin.
func grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	stddraw.Draw(g, g.Bounds(), img, b.Min, stddraw.Src)
	return g
}

// crop clips g to r (in image pixel coordinates) and rebases the result to the
// origin. It returns nil when r does not overlap g.
func crop(g *image.Gray, r image.Rectangle) *image.Gray {
	r = r.Canon().Intersect(g.Bounds())
	if r.Empty() {
		return nil
	}
	out := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	stddraw.Draw(out, out.Bounds(), g, r.Min, stddraw.Src)
	return out
}

func resize(g *image.Gray, size image.Point) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, size.X, size.Y))
	xdraw.BiLinear.Scale(out, out.Bounds(), g, g.Bounds(), xdraw.Src, nil)
	return out
}

// Uniform returns a w x h image filled with a single intensity. Handy for
// synthetic comparisons.
func Uniform(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	stddraw.Draw(g, g.Bounds(), &image.Uniform{C: color.Gray{Y: v}}, image.Point{}, stddraw.Src)
	return g
}
