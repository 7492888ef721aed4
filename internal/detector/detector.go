// Package detector proposes interactive screen regions by asking a vision
// language model about a screenshot.
package detector

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/mj1618/swipegen/internal/model"
	xdraw "golang.org/x/image/draw"
)

// DefaultPrompt asks the model for a JSON array of regions on the [0,1000]
// grid.
const DefaultPrompt = `Carefully analyze this mobile app UI screenshot and find the interactive regions: elements that can be tapped, and areas that can be scrolled or swiped vertically or horizontally, such as lists, carousels or the whole page.
Output at most the 6 most important slidable regions, plus the clickable regions.

For each region provide:
1. category: "clickable" or "slidable"
2. type: a short kind description (button, list, carousel, ...)
3. direction: for slidable regions, the scroll direction (horizontal/vertical/both)
4. bbox: bounding box [x1,y1,x2,y2], x and y in the range 0-1000
5. description: the intent of acting on this region
6. interaction: "click" or "long_press" for clickable regions, "swipe" for slidable regions

Answer with a JSON array of objects only, with no other text.`

// Analysis is the detector output split by category. Regions of unknown
// category are dropped.
type Analysis struct {
	Clickable []model.Region `yaml:"clickable" json:"clickable"`
	Slidable  []model.Region `yaml:"slidable" json:"slidable"`
}

// Empty reports whether no region was proposed.
func (a *Analysis) Empty() bool {
	return a == nil || (len(a.Clickable) == 0 && len(a.Slidable) == 0)
}

// Detector proposes regions for a screenshot.
type Detector interface {
	Analyze(ctx context.Context, img image.Image) (*Analysis, error)
}

// Split sorts regions into clickable and slidable lists, preserving order.
func Split(regions []model.Region) *Analysis {
	a := &Analysis{Clickable: []model.Region{}, Slidable: []model.Region{}}
	for _, r := range regions {
		switch r.Category {
		case model.CategoryClickable:
			a.Clickable = append(a.Clickable, r)
		case model.CategorySlidable:
			a.Slidable = append(a.Slidable, r)
		}
	}
	return a
}

// Downscale resizes img by scale with bilinear filtering. A scale of 1 or
// more returns img unchanged.
func Downscale(img image.Image, scale float64) image.Image {
	if scale <= 0 || scale >= 1 {
		return img
	}
	b := img.Bounds()
	w := int(float64(b.Dx()) * scale)
	h := int(float64(b.Dy()) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// encodePNG downscales and PNG-encodes img for upload.
func encodePNG(img image.Image, scale float64) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("no image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, Downscale(img, scale)); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
