package model

import "image"

// GridSize is the extent of the normalized coordinate grid on each axis.
const GridSize = 1000

// Region is a detector-proposed interactive area. BBox is on the normalized
// [0,1000] grid and its corner order is not guaranteed.
type Region struct {
	BBox        [4]float64 `yaml:"bbox" json:"bbox"`
	Category    Category   `yaml:"category" json:"category"`
	Type        string     `yaml:"type,omitempty" json:"type,omitempty"`
	Direction   string     `yaml:"direction,omitempty" json:"direction,omitempty"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Interaction string     `yaml:"interaction,omitempty" json:"interaction,omitempty"`
}

// HomeSwipes returns the two synthetic whole-screen slidable regions probed on
// every root screen before any detector proposal: vertical first, then
// horizontal.
func HomeSwipes() []Region {
	full := [4]float64{0, 0, GridSize, GridSize}
	return []Region{
		{
			BBox:        full,
			Category:    CategorySlidable,
			Direction:   "vertical",
			Description: "swipe up on the home screen to discover more content",
		},
		{
			BBox:        full,
			Category:    CategorySlidable,
			Direction:   "horizontal",
			Description: "swipe left on the home screen to discover more content",
		},
	}
}

// PixelBox converts the normalized bbox into pixel coordinates for a w x h
// screen. Corner order is preserved.
func (r Region) PixelBox(w, h int) [4]float64 {
	fw, fh := float64(w), float64(h)
	return [4]float64{
		r.BBox[0] * fw / GridSize,
		r.BBox[1] * fh / GridSize,
		r.BBox[2] * fw / GridSize,
		r.BBox[3] * fh / GridSize,
	}
}

// PixelRect is PixelBox as a canonical integer rectangle (corners ordered).
func (r Region) PixelRect(w, h int) image.Rectangle {
	b := r.PixelBox(w, h)
	return image.Rect(int(b[0]), int(b[1]), int(b[2]), int(b[3]))
}

// RegionAt returns a zero-size region at pixel (x, y) on a w x h screen, for
// acting on raw coordinates through the region pipeline.
func RegionAt(x, y float64, w, h int) Region {
	gx := x * GridSize / float64(w)
	gy := y * GridSize / float64(h)
	return Region{BBox: [4]float64{gx, gy, gx, gy}, Category: CategoryClickable}
}
