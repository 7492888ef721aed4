package cmd

import (
	"image"
	"image/color"
	"testing"

	"github.com/mj1618/swipegen/internal/model"
)

func TestAnnotateRegions_DrawsCategoryColors(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 200, 400))
	regions := []model.Region{
		{BBox: [4]float64{100, 100, 500, 500}, Category: model.CategoryClickable},
		// Reversed corners still outline the same box.
		{BBox: [4]float64{900, 900, 600, 600}, Category: model.CategorySlidable},
	}
	out := AnnotateRegions(img, regions)

	if got := out.RGBAAt(20, 40); got != clickableColor {
		t.Errorf("clickable corner = %v, want %v", got, clickableColor)
	}
	if got := out.RGBAAt(120, 240); got != slidableColor {
		t.Errorf("slidable corner = %v, want %v", got, slidableColor)
	}
	if got := out.RGBAAt(5, 5); got != (color.RGBA{A: 255}) {
		t.Errorf("pixel outside every box should be untouched, got %v", got)
	}
	if img.GrayAt(20, 40).Y != 0 {
		t.Error("source image must not be modified")
	}
}

func TestAnnotateRegions_LabelDrawn(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 400))
	out := AnnotateRegions(img, []model.Region{{BBox: [4]float64{0, 0, 1000, 1000}, Description: "feed"}})

	white := 0
	b := out.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if out.RGBAAt(x, y) == textColor {
				white++
			}
		}
	}
	if white == 0 {
		t.Error("expected label pixels")
	}
	if got := out.RGBAAt(0, 200); got != unknownColor {
		t.Errorf("unknown category edge = %v, want %v", got, unknownColor)
	}
}

func TestDrawRectangle_ClampsToBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	c := color.RGBA{R: 255, A: 255}
	drawRectangle(img, -5, -5, 5, 5, c)
	if img.RGBAAt(0, 3) != c || img.RGBAAt(4, 0) != c {
		t.Error("clamped edges should be drawn")
	}
	drawRectangle(img, 20, 20, 30, 30, c)
}

func TestImageToRGBA(t *testing.T) {
	src := image.NewGray(image.Rect(2, 3, 6, 7))
	src.SetGray(2, 3, color.Gray{Y: 200})
	rgba := ImageToRGBA(src)
	if rgba.Bounds() != src.Bounds() {
		t.Errorf("bounds = %v, want %v", rgba.Bounds(), src.Bounds())
	}
	if got := rgba.RGBAAt(2, 3); got != (color.RGBA{200, 200, 200, 255}) {
		t.Errorf("pixel = %v", got)
	}
}
