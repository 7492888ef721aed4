package cmd

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/mj1618/swipegen/internal/model"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Box colors per region category.
var (
	clickableColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	slidableColor  = color.RGBA{R: 0, G: 96, B: 255, A: 255}
	unknownColor   = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	textColor      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	outlineColor   = color.RGBA{R: 0, G: 0, B: 0, A: 200}
)

// AnnotateRegions draws each region's box and a "[i] description" label onto
// a copy of img. Boxes are on the 0-1000 grid of img.
func AnnotateRegions(img image.Image, regions []model.Region) *image.RGBA {
	rgba := ImageToRGBA(img)
	b := img.Bounds()
	for i, r := range regions {
		rect := r.PixelRect(b.Dx(), b.Dy()).Add(b.Min)
		c := categoryColor(r.Category)
		drawRectangle(rgba, rect.Min.X, rect.Min.Y, rect.Max.X, rect.Max.Y, c)
		// Second line inside the first for visibility on busy screens.
		drawRectangle(rgba, rect.Min.X+1, rect.Min.Y+1, rect.Max.X-1, rect.Max.Y-1, c)

		label := fmt.Sprintf("[%d]", i)
		if r.Description != "" {
			label = fmt.Sprintf("[%d] %s", i, r.Description)
		}
		centre := image.Pt((rect.Min.X+rect.Max.X)/2, (rect.Min.Y+rect.Max.Y)/2)
		drawTextWithOutline(rgba, label, centre.X, centre.Y, textColor, outlineColor)
	}
	return rgba
}

func categoryColor(c model.Category) color.Color {
	switch c {
	case model.CategoryClickable:
		return clickableColor
	case model.CategorySlidable:
		return slidableColor
	default:
		return unknownColor
	}
}

// ImageToRGBA converts any image to RGBA
func ImageToRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}

// drawRectangle draws a rectangle outline on the image, clamped to its bounds.
func drawRectangle(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	r := image.Rect(x1, y1, x2, y2).Intersect(img.Bounds())
	if r.Empty() {
		return
	}

	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}

// drawTextWithOutline draws text centred at (x, y) with a one-pixel outline.
func drawTextWithOutline(img *image.RGBA, text string, x, y int, textColor, outlineColor color.Color) {
	// basicfont.Face7x13 glyphs are 7 pixels wide and 13 high.
	offsetX := x - len(text)*7/2
	offsetY := y + 13/2

	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			drawString(img, text, offsetX+dx, offsetY+dy, outlineColor)
		}
	}
	drawString(img, text, offsetX, offsetY, textColor)
}

func drawString(img *image.RGBA, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
