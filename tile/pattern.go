package tile

import (
	"image"
	"image/color"
	"math"

	"inkmap/palette"

	"golang.org/x/image/draw"
)

const (
	MinCell        = 2
	DefaultCell    = 8
	MinPercent     = 10
	MaxPercent     = 100
	DefaultPercent = 50
)

type Shape string

const (
	ShapeDot     Shape = "dot"
	ShapeSquare  Shape = "square"
	ShapeStripeH Shape = "stripe-h"
	ShapeStripeV Shape = "stripe-v"
	ShapeChecker Shape = "checker"
	ShapeCross   Shape = "cross"
)

var Shapes = []Shape{ShapeDot, ShapeSquare, ShapeStripeH, ShapeStripeV, ShapeChecker, ShapeCross}

// PatternRule replaces Source with a single shape repeated on a cell grid.
type PatternRule struct {
	Enabled    bool          `json:"enabled"`
	Source     palette.Color `json:"srcHex"`
	Background palette.Color `json:"bgHex"`
	Shape      Shape         `json:"shape"`
	Foreground palette.Color `json:"fgHex"`
	Cell       int           `json:"cell,omitempty"`
	Size       int           `json:"size,omitempty"`
	Stagger    bool          `json:"stagger"`
}

func (r *PatternRule) CellSize() int {
	if r.Cell == 0 {
		return DefaultCell
	}
	return max(MinCell, r.Cell)
}

// Percent is the shape size as a percentage of the cell.
func (r *PatternRule) Percent() int {
	if r.Size == 0 {
		return DefaultPercent
	}
	return min(MaxPercent, max(MinPercent, r.Size))
}

// At returns the tile coordinates for image pixel (x, y). With Stagger set,
// odd rows of cells are shifted by half a cell.
func (r *PatternRule) At(x, y int) (int, int) {
	c := r.CellSize()
	if r.Stagger && (y/c)%2 == 1 {
		x += c / 2
	}
	return x % c, y % c
}

// BuildPattern renders one cell of rule.
func BuildPattern(rule PatternRule) *image.NRGBA {
	c := rule.CellSize()
	pct := float64(rule.Percent()) / 100

	img := image.NewNRGBA(image.Rect(0, 0, c, c))
	draw.Draw(img, img.Rect, image.NewUniform(rule.Background), image.Point{}, draw.Src)

	fg := rule.Foreground.NRGBA()
	fill := func(x0, y0, x1, y1 int) {
		r := image.Rect(x0, y0, x1, y1).Intersect(img.Rect)
		draw.Draw(img, r, image.NewUniform(fg), image.Point{}, draw.Src)
	}
	centered := func(size int) (int, int) {
		lo := (c - size) / 2
		return lo, lo + size
	}

	switch rule.Shape {
	case ShapeSquare:
		lo, hi := centered(round(float64(c) * pct))
		fill(lo, lo, hi, hi)
	case ShapeStripeH:
		lo, hi := centered(round(float64(c) * pct))
		fill(0, lo, c, hi)
	case ShapeStripeV:
		lo, hi := centered(round(float64(c) * pct))
		fill(lo, 0, hi, c)
	case ShapeChecker:
		s := max(1, round(float64(c)*pct/2))
		for y := 0; y < c; y += s {
			for x := 0; x < c; x += s {
				if (x/s+y/s)%2 == 0 {
					fill(x, y, x+s, y+s)
				}
			}
		}
	case ShapeCross:
		lo, hi := centered(max(1, round(float64(c)*pct/5)))
		fill(lo, 0, hi, c)
		fill(0, lo, c, hi)
	default:
		stampDot(img, fg, c, round(float64(c)*pct/2))
	}

	return img
}

// stampDot fills every pixel whose center lies inside the disc of radius r
// centered on the cell.
func stampDot(img *image.NRGBA, fg color.NRGBA, c, r int) {
	if r <= 0 {
		return
	}

	mid := float64(c) / 2
	r2 := float64(r * r)
	for y := range c {
		dy := float64(y) + 0.5 - mid
		for x := range c {
			dx := float64(x) + 0.5 - mid
			if dx*dx+dy*dy <= r2 {
				img.SetNRGBA(x, y, fg)
			}
		}
	}
}

// Coverage counts the foreground pixels of a pattern tile.
func Coverage(tile *image.NRGBA, fg palette.Color) int {
	want := fg.NRGBA()
	n := 0
	b := tile.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if tile.NRGBAAt(x, y) == want {
				n++
			}
		}
	}
	return n
}

func round(v float64) int {
	return int(math.Round(v))
}
