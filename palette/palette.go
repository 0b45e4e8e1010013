package palette

import (
	"image/color"
	"math"
	"slices"
)

// Palette is an ordered list of unique colors, most representative first.
type Palette []Color

// FromColors converts c to a Palette, dropping duplicates but keeping the
// first occurrence of each color in place.
func FromColors(c color.Palette) Palette {
	p := make(Palette, 0, len(c))
	for _, col := range c {
		n := color.NRGBAModel.Convert(col).(color.NRGBA)
		p = append(p, Color{R: n.R, G: n.G, B: n.B})
	}
	return p.Dedup()
}

func (p Palette) Dedup() Palette {
	seen := make(map[Color]struct{}, len(p))
	res := make(Palette, 0, len(p))
	for _, c := range p {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		res = append(res, c)
	}
	return res
}

func (p Palette) Index(c Color) int {
	return slices.Index(p, c)
}

func (p Palette) Contains(c Color) bool {
	return p.Index(c) >= 0
}

// Nearest returns the index of the entry closest to (r, g, b) by squared RGB
// distance, or -1 for an empty palette. Ties go to the earlier entry.
func (p Palette) Nearest(r, g, b float64) int {
	ret, best := -1, math.MaxFloat64
	for i, c := range p {
		dr := r - float64(c.R)
		dg := g - float64(c.G)
		db := b - float64(c.B)
		d := dr*dr + dg*dg + db*db
		if d < best {
			if d == 0 {
				return i
			}
			ret, best = i, d
		}
	}
	return ret
}

func (p Palette) Hexes() []string {
	res := make([]string, len(p))
	for i, c := range p {
		res[i] = c.Hex()
	}
	return res
}

// SortByLightness orders p from dark to light by Lab lightness.
func SortByLightness(p Palette) {
	slices.SortStableFunc(p, func(a, b Color) int {
		la, lb := a.Lab().L, b.Lab().L
		switch {
		case la < lb:
			return -1
		case la > lb:
			return 1
		}
		return 0
	})
}
