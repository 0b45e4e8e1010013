package tile

import (
	"cmp"
	"errors"
	"fmt"
	"image"
	"math"
	"slices"

	"inkmap/palette"

	"golang.org/x/image/draw"
)

var (
	ErrMixInkCount = errors.New("mix needs 2 or 3 inks")
	ErrMixDensity  = errors.New("mix densities must sum to 100")
)

const (
	MinGrid     = 2
	MaxGrid     = 64
	DefaultGrid = 6
)

// Order selects the sequence in which grid cells are handed out to inks.
type Order string

const (
	OrderBlue     Order = "blue"
	OrderChecker  Order = "checker"
	OrderStripesH Order = "stripes-h"
	OrderStripesV Order = "stripes-v"
	OrderBayer    Order = "bayer"
)

var Orders = []Order{OrderBlue, OrderChecker, OrderStripesH, OrderStripesV, OrderBayer}

var bayer4 = [4][4]int{
	{0, 8, 2, 10},
	{12, 4, 14, 6},
	{3, 11, 1, 9},
	{15, 7, 13, 5},
}

type MixInk struct {
	Color   palette.Color `json:"hex"`
	Density int           `json:"density"`
}

// MixRule replaces Source with a periodic tile of 2 or 3 inks.
type MixRule struct {
	Source   palette.Color `json:"srcHex"`
	Inks     []MixInk      `json:"inks"`
	Grid     int           `json:"block,omitempty"`
	CellSize int           `json:"cellSize,omitempty"`
	Order    Order         `json:"pattern,omitempty"`
}

func (r *MixRule) Validate() error {
	if n := len(r.Inks); n < 2 || n > 3 {
		return fmt.Errorf("%w: got %d", ErrMixInkCount, n)
	}

	sum := 0
	for _, ink := range r.Inks {
		if ink.Density < 0 {
			return fmt.Errorf("%w: negative density %d for %s", ErrMixDensity, ink.Density, ink.Color.Hex())
		}
		sum += ink.Density
	}
	if sum != 100 {
		return fmt.Errorf("%w: got %d", ErrMixDensity, sum)
	}
	return nil
}

// GridSize is the number of logical cells per tile axis.
func (r *MixRule) GridSize() int {
	if r.Grid == 0 {
		return DefaultGrid
	}
	return min(MaxGrid, max(MinGrid, r.Grid))
}

func (r *MixRule) BlockSize() int {
	return max(1, r.CellSize)
}

// Side is the tile width and height in pixels.
func (r *MixRule) Side() int {
	return r.GridSize() * r.BlockSize()
}

// Quotas returns the number of grid cells each ink receives. Shares are
// rounded down and the leftover cells go to the largest fractional parts,
// earlier inks first on ties, so the quotas always add up to the cell count.
func (r *MixRule) Quotas() []int {
	g := r.GridSize()
	cells := g * g

	quotas := make([]int, len(r.Inks))
	frac := make([]float64, len(r.Inks))
	assigned := 0
	for i, ink := range r.Inks {
		exact := float64(cells*ink.Density) / 100
		quotas[i] = int(math.Floor(exact))
		frac[i] = exact - float64(quotas[i])
		assigned += quotas[i]
	}

	order := make([]int, len(r.Inks))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(frac[b], frac[a])
	})
	for i := 0; assigned < cells && len(order) > 0; i++ {
		quotas[order[i%len(order)]]++
		assigned++
	}
	return quotas
}

// Cells returns the grid coordinates in visiting order.
func (r *MixRule) Cells() []image.Point {
	g := r.GridSize()
	cells := make([]image.Point, 0, g*g)
	for y := range g {
		for x := range g {
			cells = append(cells, image.Pt(x, y))
		}
	}

	var key func(p image.Point) int
	switch r.Order {
	case OrderChecker:
		key = func(p image.Point) int { return (p.X + p.Y) % 2 }
	case OrderStripesH:
		return cells
	case OrderStripesV:
		key = func(p image.Point) int { return p.X*g + p.Y }
	case OrderBayer:
		key = func(p image.Point) int { return bayer4[p.Y%4][p.X%4] }
	default:
		key = func(p image.Point) int {
			return int(uint32(p.X)*73856093 ^ uint32(p.Y)*19349663)
		}
	}

	slices.SortStableFunc(cells, func(a, b image.Point) int {
		return cmp.Compare(key(a), key(b))
	})
	return cells
}

// BuildMix renders the tile for a valid rule. Cells are dealt round-robin to
// the inks, skipping inks whose quota is used up.
func BuildMix(rule MixRule) (*image.NRGBA, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	side, block := rule.Side(), rule.BlockSize()
	img := image.NewNRGBA(image.Rect(0, 0, side, side))

	left := rule.Quotas()
	n := len(rule.Inks)
	next := 0
	for _, cell := range rule.Cells() {
		ink := -1
		for range n {
			i := next
			next = (next + 1) % n
			if left[i] > 0 {
				ink = i
				break
			}
		}
		if ink < 0 {
			break
		}
		left[ink]--

		r := image.Rect(cell.X*block, cell.Y*block, (cell.X+1)*block, (cell.Y+1)*block)
		draw.Draw(img, r, image.NewUniform(rule.Inks[ink].Color), image.Point{}, draw.Src)
	}

	return img, nil
}

// Counts reports how many grid cells of tile carry each ink of rule.
func Counts(tile *image.NRGBA, rule MixRule) []int {
	block := rule.BlockSize()
	counts := make([]int, len(rule.Inks))
	g := rule.GridSize()
	for y := range g {
		for x := range g {
			c := tile.NRGBAAt(tile.Rect.Min.X+x*block, tile.Rect.Min.Y+y*block)
			if c.A == 0 {
				continue
			}
			for i, ink := range rule.Inks {
				if ink.Color.NRGBA() == c {
					counts[i]++
					break
				}
			}
		}
	}
	return counts
}
