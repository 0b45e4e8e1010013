package export

import (
	"context"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

const (
	// MaxDim is the largest output width or height.
	MaxDim = 16384
	// MaxPixels is the largest output area.
	MaxPixels = 268_000_000
	// TileSize is the side of the source tiles magnified in one step.
	TileSize = 512
)

// ClampScale returns the largest scale not above desired for which a w x h
// image fits the dimension and area limits. The result is at least 1.
func ClampScale(w, h, desired int) int {
	s := max(1, desired)
	if w <= 0 || h <= 0 {
		return s
	}

	s = min(s, max(1, MaxDim/w), max(1, MaxDim/h))
	for s > 1 && (w*s)*(h*s) > MaxPixels {
		s--
	}
	return s
}

// Upscale magnifies src by scale with nearest neighbour sampling, one source
// tile at a time. With a non-nil bg the result is composited over it,
// otherwise transparency is kept. progress, if set, receives the completed
// percentage after each tile.
func Upscale(ctx context.Context, src *image.NRGBA, scale int, bg color.Color, progress func(int)) (*image.NRGBA, error) {
	scale = max(1, scale)
	sb := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, sb.Dx()*scale, sb.Dy()*scale))

	op := draw.Src
	if bg != nil {
		draw.Draw(dst, dst.Rect, image.NewUniform(bg), image.Point{}, draw.Src)
		op = draw.Over
	}

	tilesX := (sb.Dx() + TileSize - 1) / TileSize
	tilesY := (sb.Dy() + TileSize - 1) / TileSize
	done := 0
	for ty := range tilesY {
		for tx := range tilesX {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			sr := image.Rect(tx*TileSize, ty*TileSize, (tx+1)*TileSize, (ty+1)*TileSize).
				Add(sb.Min).Intersect(sb)
			dr := image.Rectangle{
				Min: sr.Min.Sub(sb.Min).Mul(scale),
				Max: sr.Max.Sub(sb.Min).Mul(scale),
			}
			draw.NearestNeighbor.Scale(dst, dr, src, sr, op, nil)

			done++
			if progress != nil {
				progress(done * 100 / (tilesX * tilesY))
			}
		}
	}

	return dst, nil
}
