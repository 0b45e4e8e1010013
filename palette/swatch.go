package palette

import (
	"image"

	"golang.org/x/image/draw"
)

// Swatch renders p as a strip of square tiles, one per color.
func Swatch(p Palette, tileSize int) *image.NRGBA {
	if tileSize <= 0 {
		tileSize = 64
	}

	img := image.NewNRGBA(image.Rect(0, 0, max(1, len(p))*tileSize, tileSize))
	for i, c := range p {
		r := image.Rect(i*tileSize, 0, (i+1)*tileSize, tileSize)
		draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
	}
	return img
}
