package export

import (
	"bufio"
	"fmt"
	"image"
	"io"

	"inkmap/palette"
)

// WriteSVG renders every pixel of img with alpha at or above the cutoff as
// a 1x1 rectangle. The document is sized in source pixels.
func WriteSVG(w io.Writer, img *image.NRGBA) error {
	b := img.Bounds()
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`+"\n",
		b.Dx(), b.Dy(), b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			if c.A < palette.AlphaCutoff {
				continue
			}
			hex := palette.Color{R: c.R, G: c.G, B: c.B}.Hex()
			fmt.Fprintf(bw, `<rect x="%d" y="%d" width="1" height="1" fill="%s"/>`+"\n", x-b.Min.X, y-b.Min.Y, hex)
		}
	}
	fmt.Fprint(bw, "</svg>\n")

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("could not write SVG: %w", err)
	}
	return nil
}
