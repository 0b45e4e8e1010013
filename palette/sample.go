package palette

import (
	"image"
	"image/color"
	"log/slog"
	"math"

	"golang.org/x/image/draw"
)

const (
	// MaxSamples caps the number of pixels fed to the clustering step.
	MaxSamples = 120_000
	// MaxDirectPixels is the largest image sampled without downscaling first.
	MaxDirectPixels = 40_000_000
)

// Sample returns up to limit opaque RGB triples taken at a fixed stride over
// the whole image. Images larger than MaxDirectPixels are sampled from a
// downscaled copy.
func Sample(img image.Image, limit int) [][3]uint8 {
	if limit <= 0 {
		limit = MaxSamples
	}

	b := img.Bounds()
	if b.Empty() {
		return nil
	}
	if b.Dx()*b.Dy() > MaxDirectPixels {
		img = downscale(img, MaxDirectPixels)
		b = img.Bounds()
	}

	total := b.Dx() * b.Dy()
	step := max(1, (total+limit-1)/limit)
	res := make([][3]uint8, 0, min(total, limit))

	if nrgba, ok := img.(*image.NRGBA); ok {
		w := b.Dx()
		for i := 0; i < total; i += step {
			off := nrgba.PixOffset(b.Min.X+i%w, b.Min.Y+i/w)
			px := nrgba.Pix[off : off+4 : off+4]
			if px[3] < AlphaCutoff {
				continue
			}
			res = append(res, [3]uint8{px[0], px[1], px[2]})
		}
		return res
	}

	w := b.Dx()
	for i := 0; i < total; i += step {
		c := color.NRGBAModel.Convert(img.At(b.Min.X+i%w, b.Min.Y+i/w)).(color.NRGBA)
		if c.A < AlphaCutoff {
			continue
		}
		res = append(res, [3]uint8{c.R, c.G, c.B})
	}
	return res
}

func downscale(img image.Image, maxPixels int) image.Image {
	b := img.Bounds()
	f := math.Sqrt(float64(maxPixels) / float64(b.Dx()*b.Dy()))
	w := max(1, int(float64(b.Dx())*f))
	h := max(1, int(float64(b.Dy())*f))

	slog.Warn("image too large to sample directly, using downscaled copy",
		"width", b.Dx(), "height", b.Dy(), "sampleWidth", w, "sampleHeight", h)

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
