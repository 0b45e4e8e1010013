package mapper

import (
	"image"

	"inkmap/palette"

	"github.com/disintegration/gift"
)

// SharpenAmount is the weight of the detail layer added back by Sharpen.
const SharpenAmount = 0.6

var boxBlur = gift.New(gift.Convolution(
	[]float32{
		1, 1, 1,
		1, 1, 1,
		1, 1, 1,
	},
	true, false, false, 0,
))

// Sharpen applies an unsharp mask with a 3x3 box blur to the opaque pixels
// of img and returns the result as a new buffer. The blur averages opaque
// neighbours only, so regions bordering transparency keep their color.
func Sharpen(img *image.NRGBA) *image.NRGBA {
	b := img.Rect
	colors := image.NewNRGBA(b)
	mask := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			j := colors.PixOffset(x, y)
			colors.Pix[j+3], mask.Pix[j+3] = 0xFF, 0xFF
			if img.Pix[i+3] < palette.AlphaCutoff {
				continue
			}
			copy(colors.Pix[j:j+3], img.Pix[i:i+3])
			mask.Pix[j], mask.Pix[j+1], mask.Pix[j+2] = 0xFF, 0xFF, 0xFF
		}
	}

	sums := image.NewNRGBA64(boxBlur.Bounds(b))
	boxBlur.Draw(sums, colors)
	weights := image.NewNRGBA64(boxBlur.Bounds(b))
	boxBlur.Draw(weights, mask)

	out := image.NewNRGBA(b)
	copy(out.Pix, img.Pix)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := out.PixOffset(x, y)
			if out.Pix[i+3] < palette.AlphaCutoff {
				continue
			}
			bx, by := sums.Rect.Min.X+x-b.Min.X, sums.Rect.Min.Y+y-b.Min.Y
			sum, weight := sums.NRGBA64At(bx, by), weights.NRGBA64At(bx, by)
			if weight.R == 0 {
				continue
			}
			blurred := [3]float64{
				float64(sum.R) / float64(weight.R) * 255,
				float64(sum.G) / float64(weight.G) * 255,
				float64(sum.B) / float64(weight.B) * 255,
			}
			for ch := range 3 {
				v := float64(out.Pix[i+ch])
				v += SharpenAmount * (v - blurred[ch])
				out.Pix[i+ch] = uint8(clamp255(v) + 0.5)
			}
		}
	}
	return out
}
