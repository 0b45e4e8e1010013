// based on:
// http://www.brucelindbloom.com/index.html?Eqn_RGB_to_XYZ.html
// http://www.brucelindbloom.com/index.html?Eqn_XYZ_to_Lab.html

package labcolor

import (
	"image/color"
	"math"
)

// D65 reference white
const (
	whiteX = 0.95047
	whiteY = 1.0
	whiteZ = 1.08883
)

const (
	epsilon = 0.008856
	kappa   = 7.787
	offset  = 16.0 / 116.0
)

type Lab struct {
	L     float64 // lightness, 0 (black) to 100 (white)
	A     float64 // green (-) to red (+)
	B     float64 // blue (-) to yellow (+)
	Alpha uint16  // non-premultiplied alpha
}

var LabModel = color.ModelFunc(labConvert)

func labConvert(c color.Color) color.Color {
	if lc, ok := c.(Lab); ok {
		return lc
	}

	n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
	lc := ToLab(float64(n.R)/257, float64(n.G)/257, float64(n.B)/257)
	lc.Alpha = n.A
	return lc
}

// ToLab converts an sRGB triple with channels on the 0..255 scale to CIE Lab.
// Channels may be fractional, as produced by dither correction.
func ToLab(r, g, b float64) Lab {
	lr := toLinear(r / 255)
	lg := toLinear(g / 255)
	lb := toLinear(b / 255)

	x := (0.4124564*lr + 0.3575761*lg + 0.1804375*lb) / whiteX
	y := (0.2126729*lr + 0.7151522*lg + 0.0721750*lb) / whiteY
	z := (0.0193339*lr + 0.1191920*lg + 0.9503041*lb) / whiteZ

	fx, fy, fz := f(x), f(y), f(z)
	return Lab{
		L:     116*fy - 16,
		A:     500 * (fx - fy),
		B:     200 * (fy - fz),
		Alpha: 0xffff,
	}
}

func (lc Lab) RGBA() (uint32, uint32, uint32, uint32) {
	r, g, b := lc.SRGB()
	a := uint32(lc.Alpha)
	pr := uint32(math.Round(r*65535)) * a / 0xffff
	pg := uint32(math.Round(g*65535)) * a / 0xffff
	pb := uint32(math.Round(b*65535)) * a / 0xffff
	return pr, pg, pb, a
}

// SRGB returns the gamma encoded channels in [0,1], clamped to the sRGB gamut.
func (lc Lab) SRGB() (float64, float64, float64) {
	fy := (lc.L + 16) / 116
	fx := fy + lc.A/500
	fz := fy - lc.B/200

	x := finv(fx) * whiteX
	y := finv(fy) * whiteY
	z := finv(fz) * whiteZ

	r := 3.2404542*x - 1.5371385*y - 0.4985314*z
	g := -0.9692660*x + 1.8760108*y + 0.0415560*z
	b := 0.0556434*x - 0.2040259*y + 1.0572252*z

	return clamp01(fromLinear(r)), clamp01(fromLinear(g)), clamp01(fromLinear(b))
}

func f(t float64) float64 {
	if t > epsilon {
		return math.Cbrt(t)
	}
	return kappa*t + offset
}

func finv(t float64) float64 {
	if t3 := t * t * t; t3 > epsilon {
		return t3
	}
	return (t - offset) / kappa
}

func clamp01(x float64) float64 {
	return max(0, min(1, x))
}
