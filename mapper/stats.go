package mapper

import (
	"image"
	"math"

	"inkmap/labcolor"
	"inkmap/palette"

	"gonum.org/v1/gonum/stat"
)

type InkCoverage struct {
	Color    palette.Color
	Pixels   int
	Fraction float64
}

// Stats summarizes a mapped buffer for print planning.
type Stats struct {
	// Opaque is the number of pixels with alpha at or above the cutoff.
	Opaque int
	Inks   []InkCoverage
	// Other counts opaque pixels that are not exactly one of the inks, as
	// left behind by sharpening.
	Other int
	// MeanError and StdDevError describe the Lab distance between source
	// and output over a strided sample of opaque pixels.
	MeanError   float64
	StdDevError float64
}

// Coverage compares a source image with its mapped output. src and out must
// have the same size.
func Coverage(src, out *image.NRGBA, inks palette.Palette) Stats {
	st := Stats{Inks: make([]InkCoverage, len(inks))}
	for i, c := range inks {
		st.Inks[i].Color = c
	}

	w, h := out.Rect.Dx(), out.Rect.Dy()
	total := w * h
	step := max(1, (total+palette.MaxSamples-1)/palette.MaxSamples)
	errs := make([]float64, 0, min(total, palette.MaxSamples))

	for i := range total {
		x, y := i%w, i/w
		o := out.NRGBAAt(out.Rect.Min.X+x, out.Rect.Min.Y+y)
		if o.A < palette.AlphaCutoff {
			continue
		}
		st.Opaque++

		oc := palette.Color{R: o.R, G: o.G, B: o.B}
		if k := inks.Index(oc); k >= 0 {
			st.Inks[k].Pixels++
		} else {
			st.Other++
		}

		if i%step == 0 {
			s := src.NRGBAAt(src.Rect.Min.X+x, src.Rect.Min.Y+y)
			sl := labcolor.ToLab(float64(s.R), float64(s.G), float64(s.B))
			errs = append(errs, math.Sqrt(labcolor.Distance2(sl, oc.Lab(), labcolor.DefaultWeights)))
		}
	}

	if st.Opaque > 0 {
		for i := range st.Inks {
			st.Inks[i].Fraction = float64(st.Inks[i].Pixels) / float64(st.Opaque)
		}
	}
	if len(errs) > 1 {
		st.MeanError, st.StdDevError = stat.MeanStdDev(errs, nil)
	} else if len(errs) == 1 {
		st.MeanError = errs[0]
	}
	return st
}
