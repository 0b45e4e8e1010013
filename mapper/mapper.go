package mapper

import (
	"context"
	"image"
	"math"
	"runtime"

	"inkmap/labcolor"
	"inkmap/palette"
	"inkmap/tile"
)

const DefaultRowsPerSlice = 64

type options struct {
	rows     int
	progress func(percent int)
}

type Option func(*options)

// WithProgress registers fn to receive the completed percentage after every
// slice of rows.
func WithProgress(fn func(percent int)) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithRowsPerSlice sets how many rows are mapped between cancellation checks.
func WithRowsPerSlice(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.rows = n
		}
	}
}

// Map quantizes src to the inks of cfg and returns a new zero-origin buffer
// of the same size. src is not modified.
//
// Rows are processed in slices. Between slices Map reports progress, yields
// the processor and returns ctx.Err() if the context is done.
func Map(ctx context.Context, src *image.NRGBA, cfg Config, opts ...Option) (*image.NRGBA, error) {
	if src == nil || src.Rect.Empty() {
		return nil, ErrNoImage
	}

	cfg, err := cfg.Prepare()
	if err != nil {
		return nil, err
	}

	o := options{rows: DefaultRowsPerSlice}
	for _, opt := range opts {
		opt(&o)
	}

	p, err := newPass(src, cfg)
	if err != nil {
		return nil, err
	}

	for y0 := 0; y0 < p.h; y0 += o.rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		y1 := min(p.h, y0+o.rows)
		for y := y0; y < y1; y++ {
			for x := range p.w {
				p.pixel(x, y)
			}
		}

		if o.progress != nil {
			o.progress(y1 * 100 / p.h)
		}
		runtime.Gosched()
	}

	if cfg.Sharpen {
		return Sharpen(p.out), nil
	}
	return p.out, nil
}

// pass is the state of a single mapping run.
type pass struct {
	cfg  Config
	src  *image.NRGBA
	out  *image.NRGBA
	w, h int

	inkLab []labcolor.Lab
	// nearest ink per source color, only valid without dithering
	memo map[[3]uint8]int
	// 3 floats per pixel, nil without dithering
	errs []float32

	mix     *image.NRGBA
	pattern *image.NRGBA
}

func newPass(src *image.NRGBA, cfg Config) (*pass, error) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	p := &pass{
		cfg:    cfg,
		src:    src,
		out:    image.NewNRGBA(image.Rect(0, 0, w, h)),
		w:      w,
		h:      h,
		inkLab: make([]labcolor.Lab, len(cfg.Inks)),
	}

	for i, ink := range cfg.Inks {
		p.inkLab[i] = ink.Lab()
	}

	if cfg.Dither {
		p.errs = make([]float32, w*h*3)
	} else {
		p.memo = make(map[[3]uint8]int, 256)
	}

	if cfg.Mix != nil {
		var err error
		if p.mix, err = tile.BuildMix(*cfg.Mix); err != nil {
			return nil, err
		}
	}
	if cfg.Pattern != nil {
		p.pattern = tile.BuildPattern(*cfg.Pattern)
	}

	return p, nil
}

func (p *pass) pixel(x, y int) {
	si := p.src.PixOffset(p.src.Rect.Min.X+x, p.src.Rect.Min.Y+y)
	s := p.src.Pix[si : si+4 : si+4]
	di := p.out.PixOffset(x, y)
	d := p.out.Pix[di : di+4 : di+4]

	if s[3] < palette.AlphaCutoff {
		if s[3] > 0 {
			copy(d, s)
		}
		return
	}

	r, g, b := float64(s[0]), float64(s[1]), float64(s[2])
	if p.errs != nil {
		e := p.errs[(y*p.w+x)*3:]
		r = clamp255(r + float64(e[0]))
		g = clamp255(g + float64(e[1]))
		b = clamp255(b + float64(e[2]))
	}

	c, ok := p.substitute(x, y, r, g, b)
	if !ok {
		c = p.cfg.Inks[p.nearestInk(r, g, b)]
	}
	d[0], d[1], d[2], d[3] = c.R, c.G, c.B, s[3]

	if p.errs != nil {
		p.diffuse(x, y, r-float64(c.R), g-float64(c.G), b-float64(c.B))
	}
}

// substitute returns the tile color for pixels whose nearest original color
// is the source of the pattern or mix rule. The pattern rule wins.
func (p *pass) substitute(x, y int, r, g, b float64) (palette.Color, bool) {
	if p.mix == nil && p.pattern == nil {
		return palette.Color{}, false
	}

	i := p.cfg.Original.Nearest(r, g, b)
	if i < 0 {
		return palette.Color{}, false
	}
	orig := p.cfg.Original[i]

	if p.pattern != nil && orig == p.cfg.Pattern.Source {
		tx, ty := p.cfg.Pattern.At(x, y)
		return tileColor(p.pattern, tx, ty), true
	}
	if p.mix != nil && orig == p.cfg.Mix.Source {
		return tileColor(p.mix, x%p.mix.Rect.Dx(), y%p.mix.Rect.Dy()), true
	}
	return palette.Color{}, false
}

// nearestInk scans the inks in order and stops at the first one closer than
// the snap distance.
func (p *pass) nearestInk(r, g, b float64) int {
	var key [3]uint8
	if p.memo != nil {
		key = [3]uint8{uint8(r), uint8(g), uint8(b)}
		if i, ok := p.memo[key]; ok {
			return i
		}
	}

	lab := labcolor.ToLab(r, g, b)
	best, bestD := 0, math.MaxFloat64
	for i := range p.inkLab {
		d := labcolor.Distance2(lab, p.inkLab[i], p.cfg.Weights)
		if d < bestD {
			best, bestD = i, d
		}
		if d < p.cfg.Snap {
			best = i
			break
		}
	}

	if p.memo != nil {
		p.memo[key] = best
	}
	return best
}

// diffuse spreads the quantization error of (x, y) to the unvisited
// neighbours with Floyd-Steinberg weights.
func (p *pass) diffuse(x, y int, er, eg, eb float64) {
	spread := func(nx, ny int, f float64) {
		if nx < 0 || nx >= p.w || ny >= p.h {
			return
		}
		e := p.errs[(ny*p.w+nx)*3:]
		e[0] += float32(er * f)
		e[1] += float32(eg * f)
		e[2] += float32(eb * f)
	}

	spread(x+1, y, 7.0/16)
	spread(x-1, y+1, 3.0/16)
	spread(x, y+1, 5.0/16)
	spread(x+1, y+1, 1.0/16)
}

func tileColor(t *image.NRGBA, x, y int) palette.Color {
	c := t.NRGBAAt(t.Rect.Min.X+x, t.Rect.Min.Y+y)
	return palette.Color{R: c.R, G: c.G, B: c.B}
}

func clamp255(v float64) float64 {
	return max(0, min(255, v))
}
