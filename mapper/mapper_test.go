package mapper

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"inkmap/palette"
	"inkmap/tile"

	"github.com/google/go-cmp/cmp"
)

var (
	red   = palette.Color{R: 0xFF}
	green = palette.Color{G: 0xFF}
	blue  = palette.Color{B: 0xFF}
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestMapExactInksIdentity(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(0, 0, red.NRGBA())
	src.SetNRGBA(1, 0, red.NRGBA())
	src.SetNRGBA(0, 1, blue.NRGBA())
	src.SetNRGBA(1, 1, blue.NRGBA())

	out, err := Map(context.Background(), src, Config{Inks: palette.Palette{red, blue}})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(src.Pix, out.Pix); diff != "" {
		t.Errorf("output differs from input (-want +got):\n%s", diff)
	}
}

func TestMapTransparentPassThrough(t *testing.T) {
	src := solid(8, 8, green.NRGBA())
	src.SetNRGBA(3, 3, color.NRGBA{})
	src.SetNRGBA(0, 0, color.NRGBA{})
	src.SetNRGBA(5, 1, color.NRGBA{R: 40, G: 50, B: 60, A: 9})
	src.SetNRGBA(6, 6, color.NRGBA{R: 40, G: 50, B: 60})

	configs := map[string]Config{
		"inks": {Inks: palette.Palette{red, blue}},
		"dither": {
			Inks:   palette.Palette{red, blue},
			Dither: true,
		},
		"mix": {
			Original: palette.Palette{green, red},
			Inks:     palette.Palette{red, blue},
			Mix: &tile.MixRule{
				Source: green,
				Inks:   []tile.MixInk{{Color: red, Density: 50}, {Color: blue, Density: 50}},
			},
			Dither: true,
		},
		"pattern": {
			Original: palette.Palette{green, red},
			Inks:     palette.Palette{red},
			Pattern: &tile.PatternRule{
				Enabled: true, Source: green, Foreground: palette.Black, Background: palette.White,
				Shape: tile.ShapeCross, Cell: 4, Size: 100,
			},
			Sharpen: true,
		},
	}

	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			out, err := Map(context.Background(), src, cfg)
			if err != nil {
				t.Fatal(err)
			}
			for _, p := range []image.Point{{3, 3}, {0, 0}, {6, 6}} {
				if c := out.NRGBAAt(p.X, p.Y); c != (color.NRGBA{}) {
					t.Errorf("transparent pixel %v became %v", p, c)
				}
			}
			if c := out.NRGBAAt(5, 1); c != (color.NRGBA{R: 40, G: 50, B: 60, A: 9}) {
				t.Errorf("near-transparent pixel became %v", c)
			}
		})
	}
}

func TestMapDitherConservesTone(t *testing.T) {
	const size, margin = 256, 32
	src := solid(size, size, color.NRGBA{R: 100, G: 100, B: 100, A: 255})

	out, err := Map(context.Background(), src, Config{
		Inks:   palette.Palette{palette.Black, palette.White},
		Dither: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	var sum, n float64
	seen := map[uint8]bool{}
	for y := margin; y < size-margin; y++ {
		for x := margin; x < size-margin; x++ {
			c := out.NRGBAAt(x, y)
			seen[c.R] = true
			sum += float64(c.R)
			n++
		}
	}
	if mean := sum / n; math.Abs(mean-100) > 1.5 {
		t.Errorf("interior mean = %.2f, want about 100", mean)
	}
	if !seen[0] || !seen[255] {
		t.Errorf("expected both inks in the output, got %v", seen)
	}
}

func TestMapWithoutDitherIsFlat(t *testing.T) {
	src := solid(16, 16, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	out, err := Map(context.Background(), src, Config{Inks: palette.Palette{palette.Black, palette.White}})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i] != 0 {
			t.Fatalf("pixel %d = %v, want black", i/4, out.Pix[i:i+4])
		}
	}
}

func TestMapMixSubstitution(t *testing.T) {
	mix := &tile.MixRule{
		Source: green,
		Grid:   2,
		Order:  tile.OrderChecker,
		Inks:   []tile.MixInk{{Color: red, Density: 50}, {Color: blue, Density: 50}},
	}
	want, err := tile.BuildMix(*mix)
	if err != nil {
		t.Fatal(err)
	}

	src := solid(6, 6, color.NRGBA{G: 240, B: 10, A: 200})
	out, err := Map(context.Background(), src, Config{
		Original: palette.Palette{red, green, blue},
		Inks:     palette.Palette{red, blue},
		Mix:      mix,
	})
	if err != nil {
		t.Fatal(err)
	}

	for y := range 6 {
		for x := range 6 {
			w := want.NRGBAAt(x%2, y%2)
			w.A = 200
			if got := out.NRGBAAt(x, y); got != w {
				t.Errorf("(%d,%d) = %v, want %v", x, y, got, w)
			}
		}
	}
}

func TestMapPatternWinsOverMix(t *testing.T) {
	pattern := &tile.PatternRule{
		Enabled:    true,
		Source:     green,
		Background: palette.White,
		Foreground: palette.Black,
		Shape:      tile.ShapeStripeV,
		Cell:       4,
		Size:       50,
		Stagger:    true,
	}
	want := tile.BuildPattern(*pattern)

	src := solid(8, 8, green.NRGBA())
	src.SetNRGBA(7, 7, red.NRGBA())
	out, err := Map(context.Background(), src, Config{
		Original: palette.Palette{red, green},
		Inks:     palette.Palette{red, blue},
		Pattern:  pattern,
		Mix: &tile.MixRule{
			Source: green,
			Inks:   []tile.MixInk{{Color: red, Density: 50}, {Color: blue, Density: 50}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	for y := range 8 {
		for x := range 8 {
			if x == 7 && y == 7 {
				if got := out.NRGBAAt(x, y); got != red.NRGBA() {
					t.Errorf("non-matching pixel = %v, want ink", got)
				}
				continue
			}
			tx, ty := pattern.At(x, y)
			if got, w := out.NRGBAAt(x, y), want.NRGBAAt(tx, ty); got != w {
				t.Errorf("(%d,%d) = %v, want %v", x, y, got, w)
			}
		}
	}
}

func TestMapDisabledPatternIgnored(t *testing.T) {
	src := solid(4, 4, green.NRGBA())
	out, err := Map(context.Background(), src, Config{
		Original: palette.Palette{green},
		Inks:     palette.Palette{red},
		Pattern: &tile.PatternRule{
			Source: green, Foreground: palette.Black, Background: palette.White, Shape: tile.ShapeSquare,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := out.NRGBAAt(2, 2); got != red.NRGBA() {
		t.Errorf("pixel = %v, want the only ink", got)
	}
}

func TestMapSnapPrefersListOrder(t *testing.T) {
	src := solid(1, 1, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	near := palette.Color{R: 128, G: 128, B: 129}
	exact := palette.Color{R: 128, G: 128, B: 128}

	out, err := Map(context.Background(), src, Config{Inks: palette.Palette{near, exact}})
	if err != nil {
		t.Fatal(err)
	}
	if got := out.NRGBAAt(0, 0); got != near.NRGBA() {
		t.Errorf("with snap got %v, want first ink under the threshold", got)
	}

	out, err = Map(context.Background(), src, Config{Inks: palette.Palette{near, exact}, Snap: 1e-12})
	if err != nil {
		t.Fatal(err)
	}
	if got := out.NRGBAAt(0, 0); got != exact.NRGBA() {
		t.Errorf("without snap got %v, want exact ink", got)
	}
}

func TestMapConfigErrors(t *testing.T) {
	src := solid(2, 2, red.NRGBA())
	many := make(palette.Palette, palette.MaxInks+1)
	for i := range many {
		many[i] = palette.Color{R: uint8(i)}
	}

	cases := []struct {
		name string
		src  *image.NRGBA
		cfg  Config
		want error
	}{
		{"nil image", nil, Config{Inks: palette.Palette{red}}, ErrNoImage},
		{"empty image", image.NewNRGBA(image.Rect(0, 0, 0, 5)), Config{Inks: palette.Palette{red}}, ErrNoImage},
		{"no inks", src, Config{}, ErrNoInks},
		{"too many inks", src, Config{Inks: many}, palette.ErrInkSetFull},
		{"bad mix", src, Config{
			Original: palette.Palette{red},
			Inks:     palette.Palette{red},
			Mix:      &tile.MixRule{Source: red, Inks: []tile.MixInk{{Color: red, Density: 60}, {Color: blue, Density: 60}}},
		}, tile.ErrMixDensity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Map(context.Background(), tc.src, tc.cfg)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
			if out != nil {
				t.Error("got output on error")
			}
		})
	}
}

func TestMapFallsBackToOriginal(t *testing.T) {
	orig := make(palette.Palette, 12)
	for i := range orig {
		orig[i] = palette.Color{R: uint8(i * 20), G: 10, B: 10}
	}
	cfg, err := Config{Original: orig}.Prepare()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(orig[:palette.MaxInks], cfg.Inks); diff != "" {
		t.Errorf("fallback inks (-want +got):\n%s", diff)
	}

	src := solid(2, 2, orig[11].NRGBA())
	out, err := Map(context.Background(), src, Config{Original: orig})
	if err != nil {
		t.Fatal(err)
	}
	if got := out.NRGBAAt(0, 0); got != orig[9].NRGBA() {
		t.Errorf("pixel = %v, want the closest of the top inks %v", got, orig[9])
	}
}

func TestMapProgressAndCancel(t *testing.T) {
	src := solid(3, 4, red.NRGBA())

	var got []int
	_, err := Map(context.Background(), src, Config{Inks: palette.Palette{red}},
		WithRowsPerSlice(1), WithProgress(func(p int) { got = append(got, p) }))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{25, 50, 75, 100}, got); diff != "" {
		t.Errorf("progress (-want +got):\n%s", diff)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Map(ctx, src, Config{Inks: palette.Palette{red}}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestMapOffsetSource(t *testing.T) {
	big := solid(6, 6, blue.NRGBA())
	big.SetNRGBA(2, 3, red.NRGBA())
	sub := big.SubImage(image.Rect(2, 3, 5, 5)).(*image.NRGBA)

	out, err := Map(context.Background(), sub, Config{Inks: palette.Palette{red, blue}})
	if err != nil {
		t.Fatal(err)
	}
	if out.Rect != image.Rect(0, 0, 3, 2) {
		t.Fatalf("bounds = %v", out.Rect)
	}
	if got := out.NRGBAAt(0, 0); got != red.NRGBA() {
		t.Errorf("origin pixel = %v, want red", got)
	}
	if got := out.NRGBAAt(1, 1); got != blue.NRGBA() {
		t.Errorf("pixel = %v, want blue", got)
	}
}

func TestSharpen(t *testing.T) {
	img := solid(5, 5, color.NRGBA{R: 120, G: 60, B: 200, A: 255})
	img.SetNRGBA(0, 0, color.NRGBA{})

	out := Sharpen(img)
	if got := out.NRGBAAt(0, 0); got != (color.NRGBA{}) {
		t.Errorf("transparent pixel changed to %v", got)
	}
	c := out.NRGBAAt(2, 2)
	if absDiff(c.R, 120) > 1 || absDiff(c.G, 60) > 1 || absDiff(c.B, 200) > 1 {
		t.Errorf("flat interior changed to %v", c)
	}

	edge := solid(6, 6, color.NRGBA{R: 50, G: 50, B: 50, A: 255})
	for y := range 6 {
		for x := 3; x < 6; x++ {
			edge.SetNRGBA(x, y, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
		}
	}
	out = Sharpen(edge)
	if dark, light := out.NRGBAAt(2, 3).R, out.NRGBAAt(3, 3).R; dark >= 50 || light <= 200 {
		t.Errorf("edge not enhanced: dark %d light %d", dark, light)
	}
}

func TestSharpenKeepsCutoutEdges(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 5, 5))
	gray := color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	for y := 1; y < 4; y++ {
		for x := 1; x < 4; x++ {
			img.SetNRGBA(x, y, gray)
		}
	}

	out := Sharpen(img)
	for y := range 5 {
		for x := range 5 {
			want := img.NRGBAAt(x, y)
			if got := out.NRGBAAt(x, y); got != want {
				t.Errorf("(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestCache(t *testing.T) {
	src := solid(4, 4, red.NRGBA())
	cfg := Config{Inks: palette.Palette{red, blue}}

	var c Cache
	first, hit, err := c.Map(context.Background(), src, cfg)
	if err != nil || hit {
		t.Fatalf("first map: hit=%v err=%v", hit, err)
	}

	same := cfg
	same.Snap = DefaultSnap
	second, hit, err := c.Map(context.Background(), src, same)
	if err != nil || !hit {
		t.Fatalf("second map: hit=%v err=%v", hit, err)
	}
	if first != second {
		t.Error("cache hit returned a different buffer")
	}

	cfg.Dither = true
	third, hit, err := c.Map(context.Background(), src, cfg)
	if err != nil || hit {
		t.Fatalf("changed config: hit=%v err=%v", hit, err)
	}
	if third == first {
		t.Error("changed config reused the cached buffer")
	}

	k1, _ := Fingerprint(cfg, 4, 4)
	k2, _ := Fingerprint(cfg, 4, 5)
	if k1 == k2 {
		t.Error("fingerprint ignores resolution")
	}
}

func TestCoverage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(0, 0, red.NRGBA())
	src.SetNRGBA(1, 0, red.NRGBA())
	src.SetNRGBA(0, 1, blue.NRGBA())

	out, err := Map(context.Background(), src, Config{Inks: palette.Palette{red, blue, green}})
	if err != nil {
		t.Fatal(err)
	}

	st := Coverage(src, out, palette.Palette{red, blue, green})
	want := Stats{
		Opaque: 3,
		Inks: []InkCoverage{
			{Color: red, Pixels: 2, Fraction: 2.0 / 3},
			{Color: blue, Pixels: 1, Fraction: 1.0 / 3},
			{Color: green},
		},
	}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
