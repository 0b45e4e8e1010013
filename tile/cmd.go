package tile

import (
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"inkmap/imgfile"
	"inkmap/palette"

	"github.com/alecthomas/kong"
	"golang.org/x/image/draw"
)

type CLICmd struct {
	Out    string `arg:"" help:"Destination PNG file" type:"path"`
	Repeat int    `help:"Repeat the tile this many times per axis" default:"1"`
	Scale  int    `help:"Magnify each tile pixel" default:"1"`

	Mix      []string `help:"Mix inks as HEX:DENSITY, 2 or 3 entries summing to 100. Renders a pattern tile when empty" group:"mix"`
	Grid     int      `help:"Logical cells per tile axis" default:"6" group:"mix"`
	CellSize int      `help:"Pixels per logical cell" default:"1" group:"mix"`
	Order    string   `help:"Cell visiting order" enum:"blue,checker,stripes-h,stripes-v,bayer" default:"blue" group:"mix"`

	Shape      string `help:"Pattern shape" enum:"dot,square,stripe-h,stripe-v,checker,cross" default:"dot" group:"pattern"`
	Foreground string `help:"Pattern foreground color" default:"#000000" group:"pattern"`
	Background string `help:"Pattern background color" default:"#FFFFFF" group:"pattern"`
	Cell       int    `help:"Pattern cell size in pixels" default:"8" group:"pattern"`
	Size       int    `help:"Shape size in percent of the cell" default:"50" group:"pattern"`
	Stagger    bool   `help:"Shift odd rows of cells by half a cell" default:"false" group:"pattern"`

	mix     *MixRule     `kong:"-"`
	pattern *PatternRule `kong:"-"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	if info, err := os.Stat(filepath.Dir(c.Out)); err != nil || !info.IsDir() {
		return fmt.Errorf("invalid destination %q: missing directory", c.Out)
	}
	if c.Repeat < 1 || c.Scale < 1 {
		return fmt.Errorf("invalid repeat %d or scale %d", c.Repeat, c.Scale)
	}

	if len(c.Mix) > 0 {
		rule := &MixRule{Grid: c.Grid, CellSize: c.CellSize, Order: Order(c.Order)}
		for _, s := range c.Mix {
			ink, err := ParseMixInk(s)
			if err != nil {
				return err
			}
			rule.Inks = append(rule.Inks, ink)
		}
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("invalid mix rule: %w", err)
		}
		c.mix = rule
		return nil
	}

	fg, err := palette.ParseHex(c.Foreground)
	if err != nil {
		return fmt.Errorf("invalid foreground: %w", err)
	}
	bg, err := palette.ParseHex(c.Background)
	if err != nil {
		return fmt.Errorf("invalid background: %w", err)
	}
	c.pattern = &PatternRule{
		Enabled:    true,
		Background: bg,
		Shape:      Shape(c.Shape),
		Foreground: fg,
		Cell:       c.Cell,
		Size:       c.Size,
		Stagger:    c.Stagger,
	}
	return nil
}

func (c *CLICmd) Run() error {
	logger := slog.Default().With("dest", c.Out)

	var t *image.NRGBA
	if c.mix != nil {
		var err error
		if t, err = BuildMix(*c.mix); err != nil {
			return fmt.Errorf("could not build mix tile: %w", err)
		}
		logger.Info("built mix tile", "side", t.Rect.Dx(), "quotas", c.mix.Quotas(), "cells", Counts(t, *c.mix))
	} else {
		t = BuildPattern(*c.pattern)
		logger.Info("built pattern tile", "shape", c.pattern.Shape, "side", t.Rect.Dx(),
			"coverage", Coverage(t, c.pattern.Foreground))
	}

	out := Repeat(t, c.Repeat, c.pattern)
	if c.Scale > 1 {
		big := image.NewNRGBA(image.Rect(0, 0, out.Rect.Dx()*c.Scale, out.Rect.Dy()*c.Scale))
		draw.NearestNeighbor.Scale(big, big.Rect, out, out.Rect, draw.Src, nil)
		out = big
	}

	return imgfile.WriteFile(c.Out, func(w io.Writer) error {
		return imgfile.Encode(w, out, "png")
	})
}

// Repeat lays n x n copies of t out the way a mapping pass samples it. A
// non-nil pattern rule applies its row stagger.
func Repeat(t *image.NRGBA, n int, pattern *PatternRule) *image.NRGBA {
	w, h := t.Rect.Dx(), t.Rect.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w*n, h*n))
	for y := range h * n {
		for x := range w * n {
			tx, ty := x%w, y%h
			if pattern != nil {
				tx, ty = pattern.At(x, y)
			}
			out.SetNRGBA(x, y, t.NRGBAAt(t.Rect.Min.X+tx, t.Rect.Min.Y+ty))
		}
	}
	return out
}

// ParseMixInk reads HEX:DENSITY.
func ParseMixInk(s string) (MixInk, error) {
	hex, dens, ok := strings.Cut(s, ":")
	if !ok {
		return MixInk{}, fmt.Errorf("invalid mix ink %q, want HEX:DENSITY", s)
	}
	col, err := palette.ParseHex(hex)
	if err != nil {
		return MixInk{}, err
	}
	d, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(dens, "%")))
	if err != nil {
		return MixInk{}, fmt.Errorf("invalid density in %q: %w", s, err)
	}
	return MixInk{Color: col, Density: d}, nil
}
