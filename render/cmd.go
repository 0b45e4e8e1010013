package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"inkmap/export"
	"inkmap/imgfile"
	"inkmap/mapper"
	"inkmap/palette"
	"inkmap/parallel"
	"inkmap/project"

	"github.com/alecthomas/kong"
)

type CLICmd struct {
	Scan        string   `help:"Source image, or folder to scan" default:"."`
	Dest        string   `help:"Destination folder for mapped pictures. Relative to the scan folder if not absolute" default:"mapped"`
	Project     string   `help:"Project file with palette, inks and substitution rules" type:"existingfile"`
	SaveProject string   `help:"Write the effective project to this file" type:"path"`
	Inks        []string `help:"Ink colors, overriding the project inks" group:"inks" xor:"inks"`
	Kit         string   `help:"RIFF PAL file with the inks to use, as written by the palette command" type:"existingfile" group:"inks" xor:"inks"`
	White       bool     `help:"Append white to the ink set" default:"false" group:"inks"`
	K           int      `short:"k" help:"Colors to extract when the project has no palette" default:"12" group:"inks"`
	Seed        uint64   `help:"Seed for palette extraction, 0 picks a random one" default:"0" group:"inks"`
	Dither      bool     `help:"Apply Floyd-Steinberg dithering" default:"false" group:"mapping"`
	Sharpen     bool     `help:"Sharpen the mapped image" default:"false" group:"mapping"`
	Format      []string `help:"Output formats" enum:"png,bmp,tiff,svg" default:"png" group:"export"`
	Scale       int      `help:"Integer export scale, 0 uses the project value" default:"0" group:"export"`
	Transparent bool     `help:"Keep transparency instead of compositing onto white" default:"false" group:"export"`

	files   []string        `kong:"-"`
	project project.Project `kong:"-"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	scan, err := filepath.Abs(c.Scan)
	var info os.FileInfo
	if err == nil {
		info, err = os.Stat(scan)
	}
	if err != nil {
		return fmt.Errorf("invalid scan path %q: %w", c.Scan, err)
	}

	scanDir := scan
	if info.IsDir() {
		entries, err := os.ReadDir(scan)
		if err != nil {
			return fmt.Errorf("unable to read folder %q: %w", scan, err)
		}
		c.files = c.files[:0]
		for _, e := range entries {
			if !e.IsDir() {
				c.files = append(c.files, filepath.Join(scan, e.Name()))
			}
		}
	} else {
		scanDir = filepath.Dir(scan)
		c.files = []string{scan}
	}
	c.Scan = scan

	if !filepath.IsAbs(c.Dest) {
		c.Dest = filepath.Join(scanDir, c.Dest)
	}

	c.project = project.Default()
	if c.Project != "" {
		if c.project, err = project.Load(c.Project); err != nil {
			return err
		}
	}

	var inks palette.Palette
	switch {
	case len(c.Inks) > 0:
		if inks, err = palette.ParseHexList(c.Inks); err != nil {
			return fmt.Errorf("invalid ink: %w", err)
		}
	case c.Kit != "":
		if inks, err = loadKit(c.Kit); err != nil {
			return err
		}
	}
	if len(inks) > palette.MaxInks {
		return fmt.Errorf("%d inks given: %w", len(inks), palette.ErrInkSetFull)
	}
	if len(inks) > 0 {
		c.project.Inks = palette.NewInkSet(inks, len(inks))
	}
	c.project.AddWhite = c.project.AddWhite || c.White
	c.project.Dither = c.project.Dither || c.Dither
	c.project.Sharpen = c.project.Sharpen || c.Sharpen
	c.project.Transparent = c.project.Transparent || c.Transparent
	if c.Scale > 0 {
		c.project.ExportScale = c.Scale
	}
	if c.K < 1 {
		return fmt.Errorf("invalid number of colors: %d", c.K)
	}

	if c.project.Mix != nil {
		if err := c.project.Mix.Validate(); err != nil {
			return fmt.Errorf("invalid mix rule: %w", err)
		}
	}

	return nil
}

func (c *CLICmd) Run(worker parallel.WorkerFunc, wait parallel.WaitFunc) error {
	if err := os.MkdirAll(c.Dest, 0o755); err != nil {
		return fmt.Errorf("unable to create destination folder %q: %w", c.Dest, err)
	}
	if c.SaveProject != "" {
		if err := c.project.Save(c.SaveProject); err != nil {
			return err
		}
	}

	// Sources that differ only by extension share a destination. The last
	// one submitted wins.
	sup := parallel.NewSupervisor(worker)
	results := make([]<-chan error, 0, len(c.files))
	for _, file := range c.files {
		name := filepath.Base(file)
		target := filepath.Join(c.Dest, strings.TrimSuffix(name, filepath.Ext(name)))
		results = append(results, sup.Submit(context.Background(), target, func(ctx context.Context) error {
			return c.process(ctx, file, target)
		}))
	}

	wait(true)

	var processed, superseded, errs int
	for i, res := range results {
		err := <-res
		switch {
		case err == nil:
			processed++
		case errors.Is(err, parallel.ErrSuperseded):
			superseded++
			slog.Warn("output replaced by a later source", "file", c.files[i])
		default:
			errs++
			slog.Error("could not map image", "file", c.files[i], "error", err)
		}
	}

	slog.Info("stats", "processed", processed, "superseded", superseded, "errors", errs,
		"total", processed+superseded+errs)

	if errs > 0 {
		return fmt.Errorf("error processing %d files", errs)
	}
	return nil
}

func (c *CLICmd) process(ctx context.Context, file, target string) error {
	logger := slog.Default().With("file", file)

	img, _, err := imgfile.Load(file)
	if err != nil {
		return err
	}

	orig := c.project.Palette
	if len(orig) == 0 {
		if orig, err = palette.Extract(img, palette.Options{K: c.K, Seed: c.Seed}); err != nil {
			return fmt.Errorf("could not extract palette: %w", err)
		}
		logger.Debug("extracted palette", "palette", orig.Hexes())
	}

	cfg, err := c.project.MapperConfig(orig).Prepare()
	if err != nil {
		return err
	}

	var cache mapper.Cache
	formats := slices.Clone(c.Format)
	slices.Sort(formats)
	for _, format := range slices.Compact(formats) {
		if err := ctx.Err(); err != nil {
			return err
		}

		out, cached, err := cache.Map(ctx, img, cfg, mapper.WithProgress(func(p int) {
			logger.Debug("mapping", "progress", p)
		}))
		if err != nil {
			return fmt.Errorf("could not map image: %w", err)
		}
		if !cached {
			st := mapper.Coverage(img, out, cfg.Inks)
			logger.Info("mapped", "inks", len(cfg.Inks), "other", st.Other,
				"meanError", st.MeanError, "stdDevError", st.StdDevError)
			for _, ink := range st.Inks {
				logger.Debug("ink coverage", "ink", ink.Color.Hex(), "pixels", ink.Pixels, "fraction", ink.Fraction)
			}
		}

		dest := target + "." + format
		if err := c.save(ctx, logger, out, format, dest); err != nil {
			return err
		}
		logger.Info("saved", "dest", dest)
	}

	return nil
}

func (c *CLICmd) save(ctx context.Context, logger *slog.Logger, out *image.NRGBA, format, dest string) error {
	if format == "svg" {
		return imgfile.WriteFile(dest, func(w io.Writer) error {
			return export.WriteSVG(w, out)
		})
	}

	scale := export.ClampScale(out.Rect.Dx(), out.Rect.Dy(), c.project.ExportScale)
	if scale < c.project.ExportScale {
		logger.Warn("export scale reduced to fit size limits", "requested", c.project.ExportScale, "scale", scale)
	}

	var bg color.Color
	if !c.project.Transparent {
		bg = color.White
	}

	img := out
	if scale > 1 || bg != nil {
		var err error
		img, err = export.Upscale(ctx, out, scale, bg, func(p int) {
			logger.Debug("scaling", "progress", p)
		})
		if err != nil {
			return fmt.Errorf("could not scale image: %w", err)
		}
	}

	return imgfile.WriteFile(dest, func(w io.Writer) error {
		return imgfile.Encode(w, img, format)
	})
}

func loadKit(path string) (palette.Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open ink kit %q: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("could not close ink kit", "name", path, "error", err)
		}
	}()

	var p palette.Palette
	if _, err := p.ReadRIFF(f); err != nil {
		return nil, fmt.Errorf("could not read ink kit %q: %w", path, err)
	}
	return p, nil
}
