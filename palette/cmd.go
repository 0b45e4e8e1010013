package palette

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"inkmap/imgfile"

	"github.com/alecthomas/kong"
)

type CLICmd struct {
	Image      string `arg:"" help:"Source image" type:"existingfile"`
	K          int    `short:"k" help:"Number of colors to extract" default:"12"`
	Iterations int    `help:"Lloyd iterations" default:"8"`
	Seed       uint64 `help:"Seed for centroid selection, 0 picks a random one" default:"0"`
	Method     string `help:"Extraction method" enum:"lloyd,kmeans,dominant,median" default:"lloyd"`
	Sort       bool   `help:"Sort colors dark to light instead of by frequency" default:"false"`
	Out        string `help:"Write the palette to this RIFF PAL file" type:"path"`
	JSON       bool   `help:"Print the palette as a JSON array of hex colors" default:"false"`
	Swatch     string `help:"Write a PNG swatch strip to this file" type:"path"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	if c.K < 1 {
		return fmt.Errorf("invalid number of colors: %d", c.K)
	}

	for _, dest := range []string{c.Out, c.Swatch} {
		if dest == "" {
			continue
		}
		if info, err := os.Stat(filepath.Dir(dest)); err != nil || !info.IsDir() {
			return fmt.Errorf("invalid destination %q: missing directory", dest)
		}
	}

	return nil
}

func (c *CLICmd) Run() error {
	logger := slog.Default().With("file", c.Image)

	img, _, err := imgfile.Load(c.Image)
	if err != nil {
		return err
	}

	pal, err := Extract(img, Options{
		K:          c.K,
		Iterations: c.Iterations,
		Seed:       c.Seed,
		Method:     Method(c.Method),
	})
	if err != nil {
		return fmt.Errorf("could not extract palette from %q: %w", c.Image, err)
	}
	if c.Sort {
		SortByLightness(pal)
	}
	logger.Info("extracted palette", "method", c.Method, "colors", len(pal), "palette", pal.Hexes())

	if c.Out != "" {
		err = imgfile.WriteFile(c.Out, func(w io.Writer) error {
			_, err := pal.WriteRIFF(w)
			return err
		})
		if err != nil {
			return err
		}
		logger.Info("wrote palette", "dest", c.Out)
	}

	if c.Swatch != "" {
		err = imgfile.WriteFile(c.Swatch, func(w io.Writer) error {
			return imgfile.Encode(w, Swatch(pal, 64), "png")
		})
		if err != nil {
			return err
		}
		logger.Info("wrote swatch", "dest", c.Swatch)
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(pal.Hexes()); err != nil {
			return fmt.Errorf("could not write JSON palette: %w", err)
		}
	}

	return nil
}
