package project

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"inkmap/imgfile"
	"inkmap/labcolor"
	"inkmap/mapper"
	"inkmap/palette"
	"inkmap/tile"
)

// Project is the saved state of a mapping job. Fields missing from a
// project file keep their Default values.
type Project struct {
	Palette     palette.Palette   `json:"palette,omitempty"`
	Inks        palette.InkSet    `json:"inks,omitempty"`
	AddWhite    bool              `json:"addWhite"`
	Mix         *tile.MixRule     `json:"mix,omitempty"`
	Pattern     *tile.PatternRule `json:"pattern,omitempty"`
	Weights     labcolor.Weights  `json:"weights"`
	Dither      bool              `json:"dither"`
	Sharpen     bool              `json:"sharpen"`
	Snap        float64           `json:"snap"`
	ExportScale int               `json:"exportScale"`
	Transparent bool              `json:"transparent"`
}

func Default() Project {
	return Project{
		Weights:     labcolor.DefaultWeights,
		Snap:        mapper.DefaultSnap,
		ExportScale: 1,
	}
}

func Load(path string) (Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return Project{}, fmt.Errorf("could not open project %q: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("could not close project file", "name", path, "error", err)
		}
	}()

	return Read(f)
}

func Read(r io.Reader) (Project, error) {
	p := Default()
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Project{}, fmt.Errorf("could not read project: %w", err)
	}
	if p.ExportScale < 1 {
		p.ExportScale = 1
	}
	p.Weights = p.Weights.Normalize()
	return p, nil
}

func (p Project) Save(path string) error {
	return imgfile.WriteFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("could not write project: %w", err)
		}
		return nil
	})
}

// MapperConfig builds the mapping configuration for an image whose extracted
// palette is orig. A palette stored in the project takes precedence over
// orig. Without enabled inks the top colors of the palette are used, and
// white is appended on request unless the ink set is already full.
func (p Project) MapperConfig(orig palette.Palette) mapper.Config {
	if len(p.Palette) > 0 {
		orig = p.Palette
	}

	inks := slices.Clone(p.Inks)
	if len(inks.Enabled()) == 0 {
		inks = palette.NewInkSet(orig, palette.MaxInks)
	}
	if p.AddWhite {
		if err := inks.AddWhite(); err != nil {
			slog.Warn("white ink not added", "error", err)
		}
	}

	return mapper.Config{
		Original: orig,
		Inks:     inks.Enabled(),
		Mix:      p.Mix,
		Pattern:  p.Pattern,
		Weights:  p.Weights,
		Dither:   p.Dither,
		Sharpen:  p.Sharpen,
		Snap:     p.Snap,
	}
}
