package mapper

import (
	"errors"
	"fmt"

	"inkmap/labcolor"
	"inkmap/palette"
	"inkmap/tile"
)

// DefaultSnap is the weighted squared Lab distance under which an ink is
// taken without looking at the rest of the list.
const DefaultSnap = 1.2

var (
	ErrNoImage = errors.New("no image to map")
	ErrNoInks  = errors.New("no inks available")
)

// Config holds everything a mapping pass depends on besides the pixels.
type Config struct {
	// Original is the palette extracted from the source. Substitution rules
	// match against it and it seeds the ink list when Inks is empty.
	Original palette.Palette
	// Inks are the enabled inks in priority order.
	Inks    palette.Palette
	Mix     *tile.MixRule
	Pattern *tile.PatternRule
	Weights labcolor.Weights
	Dither  bool
	Sharpen bool
	Snap    float64
}

// Prepare returns a copy of c with defaults applied, or an error if the
// configuration cannot be mapped.
func (c Config) Prepare() (Config, error) {
	if len(c.Inks) == 0 {
		c.Inks = c.Original[:min(len(c.Original), palette.MaxInks)]
	}
	switch {
	case len(c.Inks) == 0:
		return c, ErrNoInks
	case len(c.Inks) > palette.MaxInks:
		return c, fmt.Errorf("%d inks: %w", len(c.Inks), palette.ErrInkSetFull)
	}

	c.Weights = c.Weights.Normalize()
	if c.Snap <= 0 {
		c.Snap = DefaultSnap
	}

	if c.Mix != nil {
		if err := c.Mix.Validate(); err != nil {
			return c, fmt.Errorf("invalid mix rule for %s: %w", c.Mix.Source.Hex(), err)
		}
	}
	if c.Pattern != nil && !c.Pattern.Enabled {
		c.Pattern = nil
	}
	if len(c.Original) == 0 {
		c.Mix, c.Pattern = nil, nil
	}

	return c, nil
}
