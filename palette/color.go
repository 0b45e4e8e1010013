package palette

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"inkmap/labcolor"

	"github.com/lucasb-eyer/go-colorful"
)

// AlphaCutoff is the alpha below which a pixel counts as fully transparent.
const AlphaCutoff = 10

var ErrInvalidHex = errors.New("invalid hex color")

// Color is an opaque 8-bit sRGB color. Two colors are the same ink if and
// only if their hex forms are equal, which for this type is plain equality.
type Color struct {
	R, G, B uint8
}

var (
	White = Color{0xFF, 0xFF, 0xFF}
	Black = Color{}
)

func (c Color) RGBA() (uint32, uint32, uint32, uint32) {
	return uint32(c.R) * 0x101, uint32(c.G) * 0x101, uint32(c.B) * 0x101, 0xffff
}

func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}
}

// Hex returns the canonical #RRGGBB form.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

func (c Color) String() string {
	return c.Hex()
}

func (c Color) Lab() labcolor.Lab {
	return labcolor.ToLab(float64(c.R), float64(c.G), float64(c.B))
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseHex(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseHex reads RRGGBB with an optional leading '#', in any letter case.
// Surrounding whitespace is rejected.
func ParseHex(s string) (Color, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 || strings.IndexFunc(h, notHexDigit) >= 0 {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}

	cc, err := colorful.Hex("#" + strings.ToLower(h))
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q: %w", ErrInvalidHex, s, err)
	}

	r, g, b := cc.RGB255()
	return Color{R: r, G: g, B: b}, nil
}

// ParseHexList parses a list of hex colors, e.g. from a comma separated flag.
// Entries are trimmed and empty ones skipped.
func ParseHexList(list []string) ([]Color, error) {
	res := make([]Color, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		c, err := ParseHex(s)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}

func notHexDigit(r rune) bool {
	return !(('0' <= r && r <= '9') || ('a' <= r && r <= 'f') || ('A' <= r && r <= 'F'))
}
