package palette

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxInks is the number of inks a print run can carry.
const MaxInks = 10

var ErrInkSetFull = errors.New("ink set is full")

type Ink struct {
	Color   Color `json:"hex"`
	Enabled bool  `json:"enabled"`
}

// UnmarshalJSON defaults Enabled to true when the field is missing.
func (i *Ink) UnmarshalJSON(b []byte) error {
	var raw struct {
		Color   Color `json:"hex"`
		Enabled *bool `json:"enabled"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	i.Color = raw.Color
	i.Enabled = raw.Enabled == nil || *raw.Enabled
	return nil
}

// InkSet is the restricted list of inks a mapping pass may use.
type InkSet []Ink

// NewInkSet returns the first n colors of p as enabled inks.
func NewInkSet(p Palette, n int) InkSet {
	n = min(n, len(p), MaxInks)
	s := make(InkSet, n)
	for i, c := range p[:n] {
		s[i] = Ink{Color: c, Enabled: true}
	}
	return s
}

// Add appends c as an enabled ink. A full set is left untouched. Adding a
// color that is already present enables it.
func (s *InkSet) Add(c Color) error {
	for i := range *s {
		if (*s)[i].Color == c {
			(*s)[i].Enabled = true
			return nil
		}
	}
	if len(*s) >= MaxInks {
		return fmt.Errorf("cannot add %s: %w", c.Hex(), ErrInkSetFull)
	}
	*s = append(*s, Ink{Color: c, Enabled: true})
	return nil
}

func (s *InkSet) AddWhite() error {
	return s.Add(White)
}

// Enabled returns the enabled colors in list order.
func (s InkSet) Enabled() Palette {
	res := make(Palette, 0, len(s))
	for _, ink := range s {
		if ink.Enabled {
			res = append(res, ink.Color)
		}
	}
	return res
}
