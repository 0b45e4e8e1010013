package labcolor

import "math"

// Weights scale the lightness and chroma terms of Distance2.
type Weights struct {
	L float64 `json:"l"`
	C float64 `json:"c"`
}

var DefaultWeights = Weights{L: 1, C: 1}

// Normalize replaces unset (zero or NaN) weights with 1.
func (w Weights) Normalize() Weights {
	if w.L == 0 || math.IsNaN(w.L) {
		w.L = 1
	}
	if w.C == 0 || math.IsNaN(w.C) {
		w.C = 1
	}
	return w
}

// Distance2 is the squared weighted Euclidean distance between p and q.
// It is a closeness ordering, not a deltaE value.
func Distance2(p, q Lab, w Weights) float64 {
	dL := (p.L - q.L) * w.L
	da := (p.A - q.A) * w.C
	db := (p.B - q.B) * w.C
	return dL*dL + da*da + db*db
}
