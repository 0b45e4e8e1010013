package palette

import (
	"cmp"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/cenkalti/dominantcolor"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

var ErrNothingToSample = errors.New("nothing to sample")

type Method string

const (
	// MethodLloyd is the seeded k-means of KMeans.
	MethodLloyd Method = "lloyd"
	// MethodKMeans partitions with github.com/muesli/kmeans until convergence.
	MethodKMeans Method = "kmeans"
	// MethodDominant uses github.com/cenkalti/dominantcolor.
	MethodDominant Method = "dominant"
	// MethodMedian is median cut from github.com/ericpauley/go-quantize.
	MethodMedian Method = "median"
)

var Methods = []Method{MethodLloyd, MethodKMeans, MethodDominant, MethodMedian}

type Options struct {
	K          int
	Iterations int
	// Seed for MethodLloyd. Zero picks a seed from system entropy.
	Seed    uint64
	Method  Method
	Samples int
}

// Extract proposes an original palette for img, most representative color
// first.
func Extract(img image.Image, opt Options) (Palette, error) {
	if opt.K <= 0 {
		return nil, fmt.Errorf("invalid number of colors: %d", opt.K)
	}

	samples := Sample(img, opt.Samples)
	if len(samples) == 0 {
		return nil, ErrNothingToSample
	}

	switch opt.Method {
	case MethodLloyd, "":
		seed := opt.Seed
		if seed == 0 {
			seed = rand.Uint64()
			slog.Debug("picked k-means seed", "seed", seed)
		}
		return KMeans(samples, opt.K, opt.Iterations, seed), nil
	case MethodKMeans:
		return partition(samples, opt.K)
	case MethodDominant:
		return dominant(img, opt.K), nil
	case MethodMedian:
		q := quantize.MedianCutQuantizer{Aggregation: quantize.Mean}
		p := FromColors(q.Quantize(make(color.Palette, 0, opt.K), img))
		return rankBySamples(p, samples), nil
	default:
		return nil, fmt.Errorf("unsupported extraction method: %s", opt.Method)
	}
}

func partition(samples [][3]uint8, k int) (Palette, error) {
	dataset := make(clusters.Observations, len(samples))
	for i, s := range samples {
		dataset[i] = clusters.Coordinates{
			float64(s[0]) / 255,
			float64(s[1]) / 255,
			float64(s[2]) / 255,
		}
	}

	km := kmeans.New()
	cc, err := km.Partition(dataset, min(k, len(dataset)))
	if err != nil {
		return nil, fmt.Errorf("could not partition samples: %w", err)
	}

	slices.SortStableFunc(cc, func(a, b clusters.Cluster) int {
		return cmp.Compare(len(b.Observations), len(a.Observations))
	})

	res := make(Palette, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < 3 || len(c.Observations) == 0 {
			continue
		}
		res = append(res, Color{
			R: unit8(c.Center[0]),
			G: unit8(c.Center[1]),
			B: unit8(c.Center[2]),
		})
	}
	return res.Dedup(), nil
}

func dominant(img image.Image, k int) Palette {
	found := dominantcolor.FindWeight(img, k)
	slices.SortStableFunc(found, func(a, b dominantcolor.Color) int {
		return cmp.Compare(b.Weight, a.Weight)
	})

	res := make(Palette, 0, len(found))
	for _, c := range found {
		res = append(res, Color{R: c.RGBA.R, G: c.RGBA.G, B: c.RGBA.B})
	}
	return res.Dedup()
}

// rankBySamples orders p by how many samples are nearest to each entry.
func rankBySamples(p Palette, samples [][3]uint8) Palette {
	counts := make(map[Color]int, len(p))
	for _, s := range samples {
		if i := p.Nearest(float64(s[0]), float64(s[1]), float64(s[2])); i >= 0 {
			counts[p[i]]++
		}
	}

	res := slices.Clone(p)
	slices.SortStableFunc(res, func(a, b Color) int {
		return cmp.Compare(counts[b], counts[a])
	})
	return res
}

func unit8(v float64) uint8 {
	return uint8(max(0, min(255, math.Round(v*255))))
}
