package palette

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"
)

const DefaultIterations = 8

// KMeans clusters samples into at most k colors with a fixed number of
// Lloyd iterations in RGB space. Initial centroids are samples of distinct
// color picked without replacement by a PCG source seeded with seed, so equal
// inputs and seeds give equal palettes. With fewer than k distinct colors in
// samples fewer centroids are produced. The result is ordered by descending
// cluster population with duplicate centroids removed.
func KMeans(samples [][3]uint8, k, iterations int, seed uint64) Palette {
	n := len(samples)
	if n == 0 || k <= 0 {
		return nil
	}
	k = min(k, n)
	if iterations <= 0 {
		iterations = DefaultIterations
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	centroids := make([][3]int32, 0, k)
	seen := make(map[[3]uint8]struct{}, k)
	for _, idx := range rng.Perm(n) {
		s := samples[idx]
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		centroids = append(centroids, [3]int32{int32(s[0]), int32(s[1]), int32(s[2])})
		if len(centroids) == k {
			break
		}
	}
	k = len(centroids)

	assign := make([]int, n)
	counts := make([]int, k)
	sums := make([][3]int64, k)
	for range iterations {
		for i, s := range samples {
			assign[i] = nearestCentroid(centroids, s)
		}

		clear(counts)
		clear(sums)
		for i, s := range samples {
			c := assign[i]
			counts[c]++
			sums[c][0] += int64(s[0])
			sums[c][1] += int64(s[1])
			sums[c][2] += int64(s[2])
		}

		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			cnt := float64(counts[c])
			for ch := range 3 {
				centroids[c][ch] = int32(math.Round(float64(sums[c][ch]) / cnt))
			}
		}
	}

	order := make([]int, k)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(counts[b], counts[a])
	})

	res := make(Palette, 0, k)
	for _, c := range order {
		res = append(res, Color{
			R: uint8(centroids[c][0]),
			G: uint8(centroids[c][1]),
			B: uint8(centroids[c][2]),
		})
	}
	return res.Dedup()
}

func nearestCentroid(centroids [][3]int32, s [3]uint8) int {
	best, bestD := 0, int32(math.MaxInt32)
	for i, c := range centroids {
		dr := int32(s[0]) - c[0]
		dg := int32(s[1]) - c[1]
		db := int32(s[2]) - c[2]
		d := dr*dr + dg*dg + db*db
		if d < bestD {
			best, bestD = i, d
		}
	}
	return best
}
