package qc

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// centeredMean computes a centered rolling mean over a window of w points,
// skipping NaN values. A point with fewer than minPeriods valid values in
// its window is NaN. For even w the window extends one point further back
// than forward, i.e. [i-w/2, i+w/2-1].
func centeredMean(xs []float64, w, minPeriods int) []float64 {
	n := len(xs)
	out := make([]float64, n)
	offset := (w - 1) / 2
	for i := 0; i < n; i++ {
		end := i + offset + 1
		start := end - w
		if start < 0 {
			start = 0
		}
		if end > n {
			end = n
		}
		sum, count := 0.0, 0
		for j := start; j < end; j++ {
			if math.IsNaN(xs[j]) {
				continue
			}
			sum += xs[j]
			count++
		}
		if count < minPeriods || count == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(count)
	}
	return out
}

// quantile returns the q-th quantile of xs with linear interpolation
// between closest ranks (h = (n-1)q). NaN values are ignored.
func quantile(xs []float64, q float64) float64 {
	sorted := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			sorted = append(sorted, x)
		}
	}
	if len(sorted) == 0 {
		return math.NaN()
	}
	sort.Float64s(sorted)
	h := float64(len(sorted)-1) * q
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// sampleStdDev is the n-1 standard deviation of the valid values of xs,
// NaN when fewer than two remain.
func sampleStdDev(xs []float64) float64 {
	valid := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			valid = append(valid, x)
		}
	}
	if len(valid) < 2 {
		return math.NaN()
	}
	return stat.StdDev(valid, nil)
}

// maxOf is floats.Max without the panic on empty input.
func maxOf(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return floats.Max(xs)
}

func minOf(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return floats.Min(xs)
}

func pick(xs []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = xs[i]
	}
	return out
}

func fill(n int, f FlagCode) []FlagCode {
	out := make([]FlagCode, n)
	for i := range out {
		out[i] = f
	}
	return out
}
