package breathing

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// window is a bounded newest-last buffer
type window[T any] struct {
	values []T
	size   int
}

func newWindow[T any](size int) *window[T] {
	return &window[T]{values: make([]T, 0, size+1), size: size}
}

// push appends v and evicts the oldest entry once the bound is exceeded
func (w *window[T]) push(v T) {
	w.values = append(w.values, v)
	if len(w.values) > w.size {
		w.values = slices.Delete(w.values, 0, len(w.values)-w.size)
	}
}

func (w *window[T]) len() int { return len(w.values) }

// last returns up to n newest entries, oldest first
func (w *window[T]) last(n int) []T {
	if n > len(w.values) {
		n = len(w.values)
	}
	return w.values[len(w.values)-n:]
}

// ema applies one step of exponential smoothing.
// The first value seeds the average directly.
func ema(prev float64, seeded bool, v, alpha float64) float64 {
	if !seeded {
		return v
	}
	return alpha*v + (1-alpha)*prev
}

// Median returns the middle element of values after sorting.
// For even lengths it returns the lower of the two middle elements.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

// Trend returns the least-squares slope of values against their index.
// Fewer than two values have no trend.
func Trend(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, values, nil, false)
	return slope
}

// BreathingRate returns breaths per minute from counted breath times.
// It needs at least two timestamps spanning a positive interval.
func BreathingRate(timestampsMs []int64) int {
	n := len(timestampsMs)
	if n < 2 {
		return 0
	}
	span := timestampsMs[n-1] - timestampsMs[0]
	if span <= 0 {
		return 0
	}
	return int(math.Round(float64(n-1) / float64(span) * 60000))
}

// indicatorPosition maps movement into [min, max] and inverts it so that
// the highest shoulder position (most negative movement) reads 100.
func indicatorPosition(movement, min, max float64) (float64, bool) {
	span := max - min
	if span <= 0 {
		return 0, false
	}
	normalized := (movement - min) / span
	return clamp(100-normalized*100, 0, 100), true
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
