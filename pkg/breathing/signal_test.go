package breathing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreathingRate(t *testing.T) {
	tests := []struct {
		name       string
		timestamps []int64
		expect     int
	}{
		{name: "no breaths", timestamps: nil, expect: 0},
		{name: "single breath", timestamps: []int64{1000}, expect: 0},
		{name: "two intervals over 12s", timestamps: []int64{0, 6000, 12000}, expect: 10},
		{name: "one interval of 4s", timestamps: []int64{0, 4000}, expect: 15},
		{name: "rounds to nearest", timestamps: []int64{0, 3960, 7920}, expect: 15},
		{name: "zero span", timestamps: []int64{5000, 5000}, expect: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, BreathingRate(tc.timestamps))
		})
	}
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		expect float64
	}{
		{name: "empty", values: nil, expect: 0},
		{name: "single value", values: []float64{0.5}, expect: 0},
		{name: "flat", values: []float64{0.5, 0.5, 0.5, 0.5}, expect: 0},
		{name: "rising", values: []float64{0, 1, 2, 3}, expect: 1},
		{name: "falling", values: []float64{0.50, 0.49, 0.48, 0.47, 0.46}, expect: -0.01},
		{name: "noisy rise", values: []float64{0, 2, 1, 3}, expect: 0.8},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expect, Trend(tc.values), 1e-9)
		})
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		expect float64
	}{
		{name: "odd length", values: []float64{3, 1, 2}, expect: 2},
		{name: "even length takes lower middle", values: []float64{4, 1, 3, 2}, expect: 2},
		{name: "single", values: []float64{0.42}, expect: 0.42},
		{name: "duplicates", values: []float64{0.5, 0.5, 0.6, 0.5}, expect: 0.5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, Median(tc.values))
		})
	}

	assert.True(t, math.IsNaN(Median(nil)))
}

func TestMedian_DoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Median(values)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestWindow_EvictsOldest(t *testing.T) {
	w := newWindow[float64](3)
	for i := 1; i <= 5; i++ {
		w.push(float64(i))
	}

	assert.Equal(t, 3, w.len())
	assert.Equal(t, []float64{3, 4, 5}, w.values)
	assert.Equal(t, []float64{4, 5}, w.last(2))
	assert.Equal(t, []float64{3, 4, 5}, w.last(10))
}

func TestEMA(t *testing.T) {
	// First sample seeds directly
	assert.Equal(t, 0.4, ema(0, false, 0.4, 0.3))
	assert.InDelta(t, 0.3*0.5+0.7*0.4, ema(0.4, true, 0.5, 0.3), 1e-12)
}

func TestIndicatorPosition(t *testing.T) {
	tests := []struct {
		name     string
		movement float64
		min, max float64
		expect   float64
		ok       bool
	}{
		{name: "no range yet", movement: 0, min: 0, max: 0, ok: false},
		{name: "highest shoulders", movement: -0.02, min: -0.02, max: 0.02, expect: 100, ok: true},
		{name: "lowest shoulders", movement: 0.02, min: -0.02, max: 0.02, expect: 0, ok: true},
		{name: "at baseline", movement: 0, min: -0.02, max: 0.02, expect: 50, ok: true},
		{name: "below baseline", movement: 0.01, min: -0.02, max: 0.02, expect: 25, ok: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos, ok := indicatorPosition(tc.movement, tc.min, tc.max)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.InDelta(t, tc.expect, pos, 1e-9)
			}
		})
	}
}
