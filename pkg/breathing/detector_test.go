package breathing

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	restY   = 0.5
	frameMs = 33 // ~30fps
)

// shoulders builds a level sample with a 0.2 shoulder span
func shoulders(y float64, ts int64) Sample {
	return Sample{
		Left:        &Point{X: 0.4, Y: y},
		Right:       &Point{X: 0.6, Y: y},
		TimestampMs: ts,
	}
}

// feed observes ys one frame apart and returns the next timestamp
func feed(d *Detector, ys []float64, ts int64) int64 {
	return feedEvery(d, ys, ts, frameMs)
}

func feedEvery(d *Detector, ys []float64, ts, stepMs int64) int64 {
	for _, y := range ys {
		d.Observe(shoulders(y, ts))
		ts += stepMs
	}
	return ts
}

func constant(y float64, n int) []float64 {
	ys := make([]float64, n)
	for i := range ys {
		ys[i] = y
	}
	return ys
}

// sine descends below rest first (inhale), then rises above it (exhale)
func sine(amplitude float64, period, cycles int) []float64 {
	ys := make([]float64, period*cycles)
	for i := range ys {
		ys[i] = restY - amplitude*math.Sin(2*math.Pi*float64(i)/float64(period))
	}
	return ys
}

func ramp(from, to float64, n int) []float64 {
	ys := make([]float64, n)
	for i := range ys {
		ys[i] = from + (to-from)*float64(i+1)/float64(n)
	}
	return ys
}

// framesToCalibrate is the number of accepted frames needed with the default config:
// MinHistory-1 frames to fill the window, then CalibrationFrames counted frames.
func framesToCalibrate() int {
	cfg := DefaultConfig()
	return cfg.MinHistory - 1 + cfg.CalibrationFrames
}

type recorder struct {
	events []Event
}

func (r *recorder) listen(e Event) { r.events = append(r.events, e) }

func (r *recorder) count(t EventType) int {
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// transitions counts inhale→exhale phase changes
func (r *recorder) transitions() int {
	n := 0
	prev := Phase("")
	for _, e := range r.events {
		if e.Type != EventPhaseChanged {
			continue
		}
		if prev == PhaseInhale && e.Phase == PhaseExhale {
			n++
		}
		prev = e.Phase
	}
	return n
}

func newCalibrated(t *testing.T) (*Detector, *recorder, int64) {
	t.Helper()
	d := New(DefaultConfig())
	rec := &recorder{}
	d.OnEvent(rec.listen)
	ts := feed(d, constant(restY, framesToCalibrate()), 0)
	require.True(t, d.IsCalibrated())
	return d, rec, ts
}

func TestDetector_InitialState(t *testing.T) {
	d := New(DefaultConfig())
	s := d.State()

	assert.Equal(t, PhaseCalibrating, s.Phase)
	assert.Equal(t, 0, s.BreathCount)
	assert.False(t, s.Calibrated)
	assert.Equal(t, 0, s.BreathingRate)
	assert.Equal(t, 50.0, s.IndicatorPosition)
	assert.Equal(t, 0, s.HistoryLen)
	assert.False(t, s.HasSmoothed)
}

func TestDetector_InsufficientHistory(t *testing.T) {
	d := New(DefaultConfig())
	rec := &recorder{}
	d.OnEvent(rec.listen)

	// Large swings, but fewer than MinHistory accepted samples
	ys := []float64{0.5, 0.4, 0.6, 0.3, 0.7, 0.5, 0.45, 0.55, 0.35, 0.65,
		0.5, 0.4, 0.6, 0.3, 0.7, 0.5, 0.45, 0.55, 0.35}
	require.Len(t, ys, DefaultConfig().MinHistory-1)
	feed(d, ys, 0)

	s := d.State()
	assert.Equal(t, PhaseCalibrating, s.Phase)
	assert.Equal(t, 0, s.BreathCount)
	assert.Equal(t, 0, s.CalibrationFrames)
	assert.False(t, s.HasSmoothed)
	assert.Equal(t, len(ys), s.HistoryLen)
	assert.Empty(t, rec.events)
}

func TestDetector_CalibrationBaselineIsHistoryMedian(t *testing.T) {
	d := New(DefaultConfig())
	rec := &recorder{}
	d.OnEvent(rec.listen)

	n := framesToCalibrate()
	ys := make([]float64, n)
	for i := range ys {
		ys[i] = restY + 0.001*float64((i*7)%11)
	}

	ts := feed(d, ys[:n-1], 0)
	require.False(t, d.IsCalibrated())
	assert.Equal(t, PhaseCalibrating, d.Phase())
	assert.Equal(t, DefaultConfig().CalibrationFrames-1, d.State().CalibrationFrames)

	feed(d, ys[n-1:], ts)
	require.True(t, d.IsCalibrated())

	window := slices.Clone(ys[n-DefaultConfig().HistorySize:])
	slices.Sort(window)
	expected := window[(len(window)-1)/2]

	s := d.State()
	assert.Equal(t, expected, s.Baseline)
	assert.Equal(t, PhaseHold, s.Phase)
	assert.Equal(t, 1.0, s.CalibrationProgress)
	assert.Equal(t, 1, rec.count(EventCalibrated))

	// More frames never re-calibrate
	feed(d, constant(restY, 100), ts+frameMs)
	assert.Equal(t, 1, rec.count(EventCalibrated))
	assert.Equal(t, expected, d.State().Baseline)
}

func TestDetector_OneBreathPerCycle(t *testing.T) {
	tests := []struct {
		name      string
		amplitude float64
		period    int
		cycles    int
		duplicate bool
	}{
		{name: "slow deep breaths", amplitude: 0.03, period: 150, cycles: 3},
		{name: "normal breaths", amplitude: 0.03, period: 120, cycles: 3},
		{name: "shallow breaths", amplitude: 0.02, period: 120, cycles: 4},
		{name: "fast breaths", amplitude: 0.05, period: 90, cycles: 3},
		{name: "every frame delivered twice", amplitude: 0.03, period: 120, cycles: 3, duplicate: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, rec, ts := newCalibrated(t)

			for _, y := range sine(tc.amplitude, tc.period, tc.cycles) {
				d.Observe(shoulders(y, ts))
				if tc.duplicate {
					d.Observe(shoulders(y, ts))
				}
				ts += frameMs
			}

			assert.Equal(t, tc.cycles, d.BreathCount())
			assert.Equal(t, tc.cycles, rec.count(EventBreath))
			assert.Equal(t, tc.cycles, rec.transitions())
		})
	}
}

func TestDetector_BreathingRate(t *testing.T) {
	d, _, ts := newCalibrated(t)

	// 120 frames at 33ms = 3960ms per breath
	feed(d, sine(0.03, 120, 3), ts)

	assert.Equal(t, 15, d.BreathingRate())
}

func TestDetector_CooldownCollapsesRapidBreaths(t *testing.T) {
	d, rec, ts := newCalibrated(t)

	// Inhale, then rise past the baseline until the first exhale is counted
	first := sine(0.03, 120, 1)[:75]
	ts = feed(d, first, ts)
	require.Equal(t, 1, d.BreathCount())
	var breathAt int64
	for _, e := range rec.events {
		if e.Type == EventBreath {
			breathAt = e.TimestampMs
		}
	}

	// Second inhale/exhale squeezed into the next second
	last := first[len(first)-1]
	rapid := ramp(last, restY-0.03, 6)
	rapid = append(rapid, constant(restY-0.03, 3)...)
	rapid = append(rapid, ramp(restY-0.03, restY+0.03, 6)...)
	rapid = append(rapid, constant(restY+0.03, 10)...)
	end := feed(d, rapid, ts)
	require.Less(t, end-breathAt, int64(1500))

	assert.Equal(t, PhaseInhale, d.Phase(), "second inhale detected, exhale suppressed")
	assert.Equal(t, 1, d.BreathCount())

	// Settle back to rest
	settle := append(ramp(restY+0.03, restY, 15), constant(restY, 60)...)
	feed(d, settle, end)

	assert.Equal(t, 1, d.BreathCount())
	assert.Equal(t, 1, rec.count(EventBreath))
	assert.Equal(t, PhaseHold, d.Phase())
}

func TestDetector_CooldownStartsAtFirstFrame(t *testing.T) {
	d := New(DefaultConfig())

	// A fast stream calibrates and completes a cycle well inside the first 1.5s
	ts := feedEvery(d, constant(restY, framesToCalibrate()), 0, 4)
	require.True(t, d.IsCalibrated())
	ts = feedEvery(d, sine(0.03, 120, 1), ts, 4)
	require.Less(t, ts, int64(1500))
	assert.Equal(t, 0, d.BreathCount())

	feed(d, sine(0.03, 120, 2), ts)
	assert.Equal(t, 2, d.BreathCount())
}

func TestDetector_ClockJumpBackDoesNotStallCounting(t *testing.T) {
	d, _, ts := newCalibrated(t)
	feed(d, sine(0.03, 120, 1), ts)
	require.Equal(t, 1, d.BreathCount())

	// Client clock restarts (e.g. page reload resets performance.now())
	feed(d, sine(0.03, 120, 2), 0)
	assert.Equal(t, 3, d.BreathCount())
}

func TestDetector_GoalReachedOnce(t *testing.T) {
	d, rec, ts := newCalibrated(t)

	feed(d, sine(0.03, 120, 12), ts)

	assert.Equal(t, 12, d.BreathCount())
	assert.Equal(t, 1, rec.count(EventGoalReached))
	assert.True(t, d.State().GoalReached)

	for _, e := range rec.events {
		if e.Type == EventGoalReached {
			assert.Equal(t, DefaultConfig().BreathGoal, e.BreathCount)
		}
	}
}

func TestDetector_RejectedFramesDoNotMutate(t *testing.T) {
	d, rec, ts := newCalibrated(t)
	ts = feed(d, sine(0.03, 120, 1)[:40], ts)
	before := d.State()
	eventsBefore := len(rec.events)

	nan := math.NaN()
	rejects := []struct {
		name   string
		sample Sample
		reason RejectReason
	}{
		{
			name:   "asymmetric shoulders",
			sample: Sample{Left: &Point{X: 0.4, Y: 0.50}, Right: &Point{X: 0.6, Y: 0.57}, TimestampMs: ts},
			reason: RejectAsymmetric,
		},
		{
			name:   "missing left shoulder",
			sample: Sample{Right: &Point{X: 0.6, Y: 0.2}, TimestampMs: ts},
			reason: RejectMissing,
		},
		{
			name:   "missing both shoulders",
			sample: Sample{TimestampMs: ts},
			reason: RejectMissing,
		},
		{
			name:   "NaN coordinate",
			sample: Sample{Left: &Point{X: 0.4, Y: nan}, Right: &Point{X: 0.6, Y: 0.2}, TimestampMs: ts},
			reason: RejectInvalid,
		},
		{
			name:   "out of frame",
			sample: Sample{Left: &Point{X: 0.4, Y: 1.2}, Right: &Point{X: 0.6, Y: 1.2}, TimestampMs: ts},
			reason: RejectInvalid,
		},
		{
			name:   "negative timestamp",
			sample: Sample{Left: &Point{X: 0.4, Y: 0.1}, Right: &Point{X: 0.6, Y: 0.1}, TimestampMs: -1},
			reason: RejectInvalid,
		},
	}

	for _, tc := range rejects {
		t.Run(tc.name, func(t *testing.T) {
			rejectedBefore := d.State().Rejected[tc.reason]
			d.Observe(tc.sample)
			after := d.State()

			assert.Equal(t, before.RawY, after.RawY)
			assert.Equal(t, before.Smoothed, after.Smoothed)
			assert.Equal(t, before.Baseline, after.Baseline)
			assert.Equal(t, before.Phase, after.Phase)
			assert.Equal(t, before.HistoryLen, after.HistoryLen)
			assert.Equal(t, before.Accepted, after.Accepted)
			assert.Equal(t, rejectedBefore+1, after.Rejected[tc.reason])
		})
	}

	assert.Len(t, rec.events, eventsBefore)
}

func TestDetector_AsymmetryToleranceBoundary(t *testing.T) {
	d := New(DefaultConfig())

	// |dy| = 0.05 <= 0.3 * 0.2 span
	d.Observe(Sample{Left: &Point{X: 0.4, Y: 0.50}, Right: &Point{X: 0.6, Y: 0.55}})
	assert.Equal(t, uint64(1), d.State().Accepted)
	assert.InDelta(t, 0.525, d.State().RawY, 1e-12)

	// Stacked shoulders have no span, any vertical offset is rejected
	d.Observe(Sample{Left: &Point{X: 0.5, Y: 0.50}, Right: &Point{X: 0.5, Y: 0.51}})
	assert.Equal(t, uint64(1), d.State().Rejected[RejectAsymmetric])
}

func TestDetector_Reset(t *testing.T) {
	d, rec, ts := newCalibrated(t)
	feed(d, sine(0.03, 120, 3), ts)
	require.Equal(t, 3, d.BreathCount())

	d.Reset()
	s := d.State()

	assert.Equal(t, PhaseCalibrating, s.Phase)
	assert.Equal(t, 0, s.BreathCount)
	assert.False(t, s.Calibrated)
	assert.Equal(t, 0, s.CalibrationFrames)
	assert.Equal(t, 0, s.HistoryLen)
	assert.False(t, s.HasSmoothed)
	assert.Equal(t, 0.0, s.Baseline)
	assert.Equal(t, 0, s.BreathingRate)
	assert.Equal(t, 50.0, s.IndicatorPosition)
	assert.Equal(t, 0.0, s.MovementMin)
	assert.Equal(t, 0.0, s.MovementMax)
	assert.False(t, s.GoalReached)

	// A reset forces a full recalibration
	calibrations := rec.count(EventCalibrated)
	ts = feed(d, constant(restY, framesToCalibrate()-1), 0)
	assert.False(t, d.IsCalibrated())
	feed(d, constant(restY, 1), ts)
	assert.True(t, d.IsCalibrated())
	assert.Equal(t, calibrations+1, rec.count(EventCalibrated))
}

func TestDetector_IndicatorStaysInRange(t *testing.T) {
	d, _, ts := newCalibrated(t)

	for _, y := range sine(0.03, 120, 2) {
		d.Observe(shoulders(y, ts))
		ts += frameMs

		pos := d.IndicatorPosition()
		require.GreaterOrEqual(t, pos, 0.0)
		require.LessOrEqual(t, pos, 100.0)
	}

	s := d.State()
	assert.Less(t, s.MovementMin, 0.0)
	assert.Greater(t, s.MovementMax, 0.0)
}

func TestDetector_ListenerSeesCommittedState(t *testing.T) {
	d := New(DefaultConfig())

	var calibratedInListener bool
	d.OnEvent(func(e Event) {
		if e.Type == EventCalibrated {
			// State is readable from inside a listener
			calibratedInListener = d.IsCalibrated()
		}
	})

	feed(d, constant(restY, framesToCalibrate()), 0)
	assert.True(t, calibratedInListener)
}

func TestDetector_TuningParams(t *testing.T) {
	d := New(DefaultConfig())

	params := d.TuningParams()
	assert.Equal(t, 0.3, params.Alpha)
	assert.Equal(t, int64(1500), params.CooldownMs)
	assert.Equal(t, 10, params.BreathGoal)

	// Zero values are ignored
	d.SetTuningParams(TuningParams{CooldownMs: 2500, BreathGoal: 5})
	params = d.TuningParams()
	assert.Equal(t, 0.3, params.Alpha)
	assert.Equal(t, int64(2500), params.CooldownMs)
	assert.Equal(t, 5, params.BreathGoal)

	d.SetTuningParams(TuningParams{Alpha: 3})
	assert.Equal(t, 1.0, d.TuningParams().Alpha)
}
