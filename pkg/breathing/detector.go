// Package breathing turns a stream of shoulder landmarks into a breathing
// phase, a breath counter and a breathing rate.
//
// Each accepted frame flows through the same stages: validation, the rolling
// history and EMA, calibration of a rest baseline, then classification
// against an adaptive threshold and a short regression trend. Normalized Y
// grows downward, so shoulders rising (inhale) means movement below the
// baseline.
package breathing

import (
	"log/slog"
	"math"
	"sync"

	"github.com/teslashibe/go-breathe/internal/log"
)

// Listener receives detector notifications
type Listener func(Event)

// Detector is the breathing-phase state machine.
// Frames are processed one at a time; Observe, Reset and the getters are
// safe to call from multiple goroutines.
type Detector struct {
	mu     sync.Mutex
	config Config
	logger *slog.Logger

	// Signal
	history     *window[float64]
	rawY        float64
	smoothed    float64
	hasSmoothed bool

	// Calibration
	calibrationFrames int
	calibrated        bool
	baseline          float64

	// Classification
	rangeMin, rangeMax float64
	phase              Phase
	lastPhase          Phase
	indicator          float64

	// Counting
	breathCount   int
	lastBreathMs  int64 // cooldown origin: last breath, or first accepted frame
	hasOrigin     bool
	breathTimes   *window[int64]
	breathingRate int
	goalReached   bool

	// Stats
	accepted uint64
	rejected map[RejectReason]uint64

	listenersMu sync.RWMutex
	listeners   []Listener
}

// New creates a detector in the calibrating state
func New(config Config) *Detector {
	d := &Detector{
		config: config,
		logger: log.Component("breathing"),
	}
	d.resetLocked()
	return d
}

// OnEvent registers a listener. Listeners run synchronously on the goroutine
// that called Observe, after the frame's state update has completed.
func (d *Detector) OnEvent(l Listener) {
	d.listenersMu.Lock()
	d.listeners = append(d.listeners, l)
	d.listenersMu.Unlock()
}

// Config returns the active configuration
func (d *Detector) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config
}

// Reset clears all detection state and forces a full recalibration
func (d *Detector) Reset() {
	d.mu.Lock()
	d.resetLocked()
	d.mu.Unlock()
}

func (d *Detector) resetLocked() {
	d.history = newWindow[float64](d.config.HistorySize)
	d.rawY = 0
	d.smoothed = 0
	d.hasSmoothed = false

	d.calibrationFrames = 0
	d.calibrated = false
	d.baseline = 0

	d.rangeMin, d.rangeMax = 0, 0
	d.phase = PhaseCalibrating
	d.lastPhase = PhaseHold
	d.indicator = 50

	d.breathCount = 0
	d.lastBreathMs = 0
	d.hasOrigin = false
	d.breathTimes = newWindow[int64](d.config.RateWindow)
	d.breathingRate = 0
	d.goalReached = false

	d.accepted = 0
	d.rejected = make(map[RejectReason]uint64)
}

// Observe processes one frame
func (d *Detector) Observe(s Sample) {
	d.mu.Lock()
	events := d.observeLocked(s)
	d.mu.Unlock()

	d.emit(events)
}

func (d *Detector) observeLocked(s Sample) []Event {
	rawY, reason, ok := d.validate(s)
	if !ok {
		d.rejected[reason]++
		d.logger.Debug("frame rejected", "reason", reason, "ts", s.TimestampMs)
		return nil
	}
	d.accepted++
	d.rawY = rawY
	if !d.hasOrigin {
		d.lastBreathMs = s.TimestampMs
		d.hasOrigin = true
	}

	d.history.push(rawY)
	if d.history.len() < d.config.MinHistory {
		return nil
	}

	d.smoothed = ema(d.smoothed, d.hasSmoothed, rawY, d.config.Alpha)
	d.hasSmoothed = true

	if !d.calibrated {
		return d.calibrate(s.TimestampMs)
	}
	return d.classify(s.TimestampMs)
}

// validate accepts a frame and returns its mean shoulder height
func (d *Detector) validate(s Sample) (float64, RejectReason, bool) {
	if s.Left == nil || s.Right == nil {
		return 0, RejectMissing, false
	}
	if s.TimestampMs < 0 || !validCoord(*s.Left) || !validCoord(*s.Right) {
		return 0, RejectInvalid, false
	}

	diff := math.Abs(s.Left.Y - s.Right.Y)
	span := math.Abs(s.Left.X - s.Right.X)
	if diff > span*d.config.AsymmetryRatio {
		return 0, RejectAsymmetric, false
	}

	return (s.Left.Y + s.Right.Y) / 2, "", true
}

func validCoord(p Point) bool {
	for _, v := range [2]float64{p.X, p.Y} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// calibrate counts frames until the baseline can be taken from the history median
func (d *Detector) calibrate(nowMs int64) []Event {
	d.calibrationFrames++
	if d.calibrationFrames < d.config.CalibrationFrames {
		return nil
	}

	d.baseline = Median(d.history.values)
	d.calibrated = true
	d.phase = PhaseHold

	return []Event{
		{Type: EventCalibrated, TimestampMs: nowMs, Baseline: d.baseline},
		{Type: EventPhaseChanged, TimestampMs: nowMs, Phase: PhaseHold},
	}
}

// classify applies the transition rules in priority order: inhale, exhale, hold
func (d *Detector) classify(nowMs int64) []Event {
	cfg := d.config
	movement := d.smoothed - d.baseline

	d.rangeMin = math.Min(d.rangeMin, movement)
	d.rangeMax = math.Max(d.rangeMax, movement)
	if pos, ok := indicatorPosition(movement, d.rangeMin, d.rangeMax); ok {
		d.indicator = pos
	}

	observedRange := d.rangeMax - d.rangeMin
	threshold := math.Max(cfg.ThresholdFloor, observedRange*cfg.ThresholdRatio)
	trend := Trend(d.history.last(cfg.TrendWindow))

	switch {
	case movement < -threshold && trend < -cfg.MotionTrend && d.lastPhase != PhaseInhale:
		return d.transition(PhaseInhale, nowMs)

	case movement > threshold && trend > cfg.MotionTrend && d.lastPhase == PhaseInhale:
		// A clock that went backwards restarts the cooldown instead of holding it forever
		if elapsed := nowMs - d.lastBreathMs; elapsed >= 0 && elapsed <= cfg.Cooldown.Milliseconds() {
			return nil
		}
		return d.countBreath(nowMs)

	case math.Abs(movement) < threshold*cfg.HoldRatio && math.Abs(trend) < cfg.HoldTrend && d.lastPhase != PhaseHold:
		return d.transition(PhaseHold, nowMs)
	}

	return nil
}

func (d *Detector) transition(p Phase, nowMs int64) []Event {
	d.phase = p
	d.lastPhase = p
	return []Event{{Type: EventPhaseChanged, TimestampMs: nowMs, Phase: p}}
}

// countBreath completes an inhale→exhale cycle
func (d *Detector) countBreath(nowMs int64) []Event {
	events := d.transition(PhaseExhale, nowMs)

	d.lastBreathMs = nowMs
	d.breathCount++
	d.breathTimes.push(nowMs)
	d.breathingRate = BreathingRate(d.breathTimes.values)

	events = append(events, Event{
		Type:        EventBreath,
		TimestampMs: nowMs,
		BreathCount: d.breathCount,
		Rate:        d.breathingRate,
	})

	goal := d.config.BreathGoal
	if goal > 0 && d.breathCount >= goal && !d.goalReached {
		d.goalReached = true
		events = append(events, Event{
			Type:        EventGoalReached,
			TimestampMs: nowMs,
			BreathCount: d.breathCount,
		})
	}

	return events
}

// Emit delivers an externally generated event (e.g. a resource error) to
// the detector's listeners.
func (d *Detector) Emit(e Event) {
	d.emit([]Event{e})
}

func (d *Detector) emit(events []Event) {
	if len(events) == 0 {
		return
	}
	d.listenersMu.RLock()
	listeners := d.listeners
	d.listenersMu.RUnlock()

	for _, e := range events {
		for _, l := range listeners {
			l(e)
		}
	}
}

// State returns a snapshot of all observable state
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	progress := 1.0
	if !d.calibrated {
		progress = float64(d.calibrationFrames) / float64(d.config.CalibrationFrames)
	}

	rejected := make(map[RejectReason]uint64, len(d.rejected))
	for k, v := range d.rejected {
		rejected[k] = v
	}

	return State{
		Phase:               d.phase,
		BreathCount:         d.breathCount,
		Calibrated:          d.calibrated,
		CalibrationFrames:   d.calibrationFrames,
		CalibrationProgress: progress,
		BreathingRate:       d.breathingRate,
		IndicatorPosition:   d.indicator,
		GoalReached:         d.goalReached,
		RawY:                d.rawY,
		Smoothed:            d.smoothed,
		HasSmoothed:         d.hasSmoothed,
		Baseline:            d.baseline,
		HistoryLen:          d.history.len(),
		MovementMin:         d.rangeMin,
		MovementMax:         d.rangeMax,
		Accepted:            d.accepted,
		Rejected:            rejected,
	}
}

// Phase returns the current phase
func (d *Detector) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

// BreathCount returns the number of counted breaths since the last reset
func (d *Detector) BreathCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.breathCount
}

// IsCalibrated reports whether the baseline has been established
func (d *Detector) IsCalibrated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calibrated
}

// BreathingRate returns breaths per minute over the recent breaths (0 = unknown)
func (d *Detector) BreathingRate() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.breathingRate
}

// IndicatorPosition returns the 0-100 indicator position (100 = top)
func (d *Detector) IndicatorPosition() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.indicator
}
