package breathing

import "time"

// TuningParams holds the runtime-adjustable detection parameters.
// These can be modified via the tuning API without resetting the detector.
type TuningParams struct {
	// Smoothing
	Alpha float64 `json:"alpha"` // EMA factor (0.2=smooth, 0.4=responsive)

	// Thresholds
	ThresholdFloor float64 `json:"threshold_floor"` // Minimum movement threshold
	ThresholdRatio float64 `json:"threshold_ratio"` // Fraction of observed range
	MotionTrend    float64 `json:"motion_trend"`    // Min slope for inhale/exhale
	HoldTrend      float64 `json:"hold_trend"`      // Max slope for hold

	// Counting
	CooldownMs int64 `json:"cooldown_ms"` // Minimum ms between counted breaths
	BreathGoal int   `json:"breath_goal"` // Daily challenge goal
}

// TuningParams returns the current tuning parameters
func (d *Detector) TuningParams() TuningParams {
	d.mu.Lock()
	defer d.mu.Unlock()

	return TuningParams{
		Alpha:          d.config.Alpha,
		ThresholdFloor: d.config.ThresholdFloor,
		ThresholdRatio: d.config.ThresholdRatio,
		MotionTrend:    d.config.MotionTrend,
		HoldTrend:      d.config.HoldTrend,
		CooldownMs:     d.config.Cooldown.Milliseconds(),
		BreathGoal:     d.config.BreathGoal,
	}
}

// SetTuningParams updates tuning parameters at runtime.
// Only positive values are applied.
func (d *Detector) SetTuningParams(params TuningParams) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if params.Alpha > 0 {
		d.config.Alpha = clamp(params.Alpha, 0.01, 1.0)
	}
	if params.ThresholdFloor > 0 {
		d.config.ThresholdFloor = params.ThresholdFloor
	}
	if params.ThresholdRatio > 0 {
		d.config.ThresholdRatio = params.ThresholdRatio
	}
	if params.MotionTrend > 0 {
		d.config.MotionTrend = params.MotionTrend
	}
	if params.HoldTrend > 0 {
		d.config.HoldTrend = params.HoldTrend
	}
	if params.CooldownMs > 0 {
		d.config.Cooldown = time.Duration(params.CooldownMs) * time.Millisecond
	}
	if params.BreathGoal > 0 {
		d.config.BreathGoal = params.BreathGoal
	}
}
