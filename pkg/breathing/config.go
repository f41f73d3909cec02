package breathing

import (
	"fmt"
	"time"
)

// Config holds all tunable parameters for breathing detection
type Config struct {
	// History
	HistorySize int `toml:"history_size" json:"history_size"` // Rolling window of raw positions (~2s at 30fps)
	MinHistory  int `toml:"min_history" json:"min_history"`   // Frames required before any phase update

	// Smoothing
	Alpha float64 `toml:"alpha" json:"alpha"` // EMA factor (0-1, higher = more new data)

	// Calibration
	CalibrationFrames int `toml:"calibration_frames" json:"calibration_frames"` // Frames to establish baseline (~3s at 30fps)

	// Validation
	AsymmetryRatio float64 `toml:"asymmetry_ratio" json:"asymmetry_ratio"` // Max |dy| as a fraction of shoulder span

	// Classification
	TrendWindow    int     `toml:"trend_window" json:"trend_window"`       // Samples used for the regression slope
	ThresholdFloor float64 `toml:"threshold_floor" json:"threshold_floor"` // Minimum movement threshold (fraction of frame height)
	ThresholdRatio float64 `toml:"threshold_ratio" json:"threshold_ratio"` // Threshold as a fraction of the observed range
	HoldRatio      float64 `toml:"hold_ratio" json:"hold_ratio"`           // Hold band as a fraction of the threshold
	MotionTrend    float64 `toml:"motion_trend" json:"motion_trend"`       // Min |slope| per frame for inhale/exhale
	HoldTrend      float64 `toml:"hold_trend" json:"hold_trend"`           // Max |slope| per frame for hold

	// Counting
	Cooldown   time.Duration `toml:"cooldown" json:"cooldown"`       // Minimum time between counted breaths
	RateWindow int           `toml:"rate_window" json:"rate_window"` // Breath timestamps kept for the rate
	BreathGoal int           `toml:"breath_goal" json:"breath_goal"` // Breaths for the daily challenge (0 = none)
}

// DefaultConfig returns the tuning used by the breathing widgets
func DefaultConfig() Config {
	return Config{
		HistorySize: 60,
		MinHistory:  20,

		Alpha: 0.3, // balance between responsiveness and stability

		CalibrationFrames: 90,

		AsymmetryRatio: 0.3,

		TrendWindow:    15,
		ThresholdFloor: 0.005, // 0.5% of frame height
		ThresholdRatio: 0.25,
		HoldRatio:      0.5,
		MotionTrend:    0.0002,
		HoldTrend:      0.0001,

		Cooldown:   1500 * time.Millisecond,
		RateWindow: 5,
		BreathGoal: 10,
	}
}

// SensitiveConfig returns a configuration for shallow breathers and distant cameras
func SensitiveConfig() Config {
	cfg := DefaultConfig()
	cfg.Alpha = 0.4
	cfg.ThresholdFloor = 0.003
	cfg.ThresholdRatio = 0.2
	cfg.MotionTrend = 0.00015
	return cfg
}

// StableConfig returns a configuration that trades latency for fewer false breaths
func StableConfig() Config {
	cfg := DefaultConfig()
	cfg.Alpha = 0.2
	cfg.ThresholdFloor = 0.007
	cfg.ThresholdRatio = 0.3
	cfg.Cooldown = 2 * time.Second
	return cfg
}

// Preset returns a named configuration ("default", "sensitive", "stable").
func Preset(name string) (Config, bool) {
	switch name {
	case "", "default":
		return DefaultConfig(), true
	case "sensitive":
		return SensitiveConfig(), true
	case "stable":
		return StableConfig(), true
	}
	return Config{}, false
}

// Validate checks the configuration and returns a list of problems
func (c Config) Validate() []string {
	var errs []string

	if c.HistorySize < 2 {
		errs = append(errs, fmt.Sprintf("history_size must be >= 2, got %d", c.HistorySize))
	}
	if c.MinHistory < 1 || c.MinHistory > c.HistorySize {
		errs = append(errs, fmt.Sprintf("min_history must be in [1, history_size], got %d", c.MinHistory))
	}
	if c.TrendWindow < 2 || c.TrendWindow > c.MinHistory {
		errs = append(errs, fmt.Sprintf("trend_window must be in [2, min_history], got %d", c.TrendWindow))
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		errs = append(errs, fmt.Sprintf("alpha must be in (0, 1], got %v", c.Alpha))
	}
	if c.CalibrationFrames < 1 {
		errs = append(errs, fmt.Sprintf("calibration_frames must be >= 1, got %d", c.CalibrationFrames))
	}
	if c.AsymmetryRatio <= 0 {
		errs = append(errs, fmt.Sprintf("asymmetry_ratio must be > 0, got %v", c.AsymmetryRatio))
	}
	if c.ThresholdFloor <= 0 {
		errs = append(errs, fmt.Sprintf("threshold_floor must be > 0, got %v", c.ThresholdFloor))
	}
	if c.ThresholdRatio <= 0 {
		errs = append(errs, fmt.Sprintf("threshold_ratio must be > 0, got %v", c.ThresholdRatio))
	}
	if c.HoldRatio <= 0 || c.HoldRatio > 1 {
		errs = append(errs, fmt.Sprintf("hold_ratio must be in (0, 1], got %v", c.HoldRatio))
	}
	if c.MotionTrend <= 0 || c.HoldTrend <= 0 {
		errs = append(errs, "motion_trend and hold_trend must be > 0")
	}
	if c.Cooldown < 0 {
		errs = append(errs, fmt.Sprintf("cooldown must be >= 0, got %v", c.Cooldown))
	}
	if c.RateWindow < 2 {
		errs = append(errs, fmt.Sprintf("rate_window must be >= 2, got %d", c.RateWindow))
	}
	if c.BreathGoal < 0 {
		errs = append(errs, fmt.Sprintf("breath_goal must be >= 0, got %d", c.BreathGoal))
	}

	return errs
}
