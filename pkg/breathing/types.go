package breathing

// Phase is the detected breathing phase
type Phase string

const (
	PhaseCalibrating Phase = "calibrating"
	PhaseInhale      Phase = "inhale" // shoulders rising, normalized Y decreasing
	PhaseExhale      Phase = "exhale" // shoulders dropping, normalized Y increasing
	PhaseHold        Phase = "hold"
)

// Point is a normalized image coordinate (0-1, origin top-left)
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sample is one frame's shoulder observation.
// A nil shoulder means the pose model did not detect it.
type Sample struct {
	Left        *Point `json:"left,omitempty"`
	Right       *Point `json:"right,omitempty"`
	TimestampMs int64  `json:"ts"` // monotonic milliseconds, arbitrary epoch
}

// RejectReason says why a frame was skipped
type RejectReason string

const (
	RejectMissing    RejectReason = "missing"    // a shoulder was not detected
	RejectInvalid    RejectReason = "invalid"    // NaN/out-of-range coordinates or negative timestamp
	RejectAsymmetric RejectReason = "asymmetric" // sideways turn or tracking glitch
)

// EventType identifies a detector notification
type EventType string

const (
	EventCalibrated    EventType = "calibrated"
	EventPhaseChanged  EventType = "phase_changed"
	EventBreath        EventType = "breath"
	EventGoalReached   EventType = "goal_reached"
	EventResourceError EventType = "resource_error"
)

// Event is a fire-once notification emitted while observing frames
type Event struct {
	Type        EventType `json:"type"`
	TimestampMs int64     `json:"ts"`
	Phase       Phase     `json:"phase,omitempty"`
	BreathCount int       `json:"breath_count,omitempty"`
	Rate        int       `json:"rate,omitempty"`
	Baseline    float64   `json:"baseline,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// State is a point-in-time snapshot of the detector
type State struct {
	Phase               Phase   `json:"phase"`
	BreathCount         int     `json:"breath_count"`
	Calibrated          bool    `json:"calibrated"`
	CalibrationFrames   int     `json:"calibration_frames"`
	CalibrationProgress float64 `json:"calibration_progress"` // 0-1
	BreathingRate       int     `json:"breathing_rate"`       // breaths per minute, 0 = unknown
	IndicatorPosition   float64 `json:"indicator_position"`   // 0-100, 100 = shoulders highest
	GoalReached         bool    `json:"goal_reached"`

	RawY        float64 `json:"raw_y"`
	Smoothed    float64 `json:"smoothed"`
	HasSmoothed bool    `json:"has_smoothed"`
	Baseline    float64 `json:"baseline"`
	HistoryLen  int     `json:"history_len"`
	MovementMin float64 `json:"movement_min"`
	MovementMax float64 `json:"movement_max"`

	Accepted uint64                  `json:"accepted"`
	Rejected map[RejectReason]uint64 `json:"rejected,omitempty"`
}
