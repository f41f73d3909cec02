// Package pose models body landmarks produced by an external pose-estimation
// model and adapts them to breathing samples.
package pose

import "github.com/teslashibe/go-breathe/pkg/breathing"

// Body landmark indices following the MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose          = 0
	LeftEyeInner  = 1
	LeftEye       = 2
	LeftEyeOuter  = 3
	RightEyeInner = 4
	RightEye      = 5
	RightEyeOuter = 6
	LeftEar       = 7
	RightEar      = 8
	MouthLeft     = 9
	MouthRight    = 10
	LeftShoulder  = 11
	RightShoulder = 12
	LeftElbow     = 13
	RightElbow    = 14
	LeftWrist     = 15
	RightWrist    = 16
	LeftHip       = 23
	RightHip      = 24
	NumLandmarks  = 33
)

// DefaultMinVisibility matches MediaPipe's default tracking confidence
const DefaultMinVisibility = 0.5

// Landmark is one body point in normalized image coordinates (0-1)
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"` // 0-1 likelihood the point is visible
}

// Pose is the full landmark list for one detected person, indexed by the
// constants above. A short or empty Pose means no person was found.
type Pose []Landmark

// Point returns landmark i if present and visible enough
func (p Pose) Point(i int, minVisibility float64) (*breathing.Point, bool) {
	if i < 0 || i >= len(p) {
		return nil, false
	}
	lm := p[i]
	if lm.Visibility < minVisibility {
		return nil, false
	}
	return &breathing.Point{X: lm.X, Y: lm.Y}, true
}

// Shoulders returns both shoulders; ok is false if either is missing
func (p Pose) Shoulders(minVisibility float64) (left, right *breathing.Point, ok bool) {
	left, lok := p.Point(LeftShoulder, minVisibility)
	right, rok := p.Point(RightShoulder, minVisibility)
	return left, right, lok && rok
}

// Sample converts the pose to a detector input. An undetected shoulder is
// left nil so the detector counts the frame as missing.
func (p Pose) Sample(timestampMs int64, minVisibility float64) breathing.Sample {
	left, right, _ := p.Shoulders(minVisibility)
	return breathing.Sample{Left: left, Right: right, TimestampMs: timestampMs}
}
