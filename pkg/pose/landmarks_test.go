package pose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullPose(leftVis, rightVis float64) Pose {
	p := make(Pose, NumLandmarks)
	for i := range p {
		p[i] = Landmark{X: 0.5, Y: 0.5, Visibility: 0.9}
	}
	p[LeftShoulder] = Landmark{X: 0.62, Y: 0.55, Visibility: leftVis}
	p[RightShoulder] = Landmark{X: 0.38, Y: 0.56, Visibility: rightVis}
	return p
}

func TestPose_Shoulders(t *testing.T) {
	tests := []struct {
		name     string
		pose     Pose
		expectOK bool
	}{
		{name: "both visible", pose: fullPose(0.9, 0.8), expectOK: true},
		{name: "left hidden", pose: fullPose(0.2, 0.8), expectOK: false},
		{name: "right hidden", pose: fullPose(0.9, 0.1), expectOK: false},
		{name: "no person", pose: nil, expectOK: false},
		{name: "truncated landmark list", pose: fullPose(0.9, 0.9)[:LeftShoulder+1], expectOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			left, right, ok := tc.pose.Shoulders(DefaultMinVisibility)
			assert.Equal(t, tc.expectOK, ok)
			if ok {
				require.NotNil(t, left)
				require.NotNil(t, right)
				assert.Equal(t, 0.62, left.X)
				assert.Equal(t, 0.56, right.Y)
			}
		})
	}
}

func TestPose_Sample(t *testing.T) {
	s := fullPose(0.9, 0.9).Sample(1234, DefaultMinVisibility)

	require.NotNil(t, s.Left)
	require.NotNil(t, s.Right)
	assert.Equal(t, int64(1234), s.TimestampMs)
	assert.Equal(t, 0.55, s.Left.Y)

	// A hidden shoulder stays nil so the detector skips the frame
	s = fullPose(0.1, 0.9).Sample(0, DefaultMinVisibility)
	assert.Nil(t, s.Left)
	assert.NotNil(t, s.Right)
}

func TestPose_PointOutOfRange(t *testing.T) {
	p := fullPose(1, 1)

	_, ok := p.Point(-1, 0)
	assert.False(t, ok)
	_, ok = p.Point(NumLandmarks, 0)
	assert.False(t, ok)
}
