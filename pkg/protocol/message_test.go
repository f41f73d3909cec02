package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-breathe/pkg/breathing"
	"github.com/teslashibe/go-breathe/pkg/pose"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
	}{
		{name: "landmarks", msgType: TypeLandmarks, data: LandmarksData{Left: &breathing.Point{X: 0.6, Y: 0.5}}},
		{name: "event", msgType: TypeEvent, data: breathing.Event{Type: breathing.EventBreath}},
		{name: "nil data", msgType: TypeReset, data: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.msgType, msg.Type)
			assert.NotZero(t, msg.Timestamp)
			if tt.data == nil {
				assert.Nil(t, msg.Data)
			}
		})
	}
}

func TestParseMessage_Shoulders(t *testing.T) {
	raw := []byte(`{"type":"landmarks","ts":5000,"data":{"left":{"x":0.62,"y":0.55},"right":{"x":0.38,"y":0.56},"frame_ts":1234}}`)

	msg, err := ParseMessage(raw)
	require.NoError(t, err)
	require.Equal(t, TypeLandmarks, msg.Type)

	data, err := msg.GetLandmarksData()
	require.NoError(t, err)

	s := data.Sample(msg.Timestamp, pose.DefaultMinVisibility)
	require.NotNil(t, s.Left)
	require.NotNil(t, s.Right)
	assert.Equal(t, 0.55, s.Left.Y)
	assert.Equal(t, int64(1234), s.TimestampMs)
}

func TestLandmarksData_FallsBackToEnvelopeTime(t *testing.T) {
	data := LandmarksData{Left: &breathing.Point{X: 0.6, Y: 0.5}, Right: &breathing.Point{X: 0.4, Y: 0.5}}
	assert.Equal(t, int64(777), data.Sample(777, 0).TimestampMs)
}

func TestLandmarksData_Timestamp(t *testing.T) {
	zero := int64(0)
	tests := []struct {
		name     string
		frameTS  *int64
		envelope int64
		want     int64
		ok       bool
	}{
		{name: "frame time wins", frameTS: &zero, envelope: 5000, want: 0, ok: true},
		{name: "envelope fallback", envelope: 5000, want: 5000, ok: true},
		{name: "neither", want: 0, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := LandmarksData{FrameTS: tt.frameTS}
			ts, ok := data.Timestamp(tt.envelope)
			assert.Equal(t, tt.want, ts)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestLandmarksData_FullPose(t *testing.T) {
	p := make(pose.Pose, pose.NumLandmarks)
	p[pose.LeftShoulder] = pose.Landmark{X: 0.6, Y: 0.5, Visibility: 0.99}
	p[pose.RightShoulder] = pose.Landmark{X: 0.4, Y: 0.52, Visibility: 0.2}

	msg, err := NewPoseMessage(p, 99)
	require.NoError(t, err)

	bytes, err := msg.Bytes()
	require.NoError(t, err)
	parsed, err := ParseMessage(bytes)
	require.NoError(t, err)

	data, err := parsed.GetLandmarksData()
	require.NoError(t, err)

	s := data.Sample(parsed.Timestamp, pose.DefaultMinVisibility)
	assert.NotNil(t, s.Left)
	assert.Nil(t, s.Right, "low-visibility shoulder is dropped")
	assert.Equal(t, int64(99), s.TimestampMs)
}

func TestParseMessage_Invalid(t *testing.T) {
	for _, raw := range []string{`not json`, `{"ts":1}`, ``} {
		_, err := ParseMessage([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestNewPongMessage_Latency(t *testing.T) {
	msg, err := NewPongMessage("abc", 1000, 1042)
	require.NoError(t, err)

	var pong PongData
	require.NoError(t, msg.ParseData(&pong))
	assert.Equal(t, "abc", pong.ID)
	assert.Equal(t, int64(42), pong.LatencyMs)
}

func TestStateMessage(t *testing.T) {
	d := breathing.New(breathing.DefaultConfig())

	msg, err := NewStateMessage("session-1", true, d.State())
	require.NoError(t, err)

	state, err := msg.GetStateData()
	require.NoError(t, err)
	assert.Equal(t, "session-1", state.SessionID)
	assert.True(t, state.Running)
	assert.Equal(t, breathing.PhaseCalibrating, state.Detector.Phase)
}
