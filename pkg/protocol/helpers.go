package protocol

import (
	"github.com/teslashibe/go-breathe/pkg/breathing"
	"github.com/teslashibe/go-breathe/pkg/pose"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewShouldersMessage creates a landmarks message from the two shoulders
func NewShouldersMessage(left, right breathing.Point, frameTS int64) (*Message, error) {
	return NewMessage(TypeLandmarks, LandmarksData{
		Left:    &left,
		Right:   &right,
		FrameTS: &frameTS,
	})
}

// NewPoseMessage creates a landmarks message from a full pose
func NewPoseMessage(p pose.Pose, frameTS int64) (*Message, error) {
	return NewMessage(TypeLandmarks, LandmarksData{
		Landmarks: p,
		FrameTS:   &frameTS,
	})
}

// NewResetMessage creates a reset request
func NewResetMessage() (*Message, error) {
	return NewMessage(TypeReset, nil)
}

// NewStateMessage creates a state message
func NewStateMessage(sessionID string, running bool, state breathing.State) (*Message, error) {
	return NewMessage(TypeState, StateData{
		SessionID: sessionID,
		Running:   running,
		Detector:  state,
	})
}

// NewEventMessage creates an event message
func NewEventMessage(e breathing.Event) (*Message, error) {
	return NewMessage(TypeEvent, e)
}

// NewErrorMessage creates an error reply
func NewErrorMessage(text string) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: text})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id})
}

// NewPongMessage creates a pong response
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetLandmarksData extracts LandmarksData from a message
func (m *Message) GetLandmarksData() (*LandmarksData, error) {
	var data LandmarksData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStateData extracts StateData from a message
func (m *Message) GetStateData() (*StateData, error) {
	var data StateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetEvent extracts a detector event from a message
func (m *Message) GetEvent() (*breathing.Event, error) {
	var data breathing.Event
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts PingData from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
