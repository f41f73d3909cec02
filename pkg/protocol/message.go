// Package protocol defines the WebSocket message types shared by the landmark
// ingest socket, the state broadcast socket and recorded replay files.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-breathe/pkg/breathing"
	"github.com/teslashibe/go-breathe/pkg/pose"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Server messages
	TypeLandmarks MessageType = "landmarks" // One frame of pose output
	TypeReset     MessageType = "reset"     // Restart calibration

	// Server → Client messages
	TypeState MessageType = "state" // Detector snapshot
	TypeEvent MessageType = "event" // Detector notification
	TypeError MessageType = "error" // Rejected message

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Client → Server Message Types
// =============================================================================

// LandmarksData carries one frame of pose output. Clients send either the
// two shoulders directly or the full landmark list.
type LandmarksData struct {
	Left      *breathing.Point `json:"left,omitempty"`
	Right     *breathing.Point `json:"right,omitempty"`
	Landmarks pose.Pose        `json:"landmarks,omitempty"`

	// Monotonic frame time in ms (e.g. performance.now()); falls back to
	// the envelope timestamp when absent.
	FrameTS *int64 `json:"frame_ts,omitempty"`
}

// Timestamp resolves the frame time. ok is false when the frame carries
// neither frame_ts nor an envelope ts.
func (l *LandmarksData) Timestamp(envelopeTS int64) (ts int64, ok bool) {
	if l.FrameTS != nil {
		return *l.FrameTS, true
	}
	return envelopeTS, envelopeTS != 0
}

// Sample converts the frame to detector input
func (l *LandmarksData) Sample(envelopeTS int64, minVisibility float64) breathing.Sample {
	ts, _ := l.Timestamp(envelopeTS)
	if len(l.Landmarks) > 0 {
		return l.Landmarks.Sample(ts, minVisibility)
	}
	return breathing.Sample{Left: l.Left, Right: l.Right, TimestampMs: ts}
}

// =============================================================================
// Server → Client Message Types
// =============================================================================

// StateData wraps a detector snapshot with session information
type StateData struct {
	SessionID string          `json:"session_id"`
	Running   bool            `json:"running"`
	Detector  breathing.State `json:"detector"`
}

// ErrorData describes a rejected client message
type ErrorData struct {
	Message string `json:"message"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
