package pose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrNoPose is returned when the model found no person in the frame
	ErrNoPose = errors.New("no pose detected")

	// ErrClosed is returned after Close
	ErrClosed = errors.New("estimator closed")
)

// Estimator runs pose estimation on a JPEG frame
type Estimator interface {
	// Estimate returns the landmarks of the most prominent person
	Estimate(ctx context.Context, jpeg []byte) (Pose, error)

	// Close releases resources
	Close() error
}

// RemoteConfig holds the remote estimator settings
type RemoteConfig struct {
	URL           string        `toml:"url" json:"url"`                       // ws:// endpoint of the pose service
	Timeout       time.Duration `toml:"timeout" json:"timeout"`               // Per-frame round trip limit
	MinVisibility float64       `toml:"min_visibility" json:"min_visibility"` // Landmark visibility cutoff
}

// DefaultRemoteConfig returns defaults for a pose sidecar on localhost
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		URL:           "ws://127.0.0.1:8765/pose",
		Timeout:       2 * time.Second,
		MinVisibility: DefaultMinVisibility,
	}
}

// remoteResult is the pose service reply for one frame
type remoteResult struct {
	Landmarks []Landmark `json:"landmarks"`
	Error     string     `json:"error,omitempty"`
}

// RemoteEstimator sends frames to an external pose-estimation service over a
// websocket: one binary JPEG message out, one JSON result in.
type RemoteEstimator struct {
	config RemoteConfig
	conn   *websocket.Conn
	mu     sync.Mutex // one frame in flight
	closed bool
}

// DialRemote connects to the pose service
func DialRemote(ctx context.Context, cfg RemoteConfig) (*RemoteEstimator, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("pose service connect failed: %w", err)
	}

	return &RemoteEstimator{config: cfg, conn: conn}, nil
}

// Estimate sends one frame and waits for its landmarks
func (r *RemoteEstimator) Estimate(ctx context.Context, jpeg []byte) (Pose, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	// Cancellation tears the connection down so a pending read returns at once
	stop := context.AfterFunc(ctx, func() { r.conn.Close() })
	defer func() {
		if !stop() {
			r.closed = true
		}
	}()

	// Zero deadline means no limit
	var deadline time.Time
	if r.config.Timeout > 0 {
		deadline = time.Now().Add(r.config.Timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	r.conn.SetWriteDeadline(deadline)
	r.conn.SetReadDeadline(deadline)

	if err := r.conn.WriteMessage(websocket.BinaryMessage, jpeg); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("send frame: %w", err)
	}

	_, data, err := r.conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("read landmarks: %w", err)
	}

	var result remoteResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode landmarks: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("pose service: %s", result.Error)
	}
	if len(result.Landmarks) == 0 {
		return nil, ErrNoPose
	}

	return Pose(result.Landmarks), nil
}

// Close closes the connection to the pose service
func (r *RemoteEstimator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	r.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return r.conn.Close()
}
