package session

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is returned by Start when the session is active.
	ErrAlreadyRunning = errors.New("session already running")

	// ErrNotRunning is returned by Stop and Observe when the session is idle.
	ErrNotRunning = errors.New("session not running")

	// ErrNoSource is returned by Start when only half of the camera pipeline is configured.
	ErrNoSource = errors.New("camera mode needs both a camera and a pose estimator")

	// ErrCameraActive is returned by Observe when frames come from the local camera.
	ErrCameraActive = errors.New("session is fed by the local camera")
)

// Resource names used in ResourceError
const (
	ResourceCamera = "camera"
	ResourcePose   = "pose"
)

// ResourceError reports a failed acquisition in Start.
type ResourceError struct {
	Resource string
	Err      error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("failed to acquire %s: %v", e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}
