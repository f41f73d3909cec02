// Package session owns the lifecycle around a breathing detector: acquiring
// the camera and pose estimator on Start, feeding frames while running, and
// releasing everything on Stop.
//
// Without a camera configured the session is fed externally (browser-side
// pose estimation) through Observe.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-breathe/internal/log"
	"github.com/teslashibe/go-breathe/pkg/breathing"
	"github.com/teslashibe/go-breathe/pkg/pose"
)

// Source names reported in Status
const (
	SourceExternal = "external"
	SourceCamera   = "camera"
)

// DefaultFrameInterval paces camera capture at ~30 fps.
const DefaultFrameInterval = 33 * time.Millisecond

// Camera delivers JPEG frames.
type Camera interface {
	CaptureJPEG() ([]byte, error)
	Close() error
}

// CameraOpener acquires the camera.
type CameraOpener func() (Camera, error)

// EstimatorOpener acquires the pose estimator.
type EstimatorOpener func(ctx context.Context) (pose.Estimator, error)

// Options configures a Session.
type Options struct {
	Camera        CameraOpener    // nil = externally fed
	Estimator     EstimatorOpener // required when Camera is set
	FrameInterval time.Duration
	MinVisibility float64
}

// Status is a snapshot of the session lifecycle.
type Status struct {
	ID          string    `json:"id,omitempty"`
	Running     bool      `json:"running"`
	Source      string    `json:"source"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	StoppedAt   time.Time `json:"stopped_at,omitempty"`
	Frames      uint64    `json:"frames"`
	FrameErrors uint64    `json:"frame_errors"`
	LastError   string    `json:"last_error,omitempty"`
}

// Session runs one detector against one landmark source.
type Session struct {
	detector *breathing.Detector
	opts     Options
	logger   *slog.Logger

	// lifecycle serializes Start and Stop; mu guards the fields below
	lifecycle sync.Mutex
	mu        sync.Mutex
	running   bool
	id        string
	startedAt time.Time
	stoppedAt time.Time
	lastError string
	camera    Camera
	estimator pose.Estimator
	cancel    context.CancelFunc
	done      chan struct{}

	frames      atomic.Uint64
	frameErrors atomic.Uint64
}

// New creates an idle session around the detector.
func New(detector *breathing.Detector, opts Options) *Session {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.MinVisibility <= 0 {
		opts.MinVisibility = pose.DefaultMinVisibility
	}
	return &Session{
		detector: detector,
		opts:     opts,
		logger:   log.Component("session"),
	}
}

// Detector returns the detector the session feeds.
func (s *Session) Detector() *breathing.Detector {
	return s.detector
}

func (s *Session) source() string {
	if s.opts.Camera != nil {
		return SourceCamera
	}
	return SourceExternal
}

// Start resets the detector and acquires the session's resources. On
// failure everything acquired so far is released, a resource_error event is
// emitted, and the session stays idle; the caller may retry.
func (s *Session) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	err := s.start(ctx)

	var rerr *ResourceError
	if errors.As(err, &rerr) {
		s.logger.Warn("session start failed", "resource", rerr.Resource, "error", rerr.Err)
		s.detector.Emit(breathing.Event{
			Type:        breathing.EventResourceError,
			TimestampMs: time.Now().UnixMilli(),
			Error:       err.Error(),
		})
	}
	return err
}

func (s *Session) start(ctx context.Context) error {
	if s.Running() {
		return ErrAlreadyRunning
	}
	if (s.opts.Camera == nil) != (s.opts.Estimator == nil) {
		return ErrNoSource
	}

	s.detector.Reset()

	var (
		cam Camera
		est pose.Estimator
	)
	if s.opts.Camera != nil {
		var err error
		if cam, est, err = s.acquire(ctx); err != nil {
			s.mu.Lock()
			s.lastError = err.Error()
			s.mu.Unlock()
			return err
		}
	}

	s.frames.Store(0)
	s.frameErrors.Store(0)

	s.mu.Lock()
	s.id = uuid.New().String()
	s.running = true
	s.startedAt = time.Now()
	s.stoppedAt = time.Time{}
	s.lastError = ""
	s.camera = cam
	s.estimator = est
	if cam != nil {
		loopCtx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.done = make(chan struct{})
		go s.frameLoop(loopCtx, cam, est, s.startedAt, s.done)
	}
	id := s.id
	s.mu.Unlock()

	s.logger.Info("session started", "id", id, "source", s.source())
	return nil
}

// acquire opens the camera then the estimator, releasing the camera if the
// estimator fails.
func (s *Session) acquire(ctx context.Context) (Camera, pose.Estimator, error) {
	cam, err := s.opts.Camera()
	if err != nil {
		return nil, nil, &ResourceError{Resource: ResourceCamera, Err: err}
	}

	est, err := s.opts.Estimator(ctx)
	if err != nil {
		if cerr := cam.Close(); cerr != nil {
			s.logger.Warn("failed to release camera", "error", cerr)
		}
		return nil, nil, &ResourceError{Resource: ResourcePose, Err: err}
	}

	return cam, est, nil
}

// Stop releases all resources. Detector state is left as is until Reset.
func (s *Session) Stop() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	cancel, done := s.cancel, s.done
	cam, est := s.camera, s.estimator
	s.cancel, s.done = nil, nil
	s.camera, s.estimator = nil, nil
	s.running = false
	s.stoppedAt = time.Now()
	id := s.id
	s.mu.Unlock()

	// The frame loop may be inside a listener that reads Status
	if cancel != nil {
		cancel()
		<-done
	}

	var errs []error
	if est != nil {
		errs = append(errs, est.Close())
	}
	if cam != nil {
		errs = append(errs, cam.Close())
	}

	s.logger.Info("session stopped",
		"id", id,
		"frames", s.frames.Load(),
		"breaths", s.detector.BreathCount(),
	)

	return errors.Join(errs...)
}

// Reset clears all detection state. It does not touch the lifecycle.
func (s *Session) Reset() {
	s.detector.Reset()
}

// Observe feeds an externally estimated frame into the detector.
func (s *Session) Observe(sample breathing.Sample) error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	if !running {
		return ErrNotRunning
	}
	if s.opts.Camera != nil {
		return ErrCameraActive
	}

	s.frames.Add(1)
	s.detector.Observe(sample)
	return nil
}

// Running reports whether the session is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ID returns the current (or last) session ID.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Status returns a lifecycle snapshot.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		ID:          s.id,
		Running:     s.running,
		Source:      s.source(),
		StartedAt:   s.startedAt,
		StoppedAt:   s.stoppedAt,
		Frames:      s.frames.Load(),
		FrameErrors: s.frameErrors.Load(),
		LastError:   s.lastError,
	}
}

func (s *Session) frameLoop(ctx context.Context, cam Camera, est pose.Estimator, started time.Time, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.opts.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.processFrame(ctx, cam, est, started)
		}
	}
}

func (s *Session) processFrame(ctx context.Context, cam Camera, est pose.Estimator, started time.Time) {
	jpeg, err := cam.CaptureJPEG()
	if err != nil {
		s.frameErrors.Add(1)
		s.logger.Debug("frame capture failed", "error", err)
		return
	}

	p, err := est.Estimate(ctx, jpeg)
	ts := time.Since(started).Milliseconds()

	switch {
	case errors.Is(err, pose.ErrNoPose):
		// Nobody in frame; counts as a missing-landmark rejection
		s.frames.Add(1)
		s.detector.Observe(breathing.Sample{TimestampMs: ts})
	case err != nil:
		if ctx.Err() == nil {
			s.frameErrors.Add(1)
			s.logger.Debug("pose estimation failed", "error", err)
		}
	default:
		s.frames.Add(1)
		s.detector.Observe(p.Sample(ts, s.opts.MinVisibility))
	}
}
