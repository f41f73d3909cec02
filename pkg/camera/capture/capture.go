// Package capture reads JPEG frames from a local camera through OpenCV.
package capture

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-breathe/pkg/camera"
)

// ErrReadFailed is returned when the device yields no frame
var ErrReadFailed = errors.New("camera read failed")

// Device is an open camera
type Device struct {
	config camera.Config
	vc     *gocv.VideoCapture
	frame  gocv.Mat
	mu     sync.Mutex // Protects the device and frame buffer
	closed bool
}

// Open acquires the camera described by cfg.
// A numeric device is opened as a local camera index.
func Open(cfg camera.Config) (*Device, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid camera config: %v", errs)
	}

	var device interface{} = cfg.Device
	if idx, err := strconv.Atoi(cfg.Device); err == nil {
		device = idx
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open camera %s: %w", cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open camera %s: device not available", cfg.Device)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	return &Device{
		config: cfg,
		vc:     vc,
		frame:  gocv.NewMat(),
	}, nil
}

// CaptureJPEG reads the next frame and encodes it as JPEG
func (c *Device) CaptureJPEG() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("%w: camera closed", ErrReadFailed)
	}

	if ok := c.vc.Read(&c.frame); !ok || c.frame.Empty() {
		return nil, ErrReadFailed
	}

	img := c.frame
	if c.config.Mirror {
		flipped := gocv.NewMat()
		defer flipped.Close()
		gocv.Flip(c.frame, &flipped, 1)
		img = flipped
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{int(gocv.IMWriteJpegQuality), c.config.Quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// The native buffer is freed on Close
	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())
	return jpeg, nil
}

// Close releases the camera device
func (c *Device) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.frame.Close()
	return c.vc.Close()
}
