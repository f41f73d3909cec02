// Package camera provides the local camera capture used in camera mode.
// Frames are delivered as JPEG for the pose-estimation service.
package camera

import (
	"fmt"
	"time"
)

// Config holds the capture settings.
type Config struct {
	Device    string `toml:"device" json:"device"`       // Device index ("0") or a video file/stream URL
	Width     int    `toml:"width" json:"width"`         // Requested frame width in pixels
	Height    int    `toml:"height" json:"height"`       // Requested frame height in pixels
	Framerate int    `toml:"framerate" json:"framerate"` // Target FPS
	Quality   int    `toml:"quality" json:"quality"`     // JPEG quality 1-100
	Mirror    bool   `toml:"mirror" json:"mirror"`       // Flip horizontally (selfie view)
}

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetLow     = "low"
	Preset1080p   = "1080p"
)

// DefaultConfig returns a 720p front-camera configuration.
// Shoulders only need to be resolved to ~0.5% of frame height.
func DefaultConfig() Config {
	return Config{
		Device:    "0",
		Width:     1280,
		Height:    720,
		Framerate: 30,
		Quality:   80,
		Mirror:    true,
	}
}

// LowConfig returns a 640x480 configuration for slow pose services.
func LowConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	cfg.Quality = 70
	return cfg
}

// HD1080Config returns a 1080p configuration.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	return cfg
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	var cfg Config
	switch name {
	case PresetDefault:
		cfg = DefaultConfig()
	case PresetLow:
		cfg = LowConfig()
	case Preset1080p:
		cfg = HD1080Config()
	default:
		return nil
	}
	return &cfg
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device == "" {
		errors = append(errors, "device must not be empty")
	}
	if c.Width < 160 || c.Width > 4096 {
		errors = append(errors, fmt.Sprintf("width must be between 160 and 4096, got %d", c.Width))
	}
	if c.Height < 120 || c.Height > 2160 {
		errors = append(errors, fmt.Sprintf("height must be between 120 and 2160, got %d", c.Height))
	}
	if c.Framerate < 1 || c.Framerate > 120 {
		errors = append(errors, "framerate must be between 1 and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	return errors
}

// FrameInterval converts a framerate into the capture tick period.
func FrameInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = 30
	}
	return time.Second / time.Duration(fps)
}
