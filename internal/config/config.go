// Package config loads the go-breathe server configuration.
//
// Values come from three layers, later ones winning: built-in defaults,
// an optional TOML file, and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/teslashibe/go-breathe/pkg/breathing"
	"github.com/teslashibe/go-breathe/pkg/camera"
	"github.com/teslashibe/go-breathe/pkg/pose"
)

// Landmark sources
const (
	ModeBrowser = "browser" // Landmarks pushed over /ws/landmarks
	ModeCamera  = "camera"  // Local camera plus pose service
)

// Defaults
const (
	DefaultPort      = 8080
	DefaultLogLevel  = "info"
	DefaultLogFormat = "" // text, or json when GO_ENV=production
)

// Config is the full server configuration.
type Config struct {
	Server   Server            `toml:"server" json:"server"`
	Log      Log               `toml:"log" json:"log"`
	Camera   camera.Config     `toml:"camera" json:"camera"`
	Pose     pose.RemoteConfig `toml:"pose" json:"pose"`
	Detector breathing.Config  `toml:"detector" json:"detector"`
}

// Server holds the HTTP listener settings.
type Server struct {
	Port         int    `toml:"port" json:"port"`
	Mode         string `toml:"mode" json:"mode"`                   // browser or camera
	StaticDir    string `toml:"static_dir" json:"static_dir"`       // Optional directory served at /
	AllowOrigins string `toml:"allow_origins" json:"allow_origins"` // CORS origins, comma separated
}

// Log holds the logger settings.
type Log struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"` // text or json
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Port:         DefaultPort,
			Mode:         ModeBrowser,
			AllowOrigins: "*",
		},
		Log: Log{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Camera:   camera.DefaultConfig(),
		Pose:     pose.DefaultRemoteConfig(),
		Detector: breathing.DefaultConfig(),
	}
}

// Load reads the configuration. An empty path or a missing file yields
// the defaults; a file that exists but does not parse is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return cfg, fmt.Errorf("failed to decode %s: %w", path, err)
			}
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv applies environment variable overrides.
func (c *Config) ApplyEnv() {
	if port := os.Getenv("BREATHE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if mode := os.Getenv("BREATHE_MODE"); mode != "" {
		c.Server.Mode = strings.ToLower(mode)
	}
	if level := os.Getenv("BREATHE_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if format := os.Getenv("BREATHE_LOG_FORMAT"); format != "" {
		c.Log.Format = format
	}
	if device := os.Getenv("CAMERA_DEVICE"); device != "" {
		c.Camera.Device = device
	}
	if url := os.Getenv("POSE_URL"); url != "" {
		c.Pose.URL = url
	}
}

// ValidationError collects every invalid field.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

// Validate checks all sections and returns a *ValidationError when any fail.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	switch c.Server.Mode {
	case ModeBrowser:
	case ModeCamera:
		for _, p := range c.Camera.Validate() {
			problems = append(problems, "camera."+p)
		}
		if c.Pose.URL == "" {
			problems = append(problems, "pose.url is required in camera mode")
		}
	default:
		problems = append(problems, fmt.Sprintf("server.mode %q must be browser or camera", c.Server.Mode))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	for _, p := range c.Detector.Validate() {
		problems = append(problems, "detector."+p)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
