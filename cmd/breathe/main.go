// breathe serves shoulder-motion breathing detection over HTTP and websockets.
// Landmarks come either from the browser (/ws/landmarks) or from a local
// camera paired with a pose-estimation service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-breathe/internal/config"
	"github.com/teslashibe/go-breathe/internal/log"
	"github.com/teslashibe/go-breathe/pkg/breathing"
	"github.com/teslashibe/go-breathe/pkg/camera"
	"github.com/teslashibe/go-breathe/pkg/camera/capture"
	"github.com/teslashibe/go-breathe/pkg/exercise"
	"github.com/teslashibe/go-breathe/pkg/pose"
	"github.com/teslashibe/go-breathe/pkg/session"
	"github.com/teslashibe/go-breathe/pkg/web"
)

func main() {
	cfg, autostart, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log.Level, cfg.Log.Format)

	detector := breathing.New(cfg.Detector)
	sess := session.New(detector, sessionOptions(cfg))
	server := web.NewServer(web.Options{
		Addr:          cfg.Addr(),
		StaticDir:     cfg.Server.StaticDir,
		AllowOrigins:  cfg.Server.AllowOrigins,
		MinVisibility: cfg.Pose.MinVisibility,
	}, sess, exercise.NewRegistry())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting go-breathe",
		"mode", cfg.Server.Mode,
		"port", cfg.Server.Port,
		"calibration_frames", cfg.Detector.CalibrationFrames,
		"breath_goal", cfg.Detector.BreathGoal,
	)

	if autostart {
		if err := sess.Start(ctx); err != nil {
			// Not fatal: the client can retry with POST /api/start
			log.Warn("session did not start", "error", err)
		}
	}

	if err := server.Run(ctx); err != nil {
		log.Error("web server failed", "error", err)
		os.Exit(1)
	}

	if sess.Running() {
		if err := sess.Stop(); err != nil {
			log.Warn("error releasing session", "error", err)
		}
	}
}

// loadConfig layers flags over the config file and environment.
func loadConfig() (config.Config, bool, error) {
	path := flag.String("config", "", "Path to TOML config file")
	port := flag.Int("port", 0, "HTTP port (overrides config and BREATHE_PORT)")
	mode := flag.String("mode", "", "Landmark source: browser or camera")
	preset := flag.String("preset", "", "Detector preset: default, sensitive, stable")
	cameraPreset := flag.String("camera-preset", "", "Camera preset: default, low, 1080p")
	device := flag.String("camera", "", "Camera device index or video URL")
	poseURL := flag.String("pose-url", "", "Pose service websocket URL")
	static := flag.String("static", "", "Directory of static files to serve at /")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	autostart := flag.Bool("autostart", true, "Start the session at boot")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		return cfg, false, err
	}

	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *mode != "" {
		cfg.Server.Mode = *mode
	}
	if *preset != "" {
		detector, ok := breathing.Preset(*preset)
		if !ok {
			return cfg, false, fmt.Errorf("unknown detector preset %q", *preset)
		}
		cfg.Detector = detector
	}
	if *cameraPreset != "" {
		cam := camera.GetPreset(*cameraPreset)
		if cam == nil {
			return cfg, false, fmt.Errorf("unknown camera preset %q", *cameraPreset)
		}
		cam.Device = cfg.Camera.Device
		cfg.Camera = *cam
	}
	if *device != "" {
		cfg.Camera.Device = *device
	}
	if *poseURL != "" {
		cfg.Pose.URL = *poseURL
	}
	if *static != "" {
		cfg.Server.StaticDir = *static
	}
	if *debug {
		cfg.Log.Level = "debug"
	}

	return cfg, *autostart, cfg.Validate()
}

// sessionOptions wires the camera pipeline in camera mode.
func sessionOptions(cfg config.Config) session.Options {
	opts := session.Options{MinVisibility: cfg.Pose.MinVisibility}
	if cfg.Server.Mode != config.ModeCamera {
		return opts
	}

	opts.FrameInterval = camera.FrameInterval(cfg.Camera.Framerate)
	opts.Camera = func() (session.Camera, error) {
		c, err := capture.Open(cfg.Camera)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	opts.Estimator = func(ctx context.Context) (pose.Estimator, error) {
		e, err := pose.DialRemote(ctx, cfg.Pose)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
	return opts
}
