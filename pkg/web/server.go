// Package web serves the breathing detector over HTTP: a small REST API for
// control and tuning, a websocket that ingests browser-side pose landmarks,
// and a websocket that broadcasts detector state and events.
package web

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/teslashibe/go-breathe/internal/log"
	"github.com/teslashibe/go-breathe/pkg/breathing"
	"github.com/teslashibe/go-breathe/pkg/exercise"
	"github.com/teslashibe/go-breathe/pkg/hub"
	"github.com/teslashibe/go-breathe/pkg/protocol"
	"github.com/teslashibe/go-breathe/pkg/session"
)

// Options configures the server.
type Options struct {
	Addr          string
	StaticDir     string        // Served at / when set
	AllowOrigins  string        // CORS origins, "*" by default
	StateInterval time.Duration // How often state is pushed to /ws/state
	MinVisibility float64       // Landmark cutoff for full-pose frames
}

// Server is the breathing web server
type Server struct {
	app       *fiber.App
	opts      Options
	logger    *slog.Logger
	session   *session.Session
	detector  *breathing.Detector
	exercises *exercise.Registry

	// Hub for state broadcast (thread-safe)
	stateHub *hub.Hub

	// Landmark ingest connections
	ingest *Ingest
}

// NewServer creates the server and subscribes it to detector events.
func NewServer(opts Options, sess *session.Session, exercises *exercise.Registry) *Server {
	if opts.AllowOrigins == "" {
		opts.AllowOrigins = "*"
	}
	if opts.StateInterval <= 0 {
		opts.StateInterval = 100 * time.Millisecond
	}

	s := &Server{
		opts:      opts,
		logger:    log.Component("web"),
		session:   sess,
		detector:  sess.Detector(),
		exercises: exercises,
		stateHub:  hub.New("state"),
	}
	s.ingest = NewIngest(sess, opts.MinVisibility)
	s.stateHub.Welcome = s.stateMessage
	s.detector.OnEvent(s.onEvent)

	app := fiber.New(fiber.Config{
		AppName:               "go-breathe",
		DisableStartupMessage: true,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: opts.AllowOrigins,
	}))

	if opts.StaticDir != "" {
		app.Static("/", opts.StaticDir)
	}

	// API routes
	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/state", s.handleState)
	api.Post("/reset", s.handleReset)
	api.Post("/start", s.handleStart)
	api.Post("/stop", s.handleStop)
	api.Get("/tuning", s.handleGetTuning)
	api.Put("/tuning", s.handleSetTuning)
	api.Get("/exercises", s.handleListExercises)
	api.Get("/exercises/:id", s.handleGetExercise)
	api.Get("/exercises/:id/guide", s.handleGuide)

	// WebSocket routes
	s.ingest.RegisterRoutes(app)
	s.registerStateRoute(app)

	s.app = app
	return s
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Ingest returns the landmark ingest endpoint
func (s *Server) Ingest() *Ingest {
	return s.ingest
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go s.stateHub.Run(ctx)
	go s.pushState(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", "addr", s.opts.Addr)
		errCh <- s.app.Listen(s.opts.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	s.logger.Info("web server stopped")
	return nil
}

// onEvent forwards detector notifications to state clients
func (s *Server) onEvent(e breathing.Event) {
	switch e.Type {
	case breathing.EventCalibrated, breathing.EventGoalReached, breathing.EventResourceError:
		s.logger.Info("detector event", "type", e.Type, "breaths", e.BreathCount, "error", e.Error)
	default:
		s.logger.Debug("detector event", "type", e.Type, "phase", e.Phase, "breaths", e.BreathCount)
	}

	msg, err := protocol.NewEventMessage(e)
	if err != nil {
		s.logger.Warn("failed to encode event", "error", err)
		return
	}
	if err := s.stateHub.BroadcastMessage(msg); err != nil {
		s.logger.Warn("failed to broadcast event", "error", err)
	}
}

// pushState broadcasts the detector state whenever it changed since the last tick
func (s *Server) pushState(ctx context.Context) {
	ticker := time.NewTicker(s.opts.StateInterval)
	defer ticker.Stop()

	var last protocol.StateData
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.stateHub.ClientCount() == 0 {
				continue
			}
			current := s.stateData()
			if reflect.DeepEqual(current, last) {
				continue
			}
			last = current

			msg, err := protocol.NewMessage(protocol.TypeState, current)
			if err != nil {
				continue
			}
			s.stateHub.BroadcastMessage(msg)
		}
	}
}

func (s *Server) stateData() protocol.StateData {
	st := s.session.Status()
	return protocol.StateData{
		SessionID: st.ID,
		Running:   st.Running,
		Detector:  s.detector.State(),
	}
}

func (s *Server) stateMessage() (*protocol.Message, error) {
	data := s.stateData()
	return protocol.NewStateMessage(data.SessionID, data.Running, data.Detector)
}
