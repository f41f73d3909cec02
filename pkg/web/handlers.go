package web

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-breathe/pkg/breathing"
	"github.com/teslashibe/go-breathe/pkg/exercise"
	"github.com/teslashibe/go-breathe/pkg/session"
)

// StateResponse is returned by the state and control endpoints
type StateResponse struct {
	Session  session.Status  `json:"session"`
	Detector breathing.State `json:"detector"`
}

// GuideResponse pairs the guided step with what the detector currently sees
type GuideResponse struct {
	exercise.Guide
	Detected breathing.Phase `json:"detected"`
	Matches  bool            `json:"matches"`
}

func errorJSON(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) stateResponse() StateResponse {
	return StateResponse{
		Session:  s.session.Status(),
		Detector: s.detector.State(),
	}
}

// handleHealth returns liveness plus connection counts
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":        "ok",
		"running":       s.session.Running(),
		"state_clients": s.stateHub.ClientCount(),
		"state_dropped": s.stateHub.Dropped(),
		"ingest":        s.ingest.Stats(),
	})
}

// handleState returns the session and detector snapshot
func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(s.stateResponse())
}

// handleReset restarts calibration without touching the session lifecycle
func (s *Server) handleReset(c *fiber.Ctx) error {
	s.session.Reset()
	return c.JSON(s.stateResponse())
}

// handleStart acquires resources and begins a fresh calibration
func (s *Server) handleStart(c *fiber.Ctx) error {
	err := s.session.Start(c.UserContext())

	var rerr *session.ResourceError
	switch {
	case err == nil:
		return c.JSON(s.stateResponse())
	case errors.Is(err, session.ErrAlreadyRunning):
		return errorJSON(c, fiber.StatusConflict, err)
	case errors.As(err, &rerr):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":    err.Error(),
			"resource": rerr.Resource,
		})
	default:
		return errorJSON(c, fiber.StatusInternalServerError, err)
	}
}

// handleStop releases resources and freezes the detector
func (s *Server) handleStop(c *fiber.Ctx) error {
	if err := s.session.Stop(); err != nil {
		if errors.Is(err, session.ErrNotRunning) {
			return errorJSON(c, fiber.StatusConflict, err)
		}
		s.logger.Warn("error releasing session resources", "error", err)
	}
	return c.JSON(s.stateResponse())
}

// handleGetTuning returns the runtime-tunable detector parameters
func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	return c.JSON(s.detector.TuningParams())
}

// handleSetTuning applies non-zero fields of the request body
func (s *Server) handleSetTuning(c *fiber.Ctx) error {
	var params breathing.TuningParams
	if err := c.BodyParser(&params); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}

	s.detector.SetTuningParams(params)
	s.logger.Info("tuning updated", "params", params)

	return c.JSON(s.detector.TuningParams())
}

// handleListExercises returns the catalog
func (s *Server) handleListExercises(c *fiber.Ctx) error {
	return c.JSON(s.exercises.List())
}

// handleGetExercise returns one exercise
func (s *Server) handleGetExercise(c *fiber.Ctx) error {
	ex, err := s.exercises.Get(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, err)
	}
	return c.JSON(ex)
}

// handleGuide returns the guided step at ?elapsed_ms and whether the
// detected phase agrees with it
func (s *Server) handleGuide(c *fiber.Ctx) error {
	ex, err := s.exercises.Get(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, err)
	}

	elapsedMs, err := strconv.ParseInt(c.Query("elapsed_ms", "0"), 10, 64)
	if err != nil || elapsedMs < 0 {
		return errorJSON(c, fiber.StatusBadRequest, errors.New("elapsed_ms must be a non-negative integer"))
	}

	pacer, err := exercise.NewPacer(ex)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err)
	}

	guide := pacer.At(time.Duration(elapsedMs) * time.Millisecond)
	detected := s.detector.Phase()

	return c.JSON(GuideResponse{
		Guide:    guide,
		Detected: detected,
		Matches:  !guide.Done && exercise.Matches(guide.Step, detected),
	})
}
