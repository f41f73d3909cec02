// Package exercise provides guided breathing exercises: a catalog of timed
// patterns and a pacer that tells the user which step they should be in.
package exercise

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-breathe/pkg/breathing"
)

// Step is one segment of a guided breathing cycle.
type Step string

const (
	StepInhale    Step = "inhale"
	StepHold      Step = "hold"
	StepExhale    Step = "exhale"
	StepHoldAfter Step = "hold_after" // Hold with empty lungs (box breathing)
)

// Label returns the prompt shown to the user.
func (s Step) Label() string {
	switch s {
	case StepInhale:
		return "Breathe In"
	case StepExhale:
		return "Breathe Out"
	case StepHold, StepHoldAfter:
		return "Hold"
	default:
		return ""
	}
}

// Difficulty rates how demanding an exercise is.
type Difficulty string

const (
	Easy     Difficulty = "easy"
	Medium   Difficulty = "medium"
	Advanced Difficulty = "advanced"
)

// Pattern is the length of each step in whole seconds. Hold and HoldAfter
// are optional (zero skips the step).
type Pattern struct {
	Inhale    int `json:"inhale"`
	Hold      int `json:"hold,omitempty"`
	Exhale    int `json:"exhale"`
	HoldAfter int `json:"hold_after,omitempty"`
}

// Segment is one step with its duration.
type Segment struct {
	Step     Step          `json:"step"`
	Duration time.Duration `json:"duration"`
}

// Segments returns the steps of one cycle in order, skipping empty holds.
func (p Pattern) Segments() []Segment {
	segs := make([]Segment, 0, 4)
	add := func(step Step, secs int) {
		if secs > 0 {
			segs = append(segs, Segment{Step: step, Duration: time.Duration(secs) * time.Second})
		}
	}
	add(StepInhale, p.Inhale)
	add(StepHold, p.Hold)
	add(StepExhale, p.Exhale)
	add(StepHoldAfter, p.HoldAfter)
	return segs
}

// CycleDuration returns the length of one full cycle.
func (p Pattern) CycleDuration() time.Duration {
	return time.Duration(p.Inhale+p.Hold+p.Exhale+p.HoldAfter) * time.Second
}

// Validate checks that the pattern can be paced.
func (p Pattern) Validate() error {
	if p.Inhale <= 0 || p.Exhale <= 0 {
		return fmt.Errorf("%w: inhale and exhale must be positive", ErrInvalidPattern)
	}
	if p.Hold < 0 || p.HoldAfter < 0 {
		return fmt.Errorf("%w: holds must not be negative", ErrInvalidPattern)
	}
	return nil
}

// String formats the pattern as "4-7-8".
func (p Pattern) String() string {
	s := fmt.Sprintf("%d", p.Inhale)
	if p.Hold > 0 {
		s += fmt.Sprintf("-%d", p.Hold)
	}
	s += fmt.Sprintf("-%d", p.Exhale)
	if p.HoldAfter > 0 {
		s += fmt.Sprintf("-%d", p.HoldAfter)
	}
	return s
}

// Exercise is a named guided breathing pattern.
type Exercise struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Pattern      Pattern    `json:"pattern"`
	Benefits     []string   `json:"benefits"`
	Difficulty   Difficulty `json:"difficulty"`
	TargetCycles int        `json:"target_cycles"` // 0 = until stopped
}

// Matches reports whether the detected phase agrees with the guided step.
// Both holds accept the detector's hold phase; calibrating never matches.
func Matches(step Step, detected breathing.Phase) bool {
	switch step {
	case StepInhale:
		return detected == breathing.PhaseInhale
	case StepExhale:
		return detected == breathing.PhaseExhale
	case StepHold, StepHoldAfter:
		return detected == breathing.PhaseHold
	default:
		return false
	}
}
